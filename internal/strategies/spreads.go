package strategies

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/positive"
)

// vertical holds the rules shared by the two-leg single-style spreads:
// slot 0 is the lower strike, slot 1 the higher.
type vertical struct {
	Base
}

func (v *vertical) check() error {
	if err := v.ascending(0, 1); err != nil {
		return err
	}
	return v.sameExpiration()
}

func (v *vertical) width() decimal.Decimal { return v.strike(1).Sub(v.strike(0)) }

// BullCallSpread is long the lower-strike call and short the higher.
type BullCallSpread struct{ vertical }

// NewBullCallSpread buys the call at low and sells the call at high.
func NewBullCallSpread(c Common, low, high LegQuote) (*BullCallSpread, error) {
	s, err := build(KindBullCallSpread, c, nil, low, high)
	if err != nil {
		return nil, err
	}
	return s.(*BullCallSpread), nil
}

func (s *BullCallSpread) breakEvens() ([]decimal.Decimal, error) {
	return []decimal.Decimal{s.strike(0).Add(s.perUnit(s.debit()))}, nil
}

func (s *BullCallSpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.width().Mul(s.quantity()).Sub(s.debit())), nil
}

func (s *BullCallSpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}

// BearCallSpread is short the lower-strike call and long the higher.
type BearCallSpread struct{ vertical }

// NewBearCallSpread sells the call at low and buys the call at high.
func NewBearCallSpread(c Common, low, high LegQuote) (*BearCallSpread, error) {
	s, err := build(KindBearCallSpread, c, nil, low, high)
	if err != nil {
		return nil, err
	}
	return s.(*BearCallSpread), nil
}

func (s *BearCallSpread) breakEvens() ([]decimal.Decimal, error) {
	return []decimal.Decimal{s.strike(0).Add(s.perUnit(s.credit()))}, nil
}

func (s *BearCallSpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *BearCallSpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.width().Mul(s.quantity()).Sub(s.credit())), nil
}

// BullPutSpread is long the lower-strike put and short the higher.
type BullPutSpread struct{ vertical }

// NewBullPutSpread buys the put at low and sells the put at high.
func NewBullPutSpread(c Common, low, high LegQuote) (*BullPutSpread, error) {
	s, err := build(KindBullPutSpread, c, nil, low, high)
	if err != nil {
		return nil, err
	}
	return s.(*BullPutSpread), nil
}

func (s *BullPutSpread) breakEvens() ([]decimal.Decimal, error) {
	return []decimal.Decimal{s.strike(1).Sub(s.perUnit(s.credit()))}, nil
}

func (s *BullPutSpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *BullPutSpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.width().Mul(s.quantity()).Sub(s.credit())), nil
}

// BearPutSpread is short the lower-strike put and long the higher.
type BearPutSpread struct{ vertical }

// NewBearPutSpread sells the put at low and buys the put at high.
func NewBearPutSpread(c Common, low, high LegQuote) (*BearPutSpread, error) {
	s, err := build(KindBearPutSpread, c, nil, low, high)
	if err != nil {
		return nil, err
	}
	return s.(*BearPutSpread), nil
}

func (s *BearPutSpread) breakEvens() ([]decimal.Decimal, error) {
	return []decimal.Decimal{s.strike(1).Sub(s.perUnit(s.debit()))}, nil
}

func (s *BearPutSpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.width().Mul(s.quantity()).Sub(s.debit())), nil
}

func (s *BearPutSpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}

// PoorMansCoveredCall is a long deep in-the-money call, usually a LEAPS,
// financing a short near-term call at a higher strike.
type PoorMansCoveredCall struct{ Base }

// NewPoorMansCoveredCall buys the long-dated call and sells the near-term
// one. The long leg's Expiration overrides the common expiration.
func NewPoorMansCoveredCall(c Common, long, short LegQuote) (*PoorMansCoveredCall, error) {
	s, err := build(KindPoorMansCoveredCall, c, nil, long, short)
	if err != nil {
		return nil, err
	}
	return s.(*PoorMansCoveredCall), nil
}

func (s *PoorMansCoveredCall) check() error {
	if err := s.ascending(0, 1); err != nil {
		return err
	}
	long, short := s.positions[0].Option, s.positions[1].Option
	if long.Expiration.Years() < short.Expiration.Years() {
		return errors.NewStrategyError(string(s.kind), "validate", "the long call cannot expire before the short call")
	}
	return nil
}

func (s *PoorMansCoveredCall) breakEvens() ([]decimal.Decimal, error) {
	return []decimal.Decimal{s.strike(0).Add(s.perUnit(s.debit()))}, nil
}

func (s *PoorMansCoveredCall) maxProfit() (positive.Positive, error) {
	width := s.strike(1).Sub(s.strike(0))
	return positive.Saturating(width.Mul(s.quantity()).Sub(s.debit())), nil
}

func (s *PoorMansCoveredCall) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}
