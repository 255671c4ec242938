package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/positive"
)

// wingTolerance is how far the two butterfly wings may differ in width.
var wingTolerance = decimal.NewFromFloat(BreakEvenEpsilon)

// butterfly holds the rules shared by the three-strike call butterflies:
// equidistant wings around the body at slot 1.
type butterfly struct {
	Base
}

func (b *butterfly) check() error {
	if err := b.ascending(0, 1, 2); err != nil {
		return err
	}
	lower, upper := b.strike(1).Sub(b.strike(0)), b.strike(2).Sub(b.strike(1))
	if lower.Sub(upper).Abs().GreaterThan(wingTolerance) {
		return errors.NewStrategyError(string(b.kind), "validate",
			fmt.Sprintf("wings must be equidistant from the body, got %s and %s", lower, upper))
	}
	return b.sameExpiration()
}

func (b *butterfly) wing() decimal.Decimal { return b.strike(1).Sub(b.strike(0)) }

// LongButterflySpread buys the wings and sells twice the body.
type LongButterflySpread struct{ butterfly }

// NewLongButterflySpread builds the long call butterfly from the low,
// middle and high strikes.
func NewLongButterflySpread(c Common, low, mid, high LegQuote) (*LongButterflySpread, error) {
	s, err := build(KindLongButterflySpread, c, nil, low, mid, high)
	if err != nil {
		return nil, err
	}
	return s.(*LongButterflySpread), nil
}

func (s *LongButterflySpread) breakEvens() ([]decimal.Decimal, error) {
	d := s.perUnit(s.debit())
	return []decimal.Decimal{s.strike(0).Add(d), s.strike(2).Sub(d)}, nil
}

func (s *LongButterflySpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.wing().Mul(s.quantity()).Sub(s.debit())), nil
}

func (s *LongButterflySpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}

// ShortButterflySpread sells the wings and buys twice the body.
type ShortButterflySpread struct{ butterfly }

// NewShortButterflySpread builds the short call butterfly from the low,
// middle and high strikes.
func NewShortButterflySpread(c Common, low, mid, high LegQuote) (*ShortButterflySpread, error) {
	s, err := build(KindShortButterflySpread, c, nil, low, mid, high)
	if err != nil {
		return nil, err
	}
	return s.(*ShortButterflySpread), nil
}

func (s *ShortButterflySpread) breakEvens() ([]decimal.Decimal, error) {
	c := s.perUnit(s.credit())
	return []decimal.Decimal{s.strike(0).Add(c), s.strike(2).Sub(c)}, nil
}

func (s *ShortButterflySpread) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *ShortButterflySpread) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.wing().Mul(s.quantity()).Sub(s.credit())), nil
}

// CallButterfly is long a low-strike call, short middle-strike calls and
// long a high-strike call, each leg sized as configured. Unequal ratios make
// the wings asymmetric, so the extremes and break-evens come from the
// expiration profile.
type CallButterfly struct{ Base }

// NewCallButterfly builds the butterfly; each quote's Quantity, when set,
// overrides the common quantity for that leg.
func NewCallButterfly(c Common, low, mid, high LegQuote) (*CallButterfly, error) {
	s, err := build(KindCallButterfly, c, nil, low, mid, high)
	if err != nil {
		return nil, err
	}
	return s.(*CallButterfly), nil
}

func (s *CallButterfly) check() error {
	if err := s.ascending(0, 1, 2); err != nil {
		return err
	}
	return s.sameExpiration()
}

func (s *CallButterfly) breakEvens() ([]decimal.Decimal, error) { return s.profile().zeros(), nil }
func (s *CallButterfly) maxProfit() (positive.Positive, error)  { return s.profile().maxProfit(), nil }
func (s *CallButterfly) maxLoss() (positive.Positive, error)    { return s.profile().maxLoss(), nil }

// IronCondor sells a put spread below the underlying and a call spread
// above it. Slots: long put, short put, short call, long call.
type IronCondor struct{ Base }

// NewIronCondor builds the condor from its four strikes, lowest first.
func NewIronCondor(c Common, longPut, shortPut, shortCall, longCall LegQuote) (*IronCondor, error) {
	s, err := build(KindIronCondor, c, nil, longPut, shortPut, shortCall, longCall)
	if err != nil {
		return nil, err
	}
	return s.(*IronCondor), nil
}

func (s *IronCondor) check() error {
	if err := s.ascending(0, 1, 2, 3); err != nil {
		return err
	}
	return s.sameExpiration()
}

func (s *IronCondor) breakEvens() ([]decimal.Decimal, error) {
	c := s.perUnit(s.credit())
	return []decimal.Decimal{s.strike(1).Sub(c), s.strike(2).Add(c)}, nil
}

func (s *IronCondor) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *IronCondor) maxLoss() (positive.Positive, error) {
	wing := decimal.Max(s.strike(1).Sub(s.strike(0)), s.strike(3).Sub(s.strike(2)))
	return positive.Saturating(wing.Mul(s.quantity()).Sub(s.credit())), nil
}

// IronButterfly is an iron condor whose short strikes coincide.
type IronButterfly struct{ Base }

// NewIronButterfly builds the butterfly; shortPut and shortCall share the
// body strike.
func NewIronButterfly(c Common, longPut, shortPut, shortCall, longCall LegQuote) (*IronButterfly, error) {
	s, err := build(KindIronButterfly, c, nil, longPut, shortPut, shortCall, longCall)
	if err != nil {
		return nil, err
	}
	return s.(*IronButterfly), nil
}

func (s *IronButterfly) check() error {
	if err := s.ascending(0, 1); err != nil {
		return err
	}
	if err := s.ascending(2, 3); err != nil {
		return err
	}
	if !s.strike(1).Equal(s.strike(2)) {
		return errors.NewStrategyError(string(s.kind), "validate", "short put and short call must share the body strike")
	}
	return s.sameExpiration()
}

func (s *IronButterfly) breakEvens() ([]decimal.Decimal, error) {
	c := s.perUnit(s.credit())
	return []decimal.Decimal{s.strike(1).Sub(c), s.strike(1).Add(c)}, nil
}

func (s *IronButterfly) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *IronButterfly) maxLoss() (positive.Positive, error) {
	wing := decimal.Max(s.strike(1).Sub(s.strike(0)), s.strike(3).Sub(s.strike(2)))
	return positive.Saturating(wing.Mul(s.quantity()).Sub(s.credit())), nil
}
