package strategies

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/positive"
)

// straddle holds a call (slot 0) and a put (slot 1) at one strike.
type straddle struct{ Base }

func (s *straddle) check() error {
	if !s.strike(0).Equal(s.strike(1)) {
		return errors.NewStrategyError(string(s.kind), "validate", "call and put must share the strike")
	}
	return s.sameExpiration()
}

// LongStraddle buys a call and a put at the same strike.
type LongStraddle struct{ straddle }

// NewLongStraddle buys call and put; both quotes carry the same strike.
func NewLongStraddle(c Common, call, put LegQuote) (*LongStraddle, error) {
	s, err := build(KindLongStraddle, c, nil, call, put)
	if err != nil {
		return nil, err
	}
	return s.(*LongStraddle), nil
}

func (s *LongStraddle) breakEvens() ([]decimal.Decimal, error) {
	d := s.perUnit(s.debit())
	return []decimal.Decimal{s.strike(0).Sub(d), s.strike(0).Add(d)}, nil
}

func (s *LongStraddle) maxProfit() (positive.Positive, error) { return positive.Infinity, nil }

func (s *LongStraddle) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}

// ShortStraddle sells a call and a put at the same strike.
type ShortStraddle struct{ straddle }

// NewShortStraddle sells call and put; both quotes carry the same strike.
func NewShortStraddle(c Common, call, put LegQuote) (*ShortStraddle, error) {
	s, err := build(KindShortStraddle, c, nil, call, put)
	if err != nil {
		return nil, err
	}
	return s.(*ShortStraddle), nil
}

func (s *ShortStraddle) breakEvens() ([]decimal.Decimal, error) {
	c := s.perUnit(s.credit())
	return []decimal.Decimal{s.strike(0).Sub(c), s.strike(0).Add(c)}, nil
}

func (s *ShortStraddle) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *ShortStraddle) maxLoss() (positive.Positive, error) { return positive.Infinity, nil }

// strangle holds a put (slot 0) below a call (slot 1).
type strangle struct{ Base }

func (s *strangle) check() error {
	if err := s.ascending(0, 1); err != nil {
		return errors.NewStrategyError(string(s.kind), "validate", "the call strike must be above the put strike")
	}
	return s.sameExpiration()
}

// LongStrangle buys an out-of-the-money put and call.
type LongStrangle struct{ strangle }

// NewLongStrangle buys the put and the call.
func NewLongStrangle(c Common, put, call LegQuote) (*LongStrangle, error) {
	s, err := build(KindLongStrangle, c, nil, put, call)
	if err != nil {
		return nil, err
	}
	return s.(*LongStrangle), nil
}

func (s *LongStrangle) breakEvens() ([]decimal.Decimal, error) {
	d := s.perUnit(s.debit())
	return []decimal.Decimal{s.strike(0).Sub(d), s.strike(1).Add(d)}, nil
}

func (s *LongStrangle) maxProfit() (positive.Positive, error) { return positive.Infinity, nil }

func (s *LongStrangle) maxLoss() (positive.Positive, error) {
	return positive.Saturating(s.debit()), nil
}

// ShortStrangle sells an out-of-the-money put and call.
type ShortStrangle struct{ strangle }

// NewShortStrangle sells the put and the call.
func NewShortStrangle(c Common, put, call LegQuote) (*ShortStrangle, error) {
	s, err := build(KindShortStrangle, c, nil, put, call)
	if err != nil {
		return nil, err
	}
	return s.(*ShortStrangle), nil
}

func (s *ShortStrangle) breakEvens() ([]decimal.Decimal, error) {
	c := s.perUnit(s.credit())
	return []decimal.Decimal{s.strike(0).Sub(c), s.strike(1).Add(c)}, nil
}

func (s *ShortStrangle) maxProfit() (positive.Positive, error) {
	return positive.Saturating(s.credit()), nil
}

func (s *ShortStrangle) maxLoss() (positive.Positive, error) { return positive.Infinity, nil }
