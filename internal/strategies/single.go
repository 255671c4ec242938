package strategies

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/positive"
)

// single is a one-option strategy. Its break-even is the position's own.
type single struct{ Base }

func (s *single) check() error { return nil }

func (s *single) breakEvens() ([]decimal.Decimal, error) {
	be, ok := s.positions[0].BreakEven()
	if !ok {
		return nil, nil
	}
	return []decimal.Decimal{be.Decimal()}, nil
}

func (s *single) maxProfit() (positive.Positive, error) { return s.profile().maxProfit(), nil }
func (s *single) maxLoss() (positive.Positive, error)   { return s.profile().maxLoss(), nil }

// LongCall buys one call.
type LongCall struct{ single }

// LongPut buys one put.
type LongPut struct{ single }

// ShortCall sells one call.
type ShortCall struct{ single }

// ShortPut sells one put.
type ShortPut struct{ single }

func NewLongCall(c Common, q LegQuote) (*LongCall, error) {
	s, err := build(KindLongCall, c, nil, q)
	if err != nil {
		return nil, err
	}
	return s.(*LongCall), nil
}

func NewLongPut(c Common, q LegQuote) (*LongPut, error) {
	s, err := build(KindLongPut, c, nil, q)
	if err != nil {
		return nil, err
	}
	return s.(*LongPut), nil
}

func NewShortCall(c Common, q LegQuote) (*ShortCall, error) {
	s, err := build(KindShortCall, c, nil, q)
	if err != nil {
		return nil, err
	}
	return s.(*ShortCall), nil
}

func NewShortPut(c Common, q LegQuote) (*ShortPut, error) {
	s, err := build(KindShortPut, c, nil, q)
	if err != nil {
		return nil, err
	}
	return s.(*ShortPut), nil
}
