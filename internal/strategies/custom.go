package strategies

import (
	"math"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

const customDescription = "A user-defined combination of option, spot, future and perpetual legs."

// Custom is an arbitrary non-empty set of legs. Its break-evens and
// extremes come from scanning the expiration P&L.
type Custom struct {
	Base
	high, low float64
	unbounded struct{ profit, loss bool }
}

// NewCustom builds a custom strategy from legs. Option legs become
// positions; every other leg is kept as a linear leg.
func NewCustom(name, symbol string, underlying positive.Positive, legs ...models.Leg) (*Custom, error) {
	s := &Custom{Base: Base{
		name:        name,
		kind:        KindCustom,
		description: customDescription,
		symbol:      symbol,
		underlying:  underlying,
	}}
	s.rules = s
	for _, l := range legs {
		if p, ok := l.(*models.Position); ok {
			s.positions = append(s.positions, p)
			continue
		}
		s.linear = append(s.linear, l)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.UpdateBreakEvenPoints(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Custom) check() error {
	if len(s.positions)+len(s.linear) == 0 {
		return errors.NewStrategyError(string(s.kind), "validate", "at least one leg is required")
	}
	return nil
}

// breakEvens scans the window around the strikes and the underlying at
// ScanStep and records the extremes on the way.
func (s *Custom) breakEvens() ([]decimal.Decimal, error) {
	legs := s.Legs()
	f := func(x float64) float64 {
		return models.PnLAtPrice(legs, positive.Saturating(decimal.NewFromFloat(x))).InexactFloat64()
	}
	lo, hi := s.scanWindow()
	sc := sampleProfit(f, lo, hi, ScanStep)
	s.high, s.low = sc.extremes()
	s.unbounded.profit = sc.rightSlope > 0
	s.unbounded.loss = sc.rightSlope < 0

	points := sc.breakEvens(f)
	out := make([]decimal.Decimal, len(points))
	for i, x := range points {
		out[i] = decimal.NewFromFloat(x)
	}
	return out, nil
}

// scanWindow spans the strikes, cost bases and underlying, widened by the
// display multipliers.
func (s *Custom) scanWindow() (float64, float64) {
	lo, hi := s.underlying.Float64(), s.underlying.Float64()
	widen := func(x float64) {
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	for _, p := range s.positions {
		widen(p.Option.StrikePrice.Float64())
	}
	for _, l := range s.linear {
		switch leg := l.(type) {
		case *models.SpotPosition:
			widen(leg.CostBasis.Float64())
		case *models.FuturePosition:
			widen(leg.EntryPrice.Float64())
		case *models.PerpetualPosition:
			widen(leg.EntryPrice.Float64())
		}
	}
	u := s.underlying.Float64()
	diff := math.Max(math.Abs(u-lo), math.Abs(u-hi))
	lo = math.Max(math.Min(lo, u-diff), ScanStep) * StrikePriceLowerBoundMultiplier
	hi = math.Max(hi, u+diff) * StrikePriceUpperBoundMultiplier
	return lo, hi
}

func (s *Custom) maxProfit() (positive.Positive, error) {
	if s.unbounded.profit {
		return positive.Infinity, nil
	}
	return positive.Saturating(decimal.NewFromFloat(s.high)), nil
}

func (s *Custom) maxLoss() (positive.Positive, error) {
	if s.unbounded.loss {
		return positive.Infinity, nil
	}
	return positive.Saturating(decimal.NewFromFloat(-s.low)), nil
}
