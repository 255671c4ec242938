package strategies

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

// profitAreaSamples is the number of points of the profit-area integral.
const profitAreaSamples = 1001

// ProfitAt is the strategy P&L at expiration with the underlying at price.
func ProfitAt(s Strategy, price positive.Positive) decimal.Decimal {
	return models.PnLAtPrice(s.Legs(), price)
}

// PnLCurve evaluates ProfitAt at every price.
func PnLCurve(s Strategy, prices []positive.Positive) []decimal.Decimal {
	legs := s.Legs()
	out := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		out[i] = models.PnLAtPrice(legs, p)
	}
	return out
}

// TotalCost sums what every leg costs to hold.
func TotalCost(s Strategy) positive.Positive {
	total := positive.Zero
	for _, l := range s.Legs() {
		total = total.Add(l.TotalCost())
	}
	return total
}

// NetCost is the total cost minus the premium received; negative for a net
// credit.
func NetCost(s Strategy) decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Legs() {
		if p, ok := l.(*models.Position); ok {
			total = total.Add(p.NetCost())
			continue
		}
		total = total.Add(l.TotalCost().Decimal())
	}
	return total
}

// NetPremiumReceived is the premium of the short options minus the cost of
// the long ones, fees included, floored at zero.
func NetPremiumReceived(s Strategy) positive.Positive {
	net := decimal.Zero
	for _, p := range s.Positions() {
		net = net.Sub(p.NetCost())
	}
	return positive.Saturating(net)
}

// Fees sums the fees of every leg.
func Fees(s Strategy) positive.Positive {
	total := positive.Zero
	for _, l := range s.Legs() {
		total = total.Add(l.Fees())
	}
	return total
}

// Volume sums the size of every leg.
func Volume(s Strategy) positive.Positive {
	total := positive.Zero
	for _, l := range s.Legs() {
		total = total.Add(l.Size())
	}
	return total
}

// Strikes returns the distinct option strikes in ascending order.
func Strikes(s Strategy) []positive.Positive {
	var out []positive.Positive
	for _, p := range s.Positions() {
		out = append(out, p.Option.StrikePrice)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	uniq := out[:0]
	for i, k := range out {
		if i == 0 || !k.Equal(out[i-1]) {
			uniq = append(uniq, k)
		}
	}
	return uniq
}

// MaxMinStrikes returns the lowest and highest option strike, or the
// underlying price twice when the strategy holds no options.
func MaxMinStrikes(s Strategy) (lo, hi positive.Positive) {
	strikes := Strikes(s)
	if len(strikes) == 0 {
		return s.UnderlyingPrice(), s.UnderlyingPrice()
	}
	return strikes[0], strikes[len(strikes)-1]
}

// RangeToShow is the price window worth plotting. It covers the underlying,
// the strikes and the break-evens, is widened symmetrically around the
// underlying by its largest distance to a strike and then scaled by the
// display multipliers.
func RangeToShow(s Strategy) (lo, hi positive.Positive) {
	u := s.UnderlyingPrice().Decimal()
	minK, maxK := MaxMinStrikes(s)
	diff := decimal.Max(u.Sub(minK.Decimal()).Abs(), u.Sub(maxK.Decimal()).Abs())

	low := decimal.Min(u.Sub(diff), minK.Decimal())
	high := decimal.Max(u.Add(diff), maxK.Decimal())
	for _, be := range s.BreakEvenPoints() {
		low = decimal.Min(low, be.Decimal())
		high = decimal.Max(high, be.Decimal())
	}
	lo = positive.Saturating(low.Mul(decimal.NewFromFloat(StrikePriceLowerBoundMultiplier)))
	hi = positive.Saturating(high.Mul(decimal.NewFromFloat(StrikePriceUpperBoundMultiplier)))
	return lo, hi
}

// BestRangeToShow returns RangeToShow as an arithmetic progression of the
// given step. The last price is at or above the upper bound.
func BestRangeToShow(s Strategy, step positive.Positive) ([]positive.Positive, error) {
	if step.IsZero() {
		return nil, errors.NewValidationError("step", step, "must be greater than zero")
	}
	lo, hi := RangeToShow(s)
	n := hi.Sub(lo).Div(step.Decimal()).Ceil().IntPart() + 1
	out := make([]positive.Positive, n)
	for i := range out {
		out[i] = lo.Add(step.Mul(positive.MustDecimal(decimal.NewFromInt(int64(i)))))
	}
	return out, nil
}

// ProfitArea is the integral of the positive part of the expiration P&L
// over RangeToShow, divided by the underlying price.
func ProfitArea(s Strategy) (decimal.Decimal, error) {
	if len(s.Legs()) == 0 {
		return decimal.Zero, errors.NewStrategyError(string(s.Kind()), "profit_area", "no legs")
	}
	lo, hi := RangeToShow(s)
	xs := floats.Span(make([]float64, profitAreaSamples), lo.Float64(), hi.Float64())
	ys := make([]float64, len(xs))
	legs := s.Legs()
	for i, x := range xs {
		ys[i] = math.Max(models.PnLAtPrice(legs, positive.Saturating(decimal.NewFromFloat(x))).InexactFloat64(), 0)
	}
	area := integrate.Trapezoidal(xs, ys)
	u := s.UnderlyingPrice().Float64()
	if u == 0 {
		return decimal.Zero, errors.NewStrategyError(string(s.Kind()), "profit_area", "underlying price is zero")
	}
	return decimal.NewFromFloat(area / u), nil
}

// ProfitRatio is max profit over max loss in percent: infinite when
// nothing can be lost, zero when the loss is unbounded and the profit is not.
func ProfitRatio(s Strategy) (positive.Positive, error) {
	profit, err := s.MaxProfit()
	if err != nil {
		return positive.Zero, err
	}
	loss, err := s.MaxLoss()
	if err != nil {
		return positive.Zero, err
	}
	switch {
	case loss.IsZero(), profit.IsInfinite():
		return positive.Infinity, nil
	case loss.IsInfinite():
		return positive.Zero, nil
	}
	return profit.Div(loss).Mul(positive.Hundred), nil
}

// RangeOfProfit is the total width of the price intervals where the
// strategy makes money, infinite if one of them is unbounded above.
func RangeOfProfit(s Strategy) (positive.Positive, error) {
	bes := s.BreakEvenPoints()
	if len(bes) == 0 {
		return positive.Zero, errors.Wrapf(errors.ErrBreakEvenUnavailable, "%s", s.Kind())
	}
	legs := s.Legs()
	profitable := func(p decimal.Decimal) bool {
		return models.PnLAtPrice(legs, positive.Saturating(p)).IsPositive()
	}

	total := positive.Zero
	if profitable(bes[0].Decimal().Div(decimal.NewFromInt(2))) {
		total = total.Add(bes[0])
	}
	for i := 1; i < len(bes); i++ {
		mid := bes[i-1].Decimal().Add(bes[i].Decimal()).Div(decimal.NewFromInt(2))
		if profitable(mid) {
			total = total.Add(positive.MustDecimal(bes[i].Sub(bes[i-1])))
		}
	}
	if profitable(bes[len(bes)-1].Decimal().Add(decimal.NewFromInt(1))) {
		return positive.Infinity, nil
	}
	return total, nil
}
