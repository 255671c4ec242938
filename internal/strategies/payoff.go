package strategies

import (
	"sort"

	"github.com/shopspring/decimal"

	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

// profile is the expiration P&L of legs whose payoff is linear between
// strikes: vanilla options and delta-one legs. It is exact, so extremes and
// zero crossings come straight from the kinks.
type profile struct {
	prices []decimal.Decimal // zero and every strike, ascending
	values []decimal.Decimal
	slope  decimal.Decimal // beyond the highest price
}

func newProfile(legs []models.Leg) profile {
	kinks := map[string]decimal.Decimal{"0": decimal.Zero}
	for _, l := range legs {
		if p, ok := l.(*models.Position); ok {
			k := p.Option.StrikePrice.Decimal()
			kinks[k.String()] = k
		}
	}
	prices := make([]decimal.Decimal, 0, len(kinks))
	for _, k := range kinks {
		prices = append(prices, k)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	at := func(x decimal.Decimal) decimal.Decimal {
		return models.PnLAtPrice(legs, positive.MustDecimal(x))
	}
	values := make([]decimal.Decimal, len(prices))
	for i, x := range prices {
		values[i] = at(x)
	}
	top := prices[len(prices)-1]
	return profile{
		prices: prices,
		values: values,
		slope:  at(top.Add(decimal.NewFromInt(1))).Sub(values[len(values)-1]),
	}
}

// maxProfit is unbounded when the payoff keeps rising past the last strike.
func (p profile) maxProfit() positive.Positive {
	if p.slope.IsPositive() {
		return positive.Infinity
	}
	best := p.values[0]
	for _, v := range p.values[1:] {
		if v.GreaterThan(best) {
			best = v
		}
	}
	return positive.Saturating(best)
}

// maxLoss is unbounded when the payoff keeps falling past the last strike.
func (p profile) maxLoss() positive.Positive {
	if p.slope.IsNegative() {
		return positive.Infinity
	}
	worst := p.values[0]
	for _, v := range p.values[1:] {
		if v.LessThan(worst) {
			worst = v
		}
	}
	return positive.Saturating(worst.Neg())
}

// zeros returns every price above zero where the payoff is zero, including
// kinks that touch zero without crossing.
func (p profile) zeros() []decimal.Decimal {
	var out []decimal.Decimal
	for i, x := range p.prices {
		v := p.values[i]
		if v.IsZero() && x.IsPositive() {
			out = append(out, x)
		}
		if i == 0 {
			continue
		}
		prev := p.values[i-1]
		if prev.Sign()*v.Sign() < 0 {
			a := p.prices[i-1]
			out = append(out, a.Add(x.Sub(a).Mul(prev).Div(prev.Sub(v))))
		}
	}
	last := p.values[len(p.values)-1]
	if !last.IsZero() && last.Sign()*p.slope.Sign() < 0 {
		top := p.prices[len(p.prices)-1]
		out = append(out, top.Sub(last.Div(p.slope)))
	}
	return out
}
