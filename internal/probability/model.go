// Package probability estimates how likely a strategy is to end in profit,
// assuming a log-normal terminal price for the underlying.
package probability

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

// zLimit truncates the standard normal integration domain.
const zLimit = 8.0

// VolatilityAdjustment scales a base volatility: sigma = base x (1 + adj).
type VolatilityAdjustment struct {
	BaseVolatility   positive.Positive `json:"base_volatility"`
	StdDevAdjustment positive.Positive `json:"std_dev_adjustment"`
}

// Volatility is the adjusted volatility.
func (v VolatilityAdjustment) Volatility() float64 {
	return v.BaseVolatility.Float64() * (1 + v.StdDevAdjustment.Float64())
}

// PriceTrend adds DriftRate x Confidence to the risk-neutral drift.
type PriceTrend struct {
	DriftRate  float64 `json:"drift_rate"`
	Confidence float64 `json:"confidence"`
}

// Model is a log-normal terminal price distribution:
// S_T = S_0 exp((mu - sigma^2/2) T + sigma sqrt(T) Z).
type Model struct {
	Spot       float64
	Years      float64
	Drift      float64
	Volatility float64
}

// NewModel checks the inputs and adds the trend, if any, to rate - dividend.
func NewModel(spot positive.Positive, years, rate, dividend float64, vol VolatilityAdjustment, trend *PriceTrend) (Model, error) {
	if spot.IsZero() {
		return Model{}, errors.NewProbabilityError("underlying price must be positive", nil)
	}
	if years <= 0 {
		return Model{}, errors.NewProbabilityError("time to expiry must be positive", nil)
	}
	if vol.BaseVolatility.IsZero() {
		return Model{}, errors.NewProbabilityError("base volatility must be positive", nil)
	}
	drift := rate - dividend
	if trend != nil {
		if trend.Confidence < 0 || trend.Confidence > 1 {
			return Model{}, errors.NewProbabilityError("invalid trend",
				errors.NewValidationError("confidence", trend.Confidence, "must be between 0 and 1"))
		}
		drift += trend.DriftRate * trend.Confidence
	}
	return Model{Spot: spot.Float64(), Years: years, Drift: drift, Volatility: vol.Volatility()}, nil
}

// LegVolatility is the mean implied volatility of the option legs, adjusted
// by their standard deviation. fallback is used when no leg quotes one.
func LegVolatility(legs []models.Leg, fallback float64) (VolatilityAdjustment, error) {
	var ivs stats.Float64Data
	for _, l := range legs {
		if p, ok := l.(*models.Position); ok && !p.Option.ImpliedVolatility.IsZero() {
			ivs = append(ivs, p.Option.ImpliedVolatility.Float64())
		}
	}
	if len(ivs) == 0 {
		base, err := positive.NewFromFloat(fallback)
		if err != nil || base.IsZero() {
			return VolatilityAdjustment{}, errors.NewProbabilityError("no implied volatility available", err)
		}
		return VolatilityAdjustment{BaseVolatility: base}, nil
	}
	mean, err := stats.Mean(ivs)
	if err != nil {
		return VolatilityAdjustment{}, errors.NewProbabilityError("mean volatility", err)
	}
	sd, err := stats.StandardDeviationPopulation(ivs)
	if err != nil {
		return VolatilityAdjustment{}, errors.NewProbabilityError("volatility dispersion", err)
	}
	return VolatilityAdjustment{BaseVolatility: positive.Must(mean), StdDevAdjustment: positive.Must(sd)}, nil
}

func (m Model) scale() float64 { return m.Volatility * math.Sqrt(m.Years) }

func (m Model) center() float64 {
	return (m.Drift - m.Volatility*m.Volatility/2) * m.Years
}

// D is the standard normal score of the terminal price x.
func (m Model) D(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return (math.Log(x/m.Spot) - m.center()) / m.scale()
}

// PriceAt is the terminal price at standard normal score z.
func (m Model) PriceAt(z float64) float64 {
	return m.Spot * math.Exp(m.center()+m.scale()*z)
}

// Below is P(S_T < x).
func (m Model) Below(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return distuv.UnitNormal.CDF(m.D(x))
}

// Between is P(lower < S_T < upper); nil bounds are unbounded.
func (m Model) Between(lower, upper *positive.Positive) float64 {
	lo, hi := 0.0, 1.0
	if lower != nil {
		lo = m.Below(lower.Float64())
	}
	if upper != nil && !upper.IsInfinite() {
		hi = m.Below(upper.Float64())
	}
	return math.Max(0, hi-lo)
}

// Quantile is the terminal price below which S_T falls with probability p.
func (m Model) Quantile(p float64) float64 {
	return m.PriceAt(distuv.UnitNormal.Quantile(p))
}

// Expectation integrates pnl against the terminal density over
// (lower, upper), splitting at breaks so every piece is smooth, with
// Simpson's rule on intervals sub-intervals per piece.
func (m Model) Expectation(pnl func(float64) float64, lower, upper *positive.Positive, breaks []float64, intervals int) (float64, error) {
	if intervals < 2 || intervals%2 != 0 {
		return 0, errors.NewProbabilityError(fmt.Sprintf("simpson needs an even number of intervals, got %d", intervals), nil)
	}
	za, zb := -zLimit, zLimit
	if lower != nil {
		za = math.Max(za, m.D(lower.Float64()))
	}
	if upper != nil && !upper.IsInfinite() {
		zb = math.Min(zb, m.D(upper.Float64()))
	}
	if zb <= za {
		return 0, nil
	}
	cuts := []float64{za}
	for _, b := range breaks {
		if z := m.D(b); z > za && z < zb {
			cuts = append(cuts, z)
		}
	}
	cuts = append(cuts, zb)

	total := 0.0
	x := make([]float64, intervals+1)
	f := make([]float64, intervals+1)
	for i := 1; i < len(cuts); i++ {
		if cuts[i] <= cuts[i-1] {
			continue
		}
		floats.Span(x, cuts[i-1], cuts[i])
		for j, z := range x {
			f[j] = pnl(m.PriceAt(z)) * distuv.UnitNormal.Prob(z)
		}
		total += integrate.Simpsons(x, f)
	}
	return total, nil
}

// BoundsProbability splits the price axis at ascending bounds and returns
// the probability of each of the len(bounds)+1 intervals.
func (m Model) BoundsProbability(bounds []positive.Positive) ([]positive.Positive, error) {
	if len(bounds) == 0 {
		return nil, errors.NewProbabilityError("bounds cannot be empty", nil)
	}
	for i := 1; i < len(bounds); i++ {
		if !bounds[i].GreaterThan(bounds[i-1]) {
			return nil, errors.NewProbabilityError("bounds must be in ascending order", nil)
		}
	}
	out := make([]positive.Positive, 0, len(bounds)+1)
	prev := 0.0
	for _, b := range bounds {
		below := m.Below(b.Float64())
		out = append(out, positive.Saturating(decimalOf(below-prev)))
		prev = below
	}
	return append(out, positive.Saturating(decimalOf(1-prev))), nil
}
