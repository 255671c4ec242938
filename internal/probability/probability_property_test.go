package probability

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// Property: the zones of a strangle cover the whole distribution.
func TestProperty_ZonesPartitionProbability(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	a := analyzer()

	properties.Property("zone probabilities sum to one", prop.ForAll(
		func(underlying, width, premium float64) bool {
			c := common(underlying, 45)
			c.RiskFreeRate = decimal.NewFromFloat(0.03)
			s, err := strategies.NewShortStrangle(c, quote(100-width, premium, 0.05), quote(100+width, premium, 0.05))
			if err != nil {
				return false
			}
			res, err := a.Analyze(s, nil, nil)
			if err != nil {
				return false
			}
			total := sumProbabilities(res.Ranges)
			return total > 1-1e-3 && total < 1+1e-3 && res.ProbabilityOfProfit.Float64() <= 1
		},
		gen.Float64Range(85, 115),
		gen.Float64Range(1, 15),
		gen.Float64Range(0.5, 5),
	))

	properties.TestingRun(t)
}

// Property: P(S_T < x) is monotone in x.
func TestProperty_BelowIsMonotone(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("cdf never decreases", prop.ForAll(
		func(vol, x, step float64) bool {
			m, err := NewModel(positive.Must(100), 0.5, 0.02, 0, VolatilityAdjustment{BaseVolatility: positive.Must(vol)}, nil)
			if err != nil {
				return false
			}
			lo, hi := m.Below(x), m.Below(x+step)
			return lo <= hi && lo >= 0 && hi <= 1
		},
		gen.Float64Range(0.05, 1.5),
		gen.Float64Range(1, 300),
		gen.Float64Range(0, 50),
	))

	properties.TestingRun(t)
}
