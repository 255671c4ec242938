package deltaneutral

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

func shortStrangle(underlying, width float64) (*strategies.ShortStrangle, error) {
	return strategies.NewShortStrangle(strategies.Common{
		Symbol:            "TEST",
		UnderlyingPrice:   positive.Must(underlying),
		Expiration:        options.Days(30),
		ImpliedVolatility: positive.Must(0.25),
		RiskFreeRate:      decimal.NewFromFloat(0.02),
		DividendYield:     positive.Zero,
		Quantity:          positive.One,
	},
		strategies.LegQuote{Strike: positive.Must(100 - width), Premium: positive.Must(1.5)},
		strategies.LegQuote{Strike: positive.Must(100 + width), Premium: positive.Must(1.5)},
	)
}

// Property: the same-size adjustment keeps the contract count and leaves
// the strategy delta neutral.
func TestProperty_SameSizeConservesQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	e := NewEngine(zerolog.Nop())

	properties.Property("total quantity is preserved", prop.ForAll(
		func(underlying, width float64) bool {
			s, err := shortStrangle(underlying, width)
			if err != nil {
				return false
			}
			if neutral, err := e.IsDeltaNeutral(s); err != nil || neutral {
				return err == nil
			}
			if _, err := e.ApplyDeltaAdjustments(s, ApplySameSize); err != nil {
				return false
			}
			total := decimal.Zero
			for _, p := range s.Positions() {
				total = total.Add(p.Option.Quantity.Decimal())
			}
			info, err := e.DeltaNeutrality(s)
			if err != nil {
				return false
			}
			return total.Sub(decimal.NewFromInt(2)).Abs().LessThan(decimal.NewFromFloat(1e-9)) && info.IsNeutral
		},
		gen.Float64Range(92, 108),
		gen.Float64Range(2, 10),
	))

	properties.TestingRun(t)
}

// Property: portfolio Greeks are additive over legs.
func TestProperty_PortfolioGreeksAdditive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("sum of parts equals the whole", prop.ForAll(
		func(underlying, width float64) bool {
			s, err := shortStrangle(underlying, width)
			if err != nil {
				return false
			}
			legs := s.Legs()
			whole, err := FromLegs(legs)
			if err != nil {
				return false
			}
			var sum PortfolioGreeks
			for _, l := range legs {
				part, err := FromLegs([]models.Leg{l})
				if err != nil {
					return false
				}
				sum = sum.Add(part)
			}
			return sum.Delta.Equal(whole.Delta) && sum.Gamma.Equal(whole.Gamma) && sum.Vega.Equal(whole.Vega)
		},
		gen.Float64Range(80, 120),
		gen.Float64Range(1, 15),
	))

	properties.TestingRun(t)
}
