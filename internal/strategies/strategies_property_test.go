package strategies

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: a debit vertical never risks more than its width, and its
// profit and loss add up to the width.
func TestProperty_BullCallSpreadBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("max profit plus max loss equals the width", prop.ForAll(
		func(low, width, longPremium, shortShare float64) bool {
			s, err := NewBullCallSpread(common(100, 1),
				leg(low, longPremium, 0), leg(low+width, longPremium*shortShare, 0))
			if err != nil {
				return false
			}
			mp, err := s.MaxProfit()
			if err != nil {
				return false
			}
			ml, err := s.MaxLoss()
			if err != nil {
				return false
			}
			sum := mp.Float64() + ml.Float64()
			return sum > width-1e-6 && sum < width+1e-6
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(6, 30),
		gen.Float64Range(0.5, 5),
		gen.Float64Range(0.05, 1),
	))

	properties.Property("break-even is a zero of the payoff", prop.ForAll(
		func(low, width, longPremium, shortShare float64) bool {
			s, err := NewBullCallSpread(common(100, 1),
				leg(low, longPremium, 0.01), leg(low+width, longPremium*shortShare, 0.01))
			if err != nil {
				return false
			}
			for _, be := range s.BreakEvenPoints() {
				if ProfitAt(s, be).Abs().InexactFloat64() > 1e-2 {
					return false
				}
			}
			return len(s.BreakEvenPoints()) == 1
		},
		gen.Float64Range(50, 150),
		gen.Float64Range(6, 30),
		gen.Float64Range(0.5, 5),
		gen.Float64Range(0.05, 1),
	))

	properties.TestingRun(t)
}

// Property: the scanned break-evens of a custom strategy agree with the
// closed form of the same legs.
func TestProperty_CustomScanMatchesStrangle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("custom and named strangle agree", prop.ForAll(
		func(gap, putPremium, callPremium float64) bool {
			named, err := NewLongStrangle(common(100, 1), leg(100-gap, putPremium, 0), leg(100+gap, callPremium, 0))
			if err != nil {
				return false
			}
			custom, err := NewCustom("", "TEST", named.UnderlyingPrice(), named.Legs()...)
			if err != nil {
				return false
			}
			want, got := named.BreakEvenPoints(), custom.BreakEvenPoints()
			if len(want) != len(got) {
				return false
			}
			for i := range want {
				d := want[i].Float64() - got[i].Float64()
				if d > 0.02 || d < -0.02 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 10),
		gen.Float64Range(0.5, 4),
		gen.Float64Range(0.5, 4),
	))

	properties.TestingRun(t)
}
