package positive

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestPositiveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("construction succeeds iff value is non-negative", prop.ForAll(
		func(v float64) bool {
			_, err := NewFromFloat(v)
			return (err == nil) == (v >= 0)
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("sum of positives is never below either operand", prop.ForAll(
		func(a, b float64) bool {
			pa, pb := Must(a), Must(b)
			s := pa.Add(pb)
			return !s.LessThan(pa) && !s.LessThan(pb)
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.Property("saturating subtraction is never negative", prop.ForAll(
		func(a, b float64) bool {
			return !Must(a).SubSat(Must(b)).Decimal().IsNegative()
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.Property("json round trip preserves value", prop.ForAll(
		func(v float64) bool {
			p := MustDecimal(decimal.NewFromFloat(v).Round(8))
			data, err := p.MarshalJSON()
			if err != nil {
				return false
			}
			var back Positive
			if err := back.UnmarshalJSON(data); err != nil {
				return false
			}
			return back.Equal(p)
		},
		gen.Float64Range(0, 1e8),
	))

	properties.TestingRun(t)
}
