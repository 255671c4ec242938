package utils

import (
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"optionstrat/internal/positive"
)

// Property: FormatMoney groups thousands, keeps the requested places and
// round-trips the value.
func TestProperty_MoneyFormatting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	grouped := regexp.MustCompile(`^-?\d{1,3}(,\d{3})*\.\d{2}$`)

	properties.Property("FormatMoney produces grouped, parseable output", prop.ForAll(
		func(amount float64) bool {
			if math.IsNaN(amount) || math.IsInf(amount, 0) || math.Abs(amount) > 1e15 {
				return true
			}
			d := decimal.NewFromFloat(amount)
			formatted := FormatMoney(d, 2)
			if !grouped.MatchString(formatted) {
				t.Logf("bad format for %f: %s", amount, formatted)
				return false
			}
			back, err := decimal.NewFromString(strings.ReplaceAll(formatted, ",", ""))
			if err != nil {
				return false
			}
			return back.Equal(d.Round(2)) || back.IsZero() && d.Round(2).IsZero()
		},
		gen.Float64Range(-1e12, 1e12),
	))

	properties.Property("FormatPnL carries the sign of the rounded value", prop.ForAll(
		func(amount float64) bool {
			d := decimal.NewFromFloat(amount)
			formatted := FormatPnL(d, 2)
			switch r := d.Round(2); {
			case r.IsPositive():
				return strings.HasPrefix(formatted, "+")
			case r.IsNegative():
				return strings.HasPrefix(formatted, "-")
			}
			return formatted == "0.00"
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatMoney(decimal.RequireFromString("1234567.891"), 2))
	assert.Equal(t, "999.0", FormatMoney(decimal.NewFromInt(999), 1))
	assert.Equal(t, "0.00", FormatMoney(decimal.RequireFromString("-0.001"), 2))
	assert.Equal(t, "-12,000", FormatMoney(decimal.NewFromInt(-12000), 0))
	assert.Equal(t, InfinitySymbol, FormatPositive(positive.Infinity, 2))
	assert.Equal(t, "+5.50", FormatPnL(decimal.NewFromFloat(5.5), 2))
	assert.Equal(t, "42.10%", FormatProbability(positive.Must(0.421)))
	assert.Equal(t, InfinitySymbol, FormatRatio(positive.Infinity))
	assert.Equal(t, "400.00%", FormatRatio(positive.Must(400)))
	assert.Equal(t, "-0.0884", FormatGreek(decimal.RequireFromString("-0.08842")))
	assert.Equal(t, "94.00, 106.50", FormatPrices([]positive.Positive{positive.Must(94), positive.Must(106.5)}, 2))
	assert.Equal(t, "none", FormatPrices(nil, 2))
}
