// Package positive provides a non-negative fixed-point scalar used for
// prices, premiums, fees, and quantities.
package positive

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
)

// Positive is a decimal value that is never negative. The zero value is 0.
type Positive struct {
	d decimal.Decimal
}

var (
	Zero    = Positive{d: decimal.Zero}
	One     = Positive{d: decimal.NewFromInt(1)}
	Two     = Positive{d: decimal.NewFromInt(2)}
	Hundred = Positive{d: decimal.NewFromInt(100)}

	// Infinity stands in for unbounded profit or loss.
	Infinity = Positive{d: decimal.RequireFromString("79228162514264337593543950335")}
)

// Signed decimals in user-facing records serialise as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// New returns a Positive from a decimal, rejecting negative values.
func New(d decimal.Decimal) (Positive, error) {
	if d.IsNegative() {
		return Zero, errors.NewValidationError("positive", d.String(), errors.ErrNegativeValue.Error())
	}
	return Positive{d: d}, nil
}

// NewFromFloat returns a Positive from a float64.
func NewFromFloat(f float64) (Positive, error) {
	if math.IsNaN(f) {
		return Zero, errors.NewValidationError("positive", f, "value is NaN")
	}
	if math.IsInf(f, 1) {
		return Infinity, nil
	}
	return New(decimal.NewFromFloat(f))
}

// NewFromString parses a decimal string.
func NewFromString(s string) (Positive, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, errors.NewValidationError("positive", s, err.Error())
	}
	return New(d)
}

// FromInt returns a Positive from a non-negative integer.
func FromInt(n int64) (Positive, error) {
	return New(decimal.NewFromInt(n))
}

// Must is New for literals. It panics on negative input.
func Must(f float64) Positive {
	p, err := NewFromFloat(f)
	if err != nil {
		panic(err)
	}
	return p
}

// MustDecimal is the decimal counterpart of Must.
func MustDecimal(d decimal.Decimal) Positive {
	p, err := New(d)
	if err != nil {
		panic(err)
	}
	return p
}

// Saturating converts d to a Positive, flooring negative values at zero.
func Saturating(d decimal.Decimal) Positive {
	if d.IsNegative() {
		return Zero
	}
	return Positive{d: d}
}

// Abs returns |d| as a Positive.
func Abs(d decimal.Decimal) Positive {
	return Positive{d: d.Abs()}
}

// Decimal returns the underlying decimal value.
func (p Positive) Decimal() decimal.Decimal { return p.d }

// Float64 returns the value as a float64.
func (p Positive) Float64() float64 {
	if p.IsInfinite() {
		return math.Inf(1)
	}
	return p.d.InexactFloat64()
}

func (p Positive) IsZero() bool { return p.d.IsZero() }

// IsInfinite reports whether p is the Infinity sentinel.
func (p Positive) IsInfinite() bool { return p.d.Equal(Infinity.d) }

func (p Positive) Add(o Positive) Positive {
	if p.IsInfinite() || o.IsInfinite() {
		return Infinity
	}
	return Positive{d: p.d.Add(o.d)}
}

// Sub returns p - o as a signed decimal.
func (p Positive) Sub(o Positive) decimal.Decimal { return p.d.Sub(o.d) }

// SubSat returns p - o floored at zero.
func (p Positive) SubSat(o Positive) Positive { return Saturating(p.d.Sub(o.d)) }

func (p Positive) Mul(o Positive) Positive {
	if p.IsInfinite() || o.IsInfinite() {
		if p.IsZero() || o.IsZero() {
			return Zero
		}
		return Infinity
	}
	return Positive{d: p.d.Mul(o.d)}
}

// MulDecimal multiplies by a signed decimal.
func (p Positive) MulDecimal(d decimal.Decimal) decimal.Decimal { return p.d.Mul(d) }

// Div divides by o. Division by zero yields Infinity.
func (p Positive) Div(o Positive) Positive {
	if o.IsZero() {
		if p.IsZero() {
			return Zero
		}
		return Infinity
	}
	if p.IsInfinite() {
		return Infinity
	}
	return Positive{d: p.d.Div(o.d)}
}

func (p Positive) Cmp(o Positive) int          { return p.d.Cmp(o.d) }
func (p Positive) Equal(o Positive) bool       { return p.d.Equal(o.d) }
func (p Positive) LessThan(o Positive) bool    { return p.d.LessThan(o.d) }
func (p Positive) GreaterThan(o Positive) bool { return p.d.GreaterThan(o.d) }

// Round rounds to the given number of decimal places.
func (p Positive) Round(places int32) Positive {
	if p.IsInfinite() {
		return p
	}
	return Positive{d: p.d.Round(places)}
}

// Sqrt returns the square root computed in float64.
func (p Positive) Sqrt() Positive {
	return Positive{d: decimal.NewFromFloat(math.Sqrt(p.d.InexactFloat64()))}
}

func (p Positive) String() string {
	if p.IsInfinite() {
		return "∞"
	}
	return p.d.String()
}

// Format implements fmt.Formatter so %v, %s and %.2f all work.
func (p Positive) Format(f fmt.State, verb rune) {
	if p.IsInfinite() {
		fmt.Fprint(f, "∞")
		return
	}
	switch verb {
	case 'f', 'g', 'e':
		prec, ok := f.Precision()
		if !ok {
			prec = 2
		}
		fmt.Fprint(f, p.d.StringFixed(int32(prec)))
	default:
		fmt.Fprint(f, p.d.String())
	}
}

// MarshalJSON encodes the value as a JSON number.
func (p Positive) MarshalJSON() ([]byte, error) {
	return []byte(p.d.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string and rejects negatives.
func (p *Positive) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := New(d)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Min returns the smaller of a and b.
func Min(a, b Positive) Positive {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Positive) Positive {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Sum adds every value.
func Sum(values ...Positive) Positive {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
