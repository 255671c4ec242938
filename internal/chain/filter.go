package chain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// SideKind selects which part of the chain a search may use.
type SideKind string

const (
	SideUpper      SideKind = "Upper"
	SideLower      SideKind = "Lower"
	SideAll        SideKind = "All"
	SideRange      SideKind = "Range"
	SideDeltaRange SideKind = "DeltaRange"
)

// FindOptimalSide restricts rows by strike position relative to the
// underlying, by an explicit strike range, or by quoted delta.
type FindOptimalSide struct {
	Kind SideKind
	Low  decimal.Decimal
	High decimal.Decimal
}

func Upper() FindOptimalSide { return FindOptimalSide{Kind: SideUpper} }
func Lower() FindOptimalSide { return FindOptimalSide{Kind: SideLower} }
func All() FindOptimalSide   { return FindOptimalSide{Kind: SideAll} }

// Range accepts strikes within [low, high].
func Range(low, high positive.Positive) FindOptimalSide {
	return FindOptimalSide{Kind: SideRange, Low: low.Decimal(), High: high.Decimal()}
}

// DeltaRange accepts rows whose delta for the leg's style is within [low, high].
func DeltaRange(low, high decimal.Decimal) FindOptimalSide {
	return FindOptimalSide{Kind: SideDeltaRange, Low: low, High: high}
}

// Accepts reports whether row may be used for a leg of style.
func (f FindOptimalSide) Accepts(underlying positive.Positive, row OptionRow, style options.OptionStyle) bool {
	k := row.Strike.Decimal()
	switch f.Kind {
	case SideUpper:
		return k.GreaterThanOrEqual(underlying.Decimal())
	case SideLower:
		return k.LessThanOrEqual(underlying.Decimal())
	case SideRange:
		return k.GreaterThanOrEqual(f.Low) && k.LessThanOrEqual(f.High)
	case SideDeltaRange:
		d, ok := row.Delta(style)
		return ok && d.GreaterThanOrEqual(f.Low) && d.LessThanOrEqual(f.High)
	}
	return true
}

func (f FindOptimalSide) String() string {
	switch f.Kind {
	case SideRange, SideDeltaRange:
		return fmt.Sprintf("%s(%s, %s)", f.Kind, f.Low, f.High)
	case "":
		return string(SideAll)
	}
	return string(f.Kind)
}

// ParseSide parses Upper, Lower, All, or the two-bound forms.
func ParseSide(kind string, low, high float64) (FindOptimalSide, error) {
	switch SideKind(kind) {
	case SideUpper:
		return Upper(), nil
	case SideLower:
		return Lower(), nil
	case SideAll, "":
		return All(), nil
	case SideRange:
		if low < 0 || high < low {
			return FindOptimalSide{}, fmt.Errorf("invalid strike range [%v, %v]", low, high)
		}
		return Range(positive.Must(low), positive.Must(high)), nil
	case SideDeltaRange:
		if high < low {
			return FindOptimalSide{}, fmt.Errorf("invalid delta range [%v, %v]", low, high)
		}
		return DeltaRange(decimal.NewFromFloat(low), decimal.NewFromFloat(high)), nil
	}
	return FindOptimalSide{}, fmt.Errorf("unknown side %q", kind)
}

// Filter returns rows of the chain that side accepts for style and that are
// tradable on both bid and ask.
func (c *OptionChain) Filter(side FindOptimalSide, style options.OptionStyle) []OptionRow {
	var out []OptionRow
	for _, r := range c.rows {
		if side.Accepts(c.UnderlyingPrice, r, style) && r.Tradable(style) {
			out = append(out, r)
		}
	}
	return out
}
