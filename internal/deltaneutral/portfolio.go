package deltaneutral

import (
	"fmt"

	"github.com/shopspring/decimal"

	"optionstrat/internal/models"
)

// PortfolioGreeks are the aggregate sensitivities of a set of legs. They
// are recomputed on demand and never cached.
type PortfolioGreeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// FromLegs sums the Greeks of every leg, side and quantity applied.
func FromLegs(legs []models.Leg) (PortfolioGreeks, error) {
	g, err := models.SumGreeks(legs)
	if err != nil {
		return PortfolioGreeks{}, err
	}
	return PortfolioGreeks{Delta: g.Delta, Gamma: g.Gamma, Theta: g.Theta, Vega: g.Vega, Rho: g.Rho}, nil
}

// FromLegsWithUnderlying is FromLegs plus a signed share holding, which
// only moves delta.
func FromLegsWithUnderlying(legs []models.Leg, shares decimal.Decimal) (PortfolioGreeks, error) {
	g, err := FromLegs(legs)
	if err != nil {
		return PortfolioGreeks{}, err
	}
	g.Delta = g.Delta.Add(shares)
	return g, nil
}

func (g PortfolioGreeks) IsDeltaNeutral(tolerance decimal.Decimal) bool {
	return g.Delta.Abs().LessThanOrEqual(tolerance)
}

func (g PortfolioGreeks) IsGammaNeutral(tolerance decimal.Decimal) bool {
	return g.Gamma.Abs().LessThanOrEqual(tolerance)
}

func (g PortfolioGreeks) IsVegaNeutral(tolerance decimal.Decimal) bool {
	return g.Vega.Abs().LessThanOrEqual(tolerance)
}

// DeltaGap is how much delta must be added to reach target.
func (g PortfolioGreeks) DeltaGap(target decimal.Decimal) decimal.Decimal { return target.Sub(g.Delta) }
func (g PortfolioGreeks) GammaGap(target decimal.Decimal) decimal.Decimal { return target.Sub(g.Gamma) }
func (g PortfolioGreeks) VegaGap(target decimal.Decimal) decimal.Decimal  { return target.Sub(g.Vega) }
func (g PortfolioGreeks) ThetaGap(target decimal.Decimal) decimal.Decimal { return target.Sub(g.Theta) }

// Add returns the component-wise sum.
func (g PortfolioGreeks) Add(o PortfolioGreeks) PortfolioGreeks {
	return PortfolioGreeks{
		Delta: g.Delta.Add(o.Delta),
		Gamma: g.Gamma.Add(o.Gamma),
		Theta: g.Theta.Add(o.Theta),
		Vega:  g.Vega.Add(o.Vega),
		Rho:   g.Rho.Add(o.Rho),
	}
}

// Scale multiplies every component by k.
func (g PortfolioGreeks) Scale(k decimal.Decimal) PortfolioGreeks {
	return PortfolioGreeks{
		Delta: g.Delta.Mul(k),
		Gamma: g.Gamma.Mul(k),
		Theta: g.Theta.Mul(k),
		Vega:  g.Vega.Mul(k),
		Rho:   g.Rho.Mul(k),
	}
}

func (g PortfolioGreeks) String() string {
	return fmt.Sprintf("delta=%s gamma=%s theta=%s vega=%s rho=%s",
		g.Delta.StringFixed(4), g.Gamma.StringFixed(4), g.Theta.StringFixed(4),
		g.Vega.StringFixed(4), g.Rho.StringFixed(4))
}

// AdjustmentTarget is the set of Greeks an adjustment should reach. Absent
// fields are unconstrained.
type AdjustmentTarget struct {
	Delta *decimal.Decimal `json:"delta,omitempty"`
	Gamma *decimal.Decimal `json:"gamma,omitempty"`
	Vega  *decimal.Decimal `json:"vega,omitempty"`
	Theta *decimal.Decimal `json:"theta,omitempty"`
}

func zero() *decimal.Decimal {
	z := decimal.Zero
	return &z
}

// DeltaNeutral targets zero delta.
func DeltaNeutral() AdjustmentTarget { return AdjustmentTarget{Delta: zero()} }

// DeltaGammaNeutral targets zero delta and gamma.
func DeltaGammaNeutral() AdjustmentTarget { return AdjustmentTarget{Delta: zero(), Gamma: zero()} }

// FullNeutral targets zero delta, gamma and vega.
func FullNeutral() AdjustmentTarget {
	return AdjustmentTarget{Delta: zero(), Gamma: zero(), Vega: zero()}
}

func (t AdjustmentTarget) WithDelta(d decimal.Decimal) AdjustmentTarget { t.Delta = &d; return t }
func (t AdjustmentTarget) WithGamma(d decimal.Decimal) AdjustmentTarget { t.Gamma = &d; return t }
func (t AdjustmentTarget) WithVega(d decimal.Decimal) AdjustmentTarget  { t.Vega = &d; return t }
func (t AdjustmentTarget) WithTheta(d decimal.Decimal) AdjustmentTarget { t.Theta = &d; return t }

// gaps lists the distance to every present field, delta first, with the
// matching component selector.
func (t AdjustmentTarget) gaps(current PortfolioGreeks) []gap {
	var out []gap
	if t.Delta != nil {
		out = append(out, gap{"delta", current.DeltaGap(*t.Delta), func(g PortfolioGreeks) decimal.Decimal { return g.Delta }})
	}
	if t.Gamma != nil {
		out = append(out, gap{"gamma", current.GammaGap(*t.Gamma), func(g PortfolioGreeks) decimal.Decimal { return g.Gamma }})
	}
	if t.Vega != nil {
		out = append(out, gap{"vega", current.VegaGap(*t.Vega), func(g PortfolioGreeks) decimal.Decimal { return g.Vega }})
	}
	if t.Theta != nil {
		out = append(out, gap{"theta", current.ThetaGap(*t.Theta), func(g PortfolioGreeks) decimal.Decimal { return g.Theta }})
	}
	return out
}

type gap struct {
	greek string
	size  decimal.Decimal
	of    func(PortfolioGreeks) decimal.Decimal
}

// DeltaGap is the delta still missing; zero when delta is unconstrained.
func (t AdjustmentTarget) DeltaGap(current PortfolioGreeks) decimal.Decimal {
	if t.Delta == nil {
		return decimal.Zero
	}
	return current.DeltaGap(*t.Delta)
}

// GammaGap is the gamma still missing, false when gamma is unconstrained.
func (t AdjustmentTarget) GammaGap(current PortfolioGreeks) (decimal.Decimal, bool) {
	if t.Gamma == nil {
		return decimal.Zero, false
	}
	return current.GammaGap(*t.Gamma), true
}

// VegaGap is the vega still missing, false when vega is unconstrained.
func (t AdjustmentTarget) VegaGap(current PortfolioGreeks) (decimal.Decimal, bool) {
	if t.Vega == nil {
		return decimal.Zero, false
	}
	return current.VegaGap(*t.Vega), true
}

// IsSatisfied reports whether every present field is within tolerance of
// current.
func (t AdjustmentTarget) IsSatisfied(current PortfolioGreeks, tolerance decimal.Decimal) bool {
	for _, g := range t.gaps(current) {
		if g.size.Abs().GreaterThan(tolerance) {
			return false
		}
	}
	return true
}

func (t AdjustmentTarget) String() string {
	s := "target:"
	for _, g := range t.gaps(PortfolioGreeks{}) {
		s += fmt.Sprintf(" %s=%s", g.greek, g.size.StringFixed(4))
	}
	return s
}
