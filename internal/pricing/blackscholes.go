package pricing

import (
	"math"

	"optionstrat/internal/options"
)

// inputs are the float64 model parameters extracted from an option
// descriptor. Greeks are taken by bumping these.
type inputs struct {
	s     float64 // underlying price
	k     float64 // strike
	t     float64 // years to expiration
	r     float64 // risk-free rate
	q     float64 // dividend yield
	sigma float64 // implied volatility
}

func inputsOf(o *options.Options) inputs {
	return inputs{
		s:     o.UnderlyingPrice.Float64(),
		k:     o.StrikePrice.Float64(),
		t:     o.Years(),
		r:     o.RiskFreeRate.InexactFloat64(),
		q:     o.DividendYield.Float64(),
		sigma: o.ImpliedVolatility.Float64(),
	}
}

// carry is the cost of carry r - q.
func (in inputs) carry() float64 { return in.r - in.q }

func d1d2(s, k, b, t, sigma float64) (float64, float64) {
	vt := sigma * math.Sqrt(t)
	d1 := (math.Log(s/k) + (b+0.5*sigma*sigma)*t) / vt
	return d1, d1 - vt
}

// gbs is the generalized Black-Scholes-Merton price with cost of carry b.
func gbs(style options.OptionStyle, s, k, t, r, b, sigma float64) float64 {
	if t <= 0 {
		return vanillaIntrinsic(style, s, k)
	}
	if sigma <= 0 {
		fwd := s * math.Exp(b*t)
		return math.Exp(-r*t) * vanillaIntrinsic(style, fwd, k)
	}
	d1, d2 := d1d2(s, k, b, t, sigma)
	carry := math.Exp((b - r) * t)
	disc := math.Exp(-r * t)
	if style == options.Call {
		return s*carry*N(d1) - k*disc*N(d2)
	}
	return k*disc*N(-d2) - s*carry*N(-d1)
}

func vanillaIntrinsic(style options.OptionStyle, s, k float64) float64 {
	if style == options.Call {
		return math.Max(s-k, 0)
	}
	return math.Max(k-s, 0)
}

func priceEuropean(o *options.Options, in inputs) (float64, error) {
	return gbs(o.Style, in.s, in.k, in.t, in.r, in.carry(), in.sigma), nil
}

// rawGreeks are derivatives per unit change of each input: theta per year,
// vega per 1.00 of volatility, rho per 1.00 of rate.
type rawGreeks struct {
	delta, gamma, theta, vega, rho float64
}

// europeanGreeks returns the closed-form BSM sensitivities.
func europeanGreeks(style options.OptionStyle, in inputs) rawGreeks {
	if in.t <= 0 || in.sigma <= 0 {
		var delta float64
		switch {
		case style == options.Call && in.s > in.k:
			delta = 1
		case style == options.Put && in.s < in.k:
			delta = -1
		}
		return rawGreeks{delta: delta}
	}

	s, k, t, r, q, sigma := in.s, in.k, in.t, in.r, in.q, in.sigma
	d1, d2 := d1d2(s, k, r-q, t, sigma)
	sqrtT := math.Sqrt(t)
	eq := math.Exp(-q * t)
	er := math.Exp(-r * t)

	g := rawGreeks{
		gamma: eq * Phi(d1) / (s * sigma * sqrtT),
		vega:  s * eq * Phi(d1) * sqrtT,
	}
	common := -s * eq * Phi(d1) * sigma / (2 * sqrtT)
	if style == options.Call {
		g.delta = eq * N(d1)
		g.theta = common - r*k*er*N(d2) + q*s*eq*N(d1)
		g.rho = k * t * er * N(d2)
	} else {
		g.delta = eq * (N(d1) - 1)
		g.theta = common + r*k*er*N(-d2) - q*s*eq*N(-d1)
		g.rho = -k * t * er * N(-d2)
	}
	return g
}
