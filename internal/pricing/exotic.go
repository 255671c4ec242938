package pricing

import (
	"math"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

func priceBinary(o *options.Options, in inputs) (float64, error) {
	kind := o.Type().(options.Binary).Kind
	if in.t <= 0 || in.sigma <= 0 {
		itm := (o.Style == options.Call && in.s > in.k) || (o.Style == options.Put && in.s < in.k)
		if !itm {
			return 0, nil
		}
		if kind == options.AssetOrNothing {
			return in.s * math.Exp(-in.q*math.Max(in.t, 0)), nil
		}
		return math.Exp(-in.r * math.Max(in.t, 0)), nil
	}

	d1, d2 := d1d2(in.s, in.k, in.carry(), in.t, in.sigma)
	phi := 1.0
	if o.Style == options.Put {
		phi = -1
	}
	if kind == options.AssetOrNothing {
		return in.s * math.Exp(-in.q*in.t) * N(phi*d1), nil
	}
	return math.Exp(-in.r*in.t) * N(phi*d2), nil
}

// priceLookback uses Goldman-Sosin-Gatto for floating strikes and
// Conze-Viswanathan for fixed strikes. Observed extremes default to spot.
func priceLookback(o *options.Options, in inputs) (float64, error) {
	if err := requireTimeAndVol("lookback", in); err != nil {
		return 0, err
	}
	kind := o.Type().(options.Lookback).Kind
	sMin, sMax := in.s, in.s
	if p := o.ExoticParams; p != nil {
		if p.SpotMin != nil {
			sMin = math.Min(*p.SpotMin, in.s)
		}
		if p.SpotMax != nil {
			sMax = math.Max(*p.SpotMax, in.s)
		}
	}

	s, t, r, sigma := in.s, in.t, in.r, in.sigma
	b := in.carry()
	if math.Abs(b) < 1e-6 {
		b = 1e-6
	}
	vt := sigma * math.Sqrt(t)
	carry := math.Exp((b - r) * t)
	disc := math.Exp(-r * t)
	ratio := sigma * sigma / (2 * b)
	shift := 2 * b * math.Sqrt(t) / sigma
	dd := func(ref float64) float64 { return (math.Log(s/ref) + (b+sigma*sigma/2)*t) / vt }
	pw := func(ref float64) float64 { return math.Pow(s/ref, -2*b/(sigma*sigma)) }

	if kind == options.FloatingStrike {
		if o.Style == options.Call {
			a1 := dd(sMin)
			a2 := a1 - vt
			return s*carry*N(a1) - sMin*disc*N(a2) +
				s*disc*ratio*(pw(sMin)*N(-a1+shift)-math.Exp(b*t)*N(-a1)), nil
		}
		b1 := dd(sMax)
		b2 := b1 - vt
		return sMax*disc*N(-b2) - s*carry*N(-b1) +
			s*disc*ratio*(-pw(sMax)*N(b1-shift)+math.Exp(b*t)*N(b1)), nil
	}

	x := in.k
	if o.Style == options.Call {
		if x > sMax {
			d1 := dd(x)
			d2 := d1 - vt
			return s*carry*N(d1) - x*disc*N(d2) +
				s*disc*ratio*(-pw(x)*N(d1-shift)+math.Exp(b*t)*N(d1)), nil
		}
		e1 := dd(sMax)
		e2 := e1 - vt
		return disc*(sMax-x) + s*carry*N(e1) - sMax*disc*N(e2) +
			s*disc*ratio*(-pw(sMax)*N(e1-shift)+math.Exp(b*t)*N(e1)), nil
	}
	if x < sMin {
		d1 := dd(x)
		d2 := d1 - vt
		return x*disc*N(-d2) - s*carry*N(-d1) +
			s*disc*ratio*(pw(x)*N(-d1+shift)-math.Exp(b*t)*N(-d1)), nil
	}
	f1 := dd(sMin)
	f2 := f1 - vt
	return disc*(x-sMin) - s*carry*N(-f1) + sMin*disc*N(-f2) +
		s*disc*ratio*(pw(sMin)*N(-f1+shift)-math.Exp(b*t)*N(-f1)), nil
}

// pricePower values a payoff on S^n: forward drift n(r-q) + n(n-1)sigma^2/2
// and volatility n*sigma.
func pricePower(o *options.Options, in inputs) (float64, error) {
	n := o.Type().(options.Power).Exponent
	if n <= 0 {
		return 0, errors.NewPricingError("power", "exponent must be greater than zero")
	}
	sn := math.Pow(in.s, n)
	if in.t <= 0 {
		return vanillaIntrinsic(o.Style, sn, in.k), nil
	}
	drift := n*in.carry() + n*(n-1)*in.sigma*in.sigma/2
	return gbs(o.Style, sn, in.k, in.t, in.r, drift, n*in.sigma), nil
}

func priceQuanto(o *options.Options, in inputs) (float64, error) {
	fx := o.Type().(options.Quanto).ExchangeRate
	if fx <= 0 {
		return 0, errors.NewMissingFieldError("quanto", "exchange_rate")
	}
	p := o.ExoticParams
	if p == nil || p.QuantoFxVolatility == nil {
		return 0, errors.NewMissingFieldError("quanto", "quanto_fx_volatility")
	}
	if p.QuantoFxCorrelation == nil {
		return 0, errors.NewMissingFieldError("quanto", "quanto_fx_correlation")
	}
	rho := *p.QuantoFxCorrelation
	if math.Abs(rho) > 1 {
		return 0, errors.NewPricingError("quanto", "correlation must be within [-1, 1]")
	}

	growth := in.r
	if p.QuantoForeignRate != nil {
		growth = *p.QuantoForeignRate
	}
	b := growth - in.q - rho*in.sigma*(*p.QuantoFxVolatility)
	return fx * gbs(o.Style, in.s, in.k, in.t, in.r, b, in.sigma), nil
}
