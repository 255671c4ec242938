package pricing

import (
	"math"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

// Rainbow Monte-Carlo contract: a fixed number of correlated pairs drawn
// from a 64-bit LCG with a fixed seed, so identical inputs price identically.
const (
	lcgMultiplier  uint64 = 6364136223846793005
	lcgIncrement   uint64 = 1442695040888963407
	RainbowSeed    uint64 = 0x5DEECE66D
	RainbowPaths          = 10000
	maxCorrelation        = 1.0
)

type lcg struct{ state uint64 }

func (g *lcg) next() uint64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// uniform returns a value in (0, 1).
func (g *lcg) uniform() float64 {
	return (float64(g.next()>>11) + 0.5) / (1 << 53)
}

// normalPair is a Box-Muller transform of two uniforms.
func (g *lcg) normalPair() (float64, float64) {
	u1, u2 := g.uniform(), g.uniform()
	radius := math.Sqrt(-2 * math.Log(u1))
	return radius * math.Cos(2*math.Pi*u2), radius * math.Sin(2*math.Pi*u2)
}

func checkCorrelation(model string, rho float64) error {
	if math.IsNaN(rho) || math.Abs(rho) > maxCorrelation {
		return errors.NewPricingError(model, "correlation must be within [-1, 1]")
	}
	return nil
}

type secondAsset struct {
	price, sigma, q, rho float64
}

func (e *Engine) priceRainbow(o *options.Options, in inputs) (float64, error) {
	rb := o.Type().(options.Rainbow)
	if rb.NumAssets != 0 && rb.NumAssets != 2 {
		return 0, errors.NewPricingError("rainbow", "only two-asset rainbows are supported")
	}
	p := o.ExoticParams
	if p == nil || p.RainbowSecondAssetPrice == nil {
		return 0, errors.NewMissingFieldError("rainbow", "rainbow_second_asset_price")
	}
	if p.RainbowSecondAssetVolatility == nil {
		return 0, errors.NewMissingFieldError("rainbow", "rainbow_second_asset_volatility")
	}
	if p.RainbowCorrelation == nil {
		return 0, errors.NewMissingFieldError("rainbow", "rainbow_correlation")
	}
	a2 := secondAsset{price: *p.RainbowSecondAssetPrice, sigma: *p.RainbowSecondAssetVolatility, rho: *p.RainbowCorrelation}
	if p.RainbowSecondAssetDividend != nil {
		a2.q = *p.RainbowSecondAssetDividend
	}
	if err := checkCorrelation("rainbow", a2.rho); err != nil {
		return 0, err
	}

	payoff := func(s1, s2 float64) float64 {
		ref := math.Max(s1, s2)
		if rb.Kind == options.WorstOf {
			ref = math.Min(s1, s2)
		}
		return vanillaIntrinsic(o.Style, ref, in.k)
	}

	if in.t <= 0 {
		return payoff(in.s, a2.price), nil
	}

	paths := e.RainbowPaths
	if paths <= 0 {
		paths = RainbowPaths
	}
	gen := &lcg{state: e.Seed}
	t := in.t
	sqrtT := math.Sqrt(t)
	drift1 := (in.r - in.q - in.sigma*in.sigma/2) * t
	drift2 := (in.r - a2.q - a2.sigma*a2.sigma/2) * t
	coupling := math.Sqrt(1 - a2.rho*a2.rho)

	sum := 0.0
	for i := 0; i < paths; i++ {
		z1, zInd := gen.normalPair()
		z2 := a2.rho*z1 + coupling*zInd
		s1 := in.s * math.Exp(drift1+in.sigma*sqrtT*z1)
		s2 := a2.price * math.Exp(drift2+a2.sigma*sqrtT*z2)
		sum += payoff(s1, s2)
	}
	return math.Exp(-in.r*t) * sum / float64(paths), nil
}

// margrabe values the option to exchange asset 2 for asset 1.
func margrabe(s1, q1, sigma1, s2, q2, sigma2, rho, t float64) float64 {
	a := s1 * math.Exp(-q1*t)
	b := s2 * math.Exp(-q2*t)
	if t <= 0 {
		return math.Max(s1-s2, 0)
	}
	sigma := math.Sqrt(sigma1*sigma1 + sigma2*sigma2 - 2*rho*sigma1*sigma2)
	if sigma <= 0 {
		return math.Max(a-b, 0)
	}
	d1 := (math.Log(a/b) + sigma*sigma*t/2) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	return a*N(d1) - b*N(d2)
}

func secondAssetParams(model string, p *options.ExoticParams, vol, div, corr func(*options.ExoticParams) *float64,
	volField, corrField string) (sigma2, q2, rho float64, err error) {
	if p == nil || vol(p) == nil {
		return 0, 0, 0, errors.NewMissingFieldError(model, volField)
	}
	if corr(p) == nil {
		return 0, 0, 0, errors.NewMissingFieldError(model, corrField)
	}
	sigma2, rho = *vol(p), *corr(p)
	if d := div(p); d != nil {
		q2 = *d
	}
	return sigma2, q2, rho, checkCorrelation(model, rho)
}

// priceSpread uses Kirk's approximation, falling back to Margrabe for a zero strike.
func priceSpread(o *options.Options, in inputs) (float64, error) {
	s2 := o.Type().(options.Spread).SecondAssetPrice
	if s2 <= 0 {
		return 0, errors.NewMissingFieldError("spread", "second_asset_price")
	}
	sigma2, q2, rho, err := secondAssetParams("spread", o.ExoticParams,
		func(p *options.ExoticParams) *float64 { return p.SpreadSecondAssetVolatility },
		func(p *options.ExoticParams) *float64 { return p.SpreadSecondAssetDividend },
		func(p *options.ExoticParams) *float64 { return p.SpreadCorrelation },
		"spread_second_asset_volatility", "spread_correlation")
	if err != nil {
		return 0, err
	}

	if in.t <= 0 {
		return vanillaIntrinsic(o.Style, in.s-s2, in.k), nil
	}
	if in.k == 0 {
		if o.Style == options.Call {
			return margrabe(in.s, in.q, in.sigma, s2, q2, sigma2, rho, in.t), nil
		}
		return margrabe(s2, q2, sigma2, in.s, in.q, in.sigma, rho, in.t), nil
	}

	t := in.t
	f1 := in.s * math.Exp((in.r-in.q)*t)
	f2 := s2 * math.Exp((in.r-q2)*t)
	w := f2 / (f2 + in.k)
	sigma := math.Sqrt(in.sigma*in.sigma - 2*rho*in.sigma*sigma2*w + sigma2*sigma2*w*w)
	disc := math.Exp(-in.r * t)
	fk := f2 + in.k
	if sigma <= 0 {
		return disc * vanillaIntrinsic(o.Style, f1, fk), nil
	}
	d1 := (math.Log(f1/fk) + sigma*sigma*t/2) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	if o.Style == options.Call {
		return disc * (f1*N(d1) - fk*N(d2)), nil
	}
	return disc * (fk*N(-d2) - f1*N(-d1)), nil
}

func priceExchange(o *options.Options, in inputs) (float64, error) {
	s2 := o.Type().(options.Exchange).SecondAsset
	if s2 <= 0 {
		return 0, errors.NewMissingFieldError("exchange", "second_asset")
	}
	sigma2, q2, rho, err := secondAssetParams("exchange", o.ExoticParams,
		func(p *options.ExoticParams) *float64 { return p.ExchangeSecondAssetVolatility },
		func(p *options.ExoticParams) *float64 { return p.ExchangeSecondAssetDividend },
		func(p *options.ExoticParams) *float64 { return p.ExchangeCorrelation },
		"exchange_second_asset_volatility", "exchange_correlation")
	if err != nil {
		return 0, err
	}
	if o.Style == options.Call {
		return margrabe(in.s, in.q, in.sigma, s2, q2, sigma2, rho, in.t), nil
	}
	return margrabe(s2, q2, sigma2, in.s, in.q, in.sigma, rho, in.t), nil
}
