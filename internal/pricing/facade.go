// Package pricing is the single entry point for option valuation. Prices and
// Greeks are per unit of underlying from the long holder's perspective;
// callers apply side and quantity.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

// DefaultBinomialSteps is the CRR tree depth for American and Bermuda options.
const DefaultBinomialSteps = 100

// Greek names a sensitivity.
type Greek string

const (
	Delta Greek = "delta"
	Gamma Greek = "gamma"
	Theta Greek = "theta"
	Vega  Greek = "vega"
	Rho   Greek = "rho"
)

// Greeks holds every sensitivity of one option. Theta is per calendar day;
// vega and rho are per one percentage point.
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
}

// Engine carries the numerical settings of the pricing models.
type Engine struct {
	BinomialSteps int
	RainbowPaths  int
	Seed          uint64
}

// NewEngine returns an engine with the default settings.
func NewEngine() *Engine {
	return &Engine{
		BinomialSteps: DefaultBinomialSteps,
		RainbowPaths:  RainbowPaths,
		Seed:          RainbowSeed,
	}
}

var defaultEngine = NewEngine()

// Price values o with the default engine.
func Price(o *options.Options) (decimal.Decimal, error) {
	return defaultEngine.Price(o)
}

// GreekOf returns one sensitivity of o with the default engine.
func GreekOf(o *options.Options, which Greek) (decimal.Decimal, error) {
	return defaultEngine.Greek(o, which)
}

// AllGreeks returns every sensitivity of o with the default engine.
func AllGreeks(o *options.Options) (Greeks, error) {
	return defaultEngine.Greeks(o)
}

type pricer func(o *options.Options, in inputs) (float64, error)

func (e *Engine) pricerFor(o *options.Options) (pricer, error) {
	switch o.Type().(type) {
	case options.European:
		return priceEuropean, nil
	case options.American:
		return e.priceAmerican, nil
	case options.Bermuda:
		return e.priceBermuda, nil
	case options.Asian:
		return priceAsian, nil
	case options.Barrier:
		return priceBarrier, nil
	case options.Binary:
		return priceBinary, nil
	case options.Lookback:
		return priceLookback, nil
	case options.Compound:
		return priceCompound, nil
	case options.Chooser:
		return priceChooser, nil
	case options.Cliquet:
		return priceCliquet, nil
	case options.Rainbow:
		return e.priceRainbow, nil
	case options.Spread:
		return priceSpread, nil
	case options.Quanto:
		return priceQuanto, nil
	case options.Exchange:
		return priceExchange, nil
	case options.Power:
		return pricePower, nil
	}
	return nil, errors.NewPricingError(o.Type().TypeName(), "unsupported option type")
}

// Price returns the per-unit value of o.
func (e *Engine) Price(o *options.Options) (decimal.Decimal, error) {
	if err := o.Validate(); err != nil {
		return decimal.Zero, &errors.PricingError{Model: o.Type().TypeName(), Reason: "invalid option", Err: err}
	}
	fn, err := e.pricerFor(o)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := fn(o, inputsOf(o))
	if err != nil {
		return decimal.Zero, err
	}
	return toDecimal(o.Type().TypeName(), v)
}

// Greek returns one sensitivity of o.
func (e *Engine) Greek(o *options.Options, which Greek) (decimal.Decimal, error) {
	g, err := e.Greeks(o)
	if err != nil {
		return decimal.Zero, err
	}
	switch which {
	case Delta:
		return g.Delta, nil
	case Gamma:
		return g.Gamma, nil
	case Theta:
		return g.Theta, nil
	case Vega:
		return g.Vega, nil
	case Rho:
		return g.Rho, nil
	}
	return decimal.Zero, errors.NewPricingError(o.Type().TypeName(), "unknown greek "+string(which))
}

// Greeks returns all sensitivities of o: closed form for European options,
// central finite differences otherwise.
func (e *Engine) Greeks(o *options.Options) (Greeks, error) {
	if err := o.Validate(); err != nil {
		return Greeks{}, &errors.PricingError{Model: o.Type().TypeName(), Reason: "invalid option", Err: err}
	}
	in := inputsOf(o)

	var raw rawGreeks
	if _, ok := o.Type().(options.European); ok {
		raw = europeanGreeks(o.Style, in)
	} else {
		fn, err := e.pricerFor(o)
		if err != nil {
			return Greeks{}, err
		}
		raw, err = finiteDifferences(o, in, fn)
		if err != nil {
			return Greeks{}, fmt.Errorf("%w: %w", errors.ErrGreeks, err)
		}
	}
	return scaleGreeks(o.Type().TypeName(), raw)
}

func scaleGreeks(model string, raw rawGreeks) (Greeks, error) {
	var g Greeks
	var err error
	if g.Delta, err = toDecimal(model, raw.delta); err != nil {
		return Greeks{}, err
	}
	if g.Gamma, err = toDecimal(model, raw.gamma); err != nil {
		return Greeks{}, err
	}
	if g.Theta, err = toDecimal(model, raw.theta/options.DaysPerYear); err != nil {
		return Greeks{}, err
	}
	if g.Vega, err = toDecimal(model, raw.vega/100); err != nil {
		return Greeks{}, err
	}
	if g.Rho, err = toDecimal(model, raw.rho/100); err != nil {
		return Greeks{}, err
	}
	return g, nil
}

// step is max(1e-4, 1e-3 * scale).
func step(scale float64) float64 {
	return math.Max(1e-4, 1e-3*math.Abs(scale))
}

func finiteDifferences(o *options.Options, in inputs, fn pricer) (rawGreeks, error) {
	eval := func(mod func(*inputs)) (float64, error) {
		bumped := in
		mod(&bumped)
		return fn(o, bumped)
	}

	base, err := fn(o, in)
	if err != nil {
		return rawGreeks{}, err
	}

	hs := step(in.s)
	up, err := eval(func(x *inputs) { x.s += hs })
	if err != nil {
		return rawGreeks{}, err
	}
	down, err := eval(func(x *inputs) { x.s = math.Max(x.s-hs, 1e-12) })
	if err != nil {
		return rawGreeks{}, err
	}

	var g rawGreeks
	g.delta = (up - down) / (2 * hs)
	g.gamma = (up - 2*base + down) / (hs * hs)

	hv := step(in.sigma)
	vUp, err := eval(func(x *inputs) { x.sigma += hv })
	if err != nil {
		return rawGreeks{}, err
	}
	if in.sigma > hv {
		vDown, err := eval(func(x *inputs) { x.sigma -= hv })
		if err != nil {
			return rawGreeks{}, err
		}
		g.vega = (vUp - vDown) / (2 * hv)
	} else {
		g.vega = (vUp - base) / hv
	}

	hr := step(1)
	rUp, err := eval(func(x *inputs) { x.r += hr })
	if err != nil {
		return rawGreeks{}, err
	}
	rDown, err := eval(func(x *inputs) { x.r -= hr })
	if err != nil {
		return rawGreeks{}, err
	}
	g.rho = (rUp - rDown) / (2 * hr)

	if in.t > 0 {
		ht := step(in.t)
		later, err := eval(func(x *inputs) { x.t += ht })
		if err != nil {
			return rawGreeks{}, err
		}
		if in.t > ht {
			sooner, err := eval(func(x *inputs) { x.t -= ht })
			if err != nil {
				return rawGreeks{}, err
			}
			g.theta = -(later - sooner) / (2 * ht)
		} else {
			g.theta = -(later - base) / ht
		}
	}
	return g, nil
}

func toDecimal(model string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, errors.NewPricingError(model, "numeric conversion produced a non-finite value")
	}
	return decimal.NewFromFloat(v), nil
}
