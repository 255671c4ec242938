package pricing

import (
	"math"
	"sort"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

// priceCompound implements Geske (1979). The inner option is priced as a
// European on the same underlying.
func priceCompound(o *options.Options, in inputs) (float64, error) {
	c := o.Type().(options.Compound)
	switch c.Inner.(type) {
	case nil, options.European, options.American:
	default:
		return 0, errors.NewPricingError("compound", "inner option must be vanilla")
	}
	p := o.ExoticParams
	if p == nil || p.CompoundUnderlyingStrike == nil {
		return 0, errors.NewMissingFieldError("compound", "compound_underlying_strike")
	}
	if p.CompoundUnderlyingExpiry == nil {
		return 0, errors.NewMissingFieldError("compound", "compound_underlying_expiry")
	}
	if err := requireTimeAndVol("compound", in); err != nil {
		return 0, err
	}

	innerStyle := c.InnerStyle
	if innerStyle == "" {
		innerStyle = options.Call
	}
	x1 := in.k
	x2 := *p.CompoundUnderlyingStrike
	t1 := in.t
	t2 := *p.CompoundUnderlyingExpiry / options.DaysPerYear
	if t2 <= t1 {
		return 0, errors.NewPricingError("compound", "inner expiry must follow compound expiry")
	}

	s, r, sigma := in.s, in.r, in.sigma
	b := in.carry()
	inner := func(spot float64) float64 { return gbs(innerStyle, spot, x2, t2-t1, r, b, sigma) }

	critical, ok := criticalPrice(inner, x1, s)
	if !ok {
		return 0, errors.NewPricingError("compound", "critical price did not converge")
	}

	rho := math.Sqrt(t1 / t2)
	y1 := (math.Log(s/critical) + (b+sigma*sigma/2)*t1) / (sigma * math.Sqrt(t1))
	y2 := y1 - sigma*math.Sqrt(t1)
	z1 := (math.Log(s/x2) + (b+sigma*sigma/2)*t2) / (sigma * math.Sqrt(t2))
	z2 := z1 - sigma*math.Sqrt(t2)

	carry := s * math.Exp((b-r)*t2)
	d2 := x2 * math.Exp(-r*t2)
	d1 := x1 * math.Exp(-r*t1)

	var v float64
	switch {
	case o.Style == options.Call && innerStyle == options.Call:
		v = carry*M(z1, y1, rho) - d2*M(z2, y2, rho) - d1*N(y2)
	case o.Style == options.Put && innerStyle == options.Call:
		v = d2*M(z2, -y2, -rho) - carry*M(z1, -y1, -rho) + d1*N(-y2)
	case o.Style == options.Call && innerStyle == options.Put:
		v = d2*M(-z2, -y2, rho) - carry*M(-z1, -y1, rho) - d1*N(-y2)
	default:
		v = carry*M(-z1, y1, -rho) - d2*M(-z2, y2, -rho) + d1*N(y2)
	}
	return math.Max(v, 0), nil
}

// criticalPrice finds S* with inner(S*) = target by bisection on a bracket
// grown around the spot.
func criticalPrice(inner func(float64) float64, target, spot float64) (float64, bool) {
	lo, hi := 1e-8, math.Max(spot, 1)
	f := func(x float64) float64 { return inner(x) - target }
	for i := 0; i < 60 && f(lo)*f(hi) > 0; i++ {
		hi *= 2
	}
	if f(lo)*f(hi) > 0 {
		return 0, false
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if f(lo)*f(mid) <= 0 {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo < 1e-10*math.Max(1, mid) {
			break
		}
	}
	return (lo + hi) / 2, true
}

// priceChooser is the Rubinstein simple chooser.
func priceChooser(o *options.Options, in inputs) (float64, error) {
	if err := requireTimeAndVol("chooser", in); err != nil {
		return 0, err
	}
	choice := o.Type().(options.Chooser).ChoiceDate / options.DaysPerYear
	if choice > in.t {
		return 0, errors.NewPricingError("chooser", "choice_date must not follow expiration")
	}

	s, x, t, r, sigma := in.s, in.k, in.t, in.r, in.sigma
	b := in.carry()
	if choice <= 0 {
		return math.Max(gbs(options.Call, s, x, t, r, b, sigma), gbs(options.Put, s, x, t, r, b, sigma)), nil
	}
	d := (math.Log(s/x) + (b+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))
	y := (math.Log(s/x) + b*t + sigma*sigma*choice/2) / (sigma * math.Sqrt(choice))
	carry := s * math.Exp((b-r)*t)
	disc := x * math.Exp(-r*t)
	return carry*N(d) - disc*N(d-sigma*math.Sqrt(t)) - carry*N(-y) + disc*N(-y+sigma*math.Sqrt(choice)), nil
}

// priceCliquet sums forward-starting capped/floored returns between resets.
// Local cap and floor default to 10% and 0%.
func priceCliquet(o *options.Options, in inputs) (float64, error) {
	resets := append([]float64(nil), o.Type().(options.Cliquet).ResetDates...)
	if len(resets) == 0 {
		return 0, errors.NewMissingFieldError("cliquet", "reset_dates")
	}
	if err := requireTimeAndVol("cliquet", in); err != nil {
		return 0, err
	}

	localCap, localFloor := 0.1, 0.0
	p := o.ExoticParams
	if p != nil && p.CliquetLocalCap != nil {
		localCap = *p.CliquetLocalCap
	}
	if p != nil && p.CliquetLocalFloor != nil {
		localFloor = *p.CliquetLocalFloor
	}
	if localCap < localFloor {
		return 0, errors.NewPricingError("cliquet", "local cap below local floor")
	}

	sort.Float64s(resets)
	times := []float64{0}
	for _, d := range resets {
		t := d / options.DaysPerYear
		if t > times[len(times)-1] && t < in.t {
			times = append(times, t)
		}
	}
	times = append(times, in.t)

	total := 0.0
	for i := 1; i < len(times); i++ {
		start, dt := times[i-1], times[i]-times[i-1]
		unit := math.Exp(-in.r*dt)*localFloor +
			gbs(options.Call, 1, 1+localFloor, dt, in.r, in.carry(), in.sigma) -
			gbs(options.Call, 1, 1+localCap, dt, in.r, in.carry(), in.sigma)
		total += in.s * math.Exp(-in.q*start) * unit
	}

	if p != nil && p.CliquetGlobalCap != nil {
		total = math.Min(total, *p.CliquetGlobalCap)
	}
	if p != nil && p.CliquetGlobalFloor != nil {
		total = math.Max(total, *p.CliquetGlobalFloor)
	}
	return total, nil
}
