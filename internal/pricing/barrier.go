package pricing

import (
	"math"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

// priceBarrier implements the Reiner-Rubinstein single-barrier formulas
// without rebate.
func priceBarrier(o *options.Options, in inputs) (float64, error) {
	if err := requireTimeAndVol("barrier", in); err != nil {
		return 0, err
	}
	bar := o.Type().(options.Barrier)
	h := bar.Level
	if h <= 0 {
		return 0, errors.NewMissingFieldError("barrier", "level")
	}

	s, x, t, r, sigma := in.s, in.k, in.t, in.r, in.sigma
	b := in.carry()

	breached := (bar.Kind.IsUp() && s >= h) || (!bar.Kind.IsUp() && s <= h)
	if breached {
		if bar.Kind.IsIn() {
			return gbs(o.Style, s, x, t, r, b, sigma), nil
		}
		return 0, nil
	}

	phi := 1.0
	if o.Style == options.Put {
		phi = -1
	}
	eta := 1.0
	if bar.Kind.IsUp() {
		eta = -1
	}

	vt := sigma * math.Sqrt(t)
	mu := (b - sigma*sigma/2) / (sigma * sigma)
	x1 := math.Log(s/x)/vt + (1+mu)*vt
	x2 := math.Log(s/h)/vt + (1+mu)*vt
	y1 := math.Log(h*h/(s*x))/vt + (1+mu)*vt
	y2 := math.Log(h/s)/vt + (1+mu)*vt

	carry := math.Exp((b - r) * t)
	disc := math.Exp(-r * t)
	hs := h / s

	A := phi*s*carry*N(phi*x1) - phi*x*disc*N(phi*x1-phi*vt)
	B := phi*s*carry*N(phi*x2) - phi*x*disc*N(phi*x2-phi*vt)
	C := phi*s*carry*math.Pow(hs, 2*(mu+1))*N(eta*y1) - phi*x*disc*math.Pow(hs, 2*mu)*N(eta*y1-eta*vt)
	D := phi*s*carry*math.Pow(hs, 2*(mu+1))*N(eta*y2) - phi*x*disc*math.Pow(hs, 2*mu)*N(eta*y2-eta*vt)

	above := x > h
	var v float64
	switch {
	case o.Style == options.Call && bar.Kind == options.DownAndIn:
		v = pick(above, C, A-B+D)
	case o.Style == options.Call && bar.Kind == options.UpAndIn:
		v = pick(above, A, B-C+D)
	case o.Style == options.Call && bar.Kind == options.DownAndOut:
		v = pick(above, A-C, B-D)
	case o.Style == options.Call && bar.Kind == options.UpAndOut:
		v = pick(above, 0, A-B+C-D)
	case o.Style == options.Put && bar.Kind == options.DownAndIn:
		v = pick(above, B-C+D, A)
	case o.Style == options.Put && bar.Kind == options.UpAndIn:
		v = pick(above, A-B+D, C)
	case o.Style == options.Put && bar.Kind == options.DownAndOut:
		v = pick(above, A-B+C-D, 0)
	case o.Style == options.Put && bar.Kind == options.UpAndOut:
		v = pick(above, B-D, A-C)
	default:
		return 0, errors.NewPricingError("barrier", "unknown barrier kind "+string(bar.Kind))
	}
	return math.Max(v, 0), nil
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
