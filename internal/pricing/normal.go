package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// N is the standard normal cumulative distribution function.
func N(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// Phi is the standard normal density.
func Phi(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// Gauss-Legendre abscissae and weights for the bivariate normal integral.
var (
	gl6x  = []float64{-0.9324695142031522, -0.6612093864662647, -0.2386191860831970}
	gl6w  = []float64{0.1713244923791705, 0.3607615730481384, 0.4679139345726904}
	gl12x = []float64{-0.9815606342467191, -0.9041172563704750, -0.7699026741943050,
		-0.5873179542866171, -0.3678314989981802, -0.1252334085114692}
	gl12w = []float64{0.04717533638651177, 0.1069393259953183, 0.1600783285433464,
		0.2031674267230659, 0.2334925365383547, 0.2491470458134029}
	gl20x = []float64{-0.9931285991850949, -0.9639719272779138, -0.9122344282513259,
		-0.8391169718222188, -0.7463319064601508, -0.6360536807265150, -0.5108670019508271,
		-0.3737060887154196, -0.2277858511416451, -0.07652652113349733}
	gl20w = []float64{0.01761400713915212, 0.04060142980038694, 0.06267204833410906,
		0.08327674157670475, 0.1019301198172404, 0.1181945319615184, 0.1316886384491766,
		0.1420961093183821, 0.1491729864726037, 0.1527533871307259}
)

// M is the bivariate standard normal CDF P(X < a, Y < b) with correlation rho
// (Genz 2004).
func M(a, b, rho float64) float64 {
	var xs, ws []float64
	switch r := math.Abs(rho); {
	case r < 0.3:
		xs, ws = gl6x, gl6w
	case r < 0.75:
		xs, ws = gl12x, gl12w
	default:
		xs, ws = gl20x, gl20w
	}

	h, k := -a, -b
	hk := h * k
	bvn := 0.0

	if math.Abs(rho) < 0.925 {
		if math.Abs(rho) > 0 {
			hs := (h*h + k*k) / 2
			asr := math.Asin(rho)
			for i := range xs {
				for _, sgn := range []float64{-1, 1} {
					sn := math.Sin(asr * (sgn*xs[i] + 1) / 2)
					bvn += ws[i] * math.Exp((sn*hk-hs)/(1-sn*sn))
				}
			}
			bvn = bvn * asr / (4 * math.Pi)
		}
		return bvn + N(-h)*N(-k)
	}

	if rho < 0 {
		k = -k
		hk = -hk
	}
	if math.Abs(rho) < 1 {
		as := (1 - rho) * (1 + rho)
		aa := math.Sqrt(as)
		bs := (h - k) * (h - k)
		c := (4 - hk) / 8
		d := (12 - hk) / 16
		asr := -(bs/as + hk) / 2
		if asr > -100 {
			bvn = aa * math.Exp(asr) * (1 - c*(bs-as)*(1-d*bs/5)/3 + c*d*as*as/5)
		}
		if -hk < 100 {
			bb := math.Sqrt(bs)
			bvn -= math.Exp(-hk/2) * math.Sqrt(2*math.Pi) * N(-bb/aa) * bb * (1 - c*bs*(1-d*bs/5)/3)
		}
		aa /= 2
		for i := range xs {
			for _, sgn := range []float64{-1, 1} {
				x := aa * (sgn*xs[i] + 1)
				x *= x
				rs := math.Sqrt(1 - x)
				asr := -(bs/x + hk) / 2
				if asr > -100 {
					bvn += aa * ws[i] * math.Exp(asr) *
						(math.Exp(-hk*(1-rs)/(2*(1+rs)))/rs - (1 + c*x*(1+d*x)))
				}
			}
		}
		bvn = -bvn / (2 * math.Pi)
	}

	if rho > 0 {
		return bvn + N(-math.Max(h, k))
	}
	bvn = -bvn
	if k > h {
		bvn += N(k) - N(h)
	}
	return bvn
}
