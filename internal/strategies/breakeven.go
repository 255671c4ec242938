package strategies

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const maxNewtonIterations = 100

// scan is the sampled profit of a strategy over a price window.
type scan struct {
	prices []float64
	values []float64
	// tail slopes per unit of price just outside the window
	leftSlope, rightSlope float64
	atZero                float64
}

// sampleProfit evaluates f on [lo, hi] every step.
func sampleProfit(f func(float64) float64, lo, hi, step float64) scan {
	n := int(math.Floor((hi-lo)/step)) + 1
	if n < 2 {
		n = 2
	}
	xs := floats.Span(make([]float64, n), lo, lo+float64(n-1)*step)
	ys := make([]float64, n)
	for i, x := range xs {
		ys[i] = f(x)
	}
	h := math.Min(1, lo/2)
	s := scan{prices: xs, values: ys, atZero: f(0)}
	if h > 0 {
		s.leftSlope = (ys[0] - f(lo-h)) / h
	}
	s.rightSlope = f(xs[n-1]+1) - ys[n-1]
	return s
}

// breakEvens walks the samples and reports every price where the profit is
// within BreakEvenEpsilon of zero, one per run of such samples, and every
// sign change refined with Newton-Raphson. Crossings beyond the window on a
// linear tail are solved from the edge.
func (s scan) breakEvens(f func(float64) float64) []float64 {
	var out []float64
	inRun := false
	best, bestAbs := 0.0, math.Inf(1)
	for i, x := range s.prices {
		v := s.values[i]
		if math.Abs(v) < BreakEvenEpsilon {
			if !inRun || math.Abs(v) < bestAbs {
				best, bestAbs = x, math.Abs(v)
			}
			inRun = true
			continue
		}
		if inRun {
			out = append(out, best)
			inRun, bestAbs = false, math.Inf(1)
		}
		if i > 0 && math.Abs(s.values[i-1]) >= BreakEvenEpsilon && sameSign(s.values[i-1], v) < 0 {
			out = append(out, refine(f, s.prices[i-1], x, s.values[i-1], v))
		}
	}
	if inRun {
		out = append(out, best)
	}

	n := len(s.prices)
	if first := s.values[0]; math.Abs(first) >= BreakEvenEpsilon && s.leftSlope != 0 && sameSign(first, s.leftSlope) > 0 {
		if x := newton(f, s.prices[0]); x > 0 && x < s.prices[0] {
			out = append([]float64{x}, out...)
		}
	}
	if last := s.values[n-1]; math.Abs(last) >= BreakEvenEpsilon && s.rightSlope != 0 && sameSign(last, s.rightSlope) < 0 {
		if x := newton(f, s.prices[n-1]); x > s.prices[n-1] {
			out = append(out, x)
		}
	}
	return out
}

// extremes are the highest and lowest sampled profit, including the profit
// at a zero underlying.
func (s scan) extremes() (hi, lo float64) {
	hi = math.Max(floats.Max(s.values), s.atZero)
	lo = math.Min(floats.Min(s.values), s.atZero)
	return hi, lo
}

// refine runs Newton from the left sample of a bracketed crossing and falls
// back to linear interpolation if it leaves the bracket.
func refine(f func(float64) float64, a, b, fa, fb float64) float64 {
	x := newton(f, a)
	if x >= a && x <= b {
		return x
	}
	return a + (b-a)*fa/(fa-fb)
}

// newton solves f(x) = 0 from x0 with a forward-difference derivative of
// step sqrt(BreakEvenEpsilon), stopping when the step is below
// BreakEvenEpsilon.
func newton(f func(float64) float64, x0 float64) float64 {
	h := math.Sqrt(BreakEvenEpsilon)
	x := x0
	for i := 0; i < maxNewtonIterations; i++ {
		fx := f(x)
		d := (f(x+h) - fx) / h
		if d == 0 {
			break
		}
		next := x - fx/d
		if next <= 0 {
			next = x / 2
		}
		if math.Abs(next-x) < BreakEvenEpsilon {
			return next
		}
		x = next
	}
	return x
}

func sameSign(a, b float64) int {
	switch {
	case a == 0 || b == 0:
		return 0
	case (a > 0) == (b > 0):
		return 1
	}
	return -1
}
