package pricing

import (
	"math"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
)

// crrTree prices on a Cox-Ross-Rubinstein tree. exercisable reports whether
// early exercise is allowed at the given step; nil means European.
func crrTree(style options.OptionStyle, in inputs, steps int, exercisable func(step int) bool) float64 {
	if in.t <= 0 {
		return vanillaIntrinsic(style, in.s, in.k)
	}
	if steps < 1 {
		steps = 1
	}
	dt := in.t / float64(steps)
	sigma := math.Max(in.sigma, 1e-8)
	u := math.Exp(sigma * math.Sqrt(dt))
	d := 1 / u
	p := (math.Exp(in.carry()*dt) - d) / (u - d)
	p = math.Min(math.Max(p, 0), 1)
	disc := math.Exp(-in.r * dt)

	values := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		st := in.s * math.Pow(u, float64(steps-i)) * math.Pow(d, float64(i))
		values[i] = vanillaIntrinsic(style, st, in.k)
	}

	for step := steps - 1; step >= 0; step-- {
		early := exercisable != nil && exercisable(step)
		for i := 0; i <= step; i++ {
			cont := disc * (p*values[i] + (1-p)*values[i+1])
			if early {
				st := in.s * math.Pow(u, float64(step-i)) * math.Pow(d, float64(i))
				cont = math.Max(cont, vanillaIntrinsic(style, st, in.k))
			}
			values[i] = cont
		}
	}
	return values[0]
}

func (e *Engine) priceAmerican(o *options.Options, in inputs) (float64, error) {
	return crrTree(o.Style, in, e.BinomialSteps, func(int) bool { return true }), nil
}

func (e *Engine) priceBermuda(o *options.Options, in inputs) (float64, error) {
	b := o.Type().(options.Bermuda)
	if len(b.ExerciseDates) == 0 {
		return 0, errors.NewMissingFieldError("bermuda", "exercise_dates")
	}
	if in.t <= 0 {
		return vanillaIntrinsic(o.Style, in.s, in.k), nil
	}

	steps := e.BinomialSteps
	dt := in.t / float64(steps)
	allowed := make(map[int]bool, len(b.ExerciseDates))
	for _, days := range b.ExerciseDates {
		step := int(math.Round(days / options.DaysPerYear / dt))
		if step > 0 && step < steps {
			allowed[step] = true
		}
	}
	return crrTree(o.Style, in, steps, func(step int) bool { return allowed[step] }), nil
}
