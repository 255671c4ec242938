package deltaneutral

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"optionstrat/internal/chain"
	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// maxEvaluations bounds the number of candidate plans scored per search.
const maxEvaluations = 200000

// Optimizer searches the smallest plan that moves a set of legs onto a
// Greek target.
type Optimizer struct {
	legs       []models.Leg
	underlying positive.Positive
	config     AdjustmentConfig
	target     AdjustmentTarget
	chain      *chain.OptionChain
	logger     zerolog.Logger
}

func NewOptimizer(legs []models.Leg, underlying positive.Positive, config AdjustmentConfig,
	target AdjustmentTarget, logger zerolog.Logger) *Optimizer {
	return &Optimizer{legs: legs, underlying: underlying, config: config, target: target, logger: logger}
}

// WithChain lets the optimizer open new legs from c.
func (o *Optimizer) WithChain(c *chain.OptionChain) *Optimizer {
	o.chain = c
	return o
}

// Optimize runs the optimizer on the legs of s.
func (e *Engine) Optimize(s strategies.Strategy, config AdjustmentConfig, target AdjustmentTarget,
	c *chain.OptionChain) (AdjustmentPlan, error) {
	return NewOptimizer(s.Legs(), s.UnderlyingPrice(), config, target, e.logger).WithChain(c).Optimize()
}

// instrument is something the plan can trade in any signed amount x.
type instrument struct {
	label string
	unit  PortfolioGreeks
	// held is the open quantity of an existing leg; zero otherwise.
	held   decimal.Decimal
	action func(x decimal.Decimal) (AdjustmentAction, decimal.Decimal, error)
}

type candidate struct {
	plan    AdjustmentPlan
	newLegs int
}

type search struct {
	o         *Optimizer
	current   PortfolioGreeks
	gaps      []gap
	best      *candidate
	evaluated int
	// overBudget records that a plan was refused for its cost.
	overBudget bool
}

// Optimize returns the plan with the fewest actions that satisfies the
// target, breaking ties by cost.
func (o *Optimizer) Optimize() (AdjustmentPlan, error) {
	if err := o.config.Validate(); err != nil {
		return AdjustmentPlan{}, err
	}
	if len(o.legs) == 0 {
		return AdjustmentPlan{}, errors.NewAdjustmentError(errors.AdjustmentNoPositions, "nothing to adjust", nil)
	}
	current, err := FromLegs(o.legs)
	if err != nil {
		return AdjustmentPlan{}, errors.NewAdjustmentError(errors.AdjustmentGreeksError, "portfolio greeks", err)
	}
	if o.target.IsSatisfied(current, o.config.DeltaTolerance) {
		plan := newPlan(nil, decimal.Zero, current, o.target)
		logging.LogPlan(o.logger, 0, 0, plan.ResidualDelta.InexactFloat64())
		return plan, nil
	}

	ins, err := o.instruments()
	if err != nil {
		return AdjustmentPlan{}, err
	}
	s := &search{o: o, current: current, gaps: o.target.gaps(current)}

	s.singles(ins)
	for k := 2; s.best == nil && k <= o.config.MaxTradesPerPlan && k <= len(ins) && s.evaluated < maxEvaluations; k++ {
		if k > len(s.gaps) {
			if k == 2 {
				s.greedyPairs(ins)
			}
			break
		}
		s.combinations(ins, k)
	}
	o.logger.Debug().Int("evaluated", s.evaluated).Int("instruments", len(ins)).Msg("Adjustment search finished")

	if s.best == nil {
		if s.overBudget {
			return AdjustmentPlan{}, errors.NewAdjustmentError(errors.AdjustmentCostExceeded,
				"every satisfying plan exceeds the cost limit", nil)
		}
		return AdjustmentPlan{}, errors.NewAdjustmentError(errors.AdjustmentNoViablePlan,
			"no plan reaches the target within tolerance", nil)
	}
	plan := s.best.plan
	logging.LogPlan(o.logger, len(plan.Actions), plan.EstimatedCost.InexactFloat64(), plan.ResidualDelta.InexactFloat64())
	return plan, nil
}

// singles tries each instrument alone at the size that closes the delta
// gap, and closing each existing leg.
func (s *search) singles(ins []instrument) {
	gapDelta := s.o.target.DeltaGap(s.current)
	for i := range ins {
		if x, ok := solveOne(ins[i].unit.Delta, gapDelta); ok {
			s.evaluate([]instrument{ins[i]}, []decimal.Decimal{x})
		}
		if ins[i].held.IsPositive() {
			s.evaluate([]instrument{ins[i]}, []decimal.Decimal{ins[i].held.Neg()})
		}
	}
}

// greedyPairs closes one existing leg and sizes a second instrument to the
// remaining delta gap.
func (s *search) greedyPairs(ins []instrument) {
	gapDelta := s.o.target.DeltaGap(s.current)
	for i := range ins {
		if !ins[i].held.IsPositive() {
			continue
		}
		closing := ins[i].held.Neg()
		rest := gapDelta.Sub(closing.Mul(ins[i].unit.Delta))
		for j := range ins {
			if j == i {
				continue
			}
			if x, ok := solveOne(ins[j].unit.Delta, rest); ok {
				s.evaluate([]instrument{ins[i], ins[j]}, []decimal.Decimal{closing, x})
			}
		}
	}
}

// combinations solves the k x k system of the first k constrained Greeks
// for every k-subset of instruments.
func (s *search) combinations(ins []instrument, k int) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for s.evaluated < maxEvaluations {
		picked := make([]instrument, k)
		for i, j := range idx {
			picked[i] = ins[j]
		}
		if xs, ok := s.solve(picked); ok {
			s.evaluate(picked, xs)
		}
		// next combination in lexicographic order
		i := k - 1
		for i >= 0 && idx[i] == len(ins)-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func (s *search) solve(picked []instrument) ([]decimal.Decimal, bool) {
	k := len(picked)
	a := mat.NewDense(k, k, nil)
	b := mat.NewVecDense(k, nil)
	for r := 0; r < k; r++ {
		b.SetVec(r, s.gaps[r].size.InexactFloat64())
		for c, in := range picked {
			a.Set(r, c, s.gaps[r].of(in.unit).InexactFloat64())
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, false
	}
	out := make([]decimal.Decimal, k)
	for i := range out {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = decimal.NewFromFloat(v).Round(10)
	}
	return out, true
}

func solveOne(unit, gap decimal.Decimal) (decimal.Decimal, bool) {
	if unit.Abs().LessThan(threshold.Div(decimal.NewFromInt(10))) {
		return decimal.Zero, false
	}
	return gap.Div(unit), true
}

// evaluate scores trading xs[i] of picked[i] and keeps it when it beats
// the best plan so far.
func (s *search) evaluate(picked []instrument, xs []decimal.Decimal) {
	s.evaluated++
	greeks := s.current
	cost := decimal.Zero
	var actions []AdjustmentAction
	newLegs := 0
	for i, in := range picked {
		if xs[i].IsZero() {
			continue
		}
		action, c, err := in.action(xs[i])
		if err != nil {
			if errors.Is(err, errCostCap) {
				s.overBudget = true
				s.o.logger.Debug().Str("instrument", in.label).Str("quantity", xs[i].String()).Msg("New leg over cost limit")
			}
			return
		}
		if action.Kind == AddLeg {
			newLegs++
		}
		actions = append(actions, action)
		cost = cost.Add(c)
		greeks = greeks.Add(in.unit.Scale(xs[i]))
	}
	if len(actions) == 0 || newLegs > s.o.config.MaxNewLegs {
		return
	}
	if !s.o.target.IsSatisfied(greeks, s.o.config.DeltaTolerance) {
		return
	}
	c := candidate{plan: newPlan(actions, cost, greeks, s.o.target), newLegs: newLegs}
	if s.best == nil || s.better(c, *s.best) {
		s.best = &c
	}
}

func (s *search) better(a, b candidate) bool {
	if len(a.plan.Actions) != len(b.plan.Actions) {
		return len(a.plan.Actions) < len(b.plan.Actions)
	}
	if s.o.config.PreferExistingLegs && a.newLegs != b.newLegs {
		return a.newLegs < b.newLegs
	}
	return a.plan.EstimatedCost.Abs().LessThan(b.plan.EstimatedCost.Abs())
}

var (
	errCostCap   = errors.New("new leg exceeds the cost limit")
	errForbidden = errors.New("trade not allowed by configuration")
	errOversold  = errors.New("would sell more contracts than held")
)

// instruments lists every tradable the configuration allows: existing
// option legs, the underlying and chain contracts near the money.
func (o *Optimizer) instruments() ([]instrument, error) {
	var out []instrument
	for i, l := range o.legs {
		p, ok := l.(*models.Position)
		if !ok || p.Option.Quantity.IsZero() {
			continue
		}
		in, err := o.existingLeg(i, p)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if o.config.CanTradeUnderlying {
		price := o.underlying.Decimal()
		out = append(out, instrument{
			label: "underlying",
			unit:  PortfolioGreeks{Delta: decimal.NewFromInt(1)},
			action: func(x decimal.Decimal) (AdjustmentAction, decimal.Decimal, error) {
				return NewAddUnderlying(x), x.Mul(price), nil
			},
		})
	}
	if o.config.CanAddNewLegs && o.chain != nil && o.config.MaxNewLegs > 0 {
		out = append(out, o.chainInstruments()...)
	}
	return out, nil
}

func (o *Optimizer) existingLeg(i int, p *models.Position) (instrument, error) {
	g, err := p.Greeks()
	if err != nil {
		return instrument{}, errors.NewAdjustmentError(errors.AdjustmentGreeksError, p.String(), err)
	}
	held := p.Option.Quantity.Decimal()
	unit := PortfolioGreeks{Delta: g.Delta, Gamma: g.Gamma, Theta: g.Theta, Vega: g.Vega, Rho: g.Rho}.
		Scale(decimal.NewFromInt(1).Div(held))
	sign := p.Option.Side.Sign()
	premium := p.Premium.Decimal()
	return instrument{
		label: p.String(),
		unit:  unit,
		held:  held,
		action: func(x decimal.Decimal) (AdjustmentAction, decimal.Decimal, error) {
			// growing a long or shrinking a short buys contracts
			buying := x.Sign() == sign.Sign()
			if buying && !o.config.CanBuyOptions || !buying && !o.config.CanSellOptions {
				return AdjustmentAction{}, decimal.Zero, errForbidden
			}
			next := held.Add(x)
			cost := x.Mul(premium).Mul(sign)
			switch {
			case next.IsNegative():
				return AdjustmentAction{}, decimal.Zero, errOversold
			case next.IsZero():
				return NewCloseLeg(i), cost, nil
			}
			return NewModifyQuantity(i, positive.MustDecimal(next)), cost, nil
		},
	}, nil
}

// chainInstruments are the contracts whose strikes lie within two standard
// deviations of the underlying at the chain's expiration.
func (o *Optimizer) chainInstruments() []instrument {
	c := o.chain
	sigma, ok := c.MeanIV()
	if !ok {
		return nil
	}
	band := o.underlying.Float64() * 2 * sigma.Float64() * math.Sqrt(c.Expiration.Years())
	lo := positive.Saturating(decimal.NewFromFloat(o.underlying.Float64() - band))
	hi := positive.Saturating(decimal.NewFromFloat(o.underlying.Float64() + band))

	var out []instrument
	for _, row := range c.Between(lo, hi) {
		if !o.config.StrikeRange.Contains(row.Strike) {
			continue
		}
		if o.config.MinOpenInterest > 0 && (row.OpenInterest == nil || *row.OpenInterest < o.config.MinOpenInterest) {
			continue
		}
		for _, style := range []options.OptionStyle{options.Call, options.Put} {
			if !o.config.allowsStyle(style) || !row.Tradable(style) {
				continue
			}
			in, err := o.chainLeg(row, style)
			if err != nil {
				o.logger.Debug().Err(err).Str("strike", row.Strike.String()).Msg("Chain contract skipped")
				continue
			}
			out = append(out, in)
		}
	}
	return out
}

func (o *Optimizer) chainLeg(row chain.OptionRow, style options.OptionStyle) (instrument, error) {
	probe, err := o.chain.Position(row, style, options.Long, positive.One, positive.Zero, positive.Zero)
	if err != nil {
		return instrument{}, err
	}
	g, err := probe.Greeks()
	if err != nil {
		return instrument{}, err
	}
	return instrument{
		label: probe.String(),
		unit:  PortfolioGreeks{Delta: g.Delta, Gamma: g.Gamma, Theta: g.Theta, Vega: g.Vega, Rho: g.Rho},
		action: func(x decimal.Decimal) (AdjustmentAction, decimal.Decimal, error) {
			side := options.Long
			if x.IsNegative() {
				side = options.Short
			}
			if side == options.Long && !o.config.CanBuyOptions || side == options.Short && !o.config.CanSellOptions {
				return AdjustmentAction{}, decimal.Zero, errForbidden
			}
			p, err := o.chain.Position(row, style, side, positive.Abs(x), positive.Zero, positive.Zero)
			if err != nil {
				return AdjustmentAction{}, decimal.Zero, err
			}
			cost := x.Mul(p.Premium.Decimal())
			if side == options.Long && o.config.MaxNewLegCost != nil && cost.GreaterThan(o.config.MaxNewLegCost.Decimal()) {
				return AdjustmentAction{}, decimal.Zero, errCostCap
			}
			opt := p.Option
			return NewAddLeg(&opt, p.Premium), cost, nil
		},
	}, nil
}

// ApplyPlan returns the legs that result from carrying out plan on legs.
// The input legs are not changed.
func ApplyPlan(legs []models.Leg, underlying positive.Positive, plan AdjustmentPlan) ([]models.Leg, error) {
	next := make([]models.Leg, len(legs))
	copy(next, legs)
	closed := make([]bool, len(legs))
	var added []models.Leg
	for _, a := range plan.Actions {
		switch a.Kind {
		case ModifyQuantity, CloseLeg:
			if a.Leg < 0 || a.Leg >= len(legs) {
				return nil, errors.NewAdjustmentError(errors.AdjustmentInvalidLegIndex, a.String(), nil)
			}
			p, ok := legs[a.Leg].(*models.Position)
			if !ok {
				return nil, errors.NewAdjustmentError(errors.AdjustmentInvalidLegIndex, "leg is not an option", nil)
			}
			if a.Kind == CloseLeg {
				closed[a.Leg] = true
				continue
			}
			c := p.Clone()
			c.Option.Quantity = a.NewQuantity
			next[a.Leg] = c
		case AddLeg:
			if a.Option == nil {
				return nil, errors.NewValidationError("option", nil, "add leg requires an option")
			}
			added = append(added, models.NewPosition(*a.Option, a.Premium, positive.Zero, positive.Zero))
		case AddUnderlying:
			side := options.Long
			if a.Quantity.IsNegative() {
				side = options.Short
			}
			symbol := ""
			if len(legs) > 0 {
				symbol = legs[0].Underlying()
			}
			added = append(added, models.NewSpotPosition(symbol, positive.Abs(a.Quantity), underlying, side,
				positive.Zero, positive.Zero))
		default:
			return nil, errors.NewValidationError("kind", a.Kind, "unknown action")
		}
	}
	out := make([]models.Leg, 0, len(next)+len(added))
	for i, l := range next {
		if !closed[i] {
			out = append(out, l)
		}
	}
	return append(out, added...), nil
}
