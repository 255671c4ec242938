// Package chainopt searches an option chain for the rows that make the best
// instance of a strategy shape.
package chainopt

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"optionstrat/internal/chain"
	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/performance"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// DefaultMaxCandidates bounds the number of row tuples a search evaluates.
const DefaultMaxCandidates = 10000

// batchSize is the number of tuples scored concurrently between reductions.
const batchSize = 256

// wideFanout caps the rows considered per leg once a shape has more than
// four legs.
const wideFanout = 16

// Criterion ranks candidate strategies; higher is better.
type Criterion string

const (
	Ratio Criterion = "ratio"
	Area  Criterion = "area"
)

// ParseCriterion accepts "ratio" or "area", case-insensitively.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case Ratio, Area:
		return c, nil
	}
	return "", errors.NewValidationError("criterion", s, "must be ratio or area")
}

// Score evaluates s under the criterion.
func (c Criterion) Score(s strategies.Strategy) (decimal.Decimal, error) {
	switch c {
	case Area:
		return strategies.ProfitArea(s)
	case Ratio, "":
		r, err := strategies.ProfitRatio(s)
		if err != nil {
			return decimal.Zero, err
		}
		return r.Decimal(), nil
	}
	return decimal.Zero, errors.NewUnsupportedError(string(c), "score")
}

// Config controls a search.
type Config struct {
	Criterion Criterion
	Side      chain.FindOptimalSide
	// MaxCandidates stops the search early; zero means DefaultMaxCandidates.
	MaxCandidates int
	// Quantity is the base leg size; zero means one.
	Quantity positive.Positive
	OpenFee  positive.Positive
	CloseFee positive.Positive
	// Workers scores candidates concurrently; zero means one per CPU.
	Workers int
}

// DefaultConfig ranks by profit ratio over the whole chain.
func DefaultConfig() Config {
	return Config{
		Criterion:     Ratio,
		Side:          chain.All(),
		MaxCandidates: DefaultMaxCandidates,
		Quantity:      positive.One,
	}
}

// Result is the winning candidate of a search.
type Result struct {
	Strategy  strategies.Strategy
	Score     decimal.Decimal
	Rows      []chain.OptionRow
	Evaluated int
	// Truncated is set when the candidate bound stopped the search.
	Truncated bool
}

func (r Result) String() string {
	strikes := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		strikes[i] = row.Strike.String()
	}
	return fmt.Sprintf("%s [%s] score=%s evaluated=%d truncated=%t",
		r.Strategy.Kind(), strings.Join(strikes, ", "), r.Score.StringFixed(4), r.Evaluated, r.Truncated)
}

// Optimizer walks the chain for one strategy kind at a time.
type Optimizer struct {
	config Config
	logger zerolog.Logger
}

func NewOptimizer(config Config, logger zerolog.Logger) *Optimizer {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultMaxCandidates
	}
	if config.Quantity.IsZero() {
		config.Quantity = positive.One
	}
	if config.Criterion == "" {
		config.Criterion = Ratio
	}
	return &Optimizer{config: config, logger: logger}
}

// Best evaluates tuples of rows matching the shape of kind and returns the
// highest scoring strategy. Rows of a tuple never decrease in strike, so
// each leg of the shape gets a strike at or above the previous one.
func (o *Optimizer) Best(kind strategies.Kind, c *chain.OptionChain) (res Result, err error) {
	start := time.Now()
	defer func() { logging.LogDuration(o.logger, "chain_optimize", time.Since(start), err) }()

	slots, spot, err := strategies.Shape(kind)
	if err != nil {
		return Result{}, err
	}
	if c == nil || c.Len() == 0 {
		return Result{}, errors.Wrap(errors.ErrChain, "empty chain")
	}
	candidates := o.candidateRows(c, slots)

	found := false
	res.Score = decimal.Zero
	batch := make([][]chain.OptionRow, 0, batchSize)
	flush := func() {
		for i, ev := range o.evaluate(kind, c, slots, spot, batch) {
			res.Evaluated++
			if ev.err != nil {
				o.logger.Debug().Err(ev.err).Str("kind", string(kind)).Msg("Candidate rejected")
				continue
			}
			if !found || ev.score.GreaterThan(res.Score) {
				found = true
				res.Strategy, res.Score, res.Rows = ev.strategy, ev.score, batch[i]
				logging.LogCandidate(o.logger, string(kind), ev.score.InexactFloat64(), res.Evaluated)
			}
		}
		batch = make([][]chain.OptionRow, 0, batchSize)
	}
	walkErr := Walk(candidates, o.config.MaxCandidates, func(tuple []chain.OptionRow) {
		batch = append(batch, append([]chain.OptionRow(nil), tuple...))
		if len(batch) == batchSize {
			flush()
		}
	})
	flush()
	if errors.Is(walkErr, errBudget) {
		res.Truncated = true
	}
	if !found {
		return res, errors.Wrapf(errors.ErrChain, "no valid %s in %s after %d candidates", kind, c.Symbol, res.Evaluated)
	}
	return res, nil
}

// candidateRows lists, per slot, the rows the side filter accepts that can
// be traded and priced.
func (o *Optimizer) candidateRows(c *chain.OptionChain, slots []strategies.Slot) [][]chain.OptionRow {
	pool := c.Rows()
	if len(slots) > 4 {
		pool = c.Nearest(wideFanout)
	}
	out := make([][]chain.OptionRow, len(slots))
	for i, slot := range slots {
		for _, row := range pool {
			if row.ImpliedVolatility == nil || !row.Tradable(slot.Style) {
				continue
			}
			if o.config.Side.Accepts(c.UnderlyingPrice, row, slot.Style) {
				out[i] = append(out[i], row)
			}
		}
	}
	return out
}

type evaluation struct {
	strategy strategies.Strategy
	score    decimal.Decimal
	err      error
}

// evaluate assembles and scores tuples concurrently; results keep the
// order of tuples.
func (o *Optimizer) evaluate(kind strategies.Kind, c *chain.OptionChain, slots []strategies.Slot, spot bool,
	tuples [][]chain.OptionRow) []evaluation {
	out := make([]evaluation, len(tuples))
	performance.ForEach(o.config.Workers, len(tuples), func(i int) {
		s, err := o.assemble(kind, c, slots, spot, tuples[i])
		if err != nil {
			out[i].err = err
			return
		}
		out[i].strategy = s
		out[i].score, out[i].err = o.config.Criterion.Score(s)
	})
	return out
}

func (o *Optimizer) assemble(kind strategies.Kind, c *chain.OptionChain, slots []strategies.Slot, spot bool,
	tuple []chain.OptionRow) (strategies.Strategy, error) {
	unit := o.config.Quantity
	if spot {
		unit = unit.Mul(positive.MustDecimal(decimal.NewFromInt(strategies.ContractSize)))
	}
	legs := make([]models.Leg, 0, len(slots)+1)
	if spot {
		legs = append(legs, models.NewSpotPosition(c.Symbol, unit, c.UnderlyingPrice, options.Long,
			o.config.OpenFee, o.config.CloseFee))
	}
	for i, slot := range slots {
		qty := unit.Mul(positive.MustDecimal(decimal.NewFromInt(slot.Ratio)))
		p, err := c.Position(tuple[i], slot.Style, slot.Side, qty, o.config.OpenFee, o.config.CloseFee)
		if err != nil {
			return nil, err
		}
		legs = append(legs, p)
	}
	return strategies.Assemble(kind, c.Symbol, c.UnderlyingPrice, legs)
}
