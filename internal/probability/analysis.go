package probability

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// DefaultSimpsonIntervals is the number of Simpson sub-intervals per
// integration piece.
const DefaultSimpsonIntervals = 64

// extremeGrid is the number of samples used to locate the price regions
// where a strategy sits at its maximum profit or loss.
const extremeGrid = 4001

// ProfitLossRange is a price interval on which the expiration P&L keeps one
// sign. Nil bounds are unbounded.
type ProfitLossRange struct {
	Lower       *positive.Positive `json:"lower_bound"`
	Upper       *positive.Positive `json:"upper_bound"`
	Probability positive.Positive  `json:"probability"`
	IsProfit    bool               `json:"is_profit"`
	// ExpectedPnL is the integral of P&L times density over the range.
	ExpectedPnL decimal.Decimal `json:"expected_pnl"`
}

// Contains reports whether price lies inside the range.
func (r ProfitLossRange) Contains(price positive.Positive) bool {
	if r.Lower != nil && !price.GreaterThan(*r.Lower) {
		return false
	}
	return r.Upper == nil || price.LessThan(*r.Upper)
}

// StrategyProbabilityAnalysis summarises the outcome distribution of a
// strategy at expiration.
type StrategyProbabilityAnalysis struct {
	ProbabilityOfProfit    positive.Positive   `json:"probability_of_profit"`
	ProbabilityOfMaxProfit positive.Positive   `json:"probability_of_max_profit"`
	ProbabilityOfMaxLoss   positive.Positive   `json:"probability_of_max_loss"`
	ExpectedValue          decimal.Decimal     `json:"expected_value"`
	BreakEvenPoints        []positive.Positive `json:"break_even_points"`
	RiskRewardRatio        positive.Positive   `json:"risk_reward_ratio"`
	Ranges                 []ProfitLossRange   `json:"ranges"`
	Volatility             float64             `json:"volatility"`
}

// ProfitRanges returns the profit zones.
func (a StrategyProbabilityAnalysis) ProfitRanges() []ProfitLossRange { return a.filter(true) }

// LossRanges returns the loss zones.
func (a StrategyProbabilityAnalysis) LossRanges() []ProfitLossRange { return a.filter(false) }

func (a StrategyProbabilityAnalysis) filter(profit bool) []ProfitLossRange {
	var out []ProfitLossRange
	for _, r := range a.Ranges {
		if r.IsProfit == profit {
			out = append(out, r)
		}
	}
	return out
}

// Config tunes the analyzer.
type Config struct {
	SimpsonIntervals int
	// DefaultVolatility applies when no leg quotes an implied volatility.
	DefaultVolatility float64
}

func DefaultConfig() Config {
	return Config{SimpsonIntervals: DefaultSimpsonIntervals, DefaultVolatility: 0.2}
}

// Analyzer runs probability analyses.
type Analyzer struct {
	config Config
	logger zerolog.Logger
}

func NewAnalyzer(config Config, logger zerolog.Logger) *Analyzer {
	return &Analyzer{config: config, logger: logger}
}

// Model builds the terminal price model of s: the earliest option expiry,
// the rate and dividend of the first option leg and, unless vol is given,
// the adjusted mean leg volatility.
func (a *Analyzer) Model(s strategies.Strategy, vol *VolatilityAdjustment, trend *PriceTrend) (Model, error) {
	positions := s.Positions()
	if len(positions) == 0 {
		return Model{}, errors.NewProbabilityError("strategy has no option legs to date it", nil)
	}
	years := math.Inf(1)
	for _, p := range positions {
		years = math.Min(years, p.Option.Expiration.Years())
	}
	first := positions[0].Option
	adj := VolatilityAdjustment{}
	if vol != nil {
		adj = *vol
	} else {
		var err error
		if adj, err = LegVolatility(s.Legs(), a.config.DefaultVolatility); err != nil {
			return Model{}, err
		}
	}
	return NewModel(s.UnderlyingPrice(), years, first.RiskFreeRate.InexactFloat64(), first.DividendYield.Float64(), adj, trend)
}

// Analyze partitions the price axis of s at its break-evens, classifies
// and merges the zones and weighs them with the terminal distribution.
func (a *Analyzer) Analyze(s strategies.Strategy, vol *VolatilityAdjustment, trend *PriceTrend) (res StrategyProbabilityAnalysis, err error) {
	start := time.Now()
	defer func() { logging.LogDuration(a.logger, "probability_analysis", time.Since(start), err) }()

	bes := s.BreakEvenPoints()
	if len(bes) == 0 {
		return StrategyProbabilityAnalysis{}, errors.NewProbabilityError("strategy has no break-even points",
			errors.ErrBreakEvenUnavailable)
	}
	m, err := a.Model(s, vol, trend)
	if err != nil {
		return StrategyProbabilityAnalysis{}, err
	}
	ranges, err := a.Ranges(s, m)
	if err != nil {
		return StrategyProbabilityAnalysis{}, err
	}

	res = StrategyProbabilityAnalysis{BreakEvenPoints: bes, Ranges: ranges, Volatility: m.Volatility}
	pop, ev := 0.0, decimal.Zero
	for _, r := range ranges {
		if r.IsProfit {
			pop += r.Probability.Float64()
		}
		ev = ev.Add(r.ExpectedPnL)
	}
	res.ProbabilityOfProfit = clampProbability(pop)
	res.ExpectedValue = ev
	if ratio, err := strategies.ProfitRatio(s); err == nil {
		res.RiskRewardRatio = ratio
	}
	if mp, err := s.MaxProfit(); err == nil {
		res.ProbabilityOfMaxProfit = a.extremeProbability(s, m, mp, 1)
	}
	if ml, err := s.MaxLoss(); err == nil {
		res.ProbabilityOfMaxLoss = a.extremeProbability(s, m, ml, -1)
	}
	return res, nil
}

// Ranges returns the merged profit and loss zones of s under m.
func (a *Analyzer) Ranges(s strategies.Strategy, m Model) ([]ProfitLossRange, error) {
	bounds := sortedBounds(s.BreakEvenPoints())
	pnl := func(x float64) float64 {
		return strategies.ProfitAt(s, positive.Saturating(decimalOf(x))).InexactFloat64()
	}

	var zones []ProfitLossRange
	for i := 0; i <= len(bounds); i++ {
		var lo, hi *positive.Positive
		if i > 0 {
			lo = &bounds[i-1]
		}
		if i < len(bounds) {
			hi = &bounds[i]
		}
		profit := pnl(midpoint(lo, hi, s.UnderlyingPrice())) > 0
		if n := len(zones); n > 0 && zones[n-1].IsProfit == profit {
			zones[n-1].Upper = hi
			continue
		}
		zones = append(zones, ProfitLossRange{Lower: lo, Upper: hi, IsProfit: profit})
	}

	breaks := make([]float64, 0)
	for _, k := range strategies.Strikes(s) {
		breaks = append(breaks, k.Float64())
	}
	for i := range zones {
		z := &zones[i]
		z.Probability = clampProbability(m.Between(z.Lower, z.Upper))
		e, err := m.Expectation(pnl, z.Lower, z.Upper, breaks, a.intervals())
		if err != nil {
			return nil, err
		}
		z.ExpectedPnL = decimalOf(e)
	}
	return zones, nil
}

func (a *Analyzer) intervals() int {
	if a.config.SimpsonIntervals == 0 {
		return DefaultSimpsonIntervals
	}
	return a.config.SimpsonIntervals
}

// extremeProbability is the probability that s ends at level, its maximum
// profit (sign 1) or maximum loss (sign -1). Unbounded extremes are never
// reached.
func (a *Analyzer) extremeProbability(s strategies.Strategy, m Model, level positive.Positive, sign float64) positive.Positive {
	if level.IsInfinite() {
		return positive.Zero
	}
	target := sign * level.Float64()
	tol := 1e-6 * math.Max(1, math.Abs(target))

	lo := math.Max(m.Quantile(1e-9), 1e-9)
	hi := m.Quantile(1 - 1e-9)
	for _, k := range strategies.Strikes(s) {
		lo = math.Min(lo, k.Float64()*0.5)
		hi = math.Max(hi, k.Float64()*1.5)
	}
	grid := floats.Span(make([]float64, extremeGrid), lo, hi)
	strikes := strategies.Strikes(s)

	total := 0.0
	runStart := -1
	flush := func(end int) {
		var lower, upper *positive.Positive
		if runStart > 0 {
			lower = snap(grid[runStart], strikes, grid[1]-grid[0])
		}
		if end < len(grid)-1 {
			upper = snap(grid[end], strikes, grid[1]-grid[0])
		}
		total += m.Between(lower, upper)
	}
	for i, x := range grid {
		at := math.Abs(strategies.ProfitAt(s, positive.Saturating(decimalOf(x))).InexactFloat64()-target) <= tol
		switch {
		case at && runStart < 0:
			runStart = i
		case !at && runStart >= 0:
			flush(i - 1)
			runStart = -1
		}
	}
	if runStart >= 0 {
		flush(len(grid) - 1)
	}
	return clampProbability(total)
}

// snap moves a run boundary onto the nearest strike within one grid step.
func snap(x float64, strikes []positive.Positive, step float64) *positive.Positive {
	for _, k := range strikes {
		if math.Abs(k.Float64()-x) <= step {
			k := k
			return &k
		}
	}
	p := positive.Saturating(decimalOf(x))
	return &p
}

func sortedBounds(points []positive.Positive) []positive.Positive {
	out := append([]positive.Positive(nil), points...)
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// midpoint picks a representative price of an interval: half the upper
// bound below the first break-even, 1.5x the lower bound above the last.
func midpoint(lo, hi *positive.Positive, underlying positive.Positive) float64 {
	switch {
	case lo == nil && hi == nil:
		return underlying.Float64()
	case lo == nil:
		return hi.Float64() / 2
	case hi == nil:
		return lo.Float64() * 1.5
	}
	return (lo.Float64() + hi.Float64()) / 2
}

func clampProbability(p float64) positive.Positive {
	return positive.Saturating(decimalOf(math.Min(1, math.Max(0, p))))
}

func decimalOf(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
