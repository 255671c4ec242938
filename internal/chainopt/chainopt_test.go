package chainopt

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/chain"
	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

func testChain(t *testing.T) *chain.OptionChain {
	t.Helper()
	c, err := chain.Build(chain.BuildParams{
		Symbol:          "TEST",
		UnderlyingPrice: positive.Must(100),
		Expiration:      options.Days(30),
		Volatility:      positive.Must(0.25),
		RiskFreeRate:    decimal.NewFromFloat(0.02),
		DividendYield:   positive.Zero,
		StrikeInterval:  positive.Must(5),
		StrikesPerSide:  6,
		Spread:          0.04,
	})
	require.NoError(t, err)
	return c
}

func rowsAt(strikes ...float64) []chain.OptionRow {
	out := make([]chain.OptionRow, len(strikes))
	for i, k := range strikes {
		out[i] = chain.OptionRow{Strike: positive.Must(k)}
	}
	return out
}

func TestWalk(t *testing.T) {
	level := rowsAt(90, 100, 110)

	var seen [][2]float64
	err := Walk([][]chain.OptionRow{level, level}, 100, func(tuple []chain.OptionRow) {
		seen = append(seen, [2]float64{tuple[0].Strike.Float64(), tuple[1].Strike.Float64()})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{
		{90, 90}, {90, 100}, {90, 110}, {100, 100}, {100, 110}, {110, 110},
	}, seen)

	count := 0
	err = Walk([][]chain.OptionRow{level, level}, 4, func([]chain.OptionRow) { count++ })
	assert.ErrorIs(t, err, errBudget)
	assert.Equal(t, 4, count)

	count = 0
	err = Walk([][]chain.OptionRow{level, level}, 6, func([]chain.OptionRow) { count++ })
	assert.NoError(t, err, "an exactly spent budget is not a truncation")
	assert.Equal(t, 6, count)

	assert.NoError(t, Walk(nil, 10, func([]chain.OptionRow) { t.Fatal("no levels, no tuples") }))
}

func TestBestBullCallSpread(t *testing.T) {
	c := testChain(t)
	o := NewOptimizer(DefaultConfig(), zerolog.Nop())

	res, err := o.Best(strategies.KindBullCallSpread, c)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, strategies.KindBullCallSpread, res.Strategy.Kind())
	assert.True(t, res.Rows[0].Strike.LessThan(res.Rows[1].Strike))
	assert.False(t, res.Truncated)
	// at most the non-decreasing pairs of 13 strikes
	assert.Positive(t, res.Evaluated)
	assert.LessOrEqual(t, res.Evaluated, 13*14/2)

	ratio, err := strategies.ProfitRatio(res.Strategy)
	require.NoError(t, err)
	assert.True(t, ratio.Decimal().Equal(res.Score))

	low, _ := c.Row(positive.Must(95))
	high, _ := c.Row(positive.Must(105))
	s, err := o.assemble(strategies.KindBullCallSpread, c, mustShape(t, strategies.KindBullCallSpread), false,
		[]chain.OptionRow{low, high})
	require.NoError(t, err)
	other, err := Ratio.Score(s)
	require.NoError(t, err)
	assert.True(t, res.Score.GreaterThanOrEqual(other))
	assert.Contains(t, res.String(), "BullCallSpread")
}

func mustShape(t *testing.T, kind strategies.Kind) []strategies.Slot {
	slots, _, err := strategies.Shape(kind)
	require.NoError(t, err)
	return slots
}

func TestBestRespectsBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 5
	res, err := NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindBullCallSpread, testChain(t))
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, 5, res.Evaluated)
	assert.NotNil(t, res.Strategy)
}

func TestBestStraddleByArea(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Criterion = Area
	res, err := NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindLongStraddle, testChain(t))
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.Rows[0].Strike.Equal(res.Rows[1].Strike))
	assert.True(t, res.Score.IsPositive())

	area, err := strategies.ProfitArea(res.Strategy)
	require.NoError(t, err)
	assert.True(t, area.Equal(res.Score))
}

func TestBestIsIndependentOfWorkers(t *testing.T) {
	c := testChain(t)
	var results []Result
	for _, workers := range []int{1, 8} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		res, err := NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindIronCondor, c)
		require.NoError(t, err)
		results = append(results, res)
	}
	assert.Equal(t, results[0].Evaluated, results[1].Evaluated)
	assert.True(t, results[0].Score.Equal(results[1].Score))
	assert.Equal(t, strategies.Strikes(results[0].Strategy), strategies.Strikes(results[1].Strategy))
}

func TestBestSideFilter(t *testing.T) {
	c := testChain(t)
	cfg := DefaultConfig()
	cfg.Side = chain.Lower()
	res, err := NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindLongPut, c)
	require.NoError(t, err)
	assert.False(t, res.Rows[0].Strike.GreaterThan(c.UnderlyingPrice))

	cfg.Side = chain.Range(positive.Must(105), positive.Must(115))
	res, err = NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindCoveredCall, c)
	require.NoError(t, err)
	k := res.Rows[0].Strike.Float64()
	assert.GreaterOrEqual(t, k, 105.0)
	assert.LessOrEqual(t, k, 115.0)
	assert.Len(t, res.Strategy.Legs(), 2)
}

func TestBestFailures(t *testing.T) {
	o := NewOptimizer(Config{}, zerolog.Nop())

	_, err := o.Best(strategies.KindCustom, testChain(t))
	assert.True(t, errors.Is(err, errors.ErrUnsupported))

	empty := chain.New("TEST", positive.Must(100), options.Days(30), decimal.Zero, positive.Zero)
	_, err = o.Best(strategies.KindLongCall, empty)
	assert.True(t, errors.Is(err, errors.ErrChain))

	c := testChain(t)
	cfg := DefaultConfig()
	cfg.Side = chain.Range(positive.Must(500), positive.Must(600))
	_, err = NewOptimizer(cfg, zerolog.Nop()).Best(strategies.KindLongCall, c)
	assert.True(t, errors.Is(err, errors.ErrChain))
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion(" Area ")
	require.NoError(t, err)
	assert.Equal(t, Area, c)

	_, err = ParseCriterion("sharpe")
	assert.True(t, errors.Is(err, errors.ErrInputValidation))
}
