package probability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
	"optionstrat/internal/strategies"
)

func common(underlying float64, days float64) strategies.Common {
	return strategies.Common{
		Symbol:            "TEST",
		UnderlyingPrice:   positive.Must(underlying),
		Expiration:        options.Days(days),
		ImpliedVolatility: positive.Must(0.2),
		RiskFreeRate:      decimal.Zero,
		DividendYield:     positive.Zero,
		Quantity:          positive.One,
	}
}

func quote(strike, premium, fee float64) strategies.LegQuote {
	return strategies.LegQuote{
		Strike:   positive.Must(strike),
		Premium:  positive.Must(premium),
		OpenFee:  positive.Must(fee),
		CloseFee: positive.Must(fee),
	}
}

func analyzer() *Analyzer { return NewAnalyzer(DefaultConfig(), zerolog.Nop()) }

func sumProbabilities(ranges []ProfitLossRange) float64 {
	total := 0.0
	for _, r := range ranges {
		total += r.Probability.Float64()
	}
	return total
}

func TestPartitionSumsToOne(t *testing.T) {
	straddle, err := strategies.NewLongStraddle(common(100, 30), quote(100, 2.5, 0), quote(100, 2.3, 0))
	require.NoError(t, err)
	spread, err := strategies.NewBullCallSpread(common(100, 30), quote(90, 5.71, 1), quote(110, 5.71, 1))
	require.NoError(t, err)
	condor, err := strategies.NewIronCondor(common(150, 60), quote(140, 1.0, 0.1), quote(145, 1.8, 0.1),
		quote(155, 2.0, 0.1), quote(160, 1.5, 0.1))
	require.NoError(t, err)
	covered, err := strategies.NewCoveredCall(common(150, 30), strategies.SpotQuote{CostBasis: positive.Must(150)},
		quote(155, 3.5, 0))
	require.NoError(t, err)

	for name, s := range map[string]strategies.Strategy{
		"straddle": straddle, "spread": spread, "condor": condor, "covered": covered,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := analyzer().Analyze(s, nil, nil)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, sumProbabilities(res.Ranges), 1e-3)
			assert.LessOrEqual(t, res.ProbabilityOfProfit.Float64(), 1.0)
			for i := 1; i < len(res.Ranges); i++ {
				assert.NotEqual(t, res.Ranges[i-1].IsProfit, res.Ranges[i].IsProfit, "adjacent zones must alternate")
			}
		})
	}
}

func TestLongStraddleZones(t *testing.T) {
	s, err := strategies.NewLongStraddle(common(100, 30), quote(100, 2.5, 0), quote(100, 2.3, 0))
	require.NoError(t, err)

	res, err := analyzer().Analyze(s, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Ranges, 3)
	assert.True(t, res.Ranges[0].IsProfit)
	assert.False(t, res.Ranges[1].IsProfit)
	assert.True(t, res.Ranges[2].IsProfit)
	assert.Nil(t, res.Ranges[0].Lower)
	assert.Nil(t, res.Ranges[2].Upper)
	assert.InDelta(t, 95.2, res.Ranges[1].Lower.Float64(), 1e-9)
	assert.InDelta(t, 104.8, res.Ranges[1].Upper.Float64(), 1e-9)
	assert.True(t, res.Ranges[1].Contains(positive.Must(100)))
	assert.False(t, res.Ranges[1].Contains(positive.Must(110)))

	assert.Len(t, res.ProfitRanges(), 2)
	assert.Len(t, res.LossRanges(), 1)
	assert.True(t, res.ProbabilityOfMaxProfit.IsZero())
	// the maximum loss is only reached at the strike itself
	assert.Less(t, res.ProbabilityOfMaxLoss.Float64(), 0.01)

	wider, err := analyzer().Analyze(s, &VolatilityAdjustment{BaseVolatility: positive.Must(0.4)}, nil)
	require.NoError(t, err)
	assert.Greater(t, wider.ProbabilityOfProfit.Float64(), res.ProbabilityOfProfit.Float64())
	assert.Greater(t, wider.ExpectedValue.InexactFloat64(), res.ExpectedValue.InexactFloat64())
}

func TestExpectedValueMatchesBlackScholes(t *testing.T) {
	s, err := strategies.NewLongCall(common(100, 90), quote(105, 1.5, 0.1))
	require.NoError(t, err)

	opt := s.Positions()[0].Option
	price, err := pricing.Price(&opt)
	require.NoError(t, err)

	res, err := analyzer().Analyze(s, nil, nil)
	require.NoError(t, err)
	// zero rate: the discounted expectation is the model price
	want := price.InexactFloat64() - 1.5 - 0.2
	assert.InDelta(t, want, res.ExpectedValue.InexactFloat64(), 1e-3)

	m, err := analyzer().Model(s, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, m.Below(105), res.ProbabilityOfMaxLoss.Float64(), 1e-3)
	assert.True(t, res.ProbabilityOfMaxProfit.IsZero())
}

func TestBullCallSpreadExtremes(t *testing.T) {
	s, err := strategies.NewBullCallSpread(common(100, 30), quote(90, 5.71, 1), quote(110, 5.71, 1))
	require.NoError(t, err)

	res, err := analyzer().Analyze(s, nil, nil)
	require.NoError(t, err)
	m, err := analyzer().Model(s, nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1-m.Below(110), res.ProbabilityOfMaxProfit.Float64(), 1e-3)
	assert.InDelta(t, m.Below(90), res.ProbabilityOfMaxLoss.Float64(), 1e-3)
	assert.InDelta(t, 1-m.Below(94), res.ProbabilityOfProfit.Float64(), 1e-6)
	assert.InDelta(t, 400.0, res.RiskRewardRatio.Float64(), 1e-6)
}

func TestIronCondorWithFeesAboveCreditNeverProfits(t *testing.T) {
	s, err := strategies.NewIronCondor(common(150, 60), quote(140, 1.8, 5), quote(145, 1.0, 5),
		quote(155, 1.5, 5), quote(160, 2.0, 5))
	require.NoError(t, err)

	assert.Empty(t, s.BreakEvenPoints())

	a := analyzer()
	_, err = a.Analyze(s, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProbability))
	assert.True(t, errors.Is(err, errors.ErrBreakEvenUnavailable))

	// without break-evens the whole price axis is one loss zone
	m, err := a.Model(s, nil, nil)
	require.NoError(t, err)
	ranges, err := a.Ranges(s, m)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.False(t, ranges[0].IsProfit)
	assert.Nil(t, ranges[0].Lower)
	assert.Nil(t, ranges[0].Upper)
	assert.InDelta(t, 1.0, ranges[0].Probability.Float64(), 1e-9)
	assert.True(t, ranges[0].ExpectedPnL.IsNegative())
}

func TestModel(t *testing.T) {
	vol := VolatilityAdjustment{BaseVolatility: positive.Must(0.2)}
	m, err := NewModel(positive.Must(100), 1, 0, 0, vol, nil)
	require.NoError(t, err)

	// the median lies below the spot under zero drift
	assert.InDelta(t, 0.5398, m.Below(100), 1e-4)
	assert.Zero(t, m.Below(0))
	assert.InDelta(t, 100, m.PriceAt(m.D(100)), 1e-9)
	assert.InDelta(t, 0.5, m.Below(m.Quantile(0.5)), 1e-9)

	lo, hi := positive.Must(90), positive.Must(110)
	assert.InDelta(t, m.Below(110)-m.Below(90), m.Between(&lo, &hi), 1e-12)
	assert.InDelta(t, 1.0, m.Between(nil, nil), 1e-12)

	mean, err := m.Expectation(func(x float64) float64 { return x }, nil, nil, nil, 64)
	require.NoError(t, err)
	assert.InDelta(t, 100, mean, 1e-3)

	_, err = m.Expectation(func(x float64) float64 { return x }, nil, nil, nil, 63)
	assert.True(t, errors.Is(err, errors.ErrProbability))

	up, err := NewModel(positive.Must(100), 1, 0, 0, vol, &PriceTrend{DriftRate: 0.1, Confidence: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, up.Drift, 1e-12)
	assert.Less(t, up.Below(100), m.Below(100))
}

func TestModelRejectsBadInputs(t *testing.T) {
	vol := VolatilityAdjustment{BaseVolatility: positive.Must(0.2)}
	cases := map[string]func() error{
		"zero spot": func() error { _, err := NewModel(positive.Zero, 1, 0, 0, vol, nil); return err },
		"expired":   func() error { _, err := NewModel(positive.Must(100), 0, 0, 0, vol, nil); return err },
		"no vol": func() error {
			_, err := NewModel(positive.Must(100), 1, 0, 0, VolatilityAdjustment{}, nil)
			return err
		},
		"confidence": func() error {
			_, err := NewModel(positive.Must(100), 1, 0, 0, vol, &PriceTrend{DriftRate: 0.1, Confidence: 1.5})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			err := fn()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrProbability))
		})
	}
}

func TestBoundsProbability(t *testing.T) {
	m, err := NewModel(positive.Must(100), 1, 0, 0, VolatilityAdjustment{BaseVolatility: positive.Must(0.5)}, nil)
	require.NoError(t, err)

	probs, err := m.BoundsProbability([]positive.Positive{positive.Must(90), positive.Must(100), positive.Must(110)})
	require.NoError(t, err)
	require.Len(t, probs, 4)
	total := 0.0
	for _, p := range probs {
		total += p.Float64()
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	_, err = m.BoundsProbability(nil)
	assert.Error(t, err)
	_, err = m.BoundsProbability([]positive.Positive{positive.Must(100), positive.Must(95)})
	assert.Error(t, err)
}

func TestLegVolatility(t *testing.T) {
	c := common(100, 30)
	s, err := strategies.NewLongStrangle(c, quote(95, 1, 0), quote(105, 1, 0))
	require.NoError(t, err)
	require.NoError(t, s.SetImpliedVolatility(positive.Must(0.3)))

	adj, err := LegVolatility(s.Legs(), 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, adj.BaseVolatility.Float64(), 1e-12)
	assert.True(t, adj.StdDevAdjustment.IsZero())
	assert.InDelta(t, 0.3, adj.Volatility(), 1e-12)

	adj, err = LegVolatility(nil, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25, adj.BaseVolatility.Float64())

	_, err = LegVolatility(nil, 0)
	assert.Error(t, err)

	v := VolatilityAdjustment{BaseVolatility: positive.Must(0.2), StdDevAdjustment: positive.Must(0.1)}
	assert.InDelta(t, 0.22, v.Volatility(), 1e-12)
}

func TestAnalyzeFailures(t *testing.T) {
	call, err := strategies.NewLongCall(common(100, 30), quote(100, 2, 0))
	require.NoError(t, err)
	_, err = analyzer().Analyze(call, nil, &PriceTrend{Confidence: -1})
	assert.True(t, errors.Is(err, errors.ErrProbability))
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	spot := models.NewSpotPosition("TEST", positive.Must(100), positive.Must(100), options.Long, positive.Zero, positive.Zero)
	shares, err := strategies.NewCustom("shares", "TEST", positive.Must(100), spot)
	require.NoError(t, err)
	_, err = analyzer().Analyze(shares, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrProbability))

	a := NewAnalyzer(Config{SimpsonIntervals: 7, DefaultVolatility: 0.2}, zerolog.Nop())
	_, err = a.Analyze(call, nil, nil)
	assert.True(t, errors.Is(err, errors.ErrProbability))
}
