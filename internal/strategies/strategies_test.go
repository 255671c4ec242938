package strategies

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

func common(underlying, qty float64) Common {
	return Common{
		Symbol:            "TEST",
		UnderlyingPrice:   positive.Must(underlying),
		Expiration:        options.Days(30),
		ImpliedVolatility: positive.Must(0.2),
		RiskFreeRate:      decimal.Zero,
		DividendYield:     positive.Zero,
		Quantity:          positive.Must(qty),
	}
}

func leg(strike, premium, fee float64) LegQuote {
	return LegQuote{
		Strike:   positive.Must(strike),
		Premium:  positive.Must(premium),
		OpenFee:  positive.Must(fee),
		CloseFee: positive.Must(fee),
	}
}

func floatsOf(ps []positive.Positive) []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Float64()
	}
	return out
}

func assertExtremes(t *testing.T, s Strategy, profit, loss float64) {
	t.Helper()
	mp, err := s.MaxProfit()
	require.NoError(t, err)
	ml, err := s.MaxLoss()
	require.NoError(t, err)
	assert.InDelta(t, profit, mp.Float64(), 1e-6, "max profit")
	assert.InDelta(t, loss, ml.Float64(), 1e-6, "max loss")
}

func TestBullCallSpreadWithFees(t *testing.T) {
	s, err := NewBullCallSpread(common(100, 1), leg(90, 5.71, 1), leg(110, 5.71, 1))
	require.NoError(t, err)

	assertExtremes(t, s, 16, 4)
	require.Len(t, s.BreakEvenPoints(), 1)
	// Four fees of 1 push the break-even from 90 to 94.
	assert.InDelta(t, 94, s.BreakEvenPoints()[0].Float64(), 1e-6)
	assert.InDelta(t, 0, ProfitAt(s, s.BreakEvenPoints()[0]).InexactFloat64(), 1e-9)

	ratio, err := ProfitRatio(s)
	require.NoError(t, err)
	assert.InDelta(t, 400, ratio.Float64(), 1e-9)
	assert.Equal(t, KindBullCallSpread, s.Kind())
	assert.Equal(t, []float64{90, 110}, floatsOf(s.Strikes()))
}

func TestIronCondorFeesExceedCredit(t *testing.T) {
	c := common(150, 1)
	c.Expiration = options.Days(60)
	c.RiskFreeRate = decimal.NewFromFloat(0.01)
	c.DividendYield = positive.Must(0.02)
	s, err := NewIronCondor(c, leg(140, 1.8, 5), leg(145, 1.0, 5), leg(155, 1.5, 5), leg(160, 2.0, 5))
	require.NoError(t, err)

	assertExtremes(t, s, 0, 46.3)
	assert.True(t, NetPremiumReceived(s).IsZero())

	// the fees eat the whole credit: the position loses at every price
	assert.Empty(t, s.BreakEvenPoints())
	for _, price := range []float64{100, 113.7, 145, 150, 155, 186.3, 250} {
		assert.True(t, ProfitAt(s, positive.Must(price)).IsNegative(), "profit at %v", price)
	}
}

func TestBreakEvensHoldWhenFeesExceedPremium(t *testing.T) {
	layouts := map[int][]float64{
		1: {100},
		2: {95, 105},
		3: {90, 100, 110},
		4: {85, 95, 105, 115},
	}
	for _, kind := range Kinds() {
		if kind == KindCustom {
			continue
		}
		t.Run(string(kind), func(t *testing.T) {
			slots, spot, err := Shape(kind)
			require.NoError(t, err)
			strikes := append([]float64(nil), layouts[len(slots)]...)
			switch kind {
			case KindLongStraddle, KindShortStraddle:
				strikes = []float64{100, 100}
			case KindIronButterfly:
				strikes = []float64{90, 100, 100, 110}
			}

			p := Params{Common: common(100, 1)}
			for _, k := range strikes {
				p.Legs = append(p.Legs, leg(k, 1, 2))
			}
			if spot {
				p.Spot = &SpotQuote{CostBasis: positive.Must(100), OpenFee: positive.Must(2), CloseFee: positive.Must(2)}
			}
			s, err := New(kind, p)
			require.NoError(t, err)

			for _, be := range s.BreakEvenPoints() {
				assert.LessOrEqual(t, ProfitAt(s, be).Abs().InexactFloat64(), BreakEvenEpsilon, "at %s", be)
			}
		})
	}
}

func TestShortStraddleFeesExceedCredit(t *testing.T) {
	s, err := NewShortStraddle(common(100, 1), leg(100, 1, 1), leg(100, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, s.BreakEvenPoints())

	// premium above the fees restores the closed form
	s, err = NewShortStraddle(common(100, 1), leg(100, 5, 1), leg(100, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{94, 106}, floatsOf(s.BreakEvenPoints()))
}

func TestProtectivePut(t *testing.T) {
	c := common(150, 1)
	c.ImpliedVolatility = positive.Must(0.25)
	spot := SpotQuote{CostBasis: positive.Must(150), OpenFee: positive.Must(0.01), CloseFee: positive.Must(0.01)}
	s, err := NewProtectivePut(c, spot, leg(145, 3.5, 0.01))
	require.NoError(t, err)

	mp, err := s.MaxProfit()
	require.NoError(t, err)
	assert.True(t, mp.IsInfinite())

	ml, err := s.MaxLoss()
	require.NoError(t, err)
	fees := Fees(s).Float64()
	assert.InDelta(t, 500+350+fees, ml.Float64(), 1e-9)

	bes := s.BreakEvenPoints()
	require.Len(t, bes, 1)
	assert.Greater(t, bes[0].Float64(), 150.0)
	assert.InDelta(t, 0, ProfitAt(s, bes[0]).InexactFloat64(), 1e-6)
}

func TestCoveredCall(t *testing.T) {
	spot := SpotQuote{CostBasis: positive.Must(150)}
	s, err := NewCoveredCall(common(150, 1), spot, leg(155, 3.5, 0))
	require.NoError(t, err)

	assert.Equal(t, []float64{146.5}, floatsOf(s.BreakEvenPoints()))
	assertExtremes(t, s, 850, 14650)
	assert.Equal(t, []float64{100, 100}, floatsOf(s.Quantities()))
}

func TestSpotQuantityMustCoverOptions(t *testing.T) {
	spot := SpotQuote{Quantity: positive.Must(150), CostBasis: positive.Must(150)}
	_, err := NewCoveredCall(common(150, 1), spot, leg(155, 3.5, 0))
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))

	spot.Quantity = positive.Must(200)
	_, err = NewCoveredCall(common(150, 1), spot, leg(155, 3.5, 0))
	assert.NoError(t, err)
}

func TestConstructionBoundaries(t *testing.T) {
	c := common(100, 1)
	spot := SpotQuote{CostBasis: positive.Must(100)}
	tests := []struct {
		name  string
		build func() error
	}{
		{"bull call spread with equal strikes", func() error {
			_, err := NewBullCallSpread(c, leg(100, 5, 0), leg(100, 3, 0))
			return err
		}},
		{"bear put spread with inverted strikes", func() error {
			_, err := NewBearPutSpread(c, leg(110, 5, 0), leg(100, 3, 0))
			return err
		}},
		{"collar with put above call", func() error {
			_, err := NewCollar(c, spot, leg(105, 2, 0), leg(95, 2, 0))
			return err
		}},
		{"strangle with call below put", func() error {
			_, err := NewLongStrangle(c, leg(105, 2, 0), leg(95, 2, 0))
			return err
		}},
		{"straddle with split strikes", func() error {
			_, err := NewShortStraddle(c, leg(100, 2, 0), leg(101, 2, 0))
			return err
		}},
		{"butterfly with uneven wings", func() error {
			_, err := NewLongButterflySpread(c, leg(90, 12, 0), leg(100, 5, 0), leg(120, 1, 0))
			return err
		}},
		{"iron butterfly with split body", func() error {
			_, err := NewIronButterfly(c, leg(90, 1, 0), leg(100, 3, 0), leg(101, 3, 0), leg(110, 1, 0))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.build(), errors.ErrStrategyInvalid))
		})
	}
}

func TestBuildRejectsWrongLegCountAndZeroQuantity(t *testing.T) {
	_, err := New(KindBullCallSpread, Params{Common: common(100, 1), Legs: []LegQuote{leg(90, 5, 0)}})
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))

	_, err = NewLongCall(common(100, 0), leg(100, 5, 0))
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	_, err = New(KindCoveredCall, Params{Common: common(100, 1), Legs: []LegQuote{leg(105, 2, 0)}})
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid), "spot leg required")
}

func TestButterflies(t *testing.T) {
	long, err := NewLongButterflySpread(common(100, 1), leg(90, 12, 0), leg(100, 5, 0), leg(110, 1, 0))
	require.NoError(t, err)
	assertExtremes(t, long, 7, 3)
	assert.Equal(t, []float64{93, 107}, floatsOf(long.BreakEvenPoints()))
	assert.Equal(t, []float64{1, 2, 1}, floatsOf(long.Quantities()))

	mid := leg(100, 5, 0)
	mid.Quantity = positive.Two
	cb, err := NewCallButterfly(common(100, 1), leg(90, 12, 0), mid, leg(110, 1, 0))
	require.NoError(t, err)
	assertExtremes(t, cb, 7, 3)
	assert.Equal(t, []float64{93, 107}, floatsOf(cb.BreakEvenPoints()))

	mid.Quantity = positive.Must(3)
	skewed, err := NewCallButterfly(common(100, 1), leg(90, 12, 0), mid, leg(110, 1, 0))
	require.NoError(t, err)
	mp, err := skewed.MaxProfit()
	require.NoError(t, err)
	ml, err := skewed.MaxLoss()
	require.NoError(t, err)
	assert.InDelta(t, 12, mp.Float64(), 1e-9)
	assert.True(t, ml.IsInfinite(), "an extra short call leaves the upside uncovered")
}

func TestStraddlesAndStrangles(t *testing.T) {
	ls, err := NewLongStraddle(common(100, 1), leg(100, 5, 0), leg(100, 4, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{91, 109}, floatsOf(ls.BreakEvenPoints()))
	mp, _ := ls.MaxProfit()
	assert.True(t, mp.IsInfinite())
	rng, err := RangeOfProfit(ls)
	require.NoError(t, err)
	assert.True(t, rng.IsInfinite())

	ss, err := NewShortStrangle(common(100, 1), leg(95, 2, 0), leg(105, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{90, 110}, floatsOf(ss.BreakEvenPoints()))
	ml, _ := ss.MaxLoss()
	assert.True(t, ml.IsInfinite())
	rng, err = RangeOfProfit(ss)
	require.NoError(t, err)
	assert.InDelta(t, 20, rng.Float64(), 1e-9)
	ratio, err := ProfitRatio(ss)
	require.NoError(t, err)
	assert.True(t, ratio.IsZero())
}

func TestSingles(t *testing.T) {
	lc, err := NewLongCall(common(100, 1), leg(100, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{105}, floatsOf(lc.BreakEvenPoints()))
	mp, _ := lc.MaxProfit()
	assert.True(t, mp.IsInfinite())

	sp, err := NewShortPut(common(100, 1), leg(100, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{97}, floatsOf(sp.BreakEvenPoints()))
	assertExtremes(t, sp, 3, 97)
}

func TestPoorMansCoveredCall(t *testing.T) {
	far := options.Days(365)
	long := leg(80, 24, 0)
	long.Expiration = &far
	s, err := NewPoorMansCoveredCall(common(100, 1), long, leg(110, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{102}, floatsOf(s.BreakEvenPoints()))
	assertExtremes(t, s, 8, 22)

	near := options.Days(7)
	long.Expiration = &near
	_, err = NewPoorMansCoveredCall(common(100, 1), long, leg(110, 2, 0))
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
}

func TestBreakEvensAreZeroCrossings(t *testing.T) {
	c := common(100, 2)
	spot := SpotQuote{CostBasis: positive.Must(98), OpenFee: positive.Must(1), CloseFee: positive.Must(1)}
	build := []func() (Strategy, error){
		func() (Strategy, error) { return NewBullPutSpread(c, leg(90, 1, 0.05), leg(100, 4, 0.05)) },
		func() (Strategy, error) { return NewBearCallSpread(c, leg(100, 5, 0.05), leg(110, 1, 0.05)) },
		func() (Strategy, error) {
			return NewShortButterflySpread(c, leg(90, 12, 0.05), leg(100, 5, 0.05), leg(110, 1, 0.05))
		},
		func() (Strategy, error) {
			return NewIronCondor(c, leg(85, 0.5, 0.05), leg(90, 1.5, 0.05), leg(110, 1.5, 0.05), leg(115, 0.5, 0.05))
		},
		func() (Strategy, error) {
			return NewIronButterfly(c, leg(90, 0.5, 0.05), leg(100, 4, 0.05), leg(100, 4, 0.05), leg(110, 0.5, 0.05))
		},
		func() (Strategy, error) { return NewCollar(c, spot, leg(95, 1, 0.05), leg(105, 1.2, 0.05)) },
		func() (Strategy, error) { return NewShortCall(c, leg(105, 2, 0.05)) },
		func() (Strategy, error) { return NewLongPut(c, leg(95, 2, 0.05)) },
	}
	for _, b := range build {
		s, err := b()
		require.NoError(t, err)
		require.NotEmpty(t, s.BreakEvenPoints(), s.Kind())
		for _, be := range s.BreakEvenPoints() {
			assert.InDelta(t, 0, ProfitAt(s, be).InexactFloat64(), 1e-2, "%s at %s", s.Kind(), be)
		}
	}
}

func TestUpdateBreakEvenPointsIsIdempotent(t *testing.T) {
	s, err := NewIronCondor(common(100, 1), leg(85, 0.5, 0), leg(90, 1.5, 0), leg(110, 1.5, 0), leg(115, 0.5, 0))
	require.NoError(t, err)
	first := s.BreakEvenPoints()
	require.NoError(t, s.UpdateBreakEvenPoints())
	require.NoError(t, s.UpdateBreakEvenPoints())
	assert.Equal(t, first, s.BreakEvenPoints())
}

func TestAddPositionReplacesMatchingSlot(t *testing.T) {
	s, err := NewBullCallSpread(common(100, 1), leg(90, 12, 0), leg(110, 2, 0))
	require.NoError(t, err)

	opt := options.NewEuropean(options.Long, options.Call, "TEST", positive.Must(100), positive.Must(95),
		options.Days(30), positive.Must(0.2), positive.One, decimal.Zero, positive.Zero)
	p := models.NewPosition(*opt, positive.Must(8), positive.Zero, positive.Zero)
	require.NoError(t, s.AddPosition(p))
	assert.Equal(t, []float64{95, 110}, floatsOf(s.Strikes()))
	assert.Same(t, p, s.Positions()[0])
	assert.Equal(t, []float64{101}, floatsOf(s.BreakEvenPoints()))

	found, err := s.GetPosition(options.Call, options.Long, positive.Must(95))
	require.NoError(t, err)
	assert.Same(t, p, found[0])

	_, err = s.GetPosition(options.Put, options.Long, positive.Must(95))
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))
}

func TestAddPositionRollsBackInvalidState(t *testing.T) {
	s, err := NewBullCallSpread(common(100, 1), leg(90, 12, 0), leg(110, 2, 0))
	require.NoError(t, err)

	opt := options.NewEuropean(options.Long, options.Call, "TEST", positive.Must(100), positive.Must(120),
		options.Days(30), positive.Must(0.2), positive.One, decimal.Zero, positive.Zero)
	err = s.AddPosition(models.NewPosition(*opt, positive.Must(1), positive.Zero, positive.Zero))
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
	assert.Equal(t, []float64{90, 110}, floatsOf(s.Strikes()))
	assert.Equal(t, []float64{100}, floatsOf(s.BreakEvenPoints()))

	put := options.NewEuropean(options.Long, options.Put, "TEST", positive.Must(100), positive.Must(90),
		options.Days(30), positive.Must(0.2), positive.One, decimal.Zero, positive.Zero)
	err = s.AddPosition(models.NewPosition(*put, positive.Must(1), positive.Zero, positive.Zero))
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestModifyAndReplacePosition(t *testing.T) {
	s, err := NewBullCallSpread(common(100, 1), leg(90, 12, 0), leg(110, 2, 0))
	require.NoError(t, err)

	resized := s.Positions()[1].Clone()
	resized.Option.Quantity = positive.Two
	err = s.ModifyPosition(resized)
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
	assert.Equal(t, []float64{1, 1}, floatsOf(s.Quantities()))

	require.NoError(t, s.ResizePosition(resized))
	assert.Equal(t, []float64{1, 2}, floatsOf(s.Quantities()))

	swapped := s.Positions()[0].Clone()
	swapped.Premium = positive.Must(11)
	require.NoError(t, s.ReplacePosition(swapped))
	assert.InDelta(t, 11, s.Positions()[0].Premium.Float64(), 1e-12)

	missing := swapped.Clone()
	missing.Option.StrikePrice = positive.Must(70)
	assert.True(t, errors.Is(s.ModifyPosition(missing), errors.ErrPositionNotFound))
}

func TestLegEditsKeepSlotRatios(t *testing.T) {
	s, err := NewLongButterflySpread(common(100, 1), leg(90, 12, 0), leg(100, 5, 0), leg(110, 1, 0))
	require.NoError(t, err)
	before := s.BreakEvenPoints()

	// a 1:1:1 butterfly is no longer a butterfly
	body := s.Positions()[1].Clone()
	body.Option.Quantity = positive.One
	err = s.ModifyPosition(body)
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
	assert.Equal(t, []float64{1, 2, 1}, floatsOf(s.Quantities()))
	assert.Equal(t, before, s.BreakEvenPoints())

	err = s.ReplacePosition(body)
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
	assert.Equal(t, []float64{1, 2, 1}, floatsOf(s.Quantities()))

	wing := s.Positions()[0].Clone()
	wing.Option.Quantity = positive.Two
	err = s.AddPosition(wing)
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
	assert.Equal(t, []float64{1, 2, 1}, floatsOf(s.Quantities()))

	// scaling every leg keeps the shape
	for i, q := range []float64{2, 4, 2} {
		p := s.Positions()[i].Clone()
		p.Option.Quantity = positive.Must(q)
		require.NoError(t, s.ResizePosition(p))
	}
	assert.Equal(t, []float64{2, 4, 2}, floatsOf(s.Quantities()))

	body = s.Positions()[1].Clone()
	body.Premium = positive.Must(4.5)
	require.NoError(t, s.ModifyPosition(body))
}

func TestAdjustUnderlying(t *testing.T) {
	spread, err := NewBullCallSpread(common(100, 1), leg(90, 12, 0), leg(110, 2, 0))
	require.NoError(t, err)
	err = spread.AdjustUnderlying(decimal.NewFromInt(10), positive.Must(100))
	assert.True(t, errors.Is(err, errors.ErrUnsupported))

	cc, err := NewCoveredCall(common(150, 1), SpotQuote{CostBasis: positive.Must(150)}, leg(155, 3.5, 0))
	require.NoError(t, err)
	require.NoError(t, cc.AdjustUnderlying(decimal.NewFromInt(100), positive.Must(160)))
	spot := cc.Legs()[0].(*models.SpotPosition)
	assert.InDelta(t, 200, spot.Quantity.Float64(), 1e-12)
	assert.InDelta(t, 155, spot.CostBasis.Float64(), 1e-12)

	err = cc.AdjustUnderlying(decimal.NewFromInt(-300), positive.Must(160))
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid), "a short spot leg is not a covered call")
	assert.InDelta(t, 200, cc.Legs()[0].Size().Float64(), 1e-12)
}

func TestCustomMatchesAnalyticBreakEvens(t *testing.T) {
	straddle, err := NewLongStraddle(common(100, 1), leg(100, 5, 0), leg(100, 4, 0))
	require.NoError(t, err)

	s, err := NewCustom("diy straddle", "TEST", positive.Must(100), straddle.Legs()...)
	require.NoError(t, err)
	bes := floatsOf(s.BreakEvenPoints())
	require.Len(t, bes, 2)
	assert.InDelta(t, 91, bes[0], 0.02)
	assert.InDelta(t, 109, bes[1], 0.02)

	mp, err := s.MaxProfit()
	require.NoError(t, err)
	assert.True(t, mp.IsInfinite())
	ml, err := s.MaxLoss()
	require.NoError(t, err)
	assert.InDelta(t, 9, ml.Float64(), 1e-6)
}

func TestCustomSyntheticPut(t *testing.T) {
	spot := models.NewSpotPosition("TEST", positive.Must(1), positive.Must(100), options.Short, positive.Zero, positive.Zero)
	opt := options.NewEuropean(options.Long, options.Call, "TEST", positive.Must(100), positive.Must(100),
		options.Days(30), positive.Must(0.2), positive.One, decimal.Zero, positive.Zero)
	call := models.NewPosition(*opt, positive.Must(4), positive.Zero, positive.Zero)

	// A short share plus a long call is a synthetic long put.
	s, err := New(KindCustom, Params{Common: Common{Name: "synthetic put", Symbol: "TEST", UnderlyingPrice: positive.Must(100)},
		Positions: []models.Leg{spot, call}})
	require.NoError(t, err)
	assert.Equal(t, "synthetic put", s.Name())
	bes := floatsOf(s.BreakEvenPoints())
	require.Len(t, bes, 1)
	assert.InDelta(t, 96, bes[0], 0.02)
	assertExtremes(t, s, 96, 4)

	_, err = NewCustom("", "TEST", positive.Must(100))
	assert.True(t, errors.Is(err, errors.ErrStrategyInvalid))
}

func TestBestRangeToShow(t *testing.T) {
	s, err := NewIronCondor(common(100, 1), leg(85, 0.5, 0), leg(90, 1.5, 0), leg(110, 1.5, 0), leg(115, 0.5, 0))
	require.NoError(t, err)
	lo, hi := RangeToShow(s)
	assert.InDelta(t, 85*StrikePriceLowerBoundMultiplier, lo.Float64(), 1e-9)
	assert.InDelta(t, 115*StrikePriceUpperBoundMultiplier, hi.Float64(), 1e-9)

	prices, err := BestRangeToShow(s, positive.One)
	require.NoError(t, err)
	require.NotEmpty(t, prices)
	assert.True(t, prices[0].Equal(lo))
	assert.GreaterOrEqual(t, prices[len(prices)-1].Float64(), hi.Float64())
	for i := 1; i < len(prices); i++ {
		assert.InDelta(t, 1, prices[i].Float64()-prices[i-1].Float64(), 1e-9)
	}

	_, err = BestRangeToShow(s, positive.Zero)
	assert.True(t, errors.Is(err, errors.ErrInputValidation))

	area, err := ProfitArea(s)
	require.NoError(t, err)
	assert.True(t, area.IsPositive())
}

func TestAggregates(t *testing.T) {
	s, err := NewIronCondor(common(100, 2), leg(85, 0.5, 0.1), leg(90, 1.5, 0.1), leg(110, 1.5, 0.1), leg(115, 0.5, 0.1))
	require.NoError(t, err)
	assert.InDelta(t, 8*0.2, Fees(s).Float64(), 1e-9)
	assert.InDelta(t, 8, Volume(s).Float64(), 1e-9)
	assert.InDelta(t, 2*(0.5+0.2)*2+2*0.2*2, TotalCost(s).Float64(), 1e-9)
	assert.InDelta(t, -(4 - 1.6), NetCost(s).InexactFloat64(), 1e-9)
	assert.InDelta(t, 2.4, NetPremiumReceived(s).Float64(), 1e-9)
	lo, hi := MaxMinStrikes(s)
	assert.Equal(t, 85.0, lo.Float64())
	assert.Equal(t, 115.0, hi.Float64())
}

func TestJSONRoundTrip(t *testing.T) {
	s, err := NewCoveredCall(common(150, 1), SpotQuote{CostBasis: positive.Must(150)}, leg(155, 3.5, 0))
	require.NoError(t, err)

	data, err := Marshal(s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"CoveredCall":`))

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s.Kind(), back.Kind())
	assert.Equal(t, floatsOf(s.BreakEvenPoints()), floatsOf(back.BreakEvenPoints()))
	assert.Len(t, back.Legs(), 2)

	_, err = Unmarshal([]byte(`{"Condor":{}}`))
	assert.True(t, errors.Is(err, errors.ErrInputValidation))
}

func TestKindsAndShape(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 22)
	assert.Equal(t, KindCustom, kinds[len(kinds)-1])

	slots, spot, err := Shape(KindIronCondor)
	require.NoError(t, err)
	assert.False(t, spot)
	require.Len(t, slots, 4)
	assert.Equal(t, options.Put, slots[0].Style)
	assert.Equal(t, options.Call, slots[3].Style)

	_, spot, err = Shape(KindCollar)
	require.NoError(t, err)
	assert.True(t, spot)

	_, _, err = Shape(KindCustom)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))

	_, err = ParseKind("Condor")
	assert.Error(t, err)
}

func TestSummaryAndPnLTable(t *testing.T) {
	s, err := NewBullCallSpread(common(100, 1), leg(90, 5.71, 1), leg(110, 5.71, 1))
	require.NoError(t, err)

	out := Summary(s)
	assert.Contains(t, out, "BullCallSpread Strategy: TEST")
	assert.Contains(t, out, "94")
	assert.Contains(t, out, "16")

	table := PnLTable(s, []positive.Positive{positive.Must(80), positive.Must(94), positive.Must(120)})
	assert.Contains(t, table, "-4.00")
	assert.Contains(t, table, "16.00")
}
