package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
)

func optionPosition(side options.Side, style options.OptionStyle, strike, premium, fee, qty float64) *Position {
	opt := options.NewEuropean(side, style, "TEST", positive.Must(100), positive.Must(strike),
		options.Days(30), positive.Must(0.2), positive.Must(qty), decimal.Zero, positive.Zero)
	return NewPosition(*opt, positive.Must(premium), positive.Must(fee), positive.Must(fee))
}

func assertDecimal(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want, got.InexactFloat64(), 1e-9, msgAndArgs...)
}

func TestPositionCosts(t *testing.T) {
	long := optionPosition(options.Long, options.Call, 100, 5, 0.5, 2)
	assertDecimal(t, 12, long.TotalCost().Decimal())
	assertDecimal(t, 2, long.Fees().Decimal())
	assert.True(t, long.PremiumReceived().IsZero())
	assertDecimal(t, 12, long.NetCost())

	short := optionPosition(options.Short, options.Put, 100, 3, 0.1, 2)
	assertDecimal(t, 0.4, short.TotalCost().Decimal())
	assertDecimal(t, 6, short.PremiumReceived().Decimal())
	assertDecimal(t, -5.6, short.NetCost())

	net, err := short.NetPremiumReceived()
	require.NoError(t, err)
	assertDecimal(t, 5.6, net.Decimal())
}

func TestNetPremiumReceivedFailsWhenFeesExceedPremium(t *testing.T) {
	p := optionPosition(options.Short, options.Call, 100, 0.5, 1, 1)
	_, err := p.NetPremiumReceived()
	assert.True(t, errors.Is(err, errors.ErrPositionInvalid))
}

func TestPnLAtExpiration(t *testing.T) {
	tests := []struct {
		name  string
		pos   *Position
		price float64
		want  float64
	}{
		{"long call in the money", optionPosition(options.Long, options.Call, 100, 5, 0.5, 1), 110, 4},
		{"long call out of the money", optionPosition(options.Long, options.Call, 100, 5, 0.5, 1), 90, -6},
		{"short put assigned", optionPosition(options.Short, options.Put, 100, 3, 0.1, 2), 90, -14.4},
		{"short put expires", optionPosition(options.Short, options.Put, 100, 3, 0.1, 2), 120, 5.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, tt.pos.PnLAtExpiration(positive.Must(tt.price)))
		})
	}
}

func TestBreakEven(t *testing.T) {
	long := optionPosition(options.Long, options.Call, 100, 5, 0.5, 1)
	be, ok := long.BreakEven()
	require.True(t, ok)
	assertDecimal(t, 106, be.Decimal())
	assert.True(t, long.PnLAtExpiration(be).IsZero())

	short := optionPosition(options.Short, options.Put, 100, 3, 0.1, 1)
	be, ok = short.BreakEven()
	require.True(t, ok)
	assertDecimal(t, 97.2, be.Decimal())
	assert.True(t, short.PnLAtExpiration(be).IsZero())
}

func TestMaxProfitAndLoss(t *testing.T) {
	long := optionPosition(options.Long, options.Call, 100, 5, 0, 1)
	mp, err := long.MaxProfit()
	require.NoError(t, err)
	assert.True(t, mp.IsInfinite())
	assertDecimal(t, 5, long.MaxLoss().Decimal())

	short := optionPosition(options.Short, options.Call, 100, 5, 0, 1)
	mp, err = short.MaxProfit()
	require.NoError(t, err)
	assertDecimal(t, 5, mp.Decimal())
	assert.True(t, short.MaxLoss().IsInfinite())
}

func TestPositionLifecycle(t *testing.T) {
	p := optionPosition(options.Long, options.Put, 95, 2, 0.25, 3)
	cost := p.TotalCost()
	net := p.NetCost()

	open := p.Open()
	assert.Equal(t, ActionOpen, open.Action)
	assert.Equal(t, StatusOpen, p.Status)

	closing, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, ActionClose, closing.Action)
	assert.Equal(t, TradeClosed, closing.Status)
	assert.Equal(t, StatusClosed, p.Status)
	assert.True(t, cost.Equal(p.TotalCost()))
	assert.True(t, net.Equal(p.NetCost()))

	_, err = p.Close()
	assert.True(t, errors.Is(err, errors.ErrPositionInvalid))
}

func TestPositionValidate(t *testing.T) {
	assert.NoError(t, optionPosition(options.Long, options.Call, 100, 5, 0.5, 1).Validate())

	free := optionPosition(options.Short, options.Call, 100, 0, 0, 1)
	assert.Error(t, free.Validate())

	cheap := optionPosition(options.Short, options.Call, 100, 0.5, 1, 1)
	assert.NoError(t, cheap.Validate(), "premium below fees is allowed")
}

func TestPositionGreeksApplySideAndQuantity(t *testing.T) {
	p := optionPosition(options.Short, options.Call, 100, 5, 0, 2)
	unit, err := pricing.AllGreeks(&p.Option)
	require.NoError(t, err)

	g, err := p.Greeks()
	require.NoError(t, err)
	assert.True(t, g.Delta.Equal(unit.Delta.Mul(decimal.NewFromInt(-2))))
	assert.True(t, g.Gamma.Equal(unit.Gamma.Mul(decimal.NewFromInt(-2))))

	cd, err := p.ContractDelta()
	require.NoError(t, err)
	assert.True(t, cd.Equal(unit.Delta.Neg()))
}

func TestSpotPosition(t *testing.T) {
	long := NewSpotPosition("AAPL", positive.Must(100), positive.Must(150), options.Long, positive.One, positive.One)
	assertDecimal(t, 498, long.PnLAtPrice(positive.Must(155)))
	assertDecimal(t, 15002, long.TotalCost().Decimal())
	assertDecimal(t, 150.02, long.BreakEvenPrice().Decimal())
	assertDecimal(t, 0.1, long.PercentageReturn(positive.Must(165)))

	short := NewSpotPosition("AAPL", positive.Must(100), positive.Must(150), options.Short, positive.One, positive.One)
	assertDecimal(t, -502, short.PnLAtPrice(positive.Must(155)))
	assertDecimal(t, 2, short.TotalCost().Decimal())

	g, err := short.Greeks()
	require.NoError(t, err)
	assertDecimal(t, -100, g.Delta)
	assert.True(t, g.Gamma.IsZero())
	assert.True(t, g.Vega.IsZero())
}

func TestFuturePosition(t *testing.T) {
	f := &FuturePosition{
		Symbol:        "ES",
		Quantity:      positive.Must(2),
		EntryPrice:    positive.Must(4500),
		Side:          options.Long,
		Expiration:    options.Days(30),
		ContractSize:  positive.Must(50),
		InitialMargin: positive.Must(15000),
		TotalFees:     positive.Must(5),
	}
	assertDecimal(t, 995, f.PnLAtPrice(positive.Must(4510)))
	assertDecimal(t, 30005, f.TotalCost().Decimal())
	assertDecimal(t, 10, f.Basis(positive.Must(4490)))

	g, err := f.Greeks()
	require.NoError(t, err)
	assertDecimal(t, 100, g.Delta)
	assert.True(t, g.Theta.IsZero())
	assert.InDelta(t, 450000*30.0/365/100, g.Rho.InexactFloat64(), 1e-6)
}

func TestPerpetualPosition(t *testing.T) {
	p := &PerpetualPosition{
		Symbol:      "BTC-PERP",
		Quantity:    positive.One,
		EntryPrice:  positive.Must(50000),
		Side:        options.Long,
		Leverage:    positive.Must(10),
		Margin:      positive.Must(5000),
		MarginType:  MarginIsolated,
		FundingRate: decimal.RequireFromString("0.0001"),
		TotalFees:   positive.Must(5),
	}
	assertDecimal(t, 5, p.FundingPayment(p.EntryPrice))
	assertDecimal(t, 5475, p.AnnualizedFunding(p.EntryPrice))
	assertDecimal(t, 995, p.PnLAtPrice(positive.Must(51000)))
	assertDecimal(t, 5005, p.TotalCost().Decimal())
	assertDecimal(t, 250, p.MaintenanceMargin().Decimal())

	g, err := p.Greeks()
	require.NoError(t, err)
	assertDecimal(t, 1, g.Delta)
	assertDecimal(t, -5, g.Theta)
}

func TestSumGreeksAggregatesDelta(t *testing.T) {
	call := optionPosition(options.Long, options.Call, 100, 5, 0, 1)
	spot := NewSpotPosition("TEST", positive.Must(10), positive.Must(100), options.Short, positive.Zero, positive.Zero)
	legs := []Leg{call, spot}

	total, err := SumGreeks(legs)
	require.NoError(t, err)

	cg, err := call.Greeks()
	require.NoError(t, err)
	want := cg.Delta.Sub(decimal.NewFromInt(10))
	assert.True(t, total.Delta.Round(6).Equal(want.Round(6)))

	again, err := SumGreeks(legs)
	require.NoError(t, err)
	assert.True(t, again.Delta.Equal(total.Delta))
}

func TestLegJSONIsTagged(t *testing.T) {
	spot := NewSpotPosition("TEST", positive.Must(100), positive.Must(150), options.Long, positive.One, positive.Zero)
	data, err := MarshalLeg(spot)
	require.NoError(t, err)

	var tagged map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &tagged))
	assert.Contains(t, tagged, "Spot")
	assert.Contains(t, string(tagged["Spot"]), `"quantity":100`)
}

func TestLegsJSONRoundTrip(t *testing.T) {
	legs := Legs{
		optionPosition(options.Short, options.Put, 95, 2.5, 0.1, 1),
		NewSpotPosition("TEST", positive.Must(100), positive.Must(150), options.Long, positive.One, positive.Zero),
		&FuturePosition{Symbol: "ES", Quantity: positive.One, EntryPrice: positive.Must(4500), Side: options.Short,
			Expiration: options.Days(30), ContractSize: positive.Must(50), InitialMargin: positive.Must(1000)},
		&PerpetualPosition{Symbol: "BTC", Quantity: positive.One, EntryPrice: positive.Must(50000), Side: options.Long,
			MarginType: MarginCross, FundingRate: decimal.RequireFromString("0.0001")},
	}

	first, err := json.Marshal(legs)
	require.NoError(t, err)

	var decoded Legs
	require.NoError(t, json.Unmarshal(first, &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, LegOption, decoded[0].Kind())
	assert.Equal(t, LegSpot, decoded[1].Kind())
	assert.Equal(t, LegFuture, decoded[2].Kind())
	assert.Equal(t, LegPerpetual, decoded[3].Kind())

	second, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestUnmarshalLegRejectsUnknownVariant(t *testing.T) {
	_, err := UnmarshalLeg([]byte(`{"Bond":{}}`))
	assert.Error(t, err)
}

func TestAdjustmentTrade(t *testing.T) {
	short := optionPosition(options.Short, options.Put, 100, 3, 0.1, 1)
	trade := NewAdjustmentTrade(short, ActionSell, positive.Must(0.5))

	assertDecimal(t, 0.5, trade.Quantity.Decimal())
	assertDecimal(t, 1.5, trade.Income().Decimal())
	assertDecimal(t, 0.1, trade.Cost().Decimal())
	assertDecimal(t, 1.4, trade.Net())
	assertDecimal(t, 1, short.Option.Quantity.Decimal(), "source position is untouched")

	buyBack := NewAdjustmentTrade(short, ActionBuy, positive.One)
	assert.True(t, buyBack.Income().IsZero())
	assertDecimal(t, 3.2, buyBack.Cost().Decimal())
}
