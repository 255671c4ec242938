package options

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionstrat/internal/positive"
)

func sampleOption(side Side, style OptionStyle, strike float64) *Options {
	return NewEuropean(side, style, "SPY", positive.Must(100), positive.Must(strike), Days(30),
		positive.Must(0.2), positive.One, decimal.Zero, positive.Zero)
}

func TestPayoff(t *testing.T) {
	tests := []struct {
		name  string
		style OptionStyle
		side  Side
		price float64
		want  float64
	}{
		{"long call itm", Call, Long, 110, 10},
		{"long call otm", Call, Long, 90, 0},
		{"short call itm", Call, Short, 110, -10},
		{"long put itm", Put, Long, 90, 10},
		{"short put itm", Put, Short, 90, -10},
		{"put otm", Put, Long, 120, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOption(tt.side, tt.style, 100)
			got := o.IntrinsicValue(positive.Must(tt.price))
			assert.True(t, got.Equal(decimal.NewFromFloat(tt.want)), "got %s", got)
		})
	}
}

func TestBinaryAndPowerPayoff(t *testing.T) {
	o := sampleOption(Long, Call, 100)
	o.OptionType = Binary{Kind: CashOrNothing}
	assert.True(t, o.Payoff(positive.Must(101)).Equal(decimal.NewFromInt(1)))
	assert.True(t, o.Payoff(positive.Must(99)).IsZero())

	o.OptionType = Binary{Kind: AssetOrNothing}
	assert.True(t, o.Payoff(positive.Must(101)).Equal(decimal.NewFromInt(101)))

	o.OptionType = Power{Exponent: 2}
	o.StrikePrice = positive.Must(100)
	assert.InDelta(t, 21.0, o.Payoff(positive.Must(11)).InexactFloat64(), 1e-9)
}

func TestValidate(t *testing.T) {
	o := sampleOption(Long, Call, 100)
	require.NoError(t, o.Validate())

	bad := o.Clone()
	bad.StrikePrice = positive.Zero
	assert.Error(t, bad.Validate())

	bad = o.Clone()
	bad.OptionType = Power{Exponent: 0}
	assert.Error(t, bad.Validate())

	bad = o.Clone()
	bad.Side = "Sideways"
	assert.Error(t, bad.Validate())
}

func TestOptionTypeTaggedJSON(t *testing.T) {
	types := []OptionType{
		European{},
		American{},
		Bermuda{ExerciseDates: []float64{10, 20}},
		Asian{Averaging: Geometric},
		Barrier{Kind: DownAndOut, Level: 90},
		Binary{Kind: CashOrNothing},
		Lookback{Kind: FloatingStrike},
		Compound{Inner: European{}, InnerStyle: Put},
		Chooser{ChoiceDate: 15},
		Cliquet{ResetDates: []float64{30, 60}},
		Rainbow{NumAssets: 2, Kind: BestOf},
		Spread{SecondAssetPrice: 95},
		Quanto{ExchangeRate: 1.1},
		Exchange{SecondAsset: 101},
		Power{Exponent: 2},
	}

	for _, ot := range types {
		t.Run(ot.TypeName(), func(t *testing.T) {
			data, err := MarshalOptionType(ot)
			require.NoError(t, err)

			var tagged map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(data, &tagged))
			assert.Contains(t, tagged, ot.TypeName())

			back, err := UnmarshalOptionType(data)
			require.NoError(t, err)
			assert.Equal(t, ot, back)
		})
	}
}

func TestOptionsJSONRoundTrip(t *testing.T) {
	o := sampleOption(Short, Put, 95)
	o.ExoticParams = &ExoticParams{SpotMin: Float(92)}

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"strike_price":95`)
	assert.Contains(t, string(data), `"option_type":{"European":{}}`)

	var back Options
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, o.Side, back.Side)
	assert.Equal(t, o.Style, back.Style)
	assert.True(t, o.StrikePrice.Equal(back.StrikePrice))
	assert.True(t, o.Expiration.Equal(back.Expiration))
	assert.Equal(t, 92.0, *back.ExoticParams.SpotMin)
}

func TestExpirationYears(t *testing.T) {
	assert.InDelta(t, 30.0/365.0, Days(30).Years(), 1e-12)
	assert.Equal(t, 0.0, Days(-5).Years())
}
