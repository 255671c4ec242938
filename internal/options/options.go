package options

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/positive"
)

// ExoticParams holds the optional inputs recognised per exotic family.
// Absent fields are nil.
type ExoticParams struct {
	// Asian fixings already observed, and lookback running extremes.
	SpotPrices []float64 `json:"spot_prices,omitempty"`
	SpotMin    *float64  `json:"spot_min,omitempty"`
	SpotMax    *float64  `json:"spot_max,omitempty"`

	CliquetLocalCap    *float64 `json:"cliquet_local_cap,omitempty"`
	CliquetLocalFloor  *float64 `json:"cliquet_local_floor,omitempty"`
	CliquetGlobalCap   *float64 `json:"cliquet_global_cap,omitempty"`
	CliquetGlobalFloor *float64 `json:"cliquet_global_floor,omitempty"`

	RainbowSecondAssetPrice      *float64 `json:"rainbow_second_asset_price,omitempty"`
	RainbowSecondAssetVolatility *float64 `json:"rainbow_second_asset_volatility,omitempty"`
	RainbowSecondAssetDividend   *float64 `json:"rainbow_second_asset_dividend,omitempty"`
	RainbowCorrelation           *float64 `json:"rainbow_correlation,omitempty"`

	SpreadSecondAssetVolatility *float64 `json:"spread_second_asset_volatility,omitempty"`
	SpreadSecondAssetDividend   *float64 `json:"spread_second_asset_dividend,omitempty"`
	SpreadCorrelation           *float64 `json:"spread_correlation,omitempty"`

	QuantoFxVolatility  *float64 `json:"quanto_fx_volatility,omitempty"`
	QuantoFxCorrelation *float64 `json:"quanto_fx_correlation,omitempty"`
	QuantoForeignRate   *float64 `json:"quanto_foreign_rate,omitempty"`

	ExchangeSecondAssetVolatility *float64 `json:"exchange_second_asset_volatility,omitempty"`
	ExchangeSecondAssetDividend   *float64 `json:"exchange_second_asset_dividend,omitempty"`
	ExchangeCorrelation           *float64 `json:"exchange_correlation,omitempty"`

	// Strike and expiry (days) of the inner option of a compound.
	CompoundUnderlyingStrike *float64 `json:"compound_underlying_strike,omitempty"`
	CompoundUnderlyingExpiry *float64 `json:"compound_underlying_expiry,omitempty"`
}

// Float returns a pointer to v, for populating ExoticParams literals.
func Float(v float64) *float64 { return &v }

// Options is the option descriptor: everything needed to price one contract.
type Options struct {
	OptionType        OptionType
	Side              Side
	Style             OptionStyle
	UnderlyingSymbol  string
	UnderlyingPrice   positive.Positive
	StrikePrice       positive.Positive
	Expiration        ExpirationDate
	ImpliedVolatility positive.Positive
	RiskFreeRate      decimal.Decimal
	DividendYield     positive.Positive
	Quantity          positive.Positive
	ExoticParams      *ExoticParams
}

// NewEuropean builds a vanilla European option descriptor.
func NewEuropean(side Side, style OptionStyle, symbol string, underlying, strike positive.Positive,
	expiration ExpirationDate, iv positive.Positive, quantity positive.Positive, rate decimal.Decimal,
	dividend positive.Positive) *Options {
	return &Options{
		OptionType:        European{},
		Side:              side,
		Style:             style,
		UnderlyingSymbol:  symbol,
		UnderlyingPrice:   underlying,
		StrikePrice:       strike,
		Expiration:        expiration,
		ImpliedVolatility: iv,
		RiskFreeRate:      rate,
		DividendYield:     dividend,
		Quantity:          quantity,
	}
}

// Clone returns a deep copy.
func (o *Options) Clone() *Options {
	c := *o
	if o.ExoticParams != nil {
		p := *o.ExoticParams
		p.SpotPrices = append([]float64(nil), o.ExoticParams.SpotPrices...)
		c.ExoticParams = &p
	}
	return &c
}

// Type returns the option type, defaulting to European.
func (o *Options) Type() OptionType {
	if o.OptionType == nil {
		return European{}
	}
	return o.OptionType
}

// Years is the time to expiration in years.
func (o *Options) Years() float64 {
	return o.Expiration.Years()
}

func (o *Options) IsLong() bool { return o.Side == Long }
func (o *Options) IsCall() bool { return o.Style == Call }

// Validate checks the descriptor's basic ranges.
func (o *Options) Validate() error {
	if !o.Side.Valid() {
		return errors.NewValidationError("side", o.Side, "must be Long or Short")
	}
	if !o.Style.Valid() {
		return errors.NewValidationError("option_style", o.Style, "must be Call or Put")
	}
	if o.UnderlyingPrice.IsZero() {
		return errors.NewValidationError("underlying_price", o.UnderlyingPrice, "must be greater than zero")
	}
	if o.StrikePrice.IsZero() && !allowsZeroStrike(o.Type()) {
		return errors.NewValidationError("strike_price", o.StrikePrice, "must be greater than zero")
	}
	if p, ok := o.Type().(Power); ok && p.Exponent <= 0 {
		return errors.NewValidationError("exponent", p.Exponent, "must be greater than zero")
	}
	return nil
}

// Spread and exchange options may legitimately carry a zero strike.
func allowsZeroStrike(t OptionType) bool {
	switch t.(type) {
	case Spread, Exchange:
		return true
	}
	return false
}

// Payoff returns the per-unit payoff for the long holder at expiration
// with the underlying at price.
func (o *Options) Payoff(price positive.Positive) decimal.Decimal {
	s := price.Decimal()
	k := o.StrikePrice.Decimal()

	switch t := o.Type().(type) {
	case Binary:
		itm := (o.Style == Call && s.GreaterThan(k)) || (o.Style == Put && s.LessThan(k))
		if !itm {
			return decimal.Zero
		}
		if t.Kind == AssetOrNothing {
			return s
		}
		return decimal.NewFromInt(1)
	case Power:
		sn := decimal.NewFromFloat(math.Pow(price.Float64(), t.Exponent))
		return intrinsic(o.Style, sn, k)
	}
	return intrinsic(o.Style, s, k)
}

// IntrinsicValue returns the side- and quantity-adjusted payoff at price.
func (o *Options) IntrinsicValue(price positive.Positive) decimal.Decimal {
	return o.Payoff(price).Mul(o.Quantity.Decimal()).Mul(o.Side.Sign())
}

func intrinsic(style OptionStyle, s, k decimal.Decimal) decimal.Decimal {
	var v decimal.Decimal
	if style == Call {
		v = s.Sub(k)
	} else {
		v = k.Sub(s)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

type optionsJSON struct {
	OptionType        json.RawMessage   `json:"option_type"`
	Side              Side              `json:"side"`
	Style             OptionStyle       `json:"option_style"`
	UnderlyingSymbol  string            `json:"underlying_symbol"`
	UnderlyingPrice   positive.Positive `json:"underlying_price"`
	StrikePrice       positive.Positive `json:"strike_price"`
	Expiration        ExpirationDate    `json:"expiration_date"`
	ImpliedVolatility positive.Positive `json:"implied_volatility"`
	RiskFreeRate      decimal.Decimal   `json:"risk_free_rate"`
	DividendYield     positive.Positive `json:"dividend_yield"`
	Quantity          positive.Positive `json:"quantity"`
	ExoticParams      *ExoticParams     `json:"exotic_params,omitempty"`
}

func (o Options) MarshalJSON() ([]byte, error) {
	t, err := MarshalOptionType(o.Type())
	if err != nil {
		return nil, err
	}
	return json.Marshal(optionsJSON{
		OptionType:        t,
		Side:              o.Side,
		Style:             o.Style,
		UnderlyingSymbol:  o.UnderlyingSymbol,
		UnderlyingPrice:   o.UnderlyingPrice,
		StrikePrice:       o.StrikePrice,
		Expiration:        o.Expiration,
		ImpliedVolatility: o.ImpliedVolatility,
		RiskFreeRate:      o.RiskFreeRate,
		DividendYield:     o.DividendYield,
		Quantity:          o.Quantity,
		ExoticParams:      o.ExoticParams,
	})
}

func (o *Options) UnmarshalJSON(data []byte) error {
	var raw optionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var t OptionType = European{}
	if len(raw.OptionType) > 0 {
		var err error
		if t, err = UnmarshalOptionType(raw.OptionType); err != nil {
			return err
		}
	}
	*o = Options{
		OptionType:        t,
		Side:              raw.Side,
		Style:             raw.Style,
		UnderlyingSymbol:  raw.UnderlyingSymbol,
		UnderlyingPrice:   raw.UnderlyingPrice,
		StrikePrice:       raw.StrikePrice,
		Expiration:        raw.Expiration,
		ImpliedVolatility: raw.ImpliedVolatility,
		RiskFreeRate:      raw.RiskFreeRate,
		DividendYield:     raw.DividendYield,
		Quantity:          raw.Quantity,
		ExoticParams:      raw.ExoticParams,
	}
	return nil
}
