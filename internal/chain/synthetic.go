package chain

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
)

// BuildParams describe a theoretical chain priced with Black-Scholes.
type BuildParams struct {
	Symbol          string
	UnderlyingPrice positive.Positive
	Expiration      options.ExpirationDate
	Volatility      positive.Positive
	RiskFreeRate    decimal.Decimal
	DividendYield   positive.Positive
	StrikeInterval  positive.Positive
	StrikesPerSide  int
	// Spread is the bid/ask width as a fraction of the theoretical price.
	Spread float64
	// Smile raises volatility by Smile x (K/S - 1)^2 away from the money.
	Smile float64
}

// Build prices a chain centered on the strike nearest the underlying.
func Build(p BuildParams) (*OptionChain, error) {
	if p.UnderlyingPrice.IsZero() || p.StrikeInterval.IsZero() || p.StrikesPerSide <= 0 {
		return nil, errors.Wrap(errors.ErrChain, "underlying, strike interval and strikes per side must be positive")
	}
	c := New(p.Symbol, p.UnderlyingPrice, p.Expiration, p.RiskFreeRate, p.DividendYield)

	interval := p.StrikeInterval.Decimal()
	center := p.UnderlyingPrice.Decimal().Div(interval).Round(0).Mul(interval)
	s := p.UnderlyingPrice.Float64()

	for i := -p.StrikesPerSide; i <= p.StrikesPerSide; i++ {
		k := center.Add(interval.Mul(decimal.NewFromInt(int64(i))))
		if !k.IsPositive() {
			continue
		}
		strike := positive.MustDecimal(k)
		moneyness := strike.Float64()/s - 1
		iv := positive.Must(p.Volatility.Float64() * (1 + p.Smile*moneyness*moneyness))

		row := OptionRow{Strike: strike, ImpliedVolatility: &iv}
		for _, style := range []options.OptionStyle{options.Call, options.Put} {
			opt := options.NewEuropean(options.Long, style, p.Symbol, p.UnderlyingPrice, strike,
				p.Expiration, iv, positive.One, p.RiskFreeRate, p.DividendYield)
			mid, err := pricing.Price(opt)
			if err != nil {
				return nil, err
			}
			g, err := pricing.AllGreeks(opt)
			if err != nil {
				return nil, err
			}
			half := mid.Mul(decimal.NewFromFloat(p.Spread / 2))
			bid := positive.Saturating(mid.Sub(half).Round(2))
			ask := positive.Saturating(mid.Add(half).Round(2))
			delta := g.Delta.Round(4)
			if style == options.Call {
				row.CallBid, row.CallAsk, row.DeltaCall = &bid, &ask, &delta
				gamma := g.Gamma.Round(6)
				row.Gamma = &gamma
			} else {
				row.PutBid, row.PutAsk, row.DeltaPut = &bid, &ask, &delta
			}
		}
		c.AddRow(row)
	}
	return c, nil
}
