package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
)

// SpotPosition is a holding of the underlying itself.
type SpotPosition struct {
	ID        uuid.UUID         `json:"id"`
	Symbol    string            `json:"symbol"`
	Quantity  positive.Positive `json:"quantity"`
	CostBasis positive.Positive `json:"cost_basis"`
	Side      options.Side      `json:"side"`
	Date      time.Time         `json:"date"`
	OpenFee   positive.Positive `json:"open_fee"`
	CloseFee  positive.Positive `json:"close_fee"`
}

// NewSpotPosition creates a spot leg with the given fees.
func NewSpotPosition(symbol string, quantity, costBasis positive.Positive, side options.Side,
	openFee, closeFee positive.Positive) *SpotPosition {
	return &SpotPosition{
		ID:        uuid.New(),
		Symbol:    symbol,
		Quantity:  quantity,
		CostBasis: costBasis,
		Side:      side,
		Date:      time.Now().UTC(),
		OpenFee:   openFee,
		CloseFee:  closeFee,
	}
}

func (s *SpotPosition) Kind() LegKind           { return LegSpot }
func (s *SpotPosition) Underlying() string      { return s.Symbol }
func (s *SpotPosition) Size() positive.Positive { return s.Quantity }
func (s *SpotPosition) Direction() options.Side { return s.Side }
func (s *SpotPosition) Fees() positive.Positive { return s.OpenFee.Add(s.CloseFee) }

// PnLAtPrice is (price - cost_basis) x quantity, signed, minus fees.
func (s *SpotPosition) PnLAtPrice(price positive.Positive) decimal.Decimal {
	gross := price.Sub(s.CostBasis).Mul(s.Quantity.Decimal()).Mul(s.Side.Sign())
	return gross.Sub(s.Fees().Decimal())
}

// TotalCost is the purchase amount plus fees for a long holding and fees
// only for a short one.
func (s *SpotPosition) TotalCost() positive.Positive {
	if s.Side == options.Long {
		return s.Quantity.Mul(s.CostBasis).Add(s.Fees())
	}
	return s.Fees()
}

func (s *SpotPosition) Greeks() (pricing.Greeks, error) {
	return linearGreeks(s.Quantity.Decimal().Mul(s.Side.Sign()), decimal.Zero, decimal.Zero), nil
}

// InitialValue is quantity x cost basis.
func (s *SpotPosition) InitialValue() positive.Positive { return s.Quantity.Mul(s.CostBasis) }

// MarketValue is quantity x price.
func (s *SpotPosition) MarketValue(price positive.Positive) positive.Positive {
	return s.Quantity.Mul(price)
}

// PercentageReturn is the signed fractional return at price.
func (s *SpotPosition) PercentageReturn(price positive.Positive) decimal.Decimal {
	if s.CostBasis.IsZero() {
		return decimal.Zero
	}
	return price.Sub(s.CostBasis).Div(s.CostBasis.Decimal()).Mul(s.Side.Sign())
}

// BreakEvenPrice is the cost basis moved by the fees per unit.
func (s *SpotPosition) BreakEvenPrice() positive.Positive {
	if s.Quantity.IsZero() {
		return s.CostBasis
	}
	perUnit := s.Fees().Div(s.Quantity)
	if s.Side == options.Long {
		return s.CostBasis.Add(perUnit)
	}
	return s.CostBasis.SubSat(perUnit)
}

// FuturePosition is a dated futures contract position.
type FuturePosition struct {
	ID                uuid.UUID              `json:"id"`
	Symbol            string                 `json:"symbol"`
	Quantity          positive.Positive      `json:"quantity"`
	EntryPrice        positive.Positive      `json:"entry_price"`
	Side              options.Side           `json:"side"`
	Expiration        options.ExpirationDate `json:"expiration_date"`
	ContractSize      positive.Positive      `json:"contract_size"`
	InitialMargin     positive.Positive      `json:"initial_margin_req"`
	MaintenanceMargin positive.Positive      `json:"maintenance_margin_req"`
	Date              time.Time              `json:"date"`
	TotalFees         positive.Positive      `json:"fees"`
}

func (f *FuturePosition) Kind() LegKind           { return LegFuture }
func (f *FuturePosition) Underlying() string      { return f.Symbol }
func (f *FuturePosition) Size() positive.Positive { return f.Quantity }
func (f *FuturePosition) Direction() options.Side { return f.Side }
func (f *FuturePosition) Fees() positive.Positive { return f.TotalFees }

// Notional is quantity x price x contract size.
func (f *FuturePosition) Notional(price positive.Positive) positive.Positive {
	return f.Quantity.Mul(price).Mul(f.ContractSize)
}

// UnrealizedPnL excludes fees.
func (f *FuturePosition) UnrealizedPnL(price positive.Positive) decimal.Decimal {
	return price.Sub(f.EntryPrice).
		Mul(f.Quantity.Decimal()).
		Mul(f.ContractSize.Decimal()).
		Mul(f.Side.Sign())
}

func (f *FuturePosition) PnLAtPrice(price positive.Positive) decimal.Decimal {
	return f.UnrealizedPnL(price).Sub(f.TotalFees.Decimal())
}

// MarginRequired is the initial margin per contract times quantity.
func (f *FuturePosition) MarginRequired() positive.Positive {
	return f.InitialMargin.Mul(f.Quantity)
}

func (f *FuturePosition) TotalCost() positive.Positive {
	return f.MarginRequired().Add(f.TotalFees)
}

// Basis is entry price minus spot.
func (f *FuturePosition) Basis(spot positive.Positive) decimal.Decimal {
	return f.EntryPrice.Sub(spot)
}

// Greeks: delta is contract_size x quantity and rho is notional x T / 100,
// both signed by side.
func (f *FuturePosition) Greeks() (pricing.Greeks, error) {
	sign := f.Side.Sign()
	delta := f.ContractSize.Decimal().Mul(f.Quantity.Decimal()).Mul(sign)
	years := decimal.NewFromFloat(f.Expiration.Years())
	rho := f.Notional(f.EntryPrice).Decimal().Mul(years).Mul(sign).Div(decimal.NewFromInt(100))
	return linearGreeks(delta, decimal.Zero, rho), nil
}

// DefaultFundingIntervalHours is the funding cadence of a perpetual.
const DefaultFundingIntervalHours = 8

// PerpetualPosition is a perpetual swap position with periodic funding.
type PerpetualPosition struct {
	ID          uuid.UUID         `json:"id"`
	Symbol      string            `json:"symbol"`
	Quantity    positive.Positive `json:"quantity"`
	EntryPrice  positive.Positive `json:"entry_price"`
	Side        options.Side      `json:"side"`
	Leverage    positive.Positive `json:"leverage"`
	Margin      positive.Positive `json:"margin"`
	MarginType  MarginType        `json:"margin_type"`
	FundingRate decimal.Decimal   `json:"funding_rate"`
	Date        time.Time         `json:"date"`
	TotalFees   positive.Positive `json:"fees"`
}

func (p *PerpetualPosition) Kind() LegKind           { return LegPerpetual }
func (p *PerpetualPosition) Underlying() string      { return p.Symbol }
func (p *PerpetualPosition) Size() positive.Positive { return p.Quantity }
func (p *PerpetualPosition) Direction() options.Side { return p.Side }
func (p *PerpetualPosition) Fees() positive.Positive { return p.TotalFees }

// Notional is quantity x price.
func (p *PerpetualPosition) Notional(price positive.Positive) positive.Positive {
	return p.Quantity.Mul(price)
}

// UnrealizedPnL excludes fees and funding.
func (p *PerpetualPosition) UnrealizedPnL(price positive.Positive) decimal.Decimal {
	return price.Sub(p.EntryPrice).Mul(p.Quantity.Decimal()).Mul(p.Side.Sign())
}

func (p *PerpetualPosition) PnLAtPrice(price positive.Positive) decimal.Decimal {
	return p.UnrealizedPnL(price).Sub(p.TotalFees.Decimal())
}

func (p *PerpetualPosition) TotalCost() positive.Positive {
	return p.Margin.Add(p.TotalFees)
}

// FundingPayment is what the position pays for one funding interval at the
// mark price; longs pay a positive rate, shorts receive it.
func (p *PerpetualPosition) FundingPayment(mark positive.Positive) decimal.Decimal {
	return p.Notional(mark).Decimal().Mul(p.FundingRate).Mul(p.Side.Sign())
}

// AnnualizedFunding scales one funding payment to a year of intervals.
func (p *PerpetualPosition) AnnualizedFunding(mark positive.Positive) decimal.Decimal {
	perYear := decimal.NewFromInt(24 * 365 / DefaultFundingIntervalHours)
	return p.FundingPayment(mark).Mul(perYear)
}

// MaintenanceMargin is 0.5% of the entry notional.
func (p *PerpetualPosition) MaintenanceMargin() positive.Positive {
	return p.Notional(p.EntryPrice).Mul(positive.MustDecimal(decimal.New(5, -3)))
}

// MarginRatio is equity over notional at price.
func (p *PerpetualPosition) MarginRatio(price positive.Positive) decimal.Decimal {
	notional := p.Notional(price)
	if notional.IsZero() {
		return decimal.Zero
	}
	return p.Margin.Decimal().Add(p.UnrealizedPnL(price)).Div(notional.Decimal())
}

// Greeks: delta is the signed quantity; theta is the negated funding
// payment at entry.
func (p *PerpetualPosition) Greeks() (pricing.Greeks, error) {
	delta := p.Quantity.Decimal().Mul(p.Side.Sign())
	theta := p.FundingPayment(p.EntryPrice).Neg()
	return linearGreeks(delta, theta, decimal.Zero), nil
}

var (
	_ Leg = (*Position)(nil)
	_ Leg = (*SpotPosition)(nil)
	_ Leg = (*FuturePosition)(nil)
	_ Leg = (*PerpetualPosition)(nil)
)
