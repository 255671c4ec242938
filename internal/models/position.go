package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
)

// Position is an option leg: the contract, the premium paid or received per
// unit and the fees charged per unit to open and close it.
type Position struct {
	ID       uuid.UUID         `json:"id"`
	Option   options.Options   `json:"option"`
	Premium  positive.Positive `json:"premium"`
	Date     time.Time         `json:"date"`
	OpenFee  positive.Positive `json:"open_fee"`
	CloseFee positive.Positive `json:"close_fee"`
	Status   PositionStatus    `json:"status"`
	Epic     string            `json:"epic,omitempty"`
}

// NewPosition creates an open position dated now.
func NewPosition(option options.Options, premium, openFee, closeFee positive.Positive) *Position {
	return &Position{
		ID:       uuid.New(),
		Option:   option,
		Premium:  premium,
		Date:     time.Now().UTC(),
		OpenFee:  openFee,
		CloseFee: closeFee,
		Status:   StatusOpen,
	}
}

// Clone returns a deep copy with the same id.
func (p *Position) Clone() *Position {
	c := *p
	c.Option = *p.Option.Clone()
	return &c
}

func (p *Position) Kind() LegKind             { return LegOption }
func (p *Position) Underlying() string        { return p.Option.UnderlyingSymbol }
func (p *Position) Size() positive.Positive   { return p.Option.Quantity }
func (p *Position) Direction() options.Side   { return p.Option.Side }
func (p *Position) IsLong() bool              { return p.Option.Side == options.Long }
func (p *Position) IsShort() bool             { return p.Option.Side == options.Short }
func (p *Position) Strike() positive.Positive { return p.Option.StrikePrice }

// Fees is (open_fee + close_fee) x quantity.
func (p *Position) Fees() positive.Positive {
	return p.OpenFee.Add(p.CloseFee).Mul(p.Option.Quantity)
}

// TotalCost is what the position costs to hold: premium plus fees for a long
// side, fees only for a short side.
func (p *Position) TotalCost() positive.Positive {
	if p.IsLong() {
		return p.Premium.Add(p.OpenFee).Add(p.CloseFee).Mul(p.Option.Quantity)
	}
	return p.Fees()
}

// PremiumReceived is premium x quantity for a short side, zero otherwise.
func (p *Position) PremiumReceived() positive.Positive {
	if p.IsShort() {
		return p.Premium.Mul(p.Option.Quantity)
	}
	return positive.Zero
}

// NetPremiumReceived is the premium received net of fees. It fails when the
// fees exceed the premium of a short position.
func (p *Position) NetPremiumReceived() (positive.Positive, error) {
	if p.IsLong() {
		return positive.Zero, nil
	}
	net := p.PremiumReceived().Sub(p.TotalCost())
	if net.IsNegative() {
		return positive.Zero, errors.NewPositionError("net_premium_received", "fees exceed the premium received")
	}
	return positive.MustDecimal(net), nil
}

// NetCost is the total cost for a long side and fees minus premium for a
// short side, which is negative when the premium exceeds the fees.
func (p *Position) NetCost() decimal.Decimal {
	if p.IsLong() {
		return p.TotalCost().Decimal()
	}
	return p.Fees().Sub(p.PremiumReceived())
}

// PnLAtExpiration is intrinsic value minus total cost plus premium received.
func (p *Position) PnLAtExpiration(price positive.Positive) decimal.Decimal {
	return p.Option.IntrinsicValue(price).
		Sub(p.TotalCost().Decimal()).
		Add(p.PremiumReceived().Decimal())
}

func (p *Position) PnLAtPrice(price positive.Positive) decimal.Decimal {
	return p.PnLAtExpiration(price)
}

// UnrealizedPnL marks the position against the current option price.
func (p *Position) UnrealizedPnL(optionPrice positive.Positive) decimal.Decimal {
	fees := p.OpenFee.Add(p.CloseFee).Decimal()
	var perUnit decimal.Decimal
	if p.IsLong() {
		perUnit = optionPrice.Sub(p.Premium).Sub(fees)
	} else {
		perUnit = p.Premium.Sub(optionPrice).Sub(fees)
	}
	return perUnit.Mul(p.Option.Quantity.Decimal())
}

// DaysHeld is the whole number of days since the position was opened.
func (p *Position) DaysHeld(now time.Time) float64 {
	return math.Floor(now.Sub(p.Date).Hours() / 24)
}

// DaysToExpiration is the time left on the contract.
func (p *Position) DaysToExpiration() float64 {
	return p.Option.Expiration.DaysLeft()
}

// BreakEven is the single-leg break-even price at expiration. It is false
// for an empty position.
func (p *Position) BreakEven() (positive.Positive, bool) {
	q := p.Option.Quantity
	if q.IsZero() {
		return positive.Zero, false
	}
	perUnit := p.TotalCost().Div(q)
	k := p.Option.StrikePrice
	switch {
	case p.IsLong() && p.Option.IsCall():
		return k.Add(perUnit), true
	case p.IsShort() && p.Option.IsCall():
		return positive.Saturating(k.Add(p.Premium).Sub(perUnit)), true
	case p.IsLong():
		return k.SubSat(perUnit), true
	default:
		return positive.Saturating(k.Sub(p.Premium).Add(perUnit.Decimal())), true
	}
}

// MaxProfit of the leg alone: unbounded for a long, the net premium for a short.
func (p *Position) MaxProfit() (positive.Positive, error) {
	if p.IsLong() {
		return positive.Infinity, nil
	}
	return p.NetPremiumReceived()
}

// MaxLoss of the leg alone: the total cost for a long, unbounded for a short.
func (p *Position) MaxLoss() positive.Positive {
	if p.IsLong() {
		return p.TotalCost()
	}
	return positive.Infinity
}

// Greeks returns the leg sensitivities: per-unit Greeks times quantity,
// signed by side.
func (p *Position) Greeks() (pricing.Greeks, error) {
	unit, err := pricing.AllGreeks(&p.Option)
	if err != nil {
		return pricing.Greeks{}, err
	}
	scale := p.Option.Quantity.Decimal().Mul(p.Option.Side.Sign())
	return pricing.Greeks{
		Delta: unit.Delta.Mul(scale),
		Gamma: unit.Gamma.Mul(scale),
		Theta: unit.Theta.Mul(scale),
		Vega:  unit.Vega.Mul(scale),
		Rho:   unit.Rho.Mul(scale),
	}, nil
}

// ContractDelta is the delta of one unit of the leg, signed by side.
func (p *Position) ContractDelta() (decimal.Decimal, error) {
	d, err := pricing.GreekOf(&p.Option, pricing.Delta)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Mul(p.Option.Side.Sign()), nil
}

// Value is the theoretical mark of the leg, signed by side.
func (p *Position) Value() (decimal.Decimal, error) {
	v, err := pricing.Price(&p.Option)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Mul(p.Option.Quantity.Decimal()).Mul(p.Option.Side.Sign()), nil
}

// Validate checks the option and the premium rules of the position.
func (p *Position) Validate() error {
	if err := p.Option.Validate(); err != nil {
		return &errors.PositionError{Operation: "validate", Reason: "invalid option", Err: err}
	}
	if p.IsShort() && p.Premium.IsZero() {
		return errors.NewPositionError("validate", "short positions require a premium")
	}
	if p.Status != StatusOpen && p.Status != StatusClosed {
		return errors.NewPositionError("validate", fmt.Sprintf("unknown status %q", p.Status))
	}
	return nil
}

// Open marks the position open and returns the opening trade.
func (p *Position) Open() Trade {
	p.Status = StatusOpen
	return NewTrade(p, ActionOpen, TradeOpen)
}

// Close marks the position closed and returns the offsetting trade. A
// position can be closed once.
func (p *Position) Close() (Trade, error) {
	if p.Status == StatusClosed {
		return Trade{}, errors.NewPositionError("close", "position already closed")
	}
	p.Status = StatusClosed
	return NewTrade(p, ActionClose, TradeClosed), nil
}

// Matches reports whether the position has the given style, side and strike.
func (p *Position) Matches(style options.OptionStyle, side options.Side, strike positive.Positive) bool {
	return p.Option.Style == style && p.Option.Side == side && p.Option.StrikePrice.Equal(strike)
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s %s @ %s x %s (premium %s)", p.Option.Side, p.Option.Style,
		p.Option.UnderlyingSymbol, p.Option.StrikePrice, p.Option.Quantity, p.Premium)
}
