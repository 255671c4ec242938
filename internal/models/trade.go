package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// TradeAction is what was done in the market.
type TradeAction string

const (
	ActionOpen  TradeAction = "Open"
	ActionClose TradeAction = "Close"
	ActionBuy   TradeAction = "Buy"
	ActionSell  TradeAction = "Sell"
	ActionOther TradeAction = "Other"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen      TradeStatus = "Open"
	TradeClosed    TradeStatus = "Closed"
	TradeExpired   TradeStatus = "Expired"
	TradeExercised TradeStatus = "Exercised"
	TradeAssigned  TradeStatus = "Assigned"
	TradeOther     TradeStatus = "Other"
)

// Trade records a change to a position. Quantity is the traded amount,
// which for adjustments differs from the position size.
type Trade struct {
	ID        uuid.UUID         `json:"id"`
	Position  Position          `json:"position"`
	Action    TradeAction       `json:"action"`
	Status    TradeStatus       `json:"status"`
	Quantity  positive.Positive `json:"quantity"`
	Timestamp time.Time         `json:"timestamp"`
	Notes     string            `json:"notes,omitempty"`
}

// NewTrade records action on the whole of p.
func NewTrade(p *Position, action TradeAction, status TradeStatus) Trade {
	return Trade{
		ID:        uuid.New(),
		Position:  *p.Clone(),
		Action:    action,
		Status:    status,
		Quantity:  p.Option.Quantity,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdjustmentTrade records buying or selling quantity units of the
// contract held by p.
func NewAdjustmentTrade(p *Position, action TradeAction, quantity positive.Positive) Trade {
	t := NewTrade(p, action, TradeOpen)
	t.Quantity = quantity
	t.Position.Option.Quantity = quantity
	return t
}

// Fee is open plus close fee per unit.
func (t Trade) Fee() positive.Positive {
	return t.Position.OpenFee.Add(t.Position.CloseFee)
}

// Cost is the cash paid: premium and fees when buying, fees only when
// selling.
func (t Trade) Cost() positive.Positive {
	fees := t.Fee().Mul(t.Quantity)
	premium := t.Position.Premium.Mul(t.Quantity)
	if t.paysPremium() {
		return premium.Add(fees)
	}
	return fees
}

// Income is the premium collected by the trade.
func (t Trade) Income() positive.Positive {
	if t.paysPremium() {
		return positive.Zero
	}
	return t.Position.Premium.Mul(t.Quantity)
}

// Net is income minus cost.
func (t Trade) Net() decimal.Decimal {
	return t.Income().Sub(t.Cost())
}

// paysPremium is true for trades that buy the contract: buys, opening a
// long and closing a short.
func (t Trade) paysPremium() bool {
	long := t.Position.Option.Side == options.Long
	switch t.Action {
	case ActionBuy:
		return true
	case ActionOpen:
		return long
	case ActionClose:
		return !long
	}
	return false
}

func (t Trade) String() string {
	o := t.Position.Option
	return fmt.Sprintf("%s %s %s %s %s @ %s [%s]", t.Action, t.Quantity, o.Side, o.Style,
		o.UnderlyingSymbol, o.StrikePrice, t.Status)
}

func (a *TradeAction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := TradeAction(raw); v {
	case ActionOpen, ActionClose, ActionBuy, ActionSell, ActionOther:
		*a = v
		return nil
	}
	return fmt.Errorf("unknown trade action %q", raw)
}
