// Package models provides the position algebra: option, spot, future and
// perpetual legs behind one capability set, and the trade records emitted
// when positions change.
package models

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/pricing"
)

// LegKind identifies the variant of a leg.
type LegKind string

const (
	LegOption    LegKind = "Option"
	LegSpot      LegKind = "Spot"
	LegFuture    LegKind = "Future"
	LegPerpetual LegKind = "Perpetual"
)

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "Open"
	StatusClosed PositionStatus = "Closed"
)

// MarginType of a perpetual position.
type MarginType string

const (
	MarginIsolated MarginType = "Isolated"
	MarginCross    MarginType = "Cross"
)

// Leg is the capability set shared by every position variant. Greeks and
// P&L are for the whole leg, with side and quantity applied.
type Leg interface {
	Kind() LegKind
	Underlying() string
	Size() positive.Positive
	Direction() options.Side
	PnLAtPrice(price positive.Positive) decimal.Decimal
	TotalCost() positive.Positive
	Fees() positive.Positive
	Greeks() (pricing.Greeks, error)
}

// linearGreeks are the sensitivities of a delta-one leg.
func linearGreeks(delta, theta, rho decimal.Decimal) pricing.Greeks {
	return pricing.Greeks{Delta: delta, Theta: theta, Rho: rho}
}

// SumGreeks aggregates the Greeks of a set of legs.
func SumGreeks(legs []Leg) (pricing.Greeks, error) {
	var total pricing.Greeks
	for _, l := range legs {
		g, err := l.Greeks()
		if err != nil {
			return pricing.Greeks{}, err
		}
		total.Delta = total.Delta.Add(g.Delta)
		total.Gamma = total.Gamma.Add(g.Gamma)
		total.Theta = total.Theta.Add(g.Theta)
		total.Vega = total.Vega.Add(g.Vega)
		total.Rho = total.Rho.Add(g.Rho)
	}
	return total, nil
}

// PnLAtPrice sums the P&L of every leg at price.
func PnLAtPrice(legs []Leg, price positive.Positive) decimal.Decimal {
	total := decimal.Zero
	for _, l := range legs {
		total = total.Add(l.PnLAtPrice(price))
	}
	return total
}
