package strategies

import (
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/positive"
)

// The spot-combined strategies hold the underlying plus options covering
// it, ContractSize shares per contract. Their payoff is linear between
// strikes, so extremes and break-evens come from the expiration profile.

// CoveredCall holds the underlying and sells a call against it.
type CoveredCall struct{ Base }

// NewCoveredCall buys the shares described by spot and sells
// c.Quantity calls.
func NewCoveredCall(c Common, spot SpotQuote, call LegQuote) (*CoveredCall, error) {
	s, err := build(KindCoveredCall, c, &spot, call)
	if err != nil {
		return nil, err
	}
	return s.(*CoveredCall), nil
}

func (s *CoveredCall) check() error                           { return nil }
func (s *CoveredCall) breakEvens() ([]decimal.Decimal, error) { return s.profile().zeros(), nil }
func (s *CoveredCall) maxProfit() (positive.Positive, error)  { return s.profile().maxProfit(), nil }
func (s *CoveredCall) maxLoss() (positive.Positive, error)    { return s.profile().maxLoss(), nil }

// ProtectivePut holds the underlying and buys a put below it.
type ProtectivePut struct{ Base }

// NewProtectivePut buys the shares described by spot and c.Quantity puts.
func NewProtectivePut(c Common, spot SpotQuote, put LegQuote) (*ProtectivePut, error) {
	s, err := build(KindProtectivePut, c, &spot, put)
	if err != nil {
		return nil, err
	}
	return s.(*ProtectivePut), nil
}

func (s *ProtectivePut) check() error                           { return nil }
func (s *ProtectivePut) breakEvens() ([]decimal.Decimal, error) { return s.profile().zeros(), nil }
func (s *ProtectivePut) maxProfit() (positive.Positive, error)  { return s.profile().maxProfit(), nil }
func (s *ProtectivePut) maxLoss() (positive.Positive, error)    { return s.profile().maxLoss(), nil }

// Collar holds the underlying, buys a put below it and sells a call above.
type Collar struct{ Base }

// NewCollar buys the shares described by spot, buys the put and sells the call.
func NewCollar(c Common, spot SpotQuote, put, call LegQuote) (*Collar, error) {
	s, err := build(KindCollar, c, &spot, put, call)
	if err != nil {
		return nil, err
	}
	return s.(*Collar), nil
}

func (s *Collar) check() error {
	if !s.strike(0).LessThan(s.strike(1)) {
		return errors.NewStrategyError(string(s.kind), "validate", "the put strike must be below the call strike")
	}
	return s.sameExpiration()
}

func (s *Collar) breakEvens() ([]decimal.Decimal, error) { return s.profile().zeros(), nil }
func (s *Collar) maxProfit() (positive.Positive, error)  { return s.profile().maxProfit(), nil }
func (s *Collar) maxLoss() (positive.Positive, error)    { return s.profile().maxLoss(), nil }
