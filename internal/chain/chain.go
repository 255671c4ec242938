// Package chain holds an option chain for one underlying and expiration:
// quotes keyed by unique strike, kept in ascending strike order.
package chain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// OptionRow is one strike of the chain. Any quote may be absent.
type OptionRow struct {
	Strike            positive.Positive
	CallBid           *positive.Positive
	CallAsk           *positive.Positive
	PutBid            *positive.Positive
	PutAsk            *positive.Positive
	ImpliedVolatility *positive.Positive
	DeltaCall         *decimal.Decimal
	DeltaPut          *decimal.Decimal
	Gamma             *decimal.Decimal
	Volume            *positive.Positive
	OpenInterest      *uint64
}

// Premium returns the price paid to open side of style: the ask for a long,
// the bid for a short.
func (r OptionRow) Premium(style options.OptionStyle, side options.Side) (positive.Positive, bool) {
	var q *positive.Positive
	switch {
	case style == options.Call && side == options.Long:
		q = r.CallAsk
	case style == options.Call:
		q = r.CallBid
	case side == options.Long:
		q = r.PutAsk
	default:
		q = r.PutBid
	}
	if q == nil || q.IsZero() {
		return positive.Zero, false
	}
	return *q, true
}

// Delta returns the quoted delta of style.
func (r OptionRow) Delta(style options.OptionStyle) (decimal.Decimal, bool) {
	d := r.DeltaCall
	if style == options.Put {
		d = r.DeltaPut
	}
	if d == nil {
		return decimal.Zero, false
	}
	return *d, true
}

// Tradable reports whether both bid and ask of style are quoted above zero.
func (r OptionRow) Tradable(style options.OptionStyle) bool {
	_, bid := r.Premium(style, options.Short)
	_, ask := r.Premium(style, options.Long)
	return bid && ask
}

// OptionChain is an ordered mapping from strike to row.
type OptionChain struct {
	Symbol          string
	UnderlyingPrice positive.Positive
	Expiration      options.ExpirationDate
	RiskFreeRate    decimal.Decimal
	DividendYield   positive.Positive
	rows            []OptionRow
}

// New creates an empty chain.
func New(symbol string, underlying positive.Positive, expiration options.ExpirationDate,
	rate decimal.Decimal, dividend positive.Positive) *OptionChain {
	return &OptionChain{
		Symbol:          symbol,
		UnderlyingPrice: underlying,
		Expiration:      expiration,
		RiskFreeRate:    rate,
		DividendYield:   dividend,
	}
}

// AddRow inserts row in strike order, replacing any row at the same strike.
func (c *OptionChain) AddRow(row OptionRow) {
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Strike.LessThan(row.Strike) })
	if i < len(c.rows) && c.rows[i].Strike.Equal(row.Strike) {
		c.rows[i] = row
		return
	}
	c.rows = append(c.rows, OptionRow{})
	copy(c.rows[i+1:], c.rows[i:])
	c.rows[i] = row
}

// Rows returns a copy of the rows in ascending strike order.
func (c *OptionChain) Rows() []OptionRow {
	return append([]OptionRow(nil), c.rows...)
}

func (c *OptionChain) Len() int { return len(c.rows) }

// Row looks up the row at strike.
func (c *OptionChain) Row(strike positive.Positive) (OptionRow, bool) {
	i := sort.Search(len(c.rows), func(i int) bool { return !c.rows[i].Strike.LessThan(strike) })
	if i < len(c.rows) && c.rows[i].Strike.Equal(strike) {
		return c.rows[i], true
	}
	return OptionRow{}, false
}

// Strikes lists every strike in ascending order.
func (c *OptionChain) Strikes() []positive.Positive {
	out := make([]positive.Positive, len(c.rows))
	for i, r := range c.rows {
		out[i] = r.Strike
	}
	return out
}

// ATMStrike is the strike closest to the underlying price.
func (c *OptionChain) ATMStrike() (positive.Positive, error) {
	if len(c.rows) == 0 {
		return positive.Zero, errors.Wrap(errors.ErrChain, "empty chain")
	}
	best := c.rows[0].Strike
	bestDist := distance(best, c.UnderlyingPrice)
	for _, r := range c.rows[1:] {
		if d := distance(r.Strike, c.UnderlyingPrice); d.LessThan(bestDist) {
			best, bestDist = r.Strike, d
		}
	}
	return best, nil
}

// Nearest returns up to n rows closest to the underlying, in strike order.
func (c *OptionChain) Nearest(n int) []OptionRow {
	if n >= len(c.rows) {
		return c.Rows()
	}
	idx := make([]int, len(c.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return distance(c.rows[idx[a]].Strike, c.UnderlyingPrice).
			LessThan(distance(c.rows[idx[b]].Strike, c.UnderlyingPrice))
	})
	idx = idx[:n]
	sort.Ints(idx)
	out := make([]OptionRow, n)
	for i, j := range idx {
		out[i] = c.rows[j]
	}
	return out
}

// Between returns rows with lo <= strike <= hi.
func (c *OptionChain) Between(lo, hi positive.Positive) []OptionRow {
	var out []OptionRow
	for _, r := range c.rows {
		if !r.Strike.LessThan(lo) && !r.Strike.GreaterThan(hi) {
			out = append(out, r)
		}
	}
	return out
}

// Position builds a position opening side of style at row, priced at the
// row's bid or ask and carrying the row's implied volatility.
func (c *OptionChain) Position(row OptionRow, style options.OptionStyle, side options.Side,
	quantity, openFee, closeFee positive.Positive) (*models.Position, error) {
	premium, ok := row.Premium(style, side)
	if !ok {
		return nil, errors.Wrapf(errors.ErrChain, "no %s %s quote at strike %s", side, style, row.Strike)
	}
	if row.ImpliedVolatility == nil {
		return nil, errors.Wrapf(errors.ErrChain, "no implied volatility at strike %s", row.Strike)
	}
	opt := options.NewEuropean(side, style, c.Symbol, c.UnderlyingPrice, row.Strike, c.Expiration,
		*row.ImpliedVolatility, quantity, c.RiskFreeRate, c.DividendYield)
	return models.NewPosition(*opt, premium, openFee, closeFee), nil
}

// MeanIV is the average implied volatility across rows that quote one.
func (c *OptionChain) MeanIV() (positive.Positive, bool) {
	var sum decimal.Decimal
	n := 0
	for _, r := range c.rows {
		if r.ImpliedVolatility != nil {
			sum = sum.Add(r.ImpliedVolatility.Decimal())
			n++
		}
	}
	if n == 0 {
		return positive.Zero, false
	}
	return positive.Saturating(sum.Div(decimal.NewFromInt(int64(n)))), true
}

func (c *OptionChain) String() string {
	return fmt.Sprintf("%s chain @ %s, %d strikes, %s", c.Symbol, c.UnderlyingPrice, len(c.rows), c.Expiration)
}

func distance(a, b positive.Positive) positive.Positive {
	return positive.Abs(a.Sub(b))
}
