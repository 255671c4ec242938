// Package strategies composes option, spot, future and perpetual legs into
// named strategies and derives their P&L profile at expiration: break-even
// points, maximum profit and loss, display ranges and profit statistics.
package strategies

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// Display-range multipliers applied to the lowest and highest price of interest.
const (
	StrikePriceLowerBoundMultiplier = 0.97
	StrikePriceUpperBoundMultiplier = 1.03
)

// BreakEvenEpsilon is the profit tolerance of the break-even scan and the
// convergence bound of its Newton refinement.
const BreakEvenEpsilon = 0.01

var breakEvenEpsilon = decimal.NewFromFloat(BreakEvenEpsilon)

// ScanStep is the grid step of the break-even scan.
const ScanStep = 0.01

// ContractSize is the number of shares one option contract covers in the
// spot-combined strategies.
const ContractSize = 100

// Kind enumerates the strategies the factory can build.
type Kind string

const (
	KindBullCallSpread       Kind = "BullCallSpread"
	KindBearCallSpread       Kind = "BearCallSpread"
	KindBullPutSpread        Kind = "BullPutSpread"
	KindBearPutSpread        Kind = "BearPutSpread"
	KindLongButterflySpread  Kind = "LongButterflySpread"
	KindShortButterflySpread Kind = "ShortButterflySpread"
	KindIronCondor           Kind = "IronCondor"
	KindIronButterfly        Kind = "IronButterfly"
	KindLongStraddle         Kind = "LongStraddle"
	KindShortStraddle        Kind = "ShortStraddle"
	KindLongStrangle         Kind = "LongStrangle"
	KindShortStrangle        Kind = "ShortStrangle"
	KindCoveredCall          Kind = "CoveredCall"
	KindProtectivePut        Kind = "ProtectivePut"
	KindCollar               Kind = "Collar"
	KindPoorMansCoveredCall  Kind = "PoorMansCoveredCall"
	KindCallButterfly        Kind = "CallButterfly"
	KindLongCall             Kind = "LongCall"
	KindShortCall            Kind = "ShortCall"
	KindLongPut              Kind = "LongPut"
	KindShortPut             Kind = "ShortPut"
	KindCustom               Kind = "Custom"
)

// Strategy is the narrow contract every strategy satisfies. Everything else
// is derived by the free functions of this package.
type Strategy interface {
	Name() string
	Kind() Kind
	Description() string
	Symbol() string
	UnderlyingPrice() positive.Positive
	// Legs returns linear legs first, then option legs in slot order.
	Legs() []models.Leg
	Positions() []*models.Position
	Validate() error
	BreakEvenPoints() []positive.Positive
	UpdateBreakEvenPoints() error
	MaxProfit() (positive.Positive, error)
	MaxLoss() (positive.Positive, error)
}

// Positionable strategies accept leg mutations. Every mutation revalidates
// the strategy, rolls back on failure and recomputes the break-evens.
// AddPosition, ModifyPosition and ReplacePosition also keep the leg size
// ratios of a fixed-shape strategy when they held before the change;
// ResizePosition may leave them.
type Positionable interface {
	AddPosition(p *models.Position) error
	GetPosition(style options.OptionStyle, side options.Side, strike positive.Positive) ([]*models.Position, error)
	ModifyPosition(p *models.Position) error
	ResizePosition(p *models.Position) error
	ReplacePosition(p *models.Position) error
	AdjustUnderlying(quantity decimal.Decimal, price positive.Positive) error
}

// rules are the per-kind parts of a strategy.
type rules interface {
	check() error
	breakEvens() ([]decimal.Decimal, error)
	maxProfit() (positive.Positive, error)
	maxLoss() (positive.Positive, error)
}

type shaped interface {
	Strategy
	Positionable
	rules
	base() *Base
}

// Base carries the legs and metadata shared by every strategy. Named
// strategies embed it and supply their own rules.
type Base struct {
	name        string
	kind        Kind
	description string
	symbol      string
	underlying  positive.Positive
	positions   []*models.Position
	linear      []models.Leg
	breakEvens  []positive.Positive
	rules       rules
}

func (b *Base) base() *Base { return b }

func (b *Base) Name() string                       { return b.name }
func (b *Base) Kind() Kind                         { return b.kind }
func (b *Base) Description() string                { return b.description }
func (b *Base) Symbol() string                     { return b.symbol }
func (b *Base) UnderlyingPrice() positive.Positive { return b.underlying }

// BreakEvenPoints returns the sorted break-even prices.
func (b *Base) BreakEvenPoints() []positive.Positive {
	return append([]positive.Positive(nil), b.breakEvens...)
}

// SetName renames the strategy.
func (b *Base) SetName(name string) { b.name = name }

// Title is the display title: kind, symbol and name.
func (b *Base) Title() string {
	if b.name == "" || b.name == b.symbol {
		return fmt.Sprintf("%s Strategy: %s", b.kind, b.symbol)
	}
	return fmt.Sprintf("%s Strategy: %s (%s)", b.kind, b.symbol, b.name)
}

func (b *Base) Legs() []models.Leg {
	legs := make([]models.Leg, 0, len(b.linear)+len(b.positions))
	legs = append(legs, b.linear...)
	for _, p := range b.positions {
		legs = append(legs, p)
	}
	return legs
}

func (b *Base) Positions() []*models.Position {
	return append([]*models.Position(nil), b.positions...)
}

// Validate checks every leg and then the rules of the strategy kind.
func (b *Base) Validate() error {
	if b.symbol == "" {
		return errors.NewStrategyError(string(b.kind), "validate", "symbol is required")
	}
	for _, p := range b.positions {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.Option.Quantity.IsZero() {
			return errors.NewPositionError("validate", fmt.Sprintf("%s has zero quantity", p))
		}
	}
	for _, l := range b.linear {
		if l.Size().IsZero() {
			return errors.NewPositionError("validate", fmt.Sprintf("%s leg has zero quantity", l.Kind()))
		}
	}
	if err := b.checkSlots(); err != nil {
		return err
	}
	return b.rules.check()
}

// checkSlots verifies that fixed-shape strategies keep their slot layout.
func (b *Base) checkSlots() error {
	spec, ok := registry[b.kind]
	if !ok {
		return nil
	}
	if len(b.positions) != len(spec.slots) {
		return errors.NewStrategyError(string(b.kind), "validate",
			fmt.Sprintf("expected %d option legs, got %d", len(spec.slots), len(b.positions)))
	}
	for i, slot := range spec.slots {
		p := b.positions[i]
		if p.Option.Style != slot.Style || p.Option.Side != slot.Side {
			return errors.NewStrategyError(string(b.kind), "validate",
				fmt.Sprintf("leg %d must be %s %s, got %s %s", i, slot.Side, slot.Style, p.Option.Side, p.Option.Style))
		}
	}
	spots := 0
	for _, l := range b.linear {
		if l.Kind() != models.LegSpot {
			return errors.NewStrategyError(string(b.kind), "validate", fmt.Sprintf("%s legs are not allowed", l.Kind()))
		}
		if l.Direction() != options.Long {
			return errors.NewStrategyError(string(b.kind), "validate", "the underlying must be held long")
		}
		spots++
	}
	if spec.spot && spots != 1 {
		return errors.NewStrategyError(string(b.kind), "validate", "exactly one spot leg is required")
	}
	if !spec.spot && spots != 0 {
		return errors.NewStrategyError(string(b.kind), "validate", "spot legs are not allowed")
	}
	return nil
}

// UpdateBreakEvenPoints recomputes the break-evens from the current legs.
// The closed forms of fixed-shape kinds assume the premium covers the
// fees; when a point they return is off the zero line the exact
// expiration profile is used instead.
func (b *Base) UpdateBreakEvenPoints() error {
	points, err := b.rules.breakEvens()
	if err != nil {
		return err
	}
	if _, fixed := registry[b.kind]; fixed && !b.onZeroLine(points) {
		points = b.profile().zeros()
	}
	b.breakEvens = normalizeBreakEvens(points)
	return nil
}

// onZeroLine reports whether the P&L at every positive point is within
// BreakEvenEpsilon of zero.
func (b *Base) onZeroLine(points []decimal.Decimal) bool {
	legs := b.Legs()
	for _, p := range points {
		if !p.IsPositive() {
			continue
		}
		if models.PnLAtPrice(legs, positive.MustDecimal(p)).Abs().GreaterThan(breakEvenEpsilon) {
			return false
		}
	}
	return true
}

func (b *Base) MaxProfit() (positive.Positive, error) { return b.rules.maxProfit() }
func (b *Base) MaxLoss() (positive.Positive, error)   { return b.rules.maxLoss() }

// Strikes lists the option strikes in slot order.
func (b *Base) Strikes() []positive.Positive {
	out := make([]positive.Positive, len(b.positions))
	for i, p := range b.positions {
		out[i] = p.Option.StrikePrice
	}
	return out
}

// Expirations lists the option expirations in slot order.
func (b *Base) Expirations() []options.ExpirationDate {
	out := make([]options.ExpirationDate, len(b.positions))
	for i, p := range b.positions {
		out[i] = p.Option.Expiration
	}
	return out
}

// Sides lists the option sides in slot order.
func (b *Base) Sides() []options.Side {
	out := make([]options.Side, len(b.positions))
	for i, p := range b.positions {
		out[i] = p.Option.Side
	}
	return out
}

// Styles lists the option styles in slot order.
func (b *Base) Styles() []options.OptionStyle {
	out := make([]options.OptionStyle, len(b.positions))
	for i, p := range b.positions {
		out[i] = p.Option.Style
	}
	return out
}

// ImpliedVolatilities lists the option volatilities in slot order.
func (b *Base) ImpliedVolatilities() []positive.Positive {
	out := make([]positive.Positive, len(b.positions))
	for i, p := range b.positions {
		out[i] = p.Option.ImpliedVolatility
	}
	return out
}

// Quantities lists the size of every leg in Legs order.
func (b *Base) Quantities() []positive.Positive {
	legs := b.Legs()
	out := make([]positive.Positive, len(legs))
	for i, l := range legs {
		out[i] = l.Size()
	}
	return out
}

// RiskFreeRate is the rate of the first option leg.
func (b *Base) RiskFreeRate() decimal.Decimal {
	if len(b.positions) == 0 {
		return decimal.Zero
	}
	return b.positions[0].Option.RiskFreeRate
}

// DividendYield is the yield of the first option leg.
func (b *Base) DividendYield() positive.Positive {
	if len(b.positions) == 0 {
		return positive.Zero
	}
	return b.positions[0].Option.DividendYield
}

// SetUnderlyingPrice moves the underlying of the strategy and of every option leg.
func (b *Base) SetUnderlyingPrice(price positive.Positive) error {
	return b.mutate("set_underlying_price", func() error {
		b.underlying = price
		for _, p := range b.positions {
			p.Option.UnderlyingPrice = price
		}
		return nil
	})
}

// SetExpiration sets the expiration of every option leg.
func (b *Base) SetExpiration(e options.ExpirationDate) error {
	return b.mutate("set_expiration", func() error {
		for _, p := range b.positions {
			p.Option.Expiration = e
		}
		return nil
	})
}

// SetImpliedVolatility sets the volatility of every option leg.
func (b *Base) SetImpliedVolatility(iv positive.Positive) error {
	return b.mutate("set_implied_volatility", func() error {
		for _, p := range b.positions {
			p.Option.ImpliedVolatility = iv
		}
		return nil
	})
}

// AddPosition places p in the slot with the same style and side, choosing
// the slot whose strike is nearest when several match. Custom strategies
// append instead.
func (b *Base) AddPosition(p *models.Position) error {
	if p == nil {
		return errors.NewPositionError("add_position", "nil position")
	}
	spec, ok := registry[b.kind]
	if !ok {
		return b.mutate("add_position", func() error {
			b.positions = append(b.positions, p)
			return nil
		})
	}
	idx := -1
	var best decimal.Decimal
	for i, slot := range spec.slots {
		if slot.Style != p.Option.Style || slot.Side != p.Option.Side {
			continue
		}
		d := b.positions[i].Option.StrikePrice.Sub(p.Option.StrikePrice).Abs()
		if idx < 0 || d.LessThan(best) {
			idx, best = i, d
		}
	}
	if idx < 0 {
		return errors.NewUnsupportedError(string(b.kind), fmt.Sprintf("add_position %s %s", p.Option.Side, p.Option.Style))
	}
	return b.reshape("add_position", func() error {
		b.positions[idx] = p
		return nil
	})
}

// GetPosition returns the legs with the given style, side and strike. The
// returned pointers alias the strategy's legs.
func (b *Base) GetPosition(style options.OptionStyle, side options.Side, strike positive.Positive) ([]*models.Position, error) {
	var out []*models.Position
	for _, p := range b.positions {
		if p.Matches(style, side, strike) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(errors.ErrPositionNotFound, "%s %s at %s", side, style, strike)
	}
	return out, nil
}

// ModifyPosition replaces the leg with the same style, side and strike as p.
func (b *Base) ModifyPosition(p *models.Position) error {
	return b.modify("modify_position", p, b.reshape)
}

// ResizePosition is ModifyPosition for rebalancing: the new leg may break
// the slot ratios, as delta adjustments do.
func (b *Base) ResizePosition(p *models.Position) error {
	return b.modify("resize_position", p, b.mutate)
}

func (b *Base) modify(op string, p *models.Position, run func(string, func() error) error) error {
	for i, cur := range b.positions {
		if cur.Matches(p.Option.Style, p.Option.Side, p.Option.StrikePrice) {
			return run(op, func() error {
				b.positions[i] = p
				return nil
			})
		}
	}
	return errors.Wrapf(errors.ErrPositionNotFound, "%s %s at %s", p.Option.Side, p.Option.Style, p.Option.StrikePrice)
}

// ReplacePosition replaces the leg with the same id as p.
func (b *Base) ReplacePosition(p *models.Position) error {
	for i, cur := range b.positions {
		if cur.ID == p.ID {
			return b.reshape("replace_position", func() error {
				b.positions[i] = p
				return nil
			})
		}
	}
	return errors.Wrapf(errors.ErrPositionNotFound, "position %s", p.ID)
}

// AdjustUnderlying buys (quantity > 0) or sells (quantity < 0) the
// underlying at price. Strategies holding a spot leg resize it; custom
// strategies open one when needed.
func (b *Base) AdjustUnderlying(quantity decimal.Decimal, price positive.Positive) error {
	if quantity.IsZero() {
		return nil
	}
	for i, l := range b.linear {
		spot, ok := l.(*models.SpotPosition)
		if !ok {
			continue
		}
		return b.mutate("adjust_underlying", func() error {
			b.linear[i] = resizeSpot(spot, quantity, price)
			return nil
		})
	}
	if _, fixed := registry[b.kind]; fixed {
		return errors.NewUnsupportedError(string(b.kind), "adjust_underlying")
	}
	side := options.Long
	if quantity.IsNegative() {
		side = options.Short
	}
	return b.mutate("adjust_underlying", func() error {
		b.linear = append(b.linear, models.NewSpotPosition(b.symbol, positive.Abs(quantity), price, side,
			positive.Zero, positive.Zero))
		return nil
	})
}

// resizeSpot returns a copy of spot moved by the signed quantity. Adding in
// the direction of the holding averages the cost basis.
func resizeSpot(spot *models.SpotPosition, quantity decimal.Decimal, price positive.Positive) *models.SpotPosition {
	next := *spot
	held := spot.Quantity.Decimal().Mul(spot.Side.Sign())
	total := held.Add(quantity)
	if !total.IsZero() && total.Sign() == held.Sign() && quantity.Sign() == held.Sign() {
		cost := spot.Quantity.MulDecimal(spot.CostBasis.Decimal()).Add(quantity.Abs().Mul(price.Decimal()))
		next.CostBasis = positive.Saturating(cost.Div(total.Abs()))
	}
	if total.Sign() != 0 && total.Sign() != held.Sign() {
		next.CostBasis = price
		next.Side = spot.Side.Opposite()
	}
	next.Quantity = positive.Abs(total)
	return &next
}

// mutate applies fn, revalidates and recomputes the break-evens. The legs
// are restored when fn or the validation fails.
func (b *Base) mutate(op string, fn func() error) error {
	savedPositions := make([]*models.Position, len(b.positions))
	for i, p := range b.positions {
		savedPositions[i] = p.Clone()
	}
	savedLinear := append([]models.Leg(nil), b.linear...)
	savedUnderlying := b.underlying
	restore := func() {
		b.positions = savedPositions
		b.linear = savedLinear
		b.underlying = savedUnderlying
	}

	if err := fn(); err != nil {
		restore()
		return err
	}
	if err := b.Validate(); err != nil {
		restore()
		return errors.Wrap(err, op)
	}
	return b.UpdateBreakEvenPoints()
}

// reshape is mutate for leg edits: a fixed-shape strategy whose legs were
// in ratio must still be after fn.
func (b *Base) reshape(op string, fn func() error) error {
	inRatio := b.ratiosHold() == nil
	return b.mutate(op, func() error {
		if err := fn(); err != nil {
			return err
		}
		if !inRatio {
			return nil
		}
		return errors.Wrap(b.ratiosHold(), op)
	})
}

// normalizeBreakEvens drops non-positive points, sorts and removes points
// closer than BreakEvenEpsilon to their predecessor.
func normalizeBreakEvens(points []decimal.Decimal) []positive.Positive {
	sorted := make([]decimal.Decimal, 0, len(points))
	for _, p := range points {
		if p.IsPositive() {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	out := make([]positive.Positive, 0, len(sorted))
	for i, p := range sorted {
		if i > 0 && p.Sub(sorted[i-1]).LessThan(breakEvenEpsilon) {
			continue
		}
		out = append(out, positive.MustDecimal(p))
	}
	return out
}

// strike is the strike of option slot i.
func (b *Base) strike(i int) decimal.Decimal { return b.positions[i].Option.StrikePrice.Decimal() }

// quantity is the size of the first option slot, the base quantity of
// every formula.
func (b *Base) quantity() decimal.Decimal { return b.positions[0].Option.Quantity.Decimal() }

// debit is the net cost of the option legs; negative for a net credit.
func (b *Base) debit() decimal.Decimal {
	total := decimal.Zero
	for _, p := range b.positions {
		total = total.Add(p.NetCost())
	}
	return total
}

func (b *Base) credit() decimal.Decimal { return b.debit().Neg() }

func (b *Base) perUnit(amount decimal.Decimal) decimal.Decimal {
	q := b.quantity()
	if q.IsZero() {
		return decimal.Zero
	}
	return amount.Div(q)
}

// sameExpiration fails unless every option leg expires together.
func (b *Base) sameExpiration() error {
	for _, p := range b.positions[1:] {
		if !p.Option.Expiration.Equal(b.positions[0].Option.Expiration) {
			return errors.NewStrategyError(string(b.kind), "validate", "all legs must share one expiration")
		}
	}
	return nil
}

// ascending fails unless the slot strikes at idx are strictly increasing.
func (b *Base) ascending(idx ...int) error {
	for i := 1; i < len(idx); i++ {
		if !b.strike(idx[i-1]).LessThan(b.strike(idx[i])) {
			return errors.NewStrategyError(string(b.kind), "validate",
				fmt.Sprintf("strike %s must be below strike %s", b.strike(idx[i-1]), b.strike(idx[i])))
		}
	}
	return nil
}

// profile is the exact expiration profile of the current legs.
func (b *Base) profile() profile { return newProfile(b.Legs()) }
