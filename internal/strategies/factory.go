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

// Common holds the market inputs shared by every leg of a strategy.
type Common struct {
	Name              string
	Symbol            string
	UnderlyingPrice   positive.Positive
	Expiration        options.ExpirationDate
	ImpliedVolatility positive.Positive
	RiskFreeRate      decimal.Decimal
	DividendYield     positive.Positive
	// Quantity is the number of units of the base leg; contracts for the
	// spot-combined strategies.
	Quantity positive.Positive
}

// LegQuote is the strike, premium and fees, per unit, of one option leg.
type LegQuote struct {
	Strike   positive.Positive
	Premium  positive.Positive
	OpenFee  positive.Positive
	CloseFee positive.Positive
	// Quantity overrides the slot quantity when non-zero.
	Quantity positive.Positive
	// Expiration overrides the common expiration when set.
	Expiration *options.ExpirationDate
}

// SpotQuote describes the underlying leg of a spot-combined strategy. A
// zero Quantity means Common.Quantity x ContractSize shares.
type SpotQuote struct {
	Quantity  positive.Positive
	CostBasis positive.Positive
	OpenFee   positive.Positive
	CloseFee  positive.Positive
}

// Slot is one option leg of a fixed-shape strategy.
type Slot struct {
	Style options.OptionStyle
	Side  options.Side
	// Ratio is the leg size as a multiple of the base quantity.
	Ratio int64
}

type kindSpec struct {
	description string
	slots       []Slot
	spot        bool
	// freeRatio kinds accept any leg sizes.
	freeRatio bool
	wrap      func(Base) shaped
}

var (
	longCall  = Slot{Style: options.Call, Side: options.Long, Ratio: 1}
	shortCall = Slot{Style: options.Call, Side: options.Short, Ratio: 1}
	longPut   = Slot{Style: options.Put, Side: options.Long, Ratio: 1}
	shortPut  = Slot{Style: options.Put, Side: options.Short, Ratio: 1}
)

func twice(s Slot) Slot {
	s.Ratio = 2
	return s
}

// registry maps every fixed-shape kind to its slots, lowest strike first.
var registry = map[Kind]kindSpec{
	KindBullCallSpread: {
		description: "Buys a call and sells a higher-strike call: limited profit from a moderate rise.",
		slots:       []Slot{longCall, shortCall},
		wrap:        func(b Base) shaped { return &BullCallSpread{vertical{b}} },
	},
	KindBearCallSpread: {
		description: "Sells a call and buys a higher-strike call for a credit: profits if the underlying stays below the short strike.",
		slots:       []Slot{shortCall, longCall},
		wrap:        func(b Base) shaped { return &BearCallSpread{vertical{b}} },
	},
	KindBullPutSpread: {
		description: "Buys a put and sells a higher-strike put for a credit: profits if the underlying stays above the short strike.",
		slots:       []Slot{longPut, shortPut},
		wrap:        func(b Base) shaped { return &BullPutSpread{vertical{b}} },
	},
	KindBearPutSpread: {
		description: "Sells a put and buys a higher-strike put: limited profit from a moderate fall.",
		slots:       []Slot{shortPut, longPut},
		wrap:        func(b Base) shaped { return &BearPutSpread{vertical{b}} },
	},
	KindLongButterflySpread: {
		description: "Buys the wings and sells twice the body: profits when the underlying pins the middle strike.",
		slots:       []Slot{longCall, twice(shortCall), longCall},
		wrap:        func(b Base) shaped { return &LongButterflySpread{butterfly{b}} },
	},
	KindShortButterflySpread: {
		description: "Sells the wings and buys twice the body: profits when the underlying moves away from the middle strike.",
		slots:       []Slot{shortCall, twice(longCall), shortCall},
		wrap:        func(b Base) shaped { return &ShortButterflySpread{butterfly{b}} },
	},
	KindIronCondor: {
		description: "Sells an out-of-the-money put spread and call spread: profits while the underlying stays between the short strikes.",
		slots:       []Slot{longPut, shortPut, shortCall, longCall},
		wrap:        func(b Base) shaped { return &IronCondor{b} },
	},
	KindIronButterfly: {
		description: "Sells a straddle and buys protective wings: profits when the underlying pins the body strike.",
		slots:       []Slot{longPut, shortPut, shortCall, longCall},
		wrap:        func(b Base) shaped { return &IronButterfly{b} },
	},
	KindLongStraddle: {
		description: "Buys a call and a put at one strike: profits from a large move either way.",
		slots:       []Slot{longCall, longPut},
		wrap:        func(b Base) shaped { return &LongStraddle{straddle{b}} },
	},
	KindShortStraddle: {
		description: "Sells a call and a put at one strike: profits while the underlying stays near the strike.",
		slots:       []Slot{shortCall, shortPut},
		wrap:        func(b Base) shaped { return &ShortStraddle{straddle{b}} },
	},
	KindLongStrangle: {
		description: "Buys an out-of-the-money put and call: profits from a large move either way.",
		slots:       []Slot{longPut, longCall},
		wrap:        func(b Base) shaped { return &LongStrangle{strangle{b}} },
	},
	KindShortStrangle: {
		description: "Sells an out-of-the-money put and call: profits while the underlying stays between the strikes.",
		slots:       []Slot{shortPut, shortCall},
		wrap:        func(b Base) shaped { return &ShortStrangle{strangle{b}} },
	},
	KindCoveredCall: {
		description: "Holds the underlying and sells a call against it for income.",
		slots:       []Slot{shortCall},
		spot:        true,
		wrap:        func(b Base) shaped { return &CoveredCall{b} },
	},
	KindProtectivePut: {
		description: "Holds the underlying and buys a put as insurance.",
		slots:       []Slot{longPut},
		spot:        true,
		wrap:        func(b Base) shaped { return &ProtectivePut{b} },
	},
	KindCollar: {
		description: "Holds the underlying, buys a put and finances it with a short call.",
		slots:       []Slot{longPut, shortCall},
		spot:        true,
		wrap:        func(b Base) shaped { return &Collar{b} },
	},
	KindPoorMansCoveredCall: {
		description: "Buys a deep in-the-money long-dated call and sells near-term calls against it.",
		slots:       []Slot{longCall, shortCall},
		wrap:        func(b Base) shaped { return &PoorMansCoveredCall{b} },
	},
	KindCallButterfly: {
		description: "Buys a low-strike call, sells middle-strike calls and buys a high-strike call in configured ratios.",
		slots:       []Slot{longCall, shortCall, longCall},
		freeRatio:   true,
		wrap:        func(b Base) shaped { return &CallButterfly{b} },
	},
	KindLongCall: {
		description: "Buys a call.",
		slots:       []Slot{longCall},
		wrap:        func(b Base) shaped { return &LongCall{single{b}} },
	},
	KindShortCall: {
		description: "Sells a call.",
		slots:       []Slot{shortCall},
		wrap:        func(b Base) shaped { return &ShortCall{single{b}} },
	},
	KindLongPut: {
		description: "Buys a put.",
		slots:       []Slot{longPut},
		wrap:        func(b Base) shaped { return &LongPut{single{b}} },
	},
	KindShortPut: {
		description: "Sells a put.",
		slots:       []Slot{shortPut},
		wrap:        func(b Base) shaped { return &ShortPut{single{b}} },
	},
}

// Kinds lists every kind the factory builds, Custom last.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry)+1)
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return append(out, KindCustom)
}

// ParseKind resolves a kind by name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := registry[k]; ok || k == KindCustom {
		return k, nil
	}
	return "", errors.NewValidationError("kind", name, "unknown strategy")
}

// Shape returns the option slots of kind, lowest strike first, and whether
// it holds the underlying.
func Shape(kind Kind) ([]Slot, bool, error) {
	spec, ok := registry[kind]
	if !ok {
		return nil, false, errors.NewUnsupportedError(string(kind), "shape")
	}
	return append([]Slot(nil), spec.slots...), spec.spot, nil
}

// Params are the inputs of New. Legs follow the kind's slot order; Spot is
// required by the spot-combined kinds and Positions by Custom.
type Params struct {
	Common
	Legs      []LegQuote
	Spot      *SpotQuote
	Positions []models.Leg
}

// New builds a strategy of kind.
func New(kind Kind, p Params) (Strategy, error) {
	if kind == KindCustom {
		return NewCustom(p.Name, p.Symbol, p.UnderlyingPrice, p.Positions...)
	}
	return build(kind, p.Common, p.Spot, p.Legs...)
}

// build creates the legs of kind from quotes, checks the size ratios and
// assembles the strategy.
func build(kind Kind, c Common, spot *SpotQuote, quotes ...LegQuote) (shaped, error) {
	spec, ok := registry[kind]
	if !ok {
		return nil, errors.NewUnsupportedError(string(kind), "build")
	}
	if len(quotes) != len(spec.slots) {
		return nil, errors.NewStrategyError(string(kind), "build",
			fmt.Sprintf("expected %d option legs, got %d", len(spec.slots), len(quotes)))
	}
	if c.Quantity.IsZero() {
		return nil, errors.NewValidationError("quantity", c.Quantity, "must be greater than zero")
	}

	unit := c.Quantity
	if spec.spot {
		unit = c.Quantity.Mul(positive.MustDecimal(decimal.NewFromInt(ContractSize)))
	}
	var legs []models.Leg
	if spec.spot {
		if spot == nil {
			return nil, errors.NewStrategyError(string(kind), "build", "a spot leg is required")
		}
		shares := spot.Quantity
		if shares.IsZero() {
			shares = unit
		}
		legs = append(legs, models.NewSpotPosition(c.Symbol, shares, spot.CostBasis, options.Long, spot.OpenFee, spot.CloseFee))
	}
	for i, slot := range spec.slots {
		q := quotes[i]
		qty := unit.Mul(positive.MustDecimal(decimal.NewFromInt(slot.Ratio)))
		if !q.Quantity.IsZero() {
			qty = q.Quantity
		}
		expiration := c.Expiration
		if q.Expiration != nil {
			expiration = *q.Expiration
		}
		opt := options.NewEuropean(slot.Side, slot.Style, c.Symbol, c.UnderlyingPrice, q.Strike, expiration,
			c.ImpliedVolatility, qty, c.RiskFreeRate, c.DividendYield)
		legs = append(legs, models.NewPosition(*opt, q.Premium, q.OpenFee, q.CloseFee))
	}

	s, err := assemble(kind, c.Symbol, c.UnderlyingPrice, legs)
	if err != nil {
		return nil, err
	}
	if c.Name != "" {
		s.base().name = c.Name
	}
	if err := s.base().ratiosHold(); err != nil {
		return nil, err
	}
	return s, nil
}

// ratiosHold applies the size rules of b's kind; custom and free-ratio
// kinds always pass.
func (b *Base) ratiosHold() error {
	spec, ok := registry[b.kind]
	if !ok || spec.freeRatio || len(b.positions) != len(spec.slots) {
		return nil
	}
	if spec.spot && len(b.linear) == 0 {
		return nil
	}
	return checkRatios(b, spec)
}

// checkRatios enforces the construction-time size rules: every option leg
// is its slot ratio times the base quantity, and the shares of a
// spot-combined strategy are a whole multiple of the option quantity.
func checkRatios(b *Base, spec kindSpec) error {
	base := b.positions[0].Option.Quantity.Decimal().Div(decimal.NewFromInt(spec.slots[0].Ratio))
	for i, slot := range spec.slots {
		want := base.Mul(decimal.NewFromInt(slot.Ratio))
		if got := b.positions[i].Option.Quantity.Decimal(); !got.Equal(want) {
			return errors.NewStrategyError(string(b.kind), "validate",
				fmt.Sprintf("leg %d quantity %s must be %d x %s", i, got, slot.Ratio, base))
		}
	}
	if spec.spot {
		shares := b.linear[0].Size().Decimal()
		if base.IsZero() || !shares.Mod(base).IsZero() {
			return errors.NewStrategyError(string(b.kind), "validate",
				fmt.Sprintf("share quantity %s must be a multiple of the option quantity %s", shares, base))
		}
	}
	return nil
}

// Assemble builds a strategy of kind from existing legs. Option legs are
// matched to the kind's slots by style and side, lowest strike first; the
// size ratios are not enforced so adjusted strategies can be rebuilt.
func Assemble(kind Kind, symbol string, underlying positive.Positive, legs []models.Leg) (Strategy, error) {
	if kind == KindCustom {
		return NewCustom("", symbol, underlying, legs...)
	}
	return assemble(kind, symbol, underlying, legs)
}

func assemble(kind Kind, symbol string, underlying positive.Positive, legs []models.Leg) (shaped, error) {
	spec, ok := registry[kind]
	if !ok {
		return nil, errors.NewUnsupportedError(string(kind), "assemble")
	}
	var opts []*models.Position
	var linear []models.Leg
	for _, l := range legs {
		if p, ok := l.(*models.Position); ok {
			opts = append(opts, p)
			continue
		}
		linear = append(linear, l)
	}
	if len(opts) != len(spec.slots) {
		return nil, errors.NewStrategyError(string(kind), "assemble",
			fmt.Sprintf("expected %d option legs, got %d", len(spec.slots), len(opts)))
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Option.StrikePrice.LessThan(opts[j].Option.StrikePrice) })

	slotted := make([]*models.Position, len(spec.slots))
	used := make([]bool, len(opts))
	for i, slot := range spec.slots {
		for j, p := range opts {
			if !used[j] && p.Option.Style == slot.Style && p.Option.Side == slot.Side {
				slotted[i], used[j] = p, true
				break
			}
		}
		if slotted[i] == nil {
			return nil, errors.NewStrategyError(string(kind), "assemble",
				fmt.Sprintf("no %s %s leg for slot %d", slot.Side, slot.Style, i))
		}
	}

	s := spec.wrap(Base{
		name:        symbol,
		kind:        kind,
		description: spec.description,
		symbol:      symbol,
		underlying:  underlying,
		positions:   slotted,
		linear:      linear,
	})
	s.base().rules = s
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.UpdateBreakEvenPoints(); err != nil {
		return nil, err
	}
	return s, nil
}
