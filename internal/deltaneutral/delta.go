// Package deltaneutral measures the delta of a strategy, proposes the leg
// changes that neutralise it and searches multi-step adjustment plans.
package deltaneutral

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/logging"
	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// DeltaThreshold is the largest absolute net delta considered neutral.
const DeltaThreshold = 1e-4

var threshold = decimal.NewFromFloat(DeltaThreshold)

// Adjustable is a strategy whose legs can be changed.
type Adjustable interface {
	strategies.Strategy
	strategies.Positionable
}

// PositionDeltaInfo is the delta contribution of one leg.
type PositionDeltaInfo struct {
	Kind          models.LegKind      `json:"kind"`
	Delta         decimal.Decimal     `json:"delta"`
	ContractDelta decimal.Decimal     `json:"contract_delta"`
	Strike        positive.Positive   `json:"strike"`
	Style         options.OptionStyle `json:"option_style,omitempty"`
	Side          options.Side        `json:"side"`
	Quantity      positive.Positive   `json:"quantity"`
}

// DeltaInfo is the delta report of a strategy.
type DeltaInfo struct {
	NetDelta         decimal.Decimal     `json:"net_delta"`
	IndividualDeltas []PositionDeltaInfo `json:"individual_deltas"`
	IsNeutral        bool                `json:"is_neutral"`
	Threshold        decimal.Decimal     `json:"threshold"`
	UnderlyingPrice  positive.Positive   `json:"underlying_price"`
}

func (d DeltaInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Net delta: %s (neutral: %t, threshold %s, underlying %s)\n",
		d.NetDelta.StringFixed(4), d.IsNeutral, d.Threshold, d.UnderlyingPrice)
	for _, p := range d.IndividualDeltas {
		if p.Kind == models.LegOption {
			fmt.Fprintf(&sb, "  %s %s %s x%s: %s\n", p.Side, p.Style, p.Strike, p.Quantity, p.Delta.StringFixed(4))
			continue
		}
		fmt.Fprintf(&sb, "  %s %s x%s: %s\n", p.Side, p.Kind, p.Quantity, p.Delta.StringFixed(4))
	}
	return sb.String()
}

// AdjustmentType names a delta adjustment.
type AdjustmentType string

const (
	BuyOptions         AdjustmentType = "BuyOptions"
	SellOptions        AdjustmentType = "SellOptions"
	BuyUnderlying      AdjustmentType = "BuyUnderlying"
	SellUnderlying     AdjustmentType = "SellUnderlying"
	NoAdjustmentNeeded AdjustmentType = "NoAdjustmentNeeded"
	SameSize           AdjustmentType = "SameSize"
)

// DeltaAdjustment is one proposed change, named by the market action that
// carries it out. BuyOptions on a long leg grows it and on a short leg
// buys contracts back; SellOptions is the mirror image. SameSize pairs two
// leg changes that keep the total contract count.
type DeltaAdjustment struct {
	Type     AdjustmentType
	Quantity positive.Positive
	Strike   positive.Positive
	Style    options.OptionStyle
	Side     options.Side
	First    *DeltaAdjustment
	Second   *DeltaAdjustment
}

func (a DeltaAdjustment) String() string {
	switch a.Type {
	case BuyOptions, SellOptions:
		return fmt.Sprintf("%s %s %s %s @ %s", a.Type, a.Quantity.Round(4), a.Side, a.Style, a.Strike)
	case BuyUnderlying, SellUnderlying:
		return fmt.Sprintf("%s %s", a.Type, a.Quantity.Round(4))
	case SameSize:
		return fmt.Sprintf("SameSize(%s; %s)", a.First, a.Second)
	}
	return string(a.Type)
}

// IsBuy reports whether the adjustment buys in the market.
func (a DeltaAdjustment) IsBuy() bool { return a.Type == BuyOptions || a.Type == BuyUnderlying }

// IsSell reports whether the adjustment sells in the market.
func (a DeltaAdjustment) IsSell() bool { return a.Type == SellOptions || a.Type == SellUnderlying }

// grows reports whether an option adjustment increases the size of its leg.
func (a DeltaAdjustment) grows() bool { return (a.Type == BuyOptions) == (a.Side == options.Long) }

type optionAdjustmentJSON struct {
	Quantity positive.Positive   `json:"quantity"`
	Strike   positive.Positive   `json:"strike"`
	Style    options.OptionStyle `json:"option_style"`
	Side     options.Side        `json:"side"`
}

type sameSizeJSON struct {
	First  DeltaAdjustment `json:"first"`
	Second DeltaAdjustment `json:"second"`
}

// MarshalJSON encodes the adjustment as {"<Type>": body}.
func (a DeltaAdjustment) MarshalJSON() ([]byte, error) {
	var body interface{}
	switch a.Type {
	case BuyOptions, SellOptions:
		body = optionAdjustmentJSON{Quantity: a.Quantity, Strike: a.Strike, Style: a.Style, Side: a.Side}
	case BuyUnderlying, SellUnderlying:
		body = a.Quantity
	case NoAdjustmentNeeded:
		body = struct{}{}
	case SameSize:
		if a.First == nil || a.Second == nil {
			return nil, errors.NewValidationError("same_size", nil, "both legs are required")
		}
		body = sameSizeJSON{First: *a.First, Second: *a.Second}
	default:
		return nil, errors.NewValidationError("type", a.Type, "unknown adjustment")
	}
	return json.Marshal(map[AdjustmentType]interface{}{a.Type: body})
}

func (a *DeltaAdjustment) UnmarshalJSON(data []byte) error {
	var tagged map[AdjustmentType]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return errors.NewValidationError("adjustment", string(data), "expected exactly one variant")
	}
	for t, raw := range tagged {
		*a = DeltaAdjustment{Type: t}
		switch t {
		case BuyOptions, SellOptions:
			var body optionAdjustmentJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			a.Quantity, a.Strike, a.Style, a.Side = body.Quantity, body.Strike, body.Style, body.Side
		case BuyUnderlying, SellUnderlying:
			if err := json.Unmarshal(raw, &a.Quantity); err != nil {
				return err
			}
		case NoAdjustmentNeeded:
		case SameSize:
			var body sameSizeJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			a.First, a.Second = &body.First, &body.Second
		default:
			return errors.NewValidationError("type", string(t), "unknown adjustment")
		}
	}
	return nil
}

// Engine computes delta reports and adjustments. The zero value logs
// nothing and uses DeltaThreshold.
type Engine struct {
	logger    zerolog.Logger
	threshold decimal.Decimal
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger, threshold: threshold}
}

// WithThreshold sets the net delta treated as neutral; non-positive values
// keep the current one.
func (e *Engine) WithThreshold(t float64) *Engine {
	if t > 0 {
		e.threshold = decimal.NewFromFloat(t)
	}
	return e
}

func (e *Engine) neutralBand() decimal.Decimal {
	if e.threshold.IsPositive() {
		return e.threshold
	}
	return threshold
}

// DeltaNeutrality reports the net delta of s and its decomposition by leg.
func (e *Engine) DeltaNeutrality(s strategies.Strategy) (DeltaInfo, error) {
	info := DeltaInfo{Threshold: e.neutralBand(), UnderlyingPrice: s.UnderlyingPrice()}
	for _, l := range s.Legs() {
		g, err := l.Greeks()
		if err != nil {
			return DeltaInfo{}, errors.Wrap(err, "delta neutrality")
		}
		pd := PositionDeltaInfo{
			Kind:          l.Kind(),
			Delta:         g.Delta,
			ContractDelta: l.Direction().Sign(),
			Side:          l.Direction(),
			Quantity:      l.Size(),
		}
		if p, ok := l.(*models.Position); ok {
			cd, err := p.ContractDelta()
			if err != nil {
				return DeltaInfo{}, errors.Wrap(err, "delta neutrality")
			}
			pd.ContractDelta = cd
			pd.Strike = p.Option.StrikePrice
			pd.Style = p.Option.Style
		}
		info.NetDelta = info.NetDelta.Add(g.Delta)
		info.IndividualDeltas = append(info.IndividualDeltas, pd)
	}
	info.IsNeutral = info.NetDelta.Abs().LessThanOrEqual(info.Threshold)
	return info, nil
}

// IsDeltaNeutral reports whether |net delta| is within DeltaThreshold.
func (e *Engine) IsDeltaNeutral(s strategies.Strategy) (bool, error) {
	info, err := e.DeltaNeutrality(s)
	if err != nil {
		return false, err
	}
	return info.IsNeutral, nil
}

// DeltaAdjustments returns the preferred proposals that neutralise s:
// growing a leg whose delta opposes the net delta, or trading the
// underlying. When no such leg exists it falls back to shrinking a leg
// that contributes to the net delta, and then to a SameSize pair.
func (e *Engine) DeltaAdjustments(s strategies.Strategy) ([]DeltaAdjustment, error) {
	tiers, err := e.proposals(s)
	if err != nil {
		return nil, err
	}
	for _, tier := range tiers {
		if len(tier) > 0 {
			return tier, nil
		}
	}
	return nil, nil
}

// Candidates returns every proposal DeltaAdjustments considers, most
// preferred first.
func (e *Engine) Candidates(s strategies.Strategy) ([]DeltaAdjustment, error) {
	tiers, err := e.proposals(s)
	if err != nil {
		return nil, err
	}
	var out []DeltaAdjustment
	for _, tier := range tiers {
		out = append(out, tier...)
	}
	return out, nil
}

const (
	tierGrow = iota
	tierShrink
	tierPair
	tierCount
)

// proposals computes, for every leg, the size change that alone
// neutralises s, grouped by preference. Legs that cannot help are logged
// and left out.
func (e *Engine) proposals(s strategies.Strategy) ([tierCount][]DeltaAdjustment, error) {
	var tiers [tierCount][]DeltaAdjustment
	info, err := e.DeltaNeutrality(s)
	if err != nil {
		return tiers, err
	}
	if info.IsNeutral {
		tiers[tierGrow] = []DeltaAdjustment{{Type: NoAdjustmentNeeded}}
		return tiers, nil
	}
	net := info.NetDelta
	minDelta := info.Threshold.Div(decimal.NewFromInt(10))

	hedged := false
	for _, leg := range info.IndividualDeltas {
		if leg.Kind != models.LegOption {
			// futures and perpetuals are hedged through the underlying too
			if leg.Kind != models.LegSpot {
				e.logger.Debug().Str("leg", string(leg.Kind)).Str("side", string(leg.Side)).
					Msg("Delta-one leg hedged with the underlying")
			}
			if !hedged {
				adj := underlyingAdjustment(net)
				logging.LogAdjustment(e.logger, adj.String(), net.InexactFloat64())
				tiers[tierGrow] = append(tiers[tierGrow], adj)
				hedged = true
			}
			continue
		}
		adj, err := legAdjustment(leg, net, minDelta)
		if err != nil {
			logging.LogDroppedAdjustment(e.logger, legName(leg), err)
			continue
		}
		logging.LogAdjustment(e.logger, adj.String(), net.InexactFloat64())
		if adj.grows() {
			tiers[tierGrow] = append(tiers[tierGrow], adj)
		} else {
			tiers[tierShrink] = append(tiers[tierShrink], adj)
		}
	}

	if adj, ok := e.sameSize(info); ok {
		logging.LogAdjustment(e.logger, adj.String(), net.InexactFloat64())
		tiers[tierPair] = append(tiers[tierPair], adj)
	}
	return tiers, nil
}

func legName(p PositionDeltaInfo) string {
	return fmt.Sprintf("%s %s %s", p.Side, p.Style, p.Strike)
}

// underlyingAdjustment trades |net| shares against the sign of net.
func underlyingAdjustment(net decimal.Decimal) DeltaAdjustment {
	if net.IsPositive() {
		return DeltaAdjustment{Type: SellUnderlying, Quantity: positive.Abs(net)}
	}
	return DeltaAdjustment{Type: BuyUnderlying, Quantity: positive.Abs(net)}
}

// legAdjustment shrinks a leg whose contract delta has the sign of net and
// grows one whose contract delta opposes it.
func legAdjustment(leg PositionDeltaInfo, net, minDelta decimal.Decimal) (DeltaAdjustment, error) {
	delta := leg.ContractDelta
	if delta.Abs().LessThan(minDelta) {
		return DeltaAdjustment{}, errors.NewPositionError("delta_adjustment", "contract delta is too small to move the portfolio")
	}
	needed := positive.Abs(net.Div(delta))
	shrink := net.Sign() == delta.Sign()
	if shrink && !leg.Quantity.GreaterThan(needed) {
		return DeltaAdjustment{}, errors.NewInsufficientContractsError(legName(leg),
			leg.Quantity.String(), needed.Round(4).String())
	}
	return legChange(leg, needed, !shrink), nil
}

// legChange names a resize of leg by the market action it takes.
func legChange(leg PositionDeltaInfo, qty positive.Positive, grow bool) DeltaAdjustment {
	adj := DeltaAdjustment{Type: SellOptions, Quantity: qty, Strike: leg.Strike, Style: leg.Style, Side: leg.Side}
	if grow == (leg.Side == options.Long) {
		adj.Type = BuyOptions
	}
	return adj
}

// sameSize solves d1*x1 + d2*x2 = 0 with x1 + x2 = q1 + q2 for strategies
// made of exactly two option legs.
func (e *Engine) sameSize(info DeltaInfo) (DeltaAdjustment, bool) {
	if len(info.IndividualDeltas) != 2 {
		return DeltaAdjustment{}, false
	}
	a, b := info.IndividualDeltas[0], info.IndividualDeltas[1]
	if a.Kind != models.LegOption || b.Kind != models.LegOption {
		return DeltaAdjustment{}, false
	}
	d1, d2 := a.ContractDelta, b.ContractDelta
	if d1.Equal(d2) {
		logging.LogDroppedAdjustment(e.logger, "same_size", errors.NewPositionError("same_size", "legs have equal deltas"))
		return DeltaAdjustment{}, false
	}
	total := a.Quantity.Decimal().Add(b.Quantity.Decimal())
	x1 := total.Mul(d2).Div(d2.Sub(d1))
	x2 := total.Sub(x1)
	if x1.IsNegative() || x2.IsNegative() {
		logging.LogDroppedAdjustment(e.logger, "same_size", errors.NewPositionError("same_size", "no non-negative solution"))
		return DeltaAdjustment{}, false
	}
	first := resize(a, x1.Sub(a.Quantity.Decimal()))
	second := resize(b, x2.Sub(b.Quantity.Decimal()))
	return DeltaAdjustment{Type: SameSize, First: &first, Second: &second}, true
}

func resize(leg PositionDeltaInfo, diff decimal.Decimal) DeltaAdjustment {
	if diff.IsZero() {
		return DeltaAdjustment{Type: NoAdjustmentNeeded}
	}
	return legChange(leg, positive.Abs(diff), diff.IsPositive())
}

// ApplyFilter restricts which proposal ApplyDeltaAdjustments may use.
type ApplyFilter int

const (
	ApplyAny ApplyFilter = iota
	ApplyBuyOnly
	ApplySellOnly
	ApplySameSize
)

func (f ApplyFilter) allows(a DeltaAdjustment) bool {
	switch f {
	case ApplyBuyOnly:
		return a.IsBuy()
	case ApplySellOnly:
		return a.IsSell()
	case ApplySameSize:
		return a.Type == SameSize
	}
	return a.Type != NoAdjustmentNeeded
}

// ParseApplyFilter maps "any", "buy", "sell" and "same-size" to a filter.
func ParseApplyFilter(s string) (ApplyFilter, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return ApplyAny, nil
	case "buy":
		return ApplyBuyOnly, nil
	case "sell":
		return ApplySellOnly, nil
	case "same-size", "samesize", "same_size":
		return ApplySameSize, nil
	}
	return ApplyAny, errors.NewValidationError("filter", s, "expected any, buy, sell or same-size")
}

// ApplyDeltaAdjustments applies the most preferred candidate allowed by
// filter that the strategy accepts and returns it. A neutral strategy is
// left alone.
func (e *Engine) ApplyDeltaAdjustments(s Adjustable, filter ApplyFilter) (DeltaAdjustment, error) {
	proposals, err := e.Candidates(s)
	if err != nil {
		return DeltaAdjustment{}, err
	}
	if len(proposals) == 1 && proposals[0].Type == NoAdjustmentNeeded {
		return proposals[0], nil
	}
	var last error
	for _, adj := range proposals {
		if !filter.allows(adj) {
			continue
		}
		if err := e.apply(s, adj); err != nil {
			logging.LogDroppedAdjustment(e.logger, adj.String(), err)
			last = err
			continue
		}
		return adj, nil
	}
	return DeltaAdjustment{}, errors.NewAdjustmentError(errors.AdjustmentNoViablePlan,
		"no proposed adjustment could be applied", last)
}

// ApplyDeltaAdjustment applies one adjustment to s.
func (e *Engine) ApplyDeltaAdjustment(s Adjustable, adj DeltaAdjustment) error {
	return e.apply(s, adj)
}

func (e *Engine) apply(s Adjustable, adj DeltaAdjustment) error {
	switch adj.Type {
	case NoAdjustmentNeeded:
		return nil
	case BuyUnderlying:
		return s.AdjustUnderlying(adj.Quantity.Decimal(), s.UnderlyingPrice())
	case SellUnderlying:
		return s.AdjustUnderlying(adj.Quantity.Decimal().Neg(), s.UnderlyingPrice())
	case BuyOptions, SellOptions:
		p, err := findLeg(s, adj)
		if err != nil {
			return err
		}
		next, err := resized(p, adj)
		if err != nil {
			return err
		}
		return s.ResizePosition(next)
	case SameSize:
		if adj.First == nil || adj.Second == nil {
			return errors.NewPositionError("same_size", "both legs are required")
		}
		if adj.First.Type == SameSize || adj.Second.Type == SameSize {
			e.logger.Debug().Str("adjustment", adj.String()).Msg("Nested same-size adjustment ignored")
			return nil
		}
		var saved *models.Position
		if adj.First.Type == BuyOptions || adj.First.Type == SellOptions {
			p, err := findLeg(s, *adj.First)
			if err != nil {
				return err
			}
			saved = p.Clone()
		}
		if err := e.apply(s, *adj.First); err != nil {
			return err
		}
		if err := e.apply(s, *adj.Second); err != nil {
			if saved != nil {
				if rerr := s.ResizePosition(saved); rerr != nil {
					return errors.Wrap(rerr, "restore after failed same-size adjustment")
				}
			}
			return err
		}
		return nil
	}
	return errors.NewValidationError("type", adj.Type, "unknown adjustment")
}

func findLeg(s Adjustable, adj DeltaAdjustment) (*models.Position, error) {
	found, err := s.GetPosition(adj.Style, adj.Side, adj.Strike)
	if err != nil {
		return nil, err
	}
	return found[0], nil
}

// resized returns a copy of p with the quantity moved by adj.
func resized(p *models.Position, adj DeltaAdjustment) (*models.Position, error) {
	next := p.Clone()
	if adj.grows() {
		next.Option.Quantity = p.Option.Quantity.Add(adj.Quantity)
		return next, nil
	}
	if !p.Option.Quantity.GreaterThan(adj.Quantity) {
		return nil, errors.NewInsufficientContractsError(p.String(), p.Option.Quantity.String(), adj.Quantity.String())
	}
	next.Option.Quantity = p.Option.Quantity.SubSat(adj.Quantity)
	return next, nil
}

// TradesFromDeltaAdjustment returns the market trades that carry out adj
// without changing s. Underlying adjustments produce no option trades.
func (e *Engine) TradesFromDeltaAdjustment(s Adjustable, adj DeltaAdjustment) ([]models.Trade, error) {
	switch adj.Type {
	case NoAdjustmentNeeded, BuyUnderlying, SellUnderlying:
		return nil, nil
	case SameSize:
		if adj.First == nil || adj.Second == nil {
			return nil, errors.NewPositionError("same_size", "both legs are required")
		}
		first, err := e.TradesFromDeltaAdjustment(s, *adj.First)
		if err != nil {
			return nil, err
		}
		second, err := e.TradesFromDeltaAdjustment(s, *adj.Second)
		if err != nil {
			return nil, err
		}
		return append(first, second...), nil
	case BuyOptions, SellOptions:
		p, err := findLeg(s, adj)
		if err != nil {
			return nil, err
		}
		if _, err := resized(p, adj); err != nil {
			return nil, err
		}
		action := models.ActionSell
		if adj.Type == BuyOptions {
			action = models.ActionBuy
		}
		t := models.NewAdjustmentTrade(p, action, adj.Quantity)
		logging.LogTrade(e.logger, s.Symbol(), string(action), string(p.Option.Side), string(p.Option.Style),
			adj.Quantity.Float64(), p.Option.StrikePrice.Float64())
		return []models.Trade{t}, nil
	}
	return nil, errors.NewValidationError("type", adj.Type, "unknown adjustment")
}
