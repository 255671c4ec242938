package deltaneutral

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"optionstrat/internal/errors"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
)

// ActionKind names a step of an adjustment plan.
type ActionKind string

const (
	ModifyQuantity ActionKind = "ModifyQuantity"
	AddLeg         ActionKind = "AddLeg"
	CloseLeg       ActionKind = "CloseLeg"
	AddUnderlying  ActionKind = "AddUnderlying"
)

// AdjustmentAction is one step of a plan. Leg indexes refer to the legs the
// optimizer was given.
type AdjustmentAction struct {
	Kind        ActionKind
	Leg         int
	NewQuantity positive.Positive
	// Option is the contract opened by AddLeg; its Side and Quantity are
	// authoritative.
	Option *options.Options
	// Premium is the per-unit price of an AddLeg contract.
	Premium positive.Positive
	// Quantity is the signed share amount of AddUnderlying.
	Quantity decimal.Decimal
}

func NewModifyQuantity(leg int, quantity positive.Positive) AdjustmentAction {
	return AdjustmentAction{Kind: ModifyQuantity, Leg: leg, NewQuantity: quantity}
}

func NewCloseLeg(leg int) AdjustmentAction {
	return AdjustmentAction{Kind: CloseLeg, Leg: leg}
}

func NewAddLeg(option *options.Options, premium positive.Positive) AdjustmentAction {
	return AdjustmentAction{Kind: AddLeg, Option: option, Premium: premium}
}

func NewAddUnderlying(quantity decimal.Decimal) AdjustmentAction {
	return AdjustmentAction{Kind: AddUnderlying, Quantity: quantity}
}

func (a AdjustmentAction) String() string {
	switch a.Kind {
	case ModifyQuantity:
		return fmt.Sprintf("modify leg %d to %s", a.Leg, a.NewQuantity.Round(4))
	case CloseLeg:
		return fmt.Sprintf("close leg %d", a.Leg)
	case AddLeg:
		return fmt.Sprintf("add %s %s %s @ %s for %s", a.Option.Side, a.Option.Quantity.Round(4),
			a.Option.Style, a.Option.StrikePrice, a.Premium)
	case AddUnderlying:
		return fmt.Sprintf("trade %s shares", a.Quantity.StringFixed(4))
	}
	return string(a.Kind)
}

type modifyJSON struct {
	Leg         int               `json:"leg"`
	NewQuantity positive.Positive `json:"new_quantity"`
}

type addLegJSON struct {
	Option   options.Options   `json:"option"`
	Side     options.Side      `json:"side"`
	Quantity positive.Positive `json:"quantity"`
	Premium  positive.Positive `json:"premium"`
}

type closeJSON struct {
	Leg int `json:"leg"`
}

type underlyingJSON struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// MarshalJSON encodes the action as {"<Kind>": body}.
func (a AdjustmentAction) MarshalJSON() ([]byte, error) {
	var body interface{}
	switch a.Kind {
	case ModifyQuantity:
		body = modifyJSON{Leg: a.Leg, NewQuantity: a.NewQuantity}
	case CloseLeg:
		body = closeJSON{Leg: a.Leg}
	case AddLeg:
		if a.Option == nil {
			return nil, errors.NewValidationError("option", nil, "add leg requires an option")
		}
		body = addLegJSON{Option: *a.Option, Side: a.Option.Side, Quantity: a.Option.Quantity, Premium: a.Premium}
	case AddUnderlying:
		body = underlyingJSON{Quantity: a.Quantity}
	default:
		return nil, errors.NewValidationError("kind", a.Kind, "unknown action")
	}
	return json.Marshal(map[ActionKind]interface{}{a.Kind: body})
}

func (a *AdjustmentAction) UnmarshalJSON(data []byte) error {
	var tagged map[ActionKind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return errors.NewValidationError("action", string(data), "expected exactly one variant")
	}
	for kind, raw := range tagged {
		*a = AdjustmentAction{Kind: kind}
		switch kind {
		case ModifyQuantity:
			var body modifyJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			a.Leg, a.NewQuantity = body.Leg, body.NewQuantity
		case CloseLeg:
			var body closeJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			a.Leg = body.Leg
		case AddLeg:
			var body addLegJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			opt := body.Option
			opt.Side, opt.Quantity = body.Side, body.Quantity
			a.Option, a.Premium = &opt, body.Premium
		case AddUnderlying:
			var body underlyingJSON
			if err := json.Unmarshal(raw, &body); err != nil {
				return err
			}
			a.Quantity = body.Quantity
		default:
			return errors.NewValidationError("kind", string(kind), "unknown action")
		}
	}
	return nil
}

// StrikeRange bounds the strikes of new legs, inclusive.
type StrikeRange struct {
	Min positive.Positive `json:"min" mapstructure:"min"`
	Max positive.Positive `json:"max" mapstructure:"max"`
}

func (r *StrikeRange) Contains(strike positive.Positive) bool {
	if r == nil {
		return true
	}
	return !strike.LessThan(r.Min) && !strike.GreaterThan(r.Max)
}

// AdjustmentConfig constrains what the optimizer may do.
type AdjustmentConfig struct {
	CanBuyOptions      bool
	CanSellOptions     bool
	CanTradeUnderlying bool
	CanAddNewLegs      bool
	// MaxNewLegCost caps the premium paid for any single new leg.
	MaxNewLegCost    *positive.Positive
	MaxTradesPerPlan int
	MaxNewLegs       int
	StrikeRange      *StrikeRange
	AllowedStyles    []options.OptionStyle
	// MinOpenInterest skips chain rows with less open interest.
	MinOpenInterest    uint64
	DeltaTolerance     decimal.Decimal
	PreferExistingLegs bool
}

// DefaultAdjustmentConfig trades options on existing and up to two new legs.
func DefaultAdjustmentConfig() AdjustmentConfig {
	return AdjustmentConfig{
		CanBuyOptions:      true,
		CanSellOptions:     true,
		CanAddNewLegs:      true,
		MaxTradesPerPlan:   3,
		MaxNewLegs:         2,
		AllowedStyles:      []options.OptionStyle{options.Call, options.Put},
		DeltaTolerance:     decimal.NewFromFloat(0.01),
		PreferExistingLegs: true,
	}
}

// ExistingLegsOnly only resizes or closes the legs already held.
func ExistingLegsOnly() AdjustmentConfig {
	c := DefaultAdjustmentConfig()
	c.CanAddNewLegs = false
	c.CanTradeUnderlying = false
	return c
}

// WithUnderlying also allows hedging with the underlying.
func WithUnderlying() AdjustmentConfig {
	c := DefaultAdjustmentConfig()
	c.CanTradeUnderlying = true
	return c
}

// Aggressive allows everything and up to four new legs.
func Aggressive() AdjustmentConfig {
	c := DefaultAdjustmentConfig()
	c.CanTradeUnderlying = true
	c.MaxNewLegs = 4
	c.MaxTradesPerPlan = 4
	c.PreferExistingLegs = false
	return c
}

func (c AdjustmentConfig) WithMaxCost(cost positive.Positive) AdjustmentConfig {
	c.MaxNewLegCost = &cost
	return c
}

func (c AdjustmentConfig) WithDeltaTolerance(tol decimal.Decimal) AdjustmentConfig {
	c.DeltaTolerance = tol
	return c
}

// Validate rejects configurations under which no plan can exist.
func (c AdjustmentConfig) Validate() error {
	violation := func(reason string) error {
		return errors.NewAdjustmentError(errors.AdjustmentConfigurationViolation, reason, errors.ErrConfigInvalid)
	}
	if c.MaxTradesPerPlan < 1 {
		return violation("max trades per plan must be at least 1")
	}
	if c.DeltaTolerance.IsNegative() {
		return violation("delta tolerance must not be negative")
	}
	if c.MaxNewLegs < 0 {
		return violation("max new legs must not be negative")
	}
	if c.StrikeRange != nil && c.StrikeRange.Min.GreaterThan(c.StrikeRange.Max) {
		return violation("strike range min exceeds max")
	}
	if !c.CanBuyOptions && !c.CanSellOptions && !c.CanTradeUnderlying {
		return violation("no trade is allowed")
	}
	return nil
}

func (c AdjustmentConfig) allowsStyle(style options.OptionStyle) bool {
	if len(c.AllowedStyles) == 0 {
		return true
	}
	for _, s := range c.AllowedStyles {
		if s == style {
			return true
		}
	}
	return false
}

// AdjustmentPlan is an ordered set of actions and what they achieve.
type AdjustmentPlan struct {
	Actions []AdjustmentAction `json:"actions"`
	// EstimatedCost is the cash paid, negative when the plan collects.
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`
	ResultingGreeks PortfolioGreeks `json:"resulting_greeks"`
	ResidualDelta   decimal.Decimal `json:"residual_delta"`
	QualityScore    decimal.Decimal `json:"quality_score"`
}

var costWeight = decimal.NewFromFloat(0.01)

func newPlan(actions []AdjustmentAction, cost decimal.Decimal, greeks PortfolioGreeks, target AdjustmentTarget) AdjustmentPlan {
	residual := target.DeltaGap(greeks).Neg()
	return AdjustmentPlan{
		Actions:         actions,
		EstimatedCost:   cost,
		ResultingGreeks: greeks,
		ResidualDelta:   residual,
		QualityScore:    residual.Abs().Add(cost.Abs().Mul(costWeight)),
	}
}

// NewLegs counts the AddLeg actions.
func (p AdjustmentPlan) NewLegs() int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == AddLeg {
			n++
		}
	}
	return n
}

func (p AdjustmentPlan) String() string {
	if len(p.Actions) == 0 {
		return "no adjustment needed"
	}
	parts := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s (cost %s, residual delta %s)", strings.Join(parts, "; "),
		p.EstimatedCost.StringFixed(2), p.ResidualDelta.StringFixed(4))
}
