package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"optionstrat/internal/models"
	"optionstrat/internal/options"
	"optionstrat/internal/positive"
	"optionstrat/internal/strategies"
)

// Definition is the on-disk description of a strategy. YAML and JSON are
// both accepted.
type Definition struct {
	Kind              string          `yaml:"kind"`
	Name              string          `yaml:"name"`
	Symbol            string          `yaml:"symbol"`
	UnderlyingPrice   float64         `yaml:"underlying_price"`
	Days              float64         `yaml:"days"`
	ImpliedVolatility float64         `yaml:"implied_volatility"`
	RiskFreeRate      float64         `yaml:"risk_free_rate"`
	DividendYield     float64         `yaml:"dividend_yield"`
	Quantity          float64         `yaml:"quantity"`
	Spot              *SpotDefinition `yaml:"spot"`
	Legs              []LegDefinition `yaml:"legs"`
}

// LegDefinition is one option leg. Style and side are only read for
// custom strategies; named kinds take them from their shape. A non-zero
// ImpliedVolatility overrides the strategy volatility for the leg.
type LegDefinition struct {
	Style             string   `yaml:"style"`
	Side              string   `yaml:"side"`
	Strike            float64  `yaml:"strike"`
	Premium           float64  `yaml:"premium"`
	OpenFee           float64  `yaml:"open_fee"`
	CloseFee          float64  `yaml:"close_fee"`
	Quantity          float64  `yaml:"quantity"`
	Days              *float64 `yaml:"days"`
	ImpliedVolatility float64  `yaml:"implied_volatility"`
}

// SpotDefinition is the underlying holding of covered strategies.
type SpotDefinition struct {
	Side      string  `yaml:"side"`
	Quantity  float64 `yaml:"quantity"`
	CostBasis float64 `yaml:"cost_basis"`
	OpenFee   float64 `yaml:"open_fee"`
	CloseFee  float64 `yaml:"close_fee"`
}

// LoadStrategy reads a definition file, or the tagged JSON written by
// strategy export.
func LoadStrategy(path string) (strategies.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading strategy file: %w", err)
	}
	return ParseStrategy(data)
}

// ParseStrategy decodes a definition and builds the strategy.
func ParseStrategy(data []byte) (strategies.Strategy, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing strategy definition: %w", err)
	}
	if def.Kind == "" {
		// not a definition; try the exported form
		s, err := strategies.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("strategy definition has no kind: %w", err)
		}
		return s, nil
	}
	return def.Build()
}

// Build constructs the strategy described by d.
func (d Definition) Build() (strategies.Strategy, error) {
	kind, err := strategies.ParseKind(d.Kind)
	if err != nil {
		return nil, err
	}

	common, err := d.common()
	if err != nil {
		return nil, err
	}

	if kind == strategies.KindCustom {
		legs, err := d.customLegs(common)
		if err != nil {
			return nil, err
		}
		return strategies.New(kind, strategies.Params{Common: common, Positions: legs})
	}

	params := strategies.Params{Common: common}
	for i, l := range d.Legs {
		q, err := l.quote()
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		params.Legs = append(params.Legs, q)
	}
	if d.Spot != nil {
		spot, err := d.Spot.quote()
		if err != nil {
			return nil, fmt.Errorf("spot: %w", err)
		}
		params.Spot = &spot
	}
	return strategies.New(kind, params)
}

func (d Definition) common() (strategies.Common, error) {
	fields, err := positives(map[string]float64{
		"underlying_price":   d.UnderlyingPrice,
		"implied_volatility": d.ImpliedVolatility,
		"dividend_yield":     d.DividendYield,
		"quantity":           d.Quantity,
	})
	if err != nil {
		return strategies.Common{}, err
	}
	qty := fields["quantity"]
	if qty.IsZero() {
		qty = positive.One
	}
	return strategies.Common{
		Name:              d.Name,
		Symbol:            d.Symbol,
		UnderlyingPrice:   fields["underlying_price"],
		Expiration:        options.Days(d.Days),
		ImpliedVolatility: fields["implied_volatility"],
		RiskFreeRate:      decimal.NewFromFloat(d.RiskFreeRate),
		DividendYield:     fields["dividend_yield"],
		Quantity:          qty,
	}, nil
}

func (d Definition) customLegs(c strategies.Common) ([]models.Leg, error) {
	var legs []models.Leg
	if d.Spot != nil {
		spot, err := d.Spot.quote()
		if err != nil {
			return nil, fmt.Errorf("spot: %w", err)
		}
		side := options.Long
		if d.Spot.Side != "" {
			if side, err = options.ParseSide(d.Spot.Side); err != nil {
				return nil, fmt.Errorf("spot: %w", err)
			}
		}
		legs = append(legs, models.NewSpotPosition(c.Symbol, spot.Quantity, spot.CostBasis, side,
			spot.OpenFee, spot.CloseFee))
	}

	for i, l := range d.Legs {
		q, err := l.quote()
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		style, err := options.ParseStyle(l.Style)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		side, err := options.ParseSide(l.Side)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		qty := q.Quantity
		if qty.IsZero() {
			qty = c.Quantity
		}
		exp := c.Expiration
		if q.Expiration != nil {
			exp = *q.Expiration
		}
		iv := c.ImpliedVolatility
		if l.ImpliedVolatility > 0 {
			iv = positive.Must(l.ImpliedVolatility)
		}
		opt := options.NewEuropean(side, style, c.Symbol, c.UnderlyingPrice, q.Strike, exp, iv, qty,
			c.RiskFreeRate, c.DividendYield)
		legs = append(legs, models.NewPosition(*opt, q.Premium, q.OpenFee, q.CloseFee))
	}
	return legs, nil
}

func (l LegDefinition) quote() (strategies.LegQuote, error) {
	fields, err := positives(map[string]float64{
		"strike":    l.Strike,
		"premium":   l.Premium,
		"open_fee":  l.OpenFee,
		"close_fee": l.CloseFee,
		"quantity":  l.Quantity,
	})
	if err != nil {
		return strategies.LegQuote{}, err
	}
	q := strategies.LegQuote{
		Strike:   fields["strike"],
		Premium:  fields["premium"],
		OpenFee:  fields["open_fee"],
		CloseFee: fields["close_fee"],
		Quantity: fields["quantity"],
	}
	if l.Days != nil {
		exp := options.Days(*l.Days)
		q.Expiration = &exp
	}
	return q, nil
}

func (s SpotDefinition) quote() (strategies.SpotQuote, error) {
	fields, err := positives(map[string]float64{
		"quantity":   s.Quantity,
		"cost_basis": s.CostBasis,
		"open_fee":   s.OpenFee,
		"close_fee":  s.CloseFee,
	})
	if err != nil {
		return strategies.SpotQuote{}, err
	}
	return strategies.SpotQuote{
		Quantity:  fields["quantity"],
		CostBasis: fields["cost_basis"],
		OpenFee:   fields["open_fee"],
		CloseFee:  fields["close_fee"],
	}, nil
}

func positives(values map[string]float64) (map[string]positive.Positive, error) {
	out := make(map[string]positive.Positive, len(values))
	for name, v := range values {
		p, err := positive.NewFromFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = p
	}
	return out, nil
}
