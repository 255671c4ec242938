package strategies

import (
	"encoding/json"
	"fmt"

	"optionstrat/internal/models"
	"optionstrat/internal/positive"
)

type strategyJSON struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Symbol          string              `json:"symbol"`
	UnderlyingPrice positive.Positive   `json:"underlying_price"`
	Legs            models.Legs         `json:"legs"`
	BreakEvenPoints []positive.Positive `json:"break_even_points"`
	MaxProfit       *positive.Positive  `json:"max_profit,omitempty"`
	MaxLoss         *positive.Positive  `json:"max_loss,omitempty"`
}

// Marshal encodes s as {"<Kind>": {...}}. The extremes are informational
// and recomputed on decode.
func Marshal(s Strategy) ([]byte, error) {
	body := strategyJSON{
		Name:            s.Name(),
		Description:     s.Description(),
		Symbol:          s.Symbol(),
		UnderlyingPrice: s.UnderlyingPrice(),
		Legs:            models.Legs(s.Legs()),
		BreakEvenPoints: s.BreakEvenPoints(),
	}
	if mp, err := s.MaxProfit(); err == nil {
		body.MaxProfit = &mp
	}
	if ml, err := s.MaxLoss(); err == nil {
		body.MaxLoss = &ml
	}
	return json.Marshal(map[Kind]strategyJSON{s.Kind(): body})
}

// Unmarshal decodes a tagged strategy and rebuilds it from its legs.
func Unmarshal(data []byte) (Strategy, error) {
	var tagged map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("strategy must have exactly one variant, got %d", len(tagged))
	}
	for kind, raw := range tagged {
		if _, err := ParseKind(string(kind)); err != nil {
			return nil, err
		}
		var body strategyJSON
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, err
		}
		s, err := Assemble(kind, body.Symbol, body.UnderlyingPrice, body.Legs)
		if err != nil {
			return nil, err
		}
		if n, ok := s.(interface{ SetName(string) }); ok && body.Name != "" {
			n.SetName(body.Name)
		}
		return s, nil
	}
	return nil, nil
}
