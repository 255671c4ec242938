package models

import (
	"encoding/json"
	"fmt"
)

// MarshalLeg encodes a leg as {"<Kind>": {...}}.
func MarshalLeg(l Leg) ([]byte, error) {
	body, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{string(l.Kind()): body})
}

// UnmarshalLeg decodes a tagged leg.
func UnmarshalLeg(data []byte) (Leg, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("leg must have exactly one variant, got %d", len(tagged))
	}
	for kind, body := range tagged {
		var l Leg
		switch LegKind(kind) {
		case LegOption:
			l = &Position{}
		case LegSpot:
			l = &SpotPosition{}
		case LegFuture:
			l = &FuturePosition{}
		case LegPerpetual:
			l = &PerpetualPosition{}
		default:
			return nil, fmt.Errorf("unknown leg variant %q", kind)
		}
		if err := json.Unmarshal(body, l); err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, nil
}

// Legs is an ordered list of heterogeneous legs with tagged JSON encoding.
type Legs []Leg

func (ls Legs) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ls))
	for _, l := range ls {
		b, err := MarshalLeg(l)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (ls *Legs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	legs := make(Legs, 0, len(raw))
	for _, r := range raw {
		l, err := UnmarshalLeg(r)
		if err != nil {
			return err
		}
		legs = append(legs, l)
	}
	*ls = legs
	return nil
}
