package options

import (
	"encoding/json"
	"fmt"
)

// OptionType is the exercise/payoff family of an option. Concrete variants
// are the exported struct types below.
type OptionType interface {
	TypeName() string
}

type (
	European struct{}
	American struct{}

	// Bermuda exercise dates are days from now.
	Bermuda struct {
		ExerciseDates []float64 `json:"exercise_dates"`
	}

	Asian struct {
		Averaging AsianAveraging `json:"averaging"`
	}

	Barrier struct {
		Kind  BarrierKind `json:"kind"`
		Level float64     `json:"level"`
	}

	Binary struct {
		Kind BinaryKind `json:"kind"`
	}

	Lookback struct {
		Kind LookbackKind `json:"kind"`
	}

	// Compound is an option on the Inner option, whose style is InnerStyle
	// (Call when empty).
	Compound struct {
		Inner      OptionType  `json:"-"`
		InnerStyle OptionStyle `json:"-"`
	}

	// Chooser choice date is in days from now.
	Chooser struct {
		ChoiceDate float64 `json:"choice_date"`
	}

	// Cliquet reset dates are days from now.
	Cliquet struct {
		ResetDates []float64 `json:"reset_dates"`
	}

	Rainbow struct {
		NumAssets int         `json:"num_assets"`
		Kind      RainbowKind `json:"kind"`
	}

	Spread struct {
		SecondAssetPrice float64 `json:"second_asset_price"`
	}

	Quanto struct {
		ExchangeRate float64 `json:"exchange_rate"`
	}

	Exchange struct {
		SecondAsset float64 `json:"second_asset"`
	}

	Power struct {
		Exponent float64 `json:"exponent"`
	}
)

func (European) TypeName() string { return "European" }
func (American) TypeName() string { return "American" }
func (Bermuda) TypeName() string  { return "Bermuda" }
func (Asian) TypeName() string    { return "Asian" }
func (Barrier) TypeName() string  { return "Barrier" }
func (Binary) TypeName() string   { return "Binary" }
func (Lookback) TypeName() string { return "Lookback" }
func (Compound) TypeName() string { return "Compound" }
func (Chooser) TypeName() string  { return "Chooser" }
func (Cliquet) TypeName() string  { return "Cliquet" }
func (Rainbow) TypeName() string  { return "Rainbow" }
func (Spread) TypeName() string   { return "Spread" }
func (Quanto) TypeName() string   { return "Quanto" }
func (Exchange) TypeName() string { return "Exchange" }
func (Power) TypeName() string    { return "Power" }

// MarshalOptionType encodes t as {"<Variant>": {...}}.
func MarshalOptionType(t OptionType) ([]byte, error) {
	if t == nil {
		t = European{}
	}
	var body interface{} = t
	if c, ok := t.(Compound); ok {
		inner, err := MarshalOptionType(c.Inner)
		if err != nil {
			return nil, err
		}
		style := c.InnerStyle
		if style == "" {
			style = Call
		}
		styleJSON, _ := json.Marshal(style)
		body = map[string]json.RawMessage{"inner": inner, "inner_style": styleJSON}
	}
	return json.Marshal(map[string]interface{}{t.TypeName(): body})
}

// UnmarshalOptionType decodes the tagged form produced by MarshalOptionType.
func UnmarshalOptionType(data []byte) (OptionType, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("option type must have exactly one variant, got %d", len(tagged))
	}
	for name, body := range tagged {
		return decodeVariant(name, body)
	}
	return nil, fmt.Errorf("empty option type")
}

func decodeVariant(name string, body json.RawMessage) (OptionType, error) {
	var err error
	switch name {
	case "European":
		return European{}, nil
	case "American":
		return American{}, nil
	case "Bermuda":
		var v Bermuda
		err = json.Unmarshal(body, &v)
		return v, err
	case "Asian":
		var v Asian
		err = json.Unmarshal(body, &v)
		return v, err
	case "Barrier":
		var v Barrier
		err = json.Unmarshal(body, &v)
		return v, err
	case "Binary":
		var v Binary
		err = json.Unmarshal(body, &v)
		return v, err
	case "Lookback":
		var v Lookback
		err = json.Unmarshal(body, &v)
		return v, err
	case "Compound":
		var raw struct {
			Inner      json.RawMessage `json:"inner"`
			InnerStyle OptionStyle     `json:"inner_style"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		inner, err := UnmarshalOptionType(raw.Inner)
		if err != nil {
			return nil, err
		}
		return Compound{Inner: inner, InnerStyle: raw.InnerStyle}, nil
	case "Chooser":
		var v Chooser
		err = json.Unmarshal(body, &v)
		return v, err
	case "Cliquet":
		var v Cliquet
		err = json.Unmarshal(body, &v)
		return v, err
	case "Rainbow":
		var v Rainbow
		err = json.Unmarshal(body, &v)
		return v, err
	case "Spread":
		var v Spread
		err = json.Unmarshal(body, &v)
		return v, err
	case "Quanto":
		var v Quanto
		err = json.Unmarshal(body, &v)
		return v, err
	case "Exchange":
		var v Exchange
		err = json.Unmarshal(body, &v)
		return v, err
	case "Power":
		var v Power
		err = json.Unmarshal(body, &v)
		return v, err
	}
	return nil, fmt.Errorf("unknown option type %q", name)
}
