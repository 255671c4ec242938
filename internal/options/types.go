// Package options defines the option descriptor and its enumerations.
package options

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	Long  Side = "Long"
	Short Side = "Short"
)

// Sign returns +1 for Long and -1 for Short.
func (s Side) Sign() decimal.Decimal {
	if s == Short {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// SignFloat is Sign as a float64.
func (s Side) SignFloat() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Short {
		return Long
	}
	return Short
}

func (s Side) Valid() bool { return s == Long || s == Short }

// ParseSide accepts long or short in any case.
func ParseSide(raw string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long":
		return Long, nil
	case "short":
		return Short, nil
	}
	return "", fmt.Errorf("unknown side %q", raw)
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := Side(raw)
	if !v.Valid() {
		return fmt.Errorf("unknown side %q", raw)
	}
	*s = v
	return nil
}

// OptionStyle is call or put.
type OptionStyle string

const (
	Call OptionStyle = "Call"
	Put  OptionStyle = "Put"
)

func (s OptionStyle) Valid() bool { return s == Call || s == Put }

// ParseStyle accepts call or put in any case.
func ParseStyle(raw string) (OptionStyle, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "call":
		return Call, nil
	case "put":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option style %q", raw)
}

func (s *OptionStyle) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := OptionStyle(raw)
	if !v.Valid() {
		return fmt.Errorf("unknown option style %q", raw)
	}
	*s = v
	return nil
}

// AsianAveraging selects arithmetic or geometric averaging.
type AsianAveraging string

const (
	Arithmetic AsianAveraging = "Arithmetic"
	Geometric  AsianAveraging = "Geometric"
)

// BarrierKind enumerates the four knock-in/knock-out barriers.
type BarrierKind string

const (
	UpAndIn    BarrierKind = "UpAndIn"
	UpAndOut   BarrierKind = "UpAndOut"
	DownAndIn  BarrierKind = "DownAndIn"
	DownAndOut BarrierKind = "DownAndOut"
)

// IsUp reports whether the barrier sits above the spot.
func (k BarrierKind) IsUp() bool { return k == UpAndIn || k == UpAndOut }

// IsIn reports whether the barrier activates the option.
func (k BarrierKind) IsIn() bool { return k == UpAndIn || k == DownAndIn }

// BinaryKind enumerates binary payoffs.
type BinaryKind string

const (
	CashOrNothing  BinaryKind = "CashOrNothing"
	AssetOrNothing BinaryKind = "AssetOrNothing"
)

// LookbackKind enumerates lookback strike conventions.
type LookbackKind string

const (
	FixedStrike    LookbackKind = "Fixed"
	FloatingStrike LookbackKind = "Floating"
)

// RainbowKind enumerates two-asset rainbow payoffs.
type RainbowKind string

const (
	BestOf  RainbowKind = "BestOf"
	WorstOf RainbowKind = "WorstOf"
)
