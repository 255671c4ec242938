// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNegativeValue         = errors.New("value must be non-negative")
	ErrPricing               = errors.New("pricing failed")
	ErrGreeks                = errors.New("greeks calculation failed")
	ErrPositionInvalid       = errors.New("invalid position")
	ErrPositionNotFound      = errors.New("position not found")
	ErrUnsupported           = errors.New("operation not supported")
	ErrStrategyInvalid       = errors.New("invalid strategy")
	ErrBreakEvenUnavailable  = errors.New("no break-even points available")
	ErrOptimizerExhausted    = errors.New("optimizer exhausted search space")
	ErrInsufficientContracts = errors.New("insufficient contracts")
	ErrProbability           = errors.New("probability analysis failed")
	ErrChain                 = errors.New("option chain error")
	ErrConfigInvalid         = errors.New("invalid configuration")
	ErrInputValidation       = errors.New("input validation failed")
)

// PricingError represents a failure inside the pricing facade.
type PricingError struct {
	Model  string
	Field  string
	Reason string
	Err    error
}

func (e *PricingError) Error() string {
	msg := fmt.Sprintf("pricing error [%s]", e.Model)
	if e.Field != "" {
		msg += fmt.Sprintf(" missing or invalid %s", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *PricingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPricing, e.Err}
	}
	return []error{ErrPricing}
}

// NewPricingError creates a new PricingError.
func NewPricingError(model, reason string) *PricingError {
	return &PricingError{Model: model, Reason: reason}
}

// NewMissingFieldError creates a PricingError naming the exotic field that is absent.
func NewMissingFieldError(model, field string) *PricingError {
	return &PricingError{Model: model, Field: field, Reason: "required for this option type"}
}

// PositionError represents an invalid position or an illegal operation on one.
type PositionError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *PositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("position error [%s]: %s: %v", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("position error [%s]: %s", e.Operation, e.Reason)
}

func (e *PositionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPositionInvalid, e.Err}
	}
	return []error{ErrPositionInvalid}
}

// NewPositionError creates a new PositionError.
func NewPositionError(operation, reason string) *PositionError {
	return &PositionError{Operation: operation, Reason: reason}
}

// StrategyError represents a strategy-level failure. Unsupported marks
// operations that are inapplicable to the strategy kind.
type StrategyError struct {
	Strategy    string
	Operation   string
	Reason      string
	Unsupported bool
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy error [%s] %s: %s", e.Strategy, e.Operation, e.Reason)
}

func (e *StrategyError) Unwrap() error {
	if e.Unsupported {
		return ErrUnsupported
	}
	return ErrStrategyInvalid
}

// NewStrategyError creates a validation failure for a strategy.
func NewStrategyError(strategy, operation, reason string) *StrategyError {
	return &StrategyError{Strategy: strategy, Operation: operation, Reason: reason}
}

// NewUnsupportedError creates an error for an operation the strategy kind does not allow.
func NewUnsupportedError(strategy, operation string) *StrategyError {
	return &StrategyError{
		Strategy:    strategy,
		Operation:   operation,
		Reason:      "operation not supported for this strategy",
		Unsupported: true,
	}
}

// AdjustmentKind classifies optimizer failures.
type AdjustmentKind string

const (
	AdjustmentNoViablePlan           AdjustmentKind = "NoViablePlan"
	AdjustmentCostExceeded           AdjustmentKind = "CostExceeded"
	AdjustmentNoPositions            AdjustmentKind = "NoPositions"
	AdjustmentInvalidLegIndex        AdjustmentKind = "InvalidLegIndex"
	AdjustmentGreeksError            AdjustmentKind = "GreeksError"
	AdjustmentConfigurationViolation AdjustmentKind = "ConfigurationViolation"
)

// AdjustmentError represents a failure of the adjustment optimizer.
type AdjustmentError struct {
	Kind   AdjustmentKind
	Reason string
	Err    error
}

func (e *AdjustmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("adjustment error [%s]: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("adjustment error [%s]: %s", e.Kind, e.Reason)
}

func (e *AdjustmentError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind == AdjustmentNoViablePlan {
		errs = append(errs, ErrOptimizerExhausted)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewAdjustmentError creates a new AdjustmentError.
func NewAdjustmentError(kind AdjustmentKind, reason string, err error) *AdjustmentError {
	return &AdjustmentError{Kind: kind, Reason: reason, Err: err}
}

// InsufficientContractsError is returned when an adjustment would sell more
// contracts than are open on a leg.
type InsufficientContractsError struct {
	Leg  string
	Have string
	Need string
}

func (e *InsufficientContractsError) Error() string {
	return fmt.Sprintf("insufficient contracts on %s: have %s, need %s", e.Leg, e.Have, e.Need)
}

func (e *InsufficientContractsError) Unwrap() error {
	return ErrInsufficientContracts
}

// NewInsufficientContractsError creates a new InsufficientContractsError.
func NewInsufficientContractsError(leg, have, need string) *InsufficientContractsError {
	return &InsufficientContractsError{Leg: leg, Have: have, Need: need}
}

// ProbabilityError represents a failure in probability analysis.
type ProbabilityError struct {
	Reason string
	Err    error
}

func (e *ProbabilityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probability error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("probability error: %s", e.Reason)
}

func (e *ProbabilityError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProbability, e.Err}
	}
	return []error{ErrProbability}
}

// NewProbabilityError creates a new ProbabilityError.
func NewProbabilityError(reason string, err error) *ProbabilityError {
	return &ProbabilityError{Reason: reason, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
