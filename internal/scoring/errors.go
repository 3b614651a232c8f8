package scoring

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput marks out-of-range values and missing required fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrComputation marks inputs that make a formula undefined.
	ErrComputation = errors.New("computation error")
	// ErrNoEvaluation is returned when an existing-building project references
	// a building that has never been evaluated.
	ErrNoEvaluation = errors.New("no evaluation for building")
	// ErrInvalidTransition is returned for illegal project lifecycle moves.
	ErrInvalidTransition = errors.New("invalid project transition")
)

// ValidationError describes a rejected input value with enough context to fix it.
type ValidationError struct {
	Entity string
	ID     string
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q: %s=%v: %s", e.Entity, e.ID, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%v: %s", e.Entity, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// MissingSelectionError is returned when a required catalog selection is empty
// or does not resolve.
type MissingSelectionError struct {
	Entity string
	ID     string
	Field  string
}

func (e *MissingSelectionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %q not selected or unknown", e.Entity, e.Field, e.ID)
	}
	return fmt.Sprintf("%s: %s not selected", e.Entity, e.Field)
}

func (e *MissingSelectionError) Unwrap() error { return ErrInvalidInput }

// NoComponentsPresentError is returned when no catalog component is marked as
// present, which leaves the weight redistribution undefined.
type NoComponentsPresentError struct {
	CatalogSize int
}

func (e *NoComponentsPresentError) Error() string {
	return fmt.Sprintf("no components present among %d catalog entries", e.CatalogSize)
}

func (e *NoComponentsPresentError) Unwrap() error { return ErrComputation }

func invalid(entity, id, field string, value any, reason string) error {
	return &ValidationError{Entity: entity, ID: id, Field: field, Value: value, Reason: reason}
}

func checkPercent(entity, id, field string, v float64) error {
	if v < 0 || v > 100 || math.IsNaN(v) {
		return invalid(entity, id, field, v, "must be within [0,100]")
	}
	return nil
}

func checkUnit(entity, id, field string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return invalid(entity, id, field, v, "must be within [0,1]")
	}
	return nil
}
