package gateway

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is the cause of every ValidationError.
var ErrMalformedInput = errors.New("malformed input")

// ValidationError describes a request rejected before it reached an actor.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match ErrMalformedInput.
func (e *ValidationError) Unwrap() error {
	return ErrMalformedInput
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
