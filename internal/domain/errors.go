package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrExhaustedRetries  = errors.New("exhausted retries")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAuthFailed        = errors.New("authentication failed")
	// ErrConflict is returned by storage when a unique key already exists or a
	// compare-and-swap update lost against a concurrent writer.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports which field broke an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Invalid builds a *ValidationError for callers outside this package.
func Invalid(field, reason string) error {
	return invalid(field, reason)
}
