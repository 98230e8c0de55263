package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers. Both classify as DataFormatError
// and are never retried.
var (
	// ErrInvalidInput marks configuration or arguments that can never succeed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed is matched by every *ValidationError.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents a validation error with detailed field information.
// It matches ErrValidationFailed through errors.Is so callers can tell malformed
// input apart from runtime failures.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
