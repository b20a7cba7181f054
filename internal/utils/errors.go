package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports caller input that cannot be processed, such as a
// date range whose end precedes its start.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewFieldValidationError creates a ValidationError tied to a named input field.
//
// Parameters:
//   - field: The offending input (query parameter, struct field).
//   - format: The format string.
//   - args: Arguments for the format string.
func NewFieldValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err, or anything it wraps, is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
