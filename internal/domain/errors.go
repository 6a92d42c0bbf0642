package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")

	// ErrDirectory marks a failed user-directory fetch (record store or chat
	// platform). It terminates the processing of the current event.
	ErrDirectory = errors.New("directory unavailable")

	// ErrUnresolved is returned when a record-store user has no chat identity.
	ErrUnresolved = errors.New("identity unresolved")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// AsDirectory marks a record-store or chat-platform read failure as
// ErrDirectory. nil and errors already marked are returned unchanged.
func AsDirectory(err error) error {
	if err == nil || errors.Is(err, ErrDirectory) {
		return err
	}
	return errors.Join(ErrDirectory, err)
}
