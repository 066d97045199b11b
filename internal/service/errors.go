package service

import (
	"errors"
	"strings"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrInvalidID  = errors.New("invalid id")
	ErrValidation = errors.New("validation failed")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload fails the collection schema.
// Nothing is written when it is returned.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NewFieldError reports a single rejected field.
func NewFieldError(field, message string) *ValidationError {
	return newValidationError(FieldError{Field: field, Message: message})
}
