package errors

import (
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors is the key used for validation errors that are not tied to a
// single field, such as composite unique constraint violations.
const NonFieldErrors = "non_field_errors"

// ValidationError carries per-field validation messages. The field map shape
// matches the API error body: {"field": ["message", ...]}.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

// NewValidationError creates an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for the given field.
func (ve *ValidationError) Add(field, message string) {
	ve.Fields[field] = append(ve.Fields[field], message)
}

// HasErrors reports whether any field message has been recorded.
func (ve *ValidationError) HasErrors() bool {
	return len(ve.Fields) > 0
}

// OrNil returns the error itself when messages exist, nil otherwise. Callers
// can build up messages and return the result directly.
func (ve *ValidationError) OrNil() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// Error implements the error interface with a deterministic field order.
func (ve *ValidationError) Error() string {
	fields := make([]string, 0, len(ve.Fields))
	for field := range ve.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(ve.Fields[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
