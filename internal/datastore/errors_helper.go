// Package datastore provides error handling helpers for database operations
package datastore

import (
	"strings"

	"github.com/ecotrack/emissions-api/internal/errors"
)

// Validation messages for storage level constraint violations. They mirror
// the messages produced by application level validation so clients see the
// same error regardless of which layer caught the problem.
const (
	duplicateRecordMessage = "An emission record for this year, country, type, and activity combination already exists."
	negativeValueMessage   = "Emissions value must be non-negative."
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError creates a not found error (low priority, not shown to users)
func notFoundError(resource, identifier string) error {
	return errors.Newf("%s not found", resource).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return enhanced.Category == errors.CategoryNotFound
	}
	return false
}

// translateConstraintError maps driver level constraint violations onto
// field level validation errors. Concurrent duplicate or negative value
// writes fail at the database even when application validation was bypassed,
// and must surface to clients the same way validation failures do.
func translateConstraintError(err error, operation string) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case isDuplicateKeyError(errStr):
		ve := errors.NewValidationError()
		ve.Add(errors.NonFieldErrors, duplicateRecordMessage)
		return ve
	case isCheckConstraintError(errStr):
		ve := errors.NewValidationError()
		ve.Add("emissions", negativeValueMessage)
		return ve
	default:
		return dbError(err, operation)
	}
}

// isDuplicateKeyError detects unique constraint violations for SQLite and MySQL.
func isDuplicateKeyError(errStr string) bool {
	return strings.Contains(errStr, "UNIQUE constraint failed") || // SQLite
		strings.Contains(errStr, "Duplicate entry") // MySQL error 1062
}

// isCheckConstraintError detects check constraint violations for SQLite and MySQL.
func isCheckConstraintError(errStr string) bool {
	return strings.Contains(errStr, "CHECK constraint failed") || // SQLite
		strings.Contains(errStr, "Check constraint") // MySQL error 3819
}
