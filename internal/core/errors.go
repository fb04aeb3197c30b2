package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the identity claim was absent or malformed for the
	// claimed role.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrQuotaExceeded means the guest trial session reached its expense ceiling.
	ErrQuotaExceeded = errors.New("guest expense quota exceeded")

	// ErrNotFound covers both a missing id and an id owned by another tenant.
	// The two are deliberately indistinguishable so that callers cannot probe
	// for other owners' expenses.
	ErrNotFound = errors.New("expense not found")
)

// ValidationError reports a single request field that violates a documented
// constraint. Field names the offending field so form-style callers can
// highlight exactly what to fix.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ReferenceNotFoundError reports a named category/currency/issuer that does not
// exist in reference data. Reference rows are never auto-created.
type ReferenceNotFoundError struct {
	Kind string
}

func (e *ReferenceNotFoundError) Error() string {
	return e.Kind + " does not exist"
}
