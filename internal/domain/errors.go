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

	// ErrPredicate marks a filter condition rejected by the allow-list.
	ErrPredicate = errors.New("predicate not allowed")

	// ErrLockContention marks a policy whose execution lock is held by a
	// concurrent run. The policy is skipped and retried on the next schedule.
	ErrLockContention = errors.New("policy execution locked")

	// ErrAuditUnavailable marks a failure of the audit store itself.
	// Deletions must never proceed without a working audit trail, so this
	// aborts the whole batch.
	ErrAuditUnavailable = errors.New("audit store unavailable")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
// Policy validation reports every violation found, not just the first,
// so an operator can fix a policy in one pass.
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
