package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building datasets, running
// predictions, and scoring result sets.
var (
	// ErrCaseNotFound indicates that a release id did not resolve to a case.
	ErrCaseNotFound = errors.New("case not found")

	// ErrCorruptResults indicates that a persisted result set could not be
	// decoded. Resuming on top of corrupt results would silently drop prior
	// work, so callers must treat it as fatal.
	ErrCorruptResults = errors.New("corrupt result set")

	// ErrResultsNotFound indicates that no result set has been persisted yet
	// for a model.
	ErrResultsNotFound = errors.New("result set not found")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnparseableResponse indicates that a model response contained no
	// recognizable outcome fields.
	ErrUnparseableResponse = errors.New("unparseable model response")
)

// CaseError ties a failure to the case it occurred on.
type CaseError struct {
	// CaseID is the canonical release id of the case.
	CaseID string

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for CaseError.
func (e *CaseError) Error() string {
	return fmt.Sprintf("case %s: %s: %v", e.CaseID, e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaseError) Unwrap() error { return e.Err }

// NewCaseError creates a new CaseError with the given details.
func NewCaseError(caseID, operation string, err error) *CaseError {
	return &CaseError{
		CaseID:    caseID,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// Unwrap lets callers match any ValidationError against ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
