// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Data integrity errors.
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateCategory = errors.New("duplicate category")

	// AI errors.
	ErrTotalAIFailure = errors.New("all AI providers failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports input that was rejected before any work was done.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateCategoryError is returned when a create or rename would collide
// with an active category of the same owner.
type DuplicateCategoryError struct {
	Name       string
	ExistingID int64
}

func (e *DuplicateCategoryError) Error() string {
	return fmt.Sprintf("category %q already exists (id %d)", e.Name, e.ExistingID)
}

// Is makes errors.Is(err, ErrDuplicateCategory) true.
func (e *DuplicateCategoryError) Is(target error) bool {
	return target == ErrDuplicateCategory
}
