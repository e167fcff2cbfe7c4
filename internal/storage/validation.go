package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateOwner(ownerID int64) error {
	if ownerID <= 0 {
		return common.NewValidationError("owner", "must be positive")
	}
	return nil
}

func validateCategoryType(t model.CategoryType) error {
	if !t.Valid() {
		return common.NewValidationError("category type", fmt.Sprintf("unknown type %q", t))
	}
	return nil
}
