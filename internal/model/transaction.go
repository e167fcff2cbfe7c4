package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionDraft is a transaction as typed by a user, before it has a category.
type TransactionDraft struct {
	Timestamp time.Time
	Amount    decimal.Decimal
	RawText   string
	Currency  string
	Locale    string
	Type      CategoryType
	OwnerID   int64
	AIEnabled bool
}

// CategoryType returns the draft type, defaulting to expense.
func (d TransactionDraft) CategoryType() CategoryType {
	if d.Type == "" {
		return CategoryTypeExpense
	}
	return d.Type
}
