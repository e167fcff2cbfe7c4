package model

import "time"

// CategoryType indicates whether a category collects expenses or income.
type CategoryType string

const (
	// CategoryTypeExpense represents categories for spending.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeIncome represents categories for income.
	CategoryTypeIncome CategoryType = "income"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeExpense || t == CategoryTypeIncome
}

// Category is a named bucket owned by exactly one owner (a user or a household).
// Locales holds per-language display names, keyed by locale code.
type Category struct {
	CreatedAt time.Time
	Locales   map[string]string
	Name      string
	Icon      string
	Type      CategoryType
	ID        int64
	OwnerID   int64
	IsActive  bool
}

// DisplayNames returns the primary name followed by every locale variant.
func (c Category) DisplayNames() []string {
	names := make([]string, 0, len(c.Locales)+1)
	names = append(names, c.Name)
	for _, n := range c.Locales {
		if n != "" && n != c.Name {
			names = append(names, n)
		}
	}
	return names
}

// LocalizedName returns the name for locale, falling back to Name.
func (c Category) LocalizedName(locale string) string {
	if n, ok := c.Locales[locale]; ok && n != "" {
		return n
	}
	return c.Name
}
