package model

import "time"

// Keyword is a learned, normalized phrase that routes descriptions to a category.
// Within one owner a phrase belongs to at most one category.
type Keyword struct {
	CreatedAt  time.Time
	LastUsedAt *time.Time
	Phrase     string
	Language   string
	ID         int64
	OwnerID    int64
	CategoryID int64
	UsageCount int
}

// CategoryKeywords groups an owner's keywords under their category.
type CategoryKeywords struct {
	Keywords []Keyword
	Category Category
}

// Phrases returns the keyword phrases in order.
func (ck CategoryKeywords) Phrases() []string {
	out := make([]string, len(ck.Keywords))
	for i, k := range ck.Keywords {
		out[i] = k.Phrase
	}
	return out
}
