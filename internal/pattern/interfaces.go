// Package pattern matches normalized descriptions against keyword sets.
package pattern

import "github.com/sananlb/Expense-bot-sub000/internal/model"

// KeywordMatcher finds the first category whose keywords match a description.
type KeywordMatcher interface {
	// Match returns the first hit across groups, honoring tier order.
	Match(text string, groups []Group) (Match, bool)
}

// Group is one category's keyword list. Personal groups carry a CategoryID,
// dictionary groups carry a Key.
type Group struct {
	Key        string
	Keywords   []string
	CategoryID int64
}

// Match describes a successful lookup.
type Match struct {
	Keyword string
	Tier    model.MatchTier
	Group   Group
}

// GroupsFromCategories converts storage rows into matcher groups.
func GroupsFromCategories(cks []model.CategoryKeywords) []Group {
	groups := make([]Group, 0, len(cks))
	for _, ck := range cks {
		groups = append(groups, Group{
			CategoryID: ck.Category.ID,
			Key:        ck.Category.Name,
			Keywords:   ck.Phrases(),
		})
	}
	return groups
}
