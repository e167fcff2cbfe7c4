package pattern

import (
	"testing"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantKey   string
		wantTier  model.MatchTier
		groups    []Group
		wantMatch bool
	}{
		{
			name:      "exact match ignores case and emoji",
			text:      "☕ Coffee",
			groups:    []Group{{Key: "cafe", Keywords: []string{"coffee"}}},
			wantMatch: true,
			wantKey:   "cafe",
			wantTier:  model.TierExact,
		},
		{
			name: "exact wins over an earlier prefix candidate",
			text: "coffee milk latte",
			groups: []Group{
				{Key: "a", Keywords: []string{"coffee milk"}},
				{Key: "b", Keywords: []string{"coffee milk latte"}},
			},
			wantMatch: true,
			wantKey:   "b",
			wantTier:  model.TierExact,
		},
		{
			name:      "prefix compares first three tokens",
			text:      "lunch at work today",
			groups:    []Group{{Key: "food", Keywords: []string{"lunch at work"}}},
			wantMatch: true,
			wantKey:   "food",
			wantTier:  model.TierPrefix,
		},
		{
			name:      "prefix with two token keyword",
			text:      "taxi home late",
			groups:    []Group{{Key: "transport", Keywords: []string{"taxi home"}}},
			wantMatch: true,
			wantKey:   "transport",
			wantTier:  model.TierPrefix,
		},
		{
			name:      "prefix needs leading tokens equal",
			text:      "late taxi home",
			groups:    []Group{{Key: "transport", Keywords: []string{"taxi home"}}},
			wantMatch: false,
		},
		{
			name:      "inflection tolerates suffixes",
			text:      "продуктов на неделю",
			groups:    []Group{{Key: "groceries", Keywords: []string{"продукты"}}},
			wantMatch: true,
			wantKey:   "groceries",
			wantTier:  model.TierInflection,
		},
		{
			name:      "inflection on any token",
			text:      "вечернее такси",
			groups:    []Group{{Key: "transport", Keywords: []string{"таксист"}}},
			wantMatch: true,
			wantKey:   "transport",
			wantTier:  model.TierInflection,
		},
		{
			name:      "inflection rejects large length difference",
			text:      "cardamom",
			groups:    []Group{{Key: "bank", Keywords: []string{"card"}}},
			wantMatch: false,
		},
		{
			name:      "inflection never fires for multi-token keywords",
			text:      "sausage in batter and tea",
			groups:    []Group{{Key: "relatives", Keywords: []string{"batter for mom"}}},
			wantMatch: false,
		},
		{
			name:      "keywords shorter than three runes never match",
			text:      "ab",
			groups:    []Group{{Key: "x", Keywords: []string{"ab"}}},
			wantMatch: false,
		},
		{
			name:      "three rune keyword only matches exactly",
			text:      "tea bags",
			groups:    []Group{{Key: "x", Keywords: []string{"tea"}}},
			wantMatch: false,
		},
		{
			name:      "group order breaks ties inside a tier",
			text:      "pizza",
			groups:    []Group{{Key: "first", Keywords: []string{"pizza"}}, {Key: "second", Keywords: []string{"pizza"}}},
			wantMatch: true,
			wantKey:   "first",
			wantTier:  model.TierExact,
		},
		{
			name:      "empty text",
			text:      "  🍕 ",
			groups:    []Group{{Key: "x", Keywords: []string{"pizza"}}},
			wantMatch: false,
		},
	}

	m := NewMatcher(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.text, tt.groups)
			require.Equal(t, tt.wantMatch, ok)
			if !tt.wantMatch {
				return
			}
			assert.Equal(t, tt.wantKey, got.Group.Key)
			assert.Equal(t, tt.wantTier, got.Tier)
		})
	}
}

func TestMatcher_ConfigurableThresholds(t *testing.T) {
	groups := []Group{{Key: "cafe", Keywords: []string{"кофе"}}}

	_, ok := NewMatcher(DefaultThresholds()).Match("кофейку", groups)
	assert.False(t, ok)

	th := DefaultThresholds()
	th.MaxLenDiff = 3
	got, ok := NewMatcher(th).Match("кофейку", groups)
	require.True(t, ok)
	assert.Equal(t, model.TierInflection, got.Tier)
}

func TestNewMatcher_FillsZeroThresholds(t *testing.T) {
	m := NewMatcher(Thresholds{})
	assert.Equal(t, 3, m.Thresholds().MinKeywordLen)
	assert.Equal(t, 3, m.Thresholds().PrefixTokens)
}

func TestGroupsFromCategories(t *testing.T) {
	cks := []model.CategoryKeywords{
		{
			Category: model.Category{ID: 4, Name: "Food"},
			Keywords: []model.Keyword{{Phrase: "pizza"}, {Phrase: "sushi"}},
		},
	}
	groups := GroupsFromCategories(cks)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(4), groups[0].CategoryID)
	assert.Equal(t, []string{"pizza", "sushi"}, groups[0].Keywords)
}
