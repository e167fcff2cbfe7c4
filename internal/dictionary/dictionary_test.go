package dictionary

import (
	"strings"
	"testing"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, d.Entries())

	groceries, ok := d.Entry("groceries")
	require.True(t, ok)
	assert.Equal(t, model.CategoryTypeExpense, groceries.Type)
	assert.Contains(t, groceries.Keywords["en"], "sausage")

	salary, ok := d.Entry("salary")
	require.True(t, ok)
	assert.Equal(t, model.CategoryTypeIncome, salary.Type)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing key", yaml: "categories:\n  - type: expense\n"},
		{name: "duplicate key", yaml: "categories:\n  - key: a\n  - key: a\n"},
		{name: "bad type", yaml: "categories:\n  - key: a\n    type: transfer\n"},
		{name: "short keyword", yaml: "categories:\n  - key: a\n    keywords:\n      en: [ok]\n"},
		{name: "unknown field", yaml: "categories:\n  - key: a\n    colour: red\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Empty(t *testing.T) {
	d, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, d.Entries())
	assert.Empty(t, d.Groups("en", ""))
}

func TestGroups_LocaleScopedAndTypeFilter(t *testing.T) {
	d, err := Load(strings.NewReader(`
categories:
  - key: cafes
    names: {en: Cafes, ru: Кафе}
    keywords:
      en: [Coffee]
      ru: [кофе]
  - key: salary
    type: income
    keywords:
      en: [salary]
`))
	require.NoError(t, err)

	groups := d.Groups("ru", model.CategoryTypeExpense)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"кофе"}, groups[0].Keywords)

	m := pattern.NewMatcher(pattern.DefaultThresholds())
	_, ok := m.Match("Coffee", groups)
	assert.False(t, ok, "english keyword must not match in the ru scope")

	hit, ok := m.Match("Coffee", d.Groups("en", model.CategoryTypeExpense))
	require.True(t, ok)
	assert.Equal(t, "cafes", hit.Group.Key)

	assert.Len(t, d.Groups("en", ""), 2)
	assert.Len(t, d.Groups("ru", ""), 1)
	assert.Empty(t, d.Groups("de", ""))
}

func TestEntry_MatchesCategory(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	cafes, ok := d.Entry("cafes")
	require.True(t, ok)

	assert.True(t, cafes.MatchesCategory(model.Category{Name: "🍽️ Кафе и рестораны", Type: model.CategoryTypeExpense}))
	assert.True(t, cafes.MatchesCategory(model.Category{Name: "Food out", Locales: map[string]string{"en": "Cafes and restaurants"}}))
	assert.True(t, cafes.MatchesCategory(model.Category{Name: "cafes"}))
	assert.False(t, cafes.MatchesCategory(model.Category{Name: "Cafes", Type: model.CategoryTypeIncome}))
	assert.False(t, cafes.MatchesCategory(model.Category{Name: "Groceries"}))
}
