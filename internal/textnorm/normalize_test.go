package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lower case and trim", in: "  Coffee  ", want: "coffee"},
		{name: "cyrillic", in: "Кофе С Молоком", want: "кофе с молоком"},
		{name: "punctuation removed", in: "coffee, tea!", want: "coffee tea"},
		{name: "intra-word hyphen kept", in: "wi-fi payment", want: "wi-fi payment"},
		{name: "dangling hyphen removed", in: "- taxi -", want: "taxi"},
		{name: "double hyphen removed", in: "a--b", want: "a b"},
		{name: "simple emoji", in: "☕ coffee", want: "coffee"},
		{name: "emoji between words", in: "coffee☕tea", want: "coffee tea"},
		{name: "zwj family", in: "family 👨‍👩‍👧 dinner", want: "family dinner"},
		{name: "skin tone", in: "👍🏽 thanks", want: "thanks"},
		{name: "flag", in: "🇷🇺 trip", want: "trip"},
		{name: "keycap", in: "1️⃣ first", want: "first"},
		{name: "whitespace collapsed", in: "a \t\n  b", want: "a b"},
		{name: "apostrophe dropped", in: "McDonald's", want: "mcdonalds"},
		{name: "digits kept", in: "Taxi 24/7", want: "taxi 24 7"},
		{name: "empty", in: "", want: ""},
		{name: "only emoji", in: "🍕🍔", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"☕ Coffee, Tea!", "Продукты 🛒 и хлеб", "wi-fi - bill"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestStripDecoration(t *testing.T) {
	assert.Equal(t, "Groceries", StripDecoration("🛒 Groceries"))
	assert.Equal(t, "Кафе и рестораны", StripDecoration("🍽️ Кафе и рестораны"))
	assert.Equal(t, "Other expenses", StripDecoration("Other expenses"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("🛒 Groceries", "groceries"))
	assert.False(t, Equal("Groceries", "Grocery"))
	assert.False(t, Equal("🍕", "🍔"))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, LangRussian, DetectLanguage("кофе"))
	assert.Equal(t, LangRussian, DetectLanguage("latte кофе"))
	assert.Equal(t, LangEnglish, DetectLanguage("coffee"))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "short", TruncateWords("short", 10))
	assert.Equal(t, "one two", TruncateWords("one two three", 9))
	assert.Equal(t, "abcde", TruncateWords("abcdefghij", 5))
	assert.Equal(t, "кофе", TruncateWords("кофе молоко", 6))
}
