package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategorization(t *testing.T) {
	names := []string{"🛒 Groceries", "☕ Cafes and restaurants", "🚕 Transport", "Cafes", "🏠 Жильё"}

	tests := []struct {
		name           string
		reply          string
		wantCategory   string
		wantConfidence *float64
		wantErr        bool
	}{
		{
			name:           "plain json",
			reply:          `{"category": "Transport", "confidence": 0.85}`,
			wantCategory:   "🚕 Transport",
			wantConfidence: ptr(0.85),
		},
		{
			name:           "json in markdown fence with prose",
			reply:          "Sure!\n```json\n{\"category\": \"groceries\", \"confidence\": \"90%\"}\n```",
			wantCategory:   "🛒 Groceries",
			wantConfidence: ptr(0.9),
		},
		{
			name:           "negative confidence clamped",
			reply:          `{"category": "Cafes", "confidence": -2}`,
			wantCategory:   "Cafes",
			wantConfidence: ptr(0),
		},
		{
			name:         "missing confidence",
			reply:        `{"category": "жильё"}`,
			wantCategory: "🏠 Жильё",
		},
		{
			name:         "category line",
			reply:        "CATEGORY: Transport\nCONFIDENCE: 0.8",
			wantCategory: "🚕 Transport",
		},
		{
			name:         "longest name found in prose",
			reply:        "I would put this under Cafes and restaurants.",
			wantCategory: "☕ Cafes and restaurants",
		},
		{
			name:           "near miss spelling",
			reply:          `{"category": "Grocerys", "confidence": 0.6}`,
			wantCategory:   "🛒 Groceries",
			wantConfidence: ptr(0.6),
		},
		{
			name:    "too far from any name",
			reply:   `{"category": "Electronics"}`,
			wantErr: true,
		},
		{
			name:         "non-finite confidence treated as missing",
			reply:        `{"category": "Transport", "confidence": "NaN"}`,
			wantCategory: "🚕 Transport",
		},
		{
			name:         "infinite percentage treated as missing",
			reply:        `{"category": "Groceries", "confidence": "Inf%"}`,
			wantCategory: "🛒 Groceries",
		},
		{
			name:    "no category at all",
			reply:   "I cannot help with that.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, confidence, err := parseCategorization(tt.reply, names)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCategory, got)
			if tt.wantConfidence == nil {
				assert.Nil(t, confidence)
				return
			}
			require.NotNil(t, confidence)
			assert.InDelta(t, *tt.wantConfidence, *confidence, 1e-9)
		})
	}
}

func TestParseCategorization_NearMissNeedsCloseLongName(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		names   []string
		want    string
		wantErr bool
	}{
		{
			name:    "short name is never a near miss",
			reply:   `{"category": "Cafe"}`,
			names:   []string{"Car", "Groceries"},
			wantErr: true,
		},
		{
			name:    "distance too large for name length",
			reply:   `{"category": "Taxis"}`,
			names:   []string{"Tax", "Texts"},
			wantErr: true,
		},
		{
			name:    "two names equally close",
			reply:   `{"category": "Bookz"}`,
			names:   []string{"Books", "Booka"},
			wantErr: true,
		},
		{
			name:  "single close long name",
			reply: `{"category": "Utilites"}`,
			names: []string{"Car", "Utilities"},
			want:  "Utilities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := parseCategorization(tt.reply, tt.names)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCategorizePrompt(t *testing.T) {
	prompt := buildCategorizePrompt(CategorizeRequest{
		Description: "  coffee with Anna ",
		Currency:    "RUB",
		Locale:      "ru",
		Type:        "expense",
		Categories:  []string{"☕ Cafes", "🛒 Groceries", "🎉"},
	})

	assert.Contains(t, prompt, "Transaction description: coffee with Anna\n")
	assert.NotContains(t, prompt, "Amount:")
	assert.NotContains(t, prompt, "Recently used")
	assert.Contains(t, prompt, "- Cafes\n- Groceries\n")
	assert.NotContains(t, prompt, "🎉")
	assert.Contains(t, prompt, "User language: ru")
}

func ptr(v float64) *float64 {
	return &v
}
