package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
	"github.com/sananlb/Expense-bot-sub000/internal/router"
)

func TestResolve_PrimaryAuthFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	var attempts atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"category": "Cafe", "confidence": 0.9}`}},
			},
		})
	}))
	defer fallback.Close()

	registry := llm.NewKeyRegistry(5*time.Minute, nil)
	notifier := &recordingNotifier{}
	deepseek := llm.Provider{Name: "deepseek", Dialect: llm.DialectOpenAI, BaseURL: primary.URL, Keys: []string{"ds-key"}}
	openai := llm.Provider{Name: "openai", Dialect: llm.DialectOpenAI, BaseURL: fallback.URL, Keys: []string{"oa-key"}}

	rt, err := router.Build(map[model.FunctionalArea]router.AreaRoute{
		model.AreaCategorization: {
			Primary:  router.Target{Provider: deepseek, Model: "deepseek-chat"},
			Fallback: &router.Target{Provider: openai, Model: "gpt-4o-mini"},
		},
	}, []llm.Option{llm.WithKeyRegistry(registry), llm.WithCacheTTL(0)}, router.WithNotifier(notifier))
	require.NoError(t, err)

	store := createTestStorage(t)
	cafe := createCategory(t, store, "Cafe", model.CategoryTypeExpense)
	createCategory(t, store, "Groceries", model.CategoryTypeExpense)

	r := newResolver(store, emptyDictionary(t), WithClassifier(rt), WithNotifier(notifier))

	result, err := r.Resolve(ctx, draft("flat white"))
	require.NoError(t, err)
	assert.Equal(t, model.ProvenanceAI, result.Provenance)
	assert.Equal(t, "openai", result.ProviderUsed)
	assert.Equal(t, cafe.ID, result.CategoryID)
	assert.Equal(t, int32(2), attempts.Load())

	status := registry.Pool(deepseek).Status()
	require.Len(t, status, 1)
	assert.False(t, status[0].Healthy)

	assert.Equal(t, []notify.Class{notify.ClassFallbackUsed}, notifier.classes())
}
