package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
)

type mockClient struct {
	err      error
	name     string
	category string
	calls    atomic.Int32
}

func (m *mockClient) Chat(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return llm.ChatResponse{}, m.err
	}
	return llm.ChatResponse{Text: "reply from " + m.name, Provider: m.name}, nil
}

func (m *mockClient) Categorize(_ context.Context, _ llm.CategorizeRequest) (llm.Categorization, error) {
	m.calls.Add(1)
	if m.err != nil {
		return llm.Categorization{}, m.err
	}
	return llm.Categorization{Category: m.category, Provider: m.name}, nil
}

func (m *mockClient) ProviderName() string {
	return m.name
}

type recordingNotifier struct {
	alerts []notify.Alert
	mu     sync.Mutex
}

func (r *recordingNotifier) Notify(_ context.Context, alert notify.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func TestRouter_PrimarySucceeds(t *testing.T) {
	primary := &mockClient{name: "deepseek", category: "Groceries"}
	fallback := &mockClient{name: "openai", category: "Cafes"}
	notifier := &recordingNotifier{}

	r, err := New(map[model.FunctionalArea]Route{
		model.AreaCategorization: {Primary: primary, Fallback: fallback},
	}, WithNotifier(notifier))
	require.NoError(t, err)

	result, err := r.Categorize(context.Background(), llm.CategorizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", result.Category)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), fallback.calls.Load())
	assert.Empty(t, notifier.alerts)
}

func TestRouter_FallbackOnce(t *testing.T) {
	primary := &mockClient{name: "deepseek", err: &llm.ProviderError{Provider: "deepseek", Kind: llm.KindAuth}}
	fallback := &mockClient{name: "openai", category: "Cafes"}
	notifier := &recordingNotifier{}

	r, err := New(map[model.FunctionalArea]Route{
		model.AreaCategorization: {Primary: primary, Fallback: fallback},
	}, WithNotifier(notifier))
	require.NoError(t, err)

	result, err := r.Categorize(context.Background(), llm.CategorizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, notify.ClassFallbackUsed, notifier.alerts[0].Class)
	assert.Equal(t, "auth", notifier.alerts[0].Fields["kind"])
}

func TestRouter_TotalFailure(t *testing.T) {
	primary := &mockClient{name: "deepseek", err: &llm.ProviderError{Provider: "deepseek", Kind: llm.KindTimeout}}
	fallback := &mockClient{name: "openai", err: &llm.ProviderError{Provider: "openai", Kind: llm.KindUnavailable}}

	r, err := New(map[model.FunctionalArea]Route{
		model.AreaConversational: {Primary: primary, Fallback: fallback},
	})
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), model.AreaConversational, llm.ChatRequest{Prompt: "hi"})
	require.ErrorIs(t, err, common.ErrTotalAIFailure)
	assert.ErrorIs(t, err, llm.ErrTimeout)
	assert.ErrorIs(t, err, llm.ErrUnavailable)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(1), fallback.calls.Load())
}

func TestRouter_NoFallbackConfigured(t *testing.T) {
	primary := &mockClient{name: "deepseek", err: &llm.ProviderError{Provider: "deepseek", Kind: llm.KindNetwork}}
	notifier := &recordingNotifier{}

	r, err := New(map[model.FunctionalArea]Route{
		model.AreaAnalytical: {Primary: primary},
	}, WithNotifier(notifier))
	require.NoError(t, err)

	assert.Nil(t, r.Fallback(model.AreaAnalytical))
	_, err = r.Complete(context.Background(), model.AreaAnalytical, llm.ChatRequest{})
	require.ErrorIs(t, err, common.ErrTotalAIFailure)
	assert.Empty(t, notifier.alerts)
}

func TestRouter_UnconfiguredArea(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	assert.False(t, r.Configured(model.AreaCategorization))
	assert.Nil(t, r.Primary(model.AreaCategorization))

	_, err = r.Categorize(context.Background(), llm.CategorizeRequest{})
	assert.ErrorIs(t, err, common.ErrTotalAIFailure)
}

func TestRouter_CanceledCallerSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &mockClient{name: "deepseek", err: context.Canceled}
	fallback := &mockClient{name: "openai", category: "Cafes"}
	r, err := New(map[model.FunctionalArea]Route{
		model.AreaCategorization: {Primary: primary, Fallback: fallback},
	})
	require.NoError(t, err)

	_, err = r.Categorize(ctx, llm.CategorizeRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestNew_RequiresPrimary(t *testing.T) {
	_, err := New(map[model.FunctionalArea]Route{model.AreaCategorization: {}})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestBuild_SharesKeyPoolAcrossAreas(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad key"})
	}))
	defer server.Close()

	openai := llm.Provider{Name: "openai", Dialect: llm.DialectOpenAI, BaseURL: server.URL, Keys: []string{"only"}}
	registry := llm.NewKeyRegistry(time.Minute, nil)

	r, err := Build(map[model.FunctionalArea]AreaRoute{
		model.AreaCategorization: {Primary: Target{Provider: openai, Model: "gpt-4o-mini"}},
		model.AreaAnalytical:     {Primary: Target{Provider: openai, Model: "gpt-4o"}, Timeout: time.Minute},
	}, []llm.Option{llm.WithKeyRegistry(registry), llm.WithCacheTTL(0)})
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), model.AreaCategorization, llm.ChatRequest{Prompt: "p"})
	require.ErrorIs(t, err, llm.ErrAuth)

	// The analytical client sees the same unhealthy key and never reaches the server.
	_, err = r.Complete(context.Background(), model.AreaAnalytical, llm.ChatRequest{Prompt: "p"})
	require.ErrorIs(t, err, llm.ErrNoHealthyKeys)
	assert.Equal(t, int32(1), calls.Load())
}
