package engine

import (
	"context"
	"sync"

	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
)

// mockClassifier answers categorization requests with a fixed category or error.
type mockClassifier struct {
	err      error
	category string
	provider string
	calls    []llm.CategorizeRequest
	mu       sync.Mutex
}

func (m *mockClassifier) Categorize(_ context.Context, req llm.CategorizeRequest) (llm.Categorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return llm.Categorization{}, m.err
	}
	confidence := 0.8
	return llm.Categorization{Category: m.category, Provider: m.provider, Confidence: &confidence}, nil
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
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

func (r *recordingNotifier) classes() []notify.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Class, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Class
	}
	return out
}
