package engine

import (
	"context"

	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/service"
)

// Store is the persistence the resolver needs.
type Store interface {
	service.CategoryStore
	service.KeywordStore
}

// Classifier picks a category with AI. The router satisfies it and applies
// its own single fallback.
type Classifier interface {
	Categorize(ctx context.Context, req llm.CategorizeRequest) (llm.Categorization, error)
}

// KeywordLearner files a description's phrase under a category.
type KeywordLearner interface {
	Learn(ctx context.Context, ownerID, categoryID int64, description string) (*model.Keyword, error)
}
