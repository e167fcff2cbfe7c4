// Package service defines the contracts shared between the categorization
// pipeline and its collaborators.
package service

import (
	"context"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
)

// CategoryStore persists owner categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, cat model.Category) (*model.Category, error)
	GetCategory(ctx context.Context, ownerID, id int64) (*model.Category, error)
	GetCategories(ctx context.Context, ownerID int64, categoryType model.CategoryType) ([]model.Category, error)
	FindCategoryByName(ctx context.Context, ownerID int64, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, ownerID, id int64, name string) error
	DeactivateCategory(ctx context.Context, ownerID, id int64) error
	EnsureCategory(ctx context.Context, ownerID int64, name string, categoryType model.CategoryType) (*model.Category, error)
}

// KeywordStore persists learned keywords.
type KeywordStore interface {
	GetKeywordsByCategory(ctx context.Context, ownerID int64, categoryType model.CategoryType) ([]model.CategoryKeywords, error)
	EnsureUniqueKeyword(ctx context.Context, ownerID, categoryID int64, phrase, language string) (*model.Keyword, error)
	TouchKeyword(ctx context.Context, ownerID, id int64) error
	DeleteKeyword(ctx context.Context, ownerID, id int64) error
	RecentCategories(ctx context.Context, ownerID int64, categoryType model.CategoryType, limit int) ([]model.Category, error)
}

// Storage is the full persistence contract.
type Storage interface {
	CategoryStore
	KeywordStore

	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}
