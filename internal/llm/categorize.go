package llm

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// CategorizeRequest asks for one of Categories for a transaction.
type CategorizeRequest struct {
	Amount      decimal.Decimal
	Description string
	Currency    string
	Locale      string
	Type        model.CategoryType
	// Categories are the owner's category display names.
	Categories []string
	// Recent are recently used category names, most recent first.
	Recent []string
}

// Categorization is a resolved AI answer. Category is exactly one of the
// requested Categories.
type Categorization struct {
	Confidence *float64
	Category   string
	Provider   string
	Model      string
	Cached     bool
}

// Categorize asks the provider to pick one of req.Categories.
func (c *Client) Categorize(ctx context.Context, req CategorizeRequest) (Categorization, error) {
	if len(req.Categories) == 0 {
		return Categorization{}, ErrNoCategories
	}

	key := c.cacheKey(req)
	if c.cache != nil {
		if cached, ok := c.cache.get(key); ok {
			c.logger.Debug("cache hit for categorization",
				"provider", c.provider.Name,
				"category", cached.Category)
			cached.Cached = true
			return cached, nil
		}
	}

	resp, err := c.Chat(ctx, ChatRequest{
		System:         categorizeSystemPrompt,
		Prompt:         buildCategorizePrompt(req),
		StructuredOnly: true,
	})
	if err != nil {
		return Categorization{}, err
	}

	name, confidence, err := parseCategorization(resp.Text, req.Categories)
	if err != nil {
		return Categorization{}, &ProviderError{Provider: c.provider.Name, Kind: KindParse, Err: err}
	}

	result := Categorization{
		Category:   name,
		Confidence: confidence,
		Provider:   resp.Provider,
		Model:      resp.Model,
	}
	if c.cache != nil {
		c.cache.set(key, result)
	}

	c.logger.Debug("transaction categorized by provider",
		"provider", c.provider.Name,
		"model", c.model,
		"category", name)
	return result, nil
}

func (c *Client) cacheKey(req CategorizeRequest) string {
	parts := []string{
		c.model,
		string(req.Type),
		textnorm.Normalize(req.Description),
		strings.Join(req.Categories, "\x1f"),
	}
	return strings.Join(parts, "\x1e")
}
