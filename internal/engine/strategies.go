package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// strategy is one step of the cascade. ok reports a hit; err aborts the cascade.
type strategy struct {
	run  func(ctx context.Context, res *resolution) (result model.CategorizationResult, ok bool, err error)
	name string
}

// resolution carries per-request state between strategies.
type resolution struct {
	logger     *slog.Logger
	categories []model.Category
	draft      model.TransactionDraft
	text       string
	loaded     bool
}

func (r *Resolver) ownerCategories(ctx context.Context, res *resolution) ([]model.Category, error) {
	if res.loaded {
		return res.categories, nil
	}
	cats, err := r.store.GetCategories(ctx, res.draft.OwnerID, res.draft.CategoryType())
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	res.categories, res.loaded = cats, true
	return cats, nil
}

func (r *Resolver) personalLookup(ctx context.Context, res *resolution) (model.CategorizationResult, bool, error) {
	cks, err := r.store.GetKeywordsByCategory(ctx, res.draft.OwnerID, res.draft.CategoryType())
	if err != nil {
		return model.CategorizationResult{}, false, fmt.Errorf("failed to load keywords: %w", err)
	}
	if len(cks) == 0 {
		return model.CategorizationResult{}, false, nil
	}

	m, ok := r.matcher.Match(res.text, pattern.GroupsFromCategories(cks))
	if !ok {
		return model.CategorizationResult{}, false, nil
	}

	for _, ck := range cks {
		if ck.Category.ID != m.Group.CategoryID {
			continue
		}
		for _, kw := range ck.Keywords {
			if kw.Phrase != m.Keyword {
				continue
			}
			if err := r.store.TouchKeyword(ctx, res.draft.OwnerID, kw.ID); err != nil {
				res.logger.Warn("failed to record keyword usage", "keyword_id", kw.ID, "error", err)
			}
			break
		}
		return model.CategorizationResult{
			CategoryID:     ck.Category.ID,
			CategoryName:   ck.Category.Name,
			Provenance:     model.ProvenancePersonal,
			MatchedKeyword: m.Keyword,
			MatchTier:      m.Tier,
		}, true, nil
	}
	return model.CategorizationResult{}, false, nil
}

// globalLookup matches the shared dictionary, restricted to entries that map
// onto one of the owner's categories. Matching is scoped to the draft locale;
// when the description is written in another language that language's
// keywords are tried next.
func (r *Resolver) globalLookup(ctx context.Context, res *resolution) (model.CategorizationResult, bool, error) {
	if r.dict == nil {
		return model.CategorizationResult{}, false, nil
	}

	detected := textnorm.DetectLanguage(res.draft.RawText)
	locales := []string{detected}
	if res.draft.Locale != "" && res.draft.Locale != detected {
		locales = []string{res.draft.Locale, detected}
	}

	var cats []model.Category
	for _, locale := range locales {
		groups := r.dict.Groups(locale, res.draft.CategoryType())
		if len(groups) == 0 {
			continue
		}
		if cats == nil {
			var err error
			if cats, err = r.ownerCategories(ctx, res); err != nil {
				return model.CategorizationResult{}, false, err
			}
			if len(cats) == 0 {
				return model.CategorizationResult{}, false, nil
			}
		}
		if result, ok := r.matchGlobal(res.text, groups, cats); ok {
			return result, true, nil
		}
	}
	return model.CategorizationResult{}, false, nil
}

func (r *Resolver) matchGlobal(text string, groups []pattern.Group, cats []model.Category) (model.CategorizationResult, bool) {
	owned := make(map[string]model.Category, len(groups))
	mapped := groups[:0:0]
	for _, g := range groups {
		entry, ok := r.dict.Entry(g.Key)
		if !ok {
			continue
		}
		for _, cat := range cats {
			if entry.MatchesCategory(cat) {
				owned[g.Key] = cat
				mapped = append(mapped, g)
				break
			}
		}
	}

	m, ok := r.matcher.Match(text, mapped)
	if !ok {
		return model.CategorizationResult{}, false
	}
	cat := owned[m.Group.Key]
	return model.CategorizationResult{
		CategoryID:     cat.ID,
		CategoryName:   cat.Name,
		Provenance:     model.ProvenanceGlobal,
		MatchedKeyword: m.Keyword,
		MatchTier:      m.Tier,
	}, true
}

func (r *Resolver) aiLookup(ctx context.Context, res *resolution) (model.CategorizationResult, bool, error) {
	if !res.draft.AIEnabled || r.classifier == nil {
		return model.CategorizationResult{}, false, nil
	}

	cats, err := r.ownerCategories(ctx, res)
	if err != nil {
		return model.CategorizationResult{}, false, err
	}
	if len(cats) == 0 {
		return model.CategorizationResult{}, false, nil
	}

	byName := make(map[string]model.Category, len(cats))
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
		names = append(names, c.Name)
	}

	var recentNames []string
	recent, err := r.store.RecentCategories(ctx, res.draft.OwnerID, res.draft.CategoryType(), r.cfg.RecentCategories)
	if err != nil {
		res.logger.Warn("failed to load recent categories", "error", err)
	}
	for _, c := range recent {
		recentNames = append(recentNames, c.Name)
	}

	answer, err := r.classifier.Categorize(ctx, llm.CategorizeRequest{
		Description: res.draft.RawText,
		Amount:      res.draft.Amount,
		Currency:    res.draft.Currency,
		Locale:      res.draft.Locale,
		Type:        res.draft.CategoryType(),
		Categories:  names,
		Recent:      recentNames,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.CategorizationResult{}, false, ctxErr
		}
		res.logger.Error("AI categorization failed, using default category", "error", err)
		r.notifier.Notify(ctx, notify.Alert{
			Class:   notify.ClassAITotalFailure,
			Message: "all AI providers failed to categorize a transaction",
			Fields: map[string]any{
				"owner_id": res.draft.OwnerID,
				"error":    err.Error(),
			},
		})
		return model.CategorizationResult{}, false, nil
	}

	cat, ok := byName[answer.Category]
	if !ok {
		res.logger.Warn("AI answered with an unknown category", "category", answer.Category)
		return model.CategorizationResult{}, false, nil
	}

	if _, err := r.learner.Learn(ctx, res.draft.OwnerID, cat.ID, res.draft.RawText); err != nil {
		res.logger.Warn("failed to learn from AI answer", "category_id", cat.ID, "error", err)
	}

	return model.CategorizationResult{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Provenance:   model.ProvenanceAI,
		ProviderUsed: answer.Provider,
		Confidence:   answer.Confidence,
	}, true, nil
}

func (r *Resolver) defaultBucket(ctx context.Context, res *resolution) (model.CategorizationResult, bool, error) {
	name := r.cfg.DefaultExpenseName
	if res.draft.CategoryType() == model.CategoryTypeIncome {
		name = r.cfg.DefaultIncomeName
	}

	cat, err := r.store.EnsureCategory(ctx, res.draft.OwnerID, name, res.draft.CategoryType())
	if err != nil {
		return model.CategorizationResult{}, false, fmt.Errorf("failed to ensure default category: %w", err)
	}
	return model.CategorizationResult{
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Provenance:   model.ProvenanceDefault,
	}, true, nil
}
