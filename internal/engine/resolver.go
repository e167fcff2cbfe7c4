// Package engine resolves a transaction description to one of the owner's
// categories by running an ordered cascade of lookups.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/dictionary"
	"github.com/sananlb/Expense-bot-sub000/internal/learning"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// Config holds resolver options.
type Config struct {
	DefaultExpenseName   string
	DefaultIncomeName    string
	MaxDescriptionLength int
	RecentCategories     int
	BatchWorkers         int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultExpenseName:   "Other expenses",
		DefaultIncomeName:    "Other income",
		MaxDescriptionLength: 500,
		RecentCategories:     3,
		BatchWorkers:         4,
	}
}

// Resolver categorizes transaction drafts.
type Resolver struct {
	store      Store
	matcher    pattern.KeywordMatcher
	dict       *dictionary.Dictionary
	classifier Classifier
	learner    KeywordLearner
	notifier   notify.Notifier
	logger     *slog.Logger
	strategies []strategy
	cfg        Config
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConfig replaces the default configuration. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(r *Resolver) {
		def := DefaultConfig()
		if cfg.DefaultExpenseName == "" {
			cfg.DefaultExpenseName = def.DefaultExpenseName
		}
		if cfg.DefaultIncomeName == "" {
			cfg.DefaultIncomeName = def.DefaultIncomeName
		}
		if cfg.MaxDescriptionLength <= 0 {
			cfg.MaxDescriptionLength = def.MaxDescriptionLength
		}
		if cfg.RecentCategories <= 0 {
			cfg.RecentCategories = def.RecentCategories
		}
		if cfg.BatchWorkers <= 0 {
			cfg.BatchWorkers = def.BatchWorkers
		}
		r.cfg = cfg
	}
}

// WithClassifier enables the AI lookup.
func WithClassifier(c Classifier) Option {
	return func(r *Resolver) {
		r.classifier = c
	}
}

// WithLearner replaces the learner fed by AI answers and corrections.
func WithLearner(l KeywordLearner) Option {
	return func(r *Resolver) {
		r.learner = l
	}
}

// WithNotifier sets where total AI failure alerts go.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Resolver) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a resolver. A nil dictionary disables the global lookup.
func New(store Store, matcher pattern.KeywordMatcher, dict *dictionary.Dictionary, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		matcher:  matcher,
		dict:     dict,
		notifier: notify.Nop{},
		logger:   slog.Default(),
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.learner == nil {
		r.learner = learning.New(store, r.logger)
	}
	r.strategies = []strategy{
		{name: "personal_lookup", run: r.personalLookup},
		{name: "global_lookup", run: r.globalLookup},
		{name: "ai_lookup", run: r.aiLookup},
		{name: "default", run: r.defaultBucket},
	}
	return r
}

// Resolve runs the cascade for draft. Lookups run in order and the first hit
// wins. Provider failures never surface here; only invalid input, storage
// failures and caller cancellation do.
func (r *Resolver) Resolve(ctx context.Context, draft model.TransactionDraft) (model.CategorizationResult, error) {
	if err := r.validate(draft); err != nil {
		return model.CategorizationResult{}, err
	}

	requestID := uuid.NewString()
	res := &resolution{
		draft:  draft,
		text:   textnorm.Normalize(draft.RawText),
		logger: r.logger.With("request_id", requestID, "owner_id", draft.OwnerID),
	}

	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return model.CategorizationResult{}, err
		}
		result, ok, err := s.run(ctx, res)
		if err != nil {
			return model.CategorizationResult{}, fmt.Errorf("%s: %w", s.name, err)
		}
		if !ok {
			continue
		}

		result.RequestID = requestID
		res.logger.Info("transaction categorized",
			"provenance", result.Provenance,
			"category_id", result.CategoryID,
			"category", result.CategoryName,
			"provider", result.ProviderUsed)
		return result, nil
	}

	// The default bucket always answers.
	return model.CategorizationResult{}, fmt.Errorf("no lookup produced a category: %w", common.ErrNotFound)
}

// Correct files the draft's description under categoryID, moving the learned
// phrase out of any other category.
func (r *Resolver) Correct(ctx context.Context, draft model.TransactionDraft, categoryID int64) (*model.Keyword, error) {
	if err := r.validate(draft); err != nil {
		return nil, err
	}

	cat, err := r.store.GetCategory(ctx, draft.OwnerID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	if !cat.IsActive {
		return nil, fmt.Errorf("category %d is inactive: %w", categoryID, common.ErrNotFound)
	}

	kw, err := r.learner.Learn(ctx, draft.OwnerID, cat.ID, draft.RawText)
	if err != nil {
		return nil, err
	}
	r.logger.Info("manual correction applied",
		"owner_id", draft.OwnerID,
		"category_id", cat.ID,
		"learned", kw != nil)
	return kw, nil
}

func (r *Resolver) validate(draft model.TransactionDraft) error {
	if draft.OwnerID <= 0 {
		return common.NewValidationError("owner_id", "must be positive")
	}
	if !draft.CategoryType().Valid() {
		return common.NewValidationError("type", fmt.Sprintf("unknown category type %q", draft.Type))
	}
	text := strings.TrimSpace(draft.RawText)
	if text == "" {
		return common.NewValidationError("description", "must not be empty")
	}
	if n := textnorm.RuneLen(text); n > r.cfg.MaxDescriptionLength {
		return common.NewValidationError("description",
			fmt.Sprintf("is %d characters, at most %d allowed", n, r.cfg.MaxDescriptionLength))
	}
	return nil
}
