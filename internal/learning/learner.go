package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/service"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// Learner stores at most one phrase per confirmed transaction.
type Learner struct {
	store  service.KeywordStore
	logger *slog.Logger
}

// New creates a Learner backed by store.
func New(store service.KeywordStore, logger *slog.Logger) *Learner {
	return &Learner{store: store, logger: common.LoggerOrDefault(logger)}
}

// Learn extracts a phrase from description and files it under categoryID for
// the owner, moving it out of any other category. It returns nil when the
// description yields nothing worth learning.
func (l *Learner) Learn(ctx context.Context, ownerID, categoryID int64, description string) (*model.Keyword, error) {
	phrase := Extract(description)
	if phrase == "" {
		l.logger.Debug("nothing to learn", "owner_id", ownerID, "description_tokens", len(textnorm.Tokens(description)))
		return nil, nil
	}

	kw, err := l.store.EnsureUniqueKeyword(ctx, ownerID, categoryID, phrase, textnorm.DetectLanguage(phrase))
	if errors.Is(err, common.ErrValidation) {
		l.logger.Debug("phrase rejected", "owner_id", ownerID, "phrase", phrase, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to learn %q: %w", phrase, err)
	}

	l.logger.Info("learned keyword",
		"owner_id", ownerID,
		"category_id", categoryID,
		"keyword", kw.Phrase)
	return kw, nil
}
