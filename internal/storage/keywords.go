package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

// GetKeywordsByCategory returns the owner's keywords grouped under their active
// categories, in category creation order. Within a category the most used
// keywords come first.
func (s *SQLiteStorage) GetKeywordsByCategory(ctx context.Context, ownerID int64, categoryType model.CategoryType) ([]model.CategoryKeywords, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	categories, err := s.GetCategories(ctx, ownerID, categoryType)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}

	query := `
		SELECT k.id, k.owner_id, k.category_id, k.keyword, k.language, k.usage_count, k.last_used_at, k.created_at
		FROM keywords k
		JOIN categories c ON c.id = k.category_id
		WHERE k.owner_id = ? AND c.is_active = 1`
	args := []any{ownerID}
	if categoryType != "" {
		query += ` AND c.type = ?`
		args = append(args, string(categoryType))
	}
	query += ` ORDER BY k.category_id, k.usage_count DESC, k.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byCategory := make(map[int64][]model.Keyword)
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		byCategory[kw.CategoryID] = append(byCategory[kw.CategoryID], *kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}

	grouped := make([]model.CategoryKeywords, 0, len(categories))
	for _, cat := range categories {
		grouped = append(grouped, model.CategoryKeywords{
			Category: cat,
			Keywords: byCategory[cat.ID],
		})
	}
	return grouped, nil
}

func scanKeyword(row rowScanner) (*model.Keyword, error) {
	var (
		kw       model.Keyword
		lastUsed sql.NullTime
	)
	if err := row.Scan(&kw.ID, &kw.OwnerID, &kw.CategoryID, &kw.Phrase, &kw.Language, &kw.UsageCount, &lastUsed, &kw.CreatedAt); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		kw.LastUsedAt = &t
	}
	return &kw, nil
}

// EnsureUniqueKeyword stores phrase under categoryID for the owner and removes
// it from every other category of that owner, all in one transaction. The
// phrase is normalized, rejected when shorter than MinKeywordLength runes and
// truncated at a word boundary to the configured maximum length. When the
// category then holds more keywords than its cap, the least recently used are
// evicted. Repeated calls leave exactly one row.
func (s *SQLiteStorage) EnsureUniqueKeyword(ctx context.Context, ownerID, categoryID int64, phrase, language string) (*model.Keyword, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateOwner(ownerID); err != nil {
		return nil, err
	}

	phrase = textnorm.TruncateWords(textnorm.Normalize(phrase), s.maxKeywordLength)
	if textnorm.RuneLen(phrase) < MinKeywordLength {
		return nil, common.NewValidationError("keyword", fmt.Sprintf("must be at least %d characters", MinKeywordLength))
	}
	if language == "" {
		language = textnorm.DetectLanguage(phrase)
	}

	var stored *model.Keyword
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var catOwner int64
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM categories WHERE id = ? AND is_active = 1`, categoryID).Scan(&catOwner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && catOwner != ownerID) {
			return fmt.Errorf("category %d: %w", categoryID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check category: %w", err)
		}

		// Usage history survives only when the phrase stays in the same category.
		var (
			usage    int
			lastUsed sql.NullTime
		)
		err = tx.QueryRowContext(ctx, `
			SELECT usage_count, last_used_at FROM keywords
			WHERE owner_id = ? AND keyword = ? AND category_id = ?
			ORDER BY usage_count DESC LIMIT 1`, ownerID, phrase, categoryID).Scan(&usage, &lastUsed)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read existing keyword: %w", err)
		}

		removed, err := tx.ExecContext(ctx, `DELETE FROM keywords WHERE owner_id = ? AND keyword = ?`, ownerID, phrase)
		if err != nil {
			return fmt.Errorf("failed to remove keyword duplicates: %w", err)
		}

		now := s.timestamp()
		var lastUsedArg any
		if lastUsed.Valid {
			lastUsedArg = lastUsed.Time
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO keywords (owner_id, category_id, keyword, language, usage_count, last_used_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ownerID, categoryID, phrase, language, usage, lastUsedArg, now)
		if err != nil {
			return fmt.Errorf("failed to insert keyword: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get keyword ID: %w", err)
		}

		evicted, err := tx.ExecContext(ctx, `
			DELETE FROM keywords WHERE id IN (
				SELECT id FROM keywords
				WHERE category_id = ? AND id != ?
				ORDER BY COALESCE(last_used_at, created_at) DESC, id DESC
				LIMIT -1 OFFSET ?
			)`, categoryID, id, s.maxPerCategory-1)
		if err != nil {
			return fmt.Errorf("failed to evict keywords: %w", err)
		}

		stored = &model.Keyword{
			ID:         id,
			OwnerID:    ownerID,
			CategoryID: categoryID,
			Phrase:     phrase,
			Language:   language,
			UsageCount: usage,
			CreatedAt:  now,
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			stored.LastUsedAt = &t
		}

		nRemoved, _ := removed.RowsAffected()
		nEvicted, _ := evicted.RowsAffected()
		slog.Debug("stored keyword",
			"owner_id", ownerID,
			"category_id", categoryID,
			"keyword", phrase,
			"replaced", nRemoved,
			"evicted", nEvicted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// TouchKeyword records a match on one of the owner's keywords: usage count
// plus one and last use set to now.
func (s *SQLiteStorage) TouchKeyword(ctx context.Context, ownerID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE keywords SET usage_count = usage_count + 1, last_used_at = ?
		WHERE id = ? AND owner_id = ?`, s.timestamp(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to touch keyword: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("keyword %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteKeyword removes one of the owner's keywords.
func (s *SQLiteStorage) DeleteKeyword(ctx context.Context, ownerID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM keywords WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("keyword %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// RecentCategories returns up to limit active categories ordered by the most
// recent use of any of their keywords.
func (s *SQLiteStorage) RecentCategories(ctx context.Context, ownerID int64, categoryType model.CategoryType, limit int) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT c.id, c.owner_id, c.name, c.locales, c.icon, c.type, c.is_active, c.created_at
		FROM categories c
		JOIN keywords k ON k.category_id = c.id
		WHERE c.owner_id = ? AND c.is_active = 1 AND k.last_used_at IS NOT NULL`
	args := []any{ownerID}
	if categoryType != "" {
		query += ` AND c.type = ?`
		args = append(args, string(categoryType))
	}
	query += `
		GROUP BY c.id
		ORDER BY MAX(k.last_used_at) DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}
