package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/textnorm"
)

const categoryColumns = `id, owner_id, name, locales, icon, type, is_active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*model.Category, error) {
	var (
		cat     model.Category
		locales string
		typ     string
	)
	if err := row.Scan(&cat.ID, &cat.OwnerID, &cat.Name, &locales, &cat.Icon, &typ, &cat.IsActive, &cat.CreatedAt); err != nil {
		return nil, err
	}
	cat.Type = model.CategoryType(typ)
	if locales != "" && locales != "{}" {
		if err := json.Unmarshal([]byte(locales), &cat.Locales); err != nil {
			return nil, fmt.Errorf("failed to decode locales for category %d: %w", cat.ID, err)
		}
	}
	return &cat, nil
}

func encodeLocales(locales map[string]string) (string, error) {
	if len(locales) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(locales)
	if err != nil {
		return "", fmt.Errorf("failed to encode locales: %w", err)
	}
	return string(b), nil
}

// CreateCategory creates a category for its owner. A name that collides with an
// active category of the same owner (after normalization) is rejected with a
// DuplicateCategoryError; an inactive namesake is reactivated instead.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, cat model.Category) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateOwner(cat.OwnerID); err != nil {
		return nil, err
	}
	if cat.Type == "" {
		cat.Type = model.CategoryTypeExpense
	}
	if err := validateCategoryType(cat.Type); err != nil {
		return nil, err
	}
	cat.Name = textnorm.StripDecoration(cat.Name)
	normalized := textnorm.Normalize(cat.Name)
	if normalized == "" {
		return nil, common.NewValidationError("category name", "must contain letters or digits")
	}
	locales, err := encodeLocales(cat.Locales)
	if err != nil {
		return nil, err
	}

	var created *model.Category
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			existingID int64
			active     bool
		)
		scanErr := tx.QueryRowContext(ctx, `
			SELECT id, is_active FROM categories
			WHERE owner_id = ? AND normalized_name = ?
			ORDER BY is_active DESC, id
			LIMIT 1`, cat.OwnerID, normalized).Scan(&existingID, &active)

		now := s.timestamp()
		switch {
		case scanErr == nil && active:
			return &common.DuplicateCategoryError{Name: cat.Name, ExistingID: existingID}
		case scanErr == nil:
			if _, err := tx.ExecContext(ctx, `
				UPDATE categories
				SET is_active = 1, name = ?, locales = ?, icon = ?, type = ?, updated_at = ?
				WHERE id = ?`, cat.Name, locales, cat.Icon, string(cat.Type), now, existingID); err != nil {
				return fmt.Errorf("failed to reactivate category: %w", err)
			}
			slog.Info("reactivated existing category", "owner_id", cat.OwnerID, "name", cat.Name, "id", existingID)
			row := tx.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, existingID)
			c, err := scanCategory(row)
			if err != nil {
				return fmt.Errorf("failed to reload category: %w", err)
			}
			created = c
			return nil
		case !errors.Is(scanErr, sql.ErrNoRows):
			return fmt.Errorf("failed to check existing category: %w", scanErr)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO categories (owner_id, name, normalized_name, locales, icon, type, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			cat.OwnerID, cat.Name, normalized, locales, cat.Icon, string(cat.Type), now, now)
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category ID: %w", err)
		}

		cat.ID = id
		cat.IsActive = true
		cat.CreatedAt = now
		created = &cat
		slog.Info("created new category", "owner_id", cat.OwnerID, "name", cat.Name, "id", id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetCategory returns one of the owner's categories, active or not.
func (s *SQLiteStorage) GetCategory(ctx context.Context, ownerID, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE owner_id = ? AND id = ?`, ownerID, id)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetCategories returns the owner's active categories of the given type in
// creation order. An empty type returns every active category.
func (s *SQLiteStorage) GetCategories(ctx context.Context, ownerID int64, categoryType model.CategoryType) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE owner_id = ? AND is_active = 1`
	args := []any{ownerID}
	if categoryType != "" {
		query += ` AND type = ?`
		args = append(args, string(categoryType))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
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

	slog.Debug("retrieved categories", "owner_id", ownerID, "count", len(categories))
	return categories, nil
}

// FindCategoryByName looks up an active category by any of its display names.
// It returns nil when nothing matches.
func (s *SQLiteStorage) FindCategoryByName(ctx context.Context, ownerID int64, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	normalized := textnorm.Normalize(name)
	if normalized == "" {
		return nil, common.NewValidationError("category name", "must contain letters or digits")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE owner_id = ? AND normalized_name = ? AND is_active = 1
		ORDER BY id LIMIT 1`, ownerID, normalized)
	cat, err := scanCategory(row)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	all, err := s.GetCategories(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		for _, n := range all[i].Locales {
			if textnorm.Normalize(n) == normalized {
				return &all[i], nil
			}
		}
	}
	return nil, nil
}

// RenameCategory changes a category's display name.
func (s *SQLiteStorage) RenameCategory(ctx context.Context, ownerID, id int64, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	name = textnorm.StripDecoration(name)
	normalized := textnorm.Normalize(name)
	if normalized == "" {
		return common.NewValidationError("category name", "must contain letters or digits")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var existingID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM categories
			WHERE owner_id = ? AND normalized_name = ? AND is_active = 1 AND id != ?
			LIMIT 1`, ownerID, normalized, id).Scan(&existingID)
		if err == nil {
			return &common.DuplicateCategoryError{Name: name, ExistingID: existingID}
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check existing category: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE categories SET name = ?, normalized_name = ?, updated_at = ?
			WHERE owner_id = ? AND id = ?`, name, normalized, s.timestamp(), ownerID, id)
		if err != nil {
			return fmt.Errorf("failed to rename category: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
		}
		slog.Info("renamed category", "owner_id", ownerID, "id", id, "name", name)
		return nil
	})
}

// DeactivateCategory hides a category. Its keywords stay on disk but no longer match.
func (s *SQLiteStorage) DeactivateCategory(ctx context.Context, ownerID, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET is_active = 0, updated_at = ?
		WHERE owner_id = ? AND id = ? AND is_active = 1`, s.timestamp(), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// EnsureCategory returns the owner's category of the given type with the given
// name, creating it if needed. Names are unique across types, so when the name
// is taken by a category of the other type the bucket is kept under
// "<name> (<type>)" instead.
func (s *SQLiteStorage) EnsureCategory(ctx context.Context, ownerID int64, name string, categoryType model.CategoryType) (*model.Category, error) {
	if categoryType == "" {
		categoryType = model.CategoryTypeExpense
	}

	for _, candidate := range []string{name, fmt.Sprintf("%s (%s)", name, categoryType)} {
		cat, err := s.FindCategoryByName(ctx, ownerID, candidate)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			cat, err = s.CreateCategory(ctx, model.Category{OwnerID: ownerID, Name: candidate, Type: categoryType})
			var dup *common.DuplicateCategoryError
			if !errors.As(err, &dup) {
				return cat, err
			}
			// Lost a race with a concurrent creator.
			if cat, err = s.GetCategory(ctx, ownerID, dup.ExistingID); err != nil {
				return nil, err
			}
		}
		if cat.Type == categoryType {
			return cat, nil
		}
	}
	return nil, fmt.Errorf("category %q is taken by another type: %w", name, common.ErrDuplicateCategory)
}
