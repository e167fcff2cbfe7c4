package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countKeywordRows(t *testing.T, s *SQLiteStorage, owner int64, phrase string) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM keywords WHERE owner_id = ? AND keyword = ?`, owner, phrase).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestEnsureUniqueKeyword(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)
	cafes := createCategory(t, store, 1, "Cafes", model.CategoryTypeExpense)

	t.Run("normalizes and detects language", func(t *testing.T) {
		kw, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "  Хлеб 🍞 ", "")
		require.NoError(t, err)
		assert.Equal(t, "хлеб", kw.Phrase)
		assert.Equal(t, "ru", kw.Language)
	})

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "pizza", "en")
			require.NoError(t, err)
		}
		assert.Equal(t, 1, countKeywordRows(t, store, 1, "pizza"))
	})

	t.Run("relearning moves the phrase", func(t *testing.T) {
		_, err := store.EnsureUniqueKeyword(ctx, 1, cafes.ID, "Pizza", "en")
		require.NoError(t, err)
		assert.Equal(t, 1, countKeywordRows(t, store, 1, "pizza"))

		var catID int64
		require.NoError(t, store.db.QueryRow(`SELECT category_id FROM keywords WHERE owner_id = 1 AND keyword = 'pizza'`).Scan(&catID))
		assert.Equal(t, cafes.ID, catID)
	})

	t.Run("rows inserted around the invariant are cleaned up", func(t *testing.T) {
		// Simulate legacy duplicates that predate the uniqueness rule.
		for _, catID := range []int64{food.ID, cafes.ID} {
			_, err := store.db.Exec(`INSERT INTO keywords (owner_id, category_id, keyword, language, usage_count, created_at)
				VALUES (1, ?, 'sushi', 'en', 0, '2025-01-01 00:00:00')`, catID)
			require.NoError(t, err)
		}
		_, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "sushi", "en")
		require.NoError(t, err)
		assert.Equal(t, 1, countKeywordRows(t, store, 1, "sushi"))
	})

	t.Run("other owners are untouched", func(t *testing.T) {
		other := createCategory(t, store, 2, "Food", model.CategoryTypeExpense)
		_, err := store.EnsureUniqueKeyword(ctx, 2, other.ID, "pizza", "en")
		require.NoError(t, err)
		assert.Equal(t, 1, countKeywordRows(t, store, 1, "pizza"))
		assert.Equal(t, 1, countKeywordRows(t, store, 2, "pizza"))
	})

	t.Run("too short rejected", func(t *testing.T) {
		_, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "ab", "en")
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("foreign category rejected", func(t *testing.T) {
		_, err := store.EnsureUniqueKeyword(ctx, 2, food.ID, "bread", "en")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestEnsureUniqueKeyword_TruncatesAtWordBoundary(t *testing.T) {
	store, cleanup := createTestStorage(t, WithKeywordLimits(12, 0))
	defer cleanup()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)
	kw, err := store.EnsureUniqueKeyword(context.Background(), 1, food.ID, "fresh bread loaf", "en")
	require.NoError(t, err)
	assert.Equal(t, "fresh bread", kw.Phrase)
}

func TestEnsureUniqueKeyword_KeepsUsageInSameCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)
	cafes := createCategory(t, store, 1, "Cafes", model.CategoryTypeExpense)

	kw, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "bagel", "en")
	require.NoError(t, err)
	require.NoError(t, store.TouchKeyword(ctx, 1, kw.ID))
	require.NoError(t, store.TouchKeyword(ctx, 1, kw.ID))

	again, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "bagel", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, again.UsageCount)
	assert.NotNil(t, again.LastUsedAt)

	moved, err := store.EnsureUniqueKeyword(ctx, 1, cafes.ID, "bagel", "en")
	require.NoError(t, err)
	assert.Equal(t, 0, moved.UsageCount)
	assert.Nil(t, moved.LastUsedAt)
}

func TestEnsureUniqueKeyword_EvictsLeastRecentlyUsed(t *testing.T) {
	store, cleanup := createTestStorage(t, WithKeywordLimits(0, 3))
	defer cleanup()
	ctx := context.Background()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)

	first, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "apple", "en")
	require.NoError(t, err)
	_, err = store.EnsureUniqueKeyword(ctx, 1, food.ID, "banana", "en")
	require.NoError(t, err)
	_, err = store.EnsureUniqueKeyword(ctx, 1, food.ID, "cherry", "en")
	require.NoError(t, err)

	// Using apple makes banana the least recently used.
	require.NoError(t, store.TouchKeyword(ctx, 1, first.ID))

	_, err = store.EnsureUniqueKeyword(ctx, 1, food.ID, "dates", "en")
	require.NoError(t, err)

	grouped, err := store.GetKeywordsByCategory(ctx, 1, model.CategoryTypeExpense)
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	assert.ElementsMatch(t, []string{"apple", "cherry", "dates"}, grouped[0].Phrases())
}

func TestEnsureUniqueKeyword_Concurrent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	cats := []*model.Category{
		createCategory(t, store, 1, "A", model.CategoryTypeExpense),
		createCategory(t, store, 1, "B", model.CategoryTypeExpense),
		createCategory(t, store, 1, "C", model.CategoryTypeExpense),
	}

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.EnsureUniqueKeyword(ctx, 1, cats[i%len(cats)].ID, "shared phrase", "en")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, countKeywordRows(t, store, 1, "shared phrase"))
}

func TestGetKeywordsByCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)
	salary := createCategory(t, store, 1, "Salary", model.CategoryTypeIncome)
	old := createCategory(t, store, 1, "Old", model.CategoryTypeExpense)

	for i, p := range []string{"bread", "milk", "cheese"} {
		kw, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, p, "en")
		require.NoError(t, err)
		for j := 0; j < i; j++ {
			require.NoError(t, store.TouchKeyword(ctx, 1, kw.ID))
		}
	}
	_, err := store.EnsureUniqueKeyword(ctx, 1, salary.ID, "paycheck", "en")
	require.NoError(t, err)
	_, err = store.EnsureUniqueKeyword(ctx, 1, old.ID, "stale", "en")
	require.NoError(t, err)
	require.NoError(t, store.DeactivateCategory(ctx, 1, old.ID))

	grouped, err := store.GetKeywordsByCategory(ctx, 1, model.CategoryTypeExpense)
	require.NoError(t, err)
	require.Len(t, grouped, 1)
	assert.Equal(t, food.ID, grouped[0].Category.ID)
	assert.Equal(t, []string{"cheese", "milk", "bread"}, grouped[0].Phrases())

	income, err := store.GetKeywordsByCategory(ctx, 1, model.CategoryTypeIncome)
	require.NoError(t, err)
	require.Len(t, income, 1)
	assert.Equal(t, []string{"paycheck"}, income[0].Phrases())
}

func TestTouchAndDeleteKeyword(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	food := createCategory(t, store, 1, "Food", model.CategoryTypeExpense)
	kw, err := store.EnsureUniqueKeyword(ctx, 1, food.ID, "bread", "en")
	require.NoError(t, err)

	assert.ErrorIs(t, store.TouchKeyword(ctx, 2, kw.ID), common.ErrNotFound)
	require.NoError(t, store.TouchKeyword(ctx, 1, kw.ID))
	grouped, err := store.GetKeywordsByCategory(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, grouped[0].Keywords, 1)
	assert.Equal(t, 1, grouped[0].Keywords[0].UsageCount)
	assert.NotNil(t, grouped[0].Keywords[0].LastUsedAt)

	assert.ErrorIs(t, store.DeleteKeyword(ctx, 2, kw.ID), common.ErrNotFound)
	require.NoError(t, store.DeleteKeyword(ctx, 1, kw.ID))
	assert.ErrorIs(t, store.TouchKeyword(ctx, 1, kw.ID), common.ErrNotFound)
}

func TestRecentCategories(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	var cats []*model.Category
	for i := 0; i < 4; i++ {
		cat := createCategory(t, store, 1, fmt.Sprintf("Cat %d", i), model.CategoryTypeExpense)
		cats = append(cats, cat)
		kw, err := store.EnsureUniqueKeyword(ctx, 1, cat.ID, fmt.Sprintf("word%d", i), "en")
		require.NoError(t, err)
		if i > 0 {
			require.NoError(t, store.TouchKeyword(ctx, 1, kw.ID))
		}
	}

	recent, err := store.RecentCategories(ctx, 1, model.CategoryTypeExpense, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, cats[3].ID, recent[0].ID)
	assert.Equal(t, cats[2].ID, recent[1].ID)

	none, err := store.RecentCategories(ctx, 1, model.CategoryTypeIncome, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}
