package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/storage"
)

// runCLI executes the root command against a config pointing at dbPath.
func runCLI(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(filepath.Dir(dbPath), "config.yaml")
	cfg := "log:\n  level: error\ndatabase:\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--owner", "5", "--locale", "en"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_CategorizeAndCorrect(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "categorizer.db")

	_, err := runCLI(t, dbPath, "migrate")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "categories", "add", "Knitting", "--name", "ru=Вязание")
	require.NoError(t, err)

	out, err := runCLI(t, dbPath, "categorize", "yarn skein")
	require.NoError(t, err)
	assert.Contains(t, out, "Other expenses")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	knitting, err := store.FindCategoryByName(context.Background(), 5, "Knitting")
	require.NoError(t, err)
	require.NotNil(t, knitting)
	assert.Equal(t, "Вязание", knitting.Locales["ru"])

	out, err = runCLI(t, dbPath, "correct", strconv.FormatInt(knitting.ID, 10), "yarn skein")
	require.NoError(t, err)
	assert.Contains(t, out, `"yarn skein"`)

	out, err = runCLI(t, dbPath, "categorize", "yarn skein")
	require.NoError(t, err)
	assert.Contains(t, out, "Knitting")
	assert.Contains(t, out, string(model.ProvenancePersonal))
}

func TestCLI_InvalidArguments(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "categorizer.db")

	_, err := runCLI(t, dbPath, "correct", "abc", "coffee")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = runCLI(t, dbPath, "categories", "rename", "0", "Food")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = runCLI(t, dbPath, "categorize", "coffee", "--type", "transfer")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestParseLocales(t *testing.T) {
	got, err := parseLocales([]string{"ru=Кафе", " en = Cafe "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ru": "Кафе", "en": "Cafe"}, got)
	assert.Equal(t, "en=Cafe, ru=Кафе", formatLocales(got))

	_, err = parseLocales([]string{"ru"})
	assert.ErrorIs(t, err, common.ErrValidation)

	got, err = parseLocales(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseCategoryType(t *testing.T) {
	typ, err := parseCategoryType("all")
	require.NoError(t, err)
	assert.Empty(t, typ)

	typ, err = parseCategoryType("Income")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTypeIncome, typ)

	_, err = parseCategoryType("savings")
	assert.ErrorIs(t, err, common.ErrValidation)
}
