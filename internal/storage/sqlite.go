// Package storage provides the SQLite persistence layer for categories and
// learned keywords.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sananlb/Expense-bot-sub000/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Keyword limits applied by EnsureUniqueKeyword.
const (
	DefaultMaxKeywordLength       = 64
	DefaultMaxKeywordsPerCategory = 50
	MinKeywordLength              = 3
)

var _ service.Storage = (*SQLiteStorage)(nil)

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db               *sql.DB
	now              func() time.Time
	dbPath           string
	maxKeywordLength int
	maxPerCategory   int
}

// Option customizes a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithKeywordLimits sets the phrase length cap and the per-category keyword cap.
func WithKeywordLimits(maxLength, maxPerCategory int) Option {
	return func(s *SQLiteStorage) {
		if maxLength > 0 {
			s.maxKeywordLength = maxLength
		}
		if maxPerCategory > 0 {
			s.maxPerCategory = maxPerCategory
		}
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Immediate transactions take the write lock up front so the
	// delete-then-insert in EnsureUniqueKeyword never interleaves.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{
		db:               db,
		dbPath:           dbPath,
		now:              time.Now,
		maxKeywordLength: DefaultMaxKeywordLength,
		maxPerCategory:   DefaultMaxKeywordsPerCategory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

func (s *SQLiteStorage) timestamp() time.Time {
	return s.now().UTC()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
