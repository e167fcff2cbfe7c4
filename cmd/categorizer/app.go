package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sananlb/Expense-bot-sub000/internal/config"
	"github.com/sananlb/Expense-bot-sub000/internal/dictionary"
	"github.com/sananlb/Expense-bot-sub000/internal/engine"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/sananlb/Expense-bot-sub000/internal/router"
	"github.com/sananlb/Expense-bot-sub000/internal/storage"
)

// app holds the wired categorization pipeline for one command run.
type app struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	router   *router.Router
	keys     *llm.KeyRegistry
	alerts   *notify.Dispatcher
	resolver *engine.Resolver
}

// openStorage opens the configured database without migrating it.
func openStorage(cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path,
		storage.WithKeywordLimits(cfg.Database.MaxKeywordLength, cfg.Database.MaxKeywordsPerCategory))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newApp opens and migrates storage, loads the dictionary and, when routes
// are configured, builds the provider router.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dict, err := loadDictionary(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		keys:   llm.NewKeyRegistry(cfg.AI.Cooldown, nil),
		alerts: newDispatcher(cfg),
	}

	if len(cfg.AI.Routes) > 0 {
		if a.router, err = a.buildRouter(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	opts := []engine.Option{
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithNotifier(a.alerts),
	}
	if cfg.AIEnabled() {
		opts = append(opts, engine.WithClassifier(a.router))
	}
	a.resolver = engine.New(store, pattern.NewMatcher(cfg.Thresholds()), dict, opts...)

	return a, nil
}

func loadDictionary(cfg *config.Config) (*dictionary.Dictionary, error) {
	if cfg.Dictionary.Path == "" {
		return dictionary.Default()
	}
	dict, err := dictionary.LoadFile(cfg.Dictionary.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dictionary: %w", err)
	}
	return dict, nil
}

func newDispatcher(cfg *config.Config) *notify.Dispatcher {
	sinks := []notify.Sink{notify.LogSink{Logger: slog.Default()}}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, nil))
	}
	return notify.NewDispatcher(sinks, notify.WithInterval(cfg.Notify.Interval))
}

func (a *app) buildRouter() (*router.Router, error) {
	routes, err := a.cfg.RouterRoutes()
	if err != nil {
		return nil, err
	}
	transports, err := llm.NewTransports(a.cfg.AI.ProxyURL)
	if err != nil {
		return nil, err
	}

	clientOpts := []llm.Option{
		llm.WithKeyRegistry(a.keys),
		llm.WithTransports(transports),
		llm.WithNotifier(a.alerts),
		llm.WithTimeout(a.cfg.AI.Timeout),
		llm.WithCacheTTL(a.cfg.AI.CacheTTL),
	}
	r, err := router.Build(routes, clientOpts, router.WithNotifier(a.alerts))
	if err != nil {
		return nil, fmt.Errorf("failed to build provider router: %w", err)
	}
	return r, nil
}

// Close flushes pending alerts and closes storage.
func (a *app) Close() error {
	a.alerts.Wait()
	return a.store.Close()
}
