// Package router maps functional areas onto a primary AI client and at most
// one fallback client.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/notify"
)

// Client is the AI client surface the router needs.
type Client interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
	Categorize(ctx context.Context, req llm.CategorizeRequest) (llm.Categorization, error)
	ProviderName() string
}

// Route is the client pair for one area.
type Route struct {
	Primary  Client
	Fallback Client
}

// Router selects clients per functional area.
type Router struct {
	routes   map[model.FunctionalArea]Route
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithNotifier sets where fallback alerts go.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Router) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// New creates a router from ready clients. Every route needs a primary.
func New(routes map[model.FunctionalArea]Route, opts ...Option) (*Router, error) {
	r := &Router{
		routes:   make(map[model.FunctionalArea]Route, len(routes)),
		notifier: notify.Nop{},
		logger:   slog.Default(),
	}
	for area, route := range routes {
		if route.Primary == nil {
			return nil, fmt.Errorf("area %s: %w: primary provider is required", area, common.ErrInvalidConfig)
		}
		r.routes[area] = route
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Target names a provider and model.
type Target struct {
	Provider llm.Provider
	Model    string
}

// AreaRoute is the configuration of one area.
type AreaRoute struct {
	Fallback *Target
	Primary  Target
	// Timeout overrides the client timeout for every call in the area.
	Timeout time.Duration
}

// Build creates the clients for every configured area. clientOpts are applied
// to every client; pass llm.WithKeyRegistry so clients for the same provider
// share one credential pool.
func Build(routes map[model.FunctionalArea]AreaRoute, clientOpts []llm.Option, opts ...Option) (*Router, error) {
	clients := make(map[model.FunctionalArea]Route, len(routes))
	for area, cfg := range routes {
		areaOpts := append([]llm.Option{}, clientOpts...)
		if cfg.Timeout > 0 {
			areaOpts = append(areaOpts, llm.WithTimeout(cfg.Timeout))
		}

		primary, err := llm.NewClient(cfg.Primary.Provider, cfg.Primary.Model, areaOpts...)
		if err != nil {
			return nil, fmt.Errorf("area %s primary: %w", area, err)
		}
		route := Route{Primary: primary}

		if cfg.Fallback != nil {
			fallback, err := llm.NewClient(cfg.Fallback.Provider, cfg.Fallback.Model, areaOpts...)
			if err != nil {
				return nil, fmt.Errorf("area %s fallback: %w", area, err)
			}
			route.Fallback = fallback
		}
		clients[area] = route
	}
	return New(clients, opts...)
}

// Primary returns the primary client of area, or nil when the area is not configured.
func (r *Router) Primary(area model.FunctionalArea) Client {
	return r.routes[area].Primary
}

// Fallback returns the fallback client of area, or nil when none is configured.
func (r *Router) Fallback(area model.FunctionalArea) Client {
	return r.routes[area].Fallback
}

// Configured reports whether area has a route.
func (r *Router) Configured(area model.FunctionalArea) bool {
	_, ok := r.routes[area]
	return ok
}

// Complete runs a chat call on the area's primary and, if that fails, on its
// fallback exactly once.
func (r *Router) Complete(ctx context.Context, area model.FunctionalArea, req llm.ChatRequest) (llm.ChatResponse, error) {
	return withFallback(ctx, r, area, func(c Client) (llm.ChatResponse, error) {
		return c.Chat(ctx, req)
	})
}

// Categorize runs a categorization on the categorization area with the same
// single-fallback rule as Complete.
func (r *Router) Categorize(ctx context.Context, req llm.CategorizeRequest) (llm.Categorization, error) {
	return withFallback(ctx, r, model.AreaCategorization, func(c Client) (llm.Categorization, error) {
		return c.Categorize(ctx, req)
	})
}

func withFallback[T any](ctx context.Context, r *Router, area model.FunctionalArea, call func(Client) (T, error)) (T, error) {
	var zero T
	route, ok := r.routes[area]
	if !ok {
		return zero, fmt.Errorf("area %s: %w: no provider configured", area, common.ErrTotalAIFailure)
	}

	result, primaryErr := call(route.Primary)
	if primaryErr == nil {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	r.logger.Warn("primary provider failed",
		"area", area,
		"provider", route.Primary.ProviderName(),
		"error", primaryErr)

	if route.Fallback == nil {
		return zero, fmt.Errorf("%w: %w", common.ErrTotalAIFailure, primaryErr)
	}

	r.notifier.Notify(ctx, notify.Alert{
		Class:   notify.ClassFallbackUsed,
		Message: fmt.Sprintf("%s provider failed for %s, using %s", route.Primary.ProviderName(), area, route.Fallback.ProviderName()),
		Fields: map[string]any{
			"area":     string(area),
			"primary":  route.Primary.ProviderName(),
			"fallback": route.Fallback.ProviderName(),
			"kind":     string(llm.KindOf(primaryErr)),
		},
	})

	result, fallbackErr := call(route.Fallback)
	if fallbackErr == nil {
		r.logger.Info("fallback provider succeeded",
			"area", area,
			"provider", route.Fallback.ProviderName())
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	return zero, fmt.Errorf("%w: %w", common.ErrTotalAIFailure, errors.Join(primaryErr, fallbackErr))
}
