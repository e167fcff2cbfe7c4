// Package notify delivers operator alerts about AI degradation. Delivery is
// asynchronous and throttled per alert class, and failures are only logged.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
)

// Class groups alerts for throttling.
type Class string

// Alert classes.
const (
	ClassAITotalFailure Class = "ai_total_failure"
	ClassFallbackUsed   Class = "ai_fallback_used"
	ClassProxyFallback  Class = "proxy_fallback"
)

// DefaultInterval is the minimum spacing between two alerts of one class.
const DefaultInterval = time.Hour

// Alert is one operator notification.
type Alert struct {
	At      time.Time      `json:"at"`
	Fields  map[string]any `json:"fields,omitempty"`
	Class   Class          `json:"class"`
	Message string         `json:"message"`
}

// Notifier accepts alerts. Implementations must not block the caller on
// delivery and never report delivery errors.
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

// Sink performs the actual delivery.
type Sink interface {
	Send(ctx context.Context, alert Alert) error
}

// Nop discards every alert.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Alert) {}

// Dispatcher throttles alerts per class and sends them to its sinks in the background.
type Dispatcher struct {
	limiters map[Class]*rate.Limiter
	now      func() time.Time
	logger   *slog.Logger
	sinks    []Sink
	interval time.Duration
	timeout  time.Duration
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInterval sets the per-class throttle interval.
func WithInterval(d time.Duration) DispatcherOption {
	return func(n *Dispatcher) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithClock replaces the clock used for throttling.
func WithClock(now func() time.Time) DispatcherOption {
	return func(n *Dispatcher) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLogger sets the logger used for throttling and delivery failures.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(n *Dispatcher) {
		n.logger = common.LoggerOrDefault(l)
	}
}

// NewDispatcher creates a dispatcher that fans alerts out to sinks.
func NewDispatcher(sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		limiters: make(map[Class]*rate.Limiter),
		now:      time.Now,
		logger:   slog.Default(),
		sinks:    sinks,
		interval: DefaultInterval,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify implements Notifier.
func (d *Dispatcher) Notify(ctx context.Context, alert Alert) {
	now := d.now()
	if alert.At.IsZero() {
		alert.At = now
	}
	if !d.allow(alert.Class, now) {
		d.logger.Debug("alert throttled", "class", alert.Class)
		return
	}

	// Delivery outlives the request that triggered it.
	sendCtx := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			c, cancel := context.WithTimeout(sendCtx, d.timeout)
			defer cancel()
			if err := sink.Send(c, alert); err != nil {
				d.logger.Warn("failed to deliver alert", "class", alert.Class, "error", err)
			}
		}(sink)
	}
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) allow(class Class, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[class]
	if !ok {
		l = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[class] = l
	}
	return l.AllowN(now, 1)
}
