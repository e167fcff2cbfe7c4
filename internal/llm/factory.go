package llm

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sananlb/Expense-bot-sub000/internal/notify"
)

// Option configures a Client.
type Option func(*Client)

// WithKeyRegistry makes the client draw credentials from registry instead of
// the process-wide one.
func WithKeyRegistry(registry *KeyRegistry) Option {
	return func(c *Client) {
		c.pool = registry.Pool(c.provider)
	}
}

// WithTransports sets the HTTP clients used for direct and proxied calls.
func WithTransports(t Transports) Option {
	return func(c *Client) {
		c.transports = t
	}
}

// WithNotifier sets where proxy fallback alerts go.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCacheTTL sets how long categorization results are reused. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = newResultCache(ttl, time.Now)
	}
}

// NewClient creates a client for provider p calling model.
func NewClient(p Provider, model string, opts ...Option) (*Client, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("provider %s: model is required", p.Name)
	}

	c := &Client{
		provider: p,
		model:    model,
		timeout:  DefaultTimeout,
		notifier: notify.Nop{},
		logger:   slog.Default(),
		cache:    newResultCache(DefaultCacheTTL, time.Now),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = DefaultKeyRegistry().Pool(p)
	}
	if c.transports.Direct == nil {
		t, err := NewTransports("")
		if err != nil {
			return nil, err
		}
		c.transports.Direct = t.Direct
	}
	if p.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.RequestsPerMinute)), 1)
	}

	switch p.Dialect {
	case DialectOpenAI:
		c.dialect = &openAIDialect{provider: p, model: model}
	case DialectAnthropic:
		c.dialect = &anthropicDialect{provider: p, model: model}
	case DialectGemini:
		c.dialect = &geminiDialect{provider: p, model: model}
	default:
		return nil, fmt.Errorf("provider %s: %w %q", p.Name, ErrUnknownDialect, p.Dialect)
	}
	return c, nil
}
