// Package config loads and validates the categorizer configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
	"github.com/sananlb/Expense-bot-sub000/internal/engine"
	"github.com/sananlb/Expense-bot-sub000/internal/llm"
	"github.com/sananlb/Expense-bot-sub000/internal/model"
	"github.com/sananlb/Expense-bot-sub000/internal/pattern"
	"github.com/sananlb/Expense-bot-sub000/internal/router"
	"github.com/sananlb/Expense-bot-sub000/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. CATEGORIZER_DATABASE_PATH.
const EnvPrefix = "CATEGORIZER"

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Path                   string `mapstructure:"path" yaml:"path"`
		MaxKeywordLength       int    `mapstructure:"max_keyword_length" yaml:"max_keyword_length"`
		MaxKeywordsPerCategory int    `mapstructure:"max_keywords_per_category" yaml:"max_keywords_per_category"`
	} `mapstructure:"database" yaml:"database"`

	Dictionary struct {
		// Path to a YAML dictionary; empty uses the built-in one.
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"dictionary" yaml:"dictionary"`

	Matcher MatcherConfig `mapstructure:"matcher" yaml:"matcher"`

	Resolver struct {
		DefaultExpenseCategory string `mapstructure:"default_expense_category" yaml:"default_expense_category"`
		DefaultIncomeCategory  string `mapstructure:"default_income_category" yaml:"default_income_category"`
		MaxDescriptionLength   int    `mapstructure:"max_description_length" yaml:"max_description_length"`
		RecentCategories       int    `mapstructure:"recent_categories" yaml:"recent_categories"`
		BatchWorkers           int    `mapstructure:"batch_workers" yaml:"batch_workers"`
	} `mapstructure:"resolver" yaml:"resolver"`

	AI AIConfig `mapstructure:"ai" yaml:"ai"`

	Notify struct {
		WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url"`
		Interval   time.Duration `mapstructure:"interval" yaml:"interval"`
	} `mapstructure:"notify" yaml:"notify"`
}

// MatcherConfig tunes the keyword matcher.
type MatcherConfig struct {
	MinKeywordLength    int `mapstructure:"min_keyword_length" yaml:"min_keyword_length"`
	PrefixTokens        int `mapstructure:"prefix_tokens" yaml:"prefix_tokens"`
	InflectionMinLength int `mapstructure:"inflection_min_length" yaml:"inflection_min_length"`
	MinStem             int `mapstructure:"min_stem" yaml:"min_stem"`
	StemTrim            int `mapstructure:"stem_trim" yaml:"stem_trim"`
	MaxLengthDiff       int `mapstructure:"max_length_diff" yaml:"max_length_diff"`
}

// AIConfig describes providers and per-area routes.
type AIConfig struct {
	Providers   map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
	Routes      map[string]RouteConfig    `mapstructure:"routes" yaml:"routes"`
	ProxyURL    string                    `mapstructure:"proxy_url" yaml:"proxy_url"`
	Timeout     time.Duration             `mapstructure:"timeout" yaml:"timeout"`
	LongTimeout time.Duration             `mapstructure:"long_timeout" yaml:"long_timeout"`
	Cooldown    time.Duration             `mapstructure:"cooldown" yaml:"cooldown"`
	CacheTTL    time.Duration             `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ProviderConfig is one provider class.
type ProviderConfig struct {
	Dialect string   `mapstructure:"dialect" yaml:"dialect"`
	BaseURL string   `mapstructure:"base_url" yaml:"base_url"`
	Keys    []string `mapstructure:"keys" yaml:"-"`
	// KeysEnv names an environment variable holding comma-separated keys.
	KeysEnv           string  `mapstructure:"keys_env" yaml:"keys_env"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	UseProxy          bool    `mapstructure:"use_proxy" yaml:"use_proxy"`
}

// RouteConfig is the provider choice for one functional area.
type RouteConfig struct {
	Fallback *TargetConfig `mapstructure:"fallback" yaml:"fallback"`
	Primary  TargetConfig  `mapstructure:"primary" yaml:"primary"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TargetConfig names a provider and model.
type TargetConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("database.max_keyword_length", storage.DefaultMaxKeywordLength)
	v.SetDefault("database.max_keywords_per_category", storage.DefaultMaxKeywordsPerCategory)

	v.SetDefault("dictionary.path", "")

	th := pattern.DefaultThresholds()
	v.SetDefault("matcher.min_keyword_length", th.MinKeywordLen)
	v.SetDefault("matcher.prefix_tokens", th.PrefixTokens)
	v.SetDefault("matcher.inflection_min_length", th.InflectionMinLen)
	v.SetDefault("matcher.min_stem", th.MinStem)
	v.SetDefault("matcher.stem_trim", th.StemTrim)
	v.SetDefault("matcher.max_length_diff", th.MaxLenDiff)

	rc := engine.DefaultConfig()
	v.SetDefault("resolver.default_expense_category", rc.DefaultExpenseName)
	v.SetDefault("resolver.default_income_category", rc.DefaultIncomeName)
	v.SetDefault("resolver.max_description_length", rc.MaxDescriptionLength)
	v.SetDefault("resolver.recent_categories", rc.RecentCategories)
	v.SetDefault("resolver.batch_workers", rc.BatchWorkers)

	v.SetDefault("ai.proxy_url", "")
	v.SetDefault("ai.timeout", llm.DefaultTimeout)
	v.SetDefault("ai.long_timeout", llm.DefaultLongTimeout)
	v.SetDefault("ai.cooldown", llm.DefaultCooldown)
	v.SetDefault("ai.cache_ttl", llm.DefaultCacheTTL)

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.interval", time.Hour)
}

// LoadEnvFiles loads .env files into the process environment. Missing files
// are skipped; variables already set are never overridden.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		p = ExpandPath(p)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// DefaultEnvFiles lists the .env files read at startup, in priority order.
func DefaultEnvFiles() []string {
	return []string{".env", filepath.Join(Dir(), ".env")}
}

// Load unmarshals v into a Config, resolves key environment variables and
// validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Dictionary.Path = ExpandPath(cfg.Dictionary.Path)

	for name, p := range cfg.AI.Providers {
		if p.KeysEnv != "" {
			p.Keys = append(p.Keys, splitKeys(os.Getenv(p.KeysEnv))...)
		}
		p.Keys = dedupeKeys(p.Keys)
		cfg.AI.Providers[name] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitKeys(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Validate checks the configuration. Providers are only required to be
// complete when a route references them.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrMissingConfig)
	}
	if c.Database.MaxKeywordLength < storage.MinKeywordLength {
		return fmt.Errorf("%w: database.max_keyword_length must be at least %d", common.ErrInvalidConfig, storage.MinKeywordLength)
	}
	if c.Database.MaxKeywordsPerCategory < 1 {
		return fmt.Errorf("%w: database.max_keywords_per_category must be positive", common.ErrInvalidConfig)
	}
	if c.Resolver.MaxDescriptionLength < 1 {
		return fmt.Errorf("%w: resolver.max_description_length must be positive", common.ErrInvalidConfig)
	}
	if c.Matcher.StemTrim < 0 || c.Matcher.MaxLengthDiff < 0 {
		return fmt.Errorf("%w: matcher.stem_trim and matcher.max_length_diff must not be negative", common.ErrInvalidConfig)
	}
	if c.AI.Timeout <= 0 || c.AI.LongTimeout <= 0 {
		return fmt.Errorf("%w: ai timeouts must be positive", common.ErrInvalidConfig)
	}
	if c.AI.ProxyURL != "" {
		if _, err := llm.NewTransports(c.AI.ProxyURL); err != nil {
			return fmt.Errorf("%w: ai.proxy_url: %w", common.ErrInvalidConfig, err)
		}
	}

	for _, areaName := range sortedKeys(c.AI.Routes) {
		route := c.AI.Routes[areaName]
		if !knownArea(areaName) {
			return fmt.Errorf("%w: ai.routes: unknown functional area %q", common.ErrInvalidConfig, areaName)
		}
		targets := []TargetConfig{route.Primary}
		if route.Fallback != nil {
			targets = append(targets, *route.Fallback)
		}
		for _, t := range targets {
			if _, err := c.provider(t.Provider); err != nil {
				return fmt.Errorf("%w: ai.routes.%s: %w", common.ErrInvalidConfig, areaName, err)
			}
			if strings.TrimSpace(t.Model) == "" {
				return fmt.Errorf("%w: ai.routes.%s: model is required for provider %q", common.ErrInvalidConfig, areaName, t.Provider)
			}
		}
		if route.Fallback != nil && route.Fallback.Provider == route.Primary.Provider && route.Fallback.Model == route.Primary.Model {
			return fmt.Errorf("%w: ai.routes.%s: fallback must differ from primary", common.ErrInvalidConfig, areaName)
		}
	}
	return nil
}

func (c *Config) provider(name string) (llm.Provider, error) {
	pc, ok := c.AI.Providers[name]
	if !ok {
		return llm.Provider{}, fmt.Errorf("unknown provider %q", name)
	}
	p := llm.Provider{
		Name:              name,
		Dialect:           llm.Dialect(strings.ToLower(pc.Dialect)),
		BaseURL:           pc.BaseURL,
		Keys:              pc.Keys,
		Temperature:       pc.Temperature,
		MaxTokens:         pc.MaxTokens,
		RequestsPerMinute: pc.RequestsPerMinute,
		UseProxy:          pc.UseProxy,
	}
	if err := p.Validate(); err != nil {
		return llm.Provider{}, err
	}
	return p, nil
}

// AIEnabled reports whether a categorization route is configured.
func (c *Config) AIEnabled() bool {
	_, ok := c.AI.Routes[string(model.AreaCategorization)]
	return ok
}

// Thresholds returns the matcher thresholds.
func (c *Config) Thresholds() pattern.Thresholds {
	return pattern.Thresholds{
		MinKeywordLen:    c.Matcher.MinKeywordLength,
		PrefixTokens:     c.Matcher.PrefixTokens,
		InflectionMinLen: c.Matcher.InflectionMinLength,
		MinStem:          c.Matcher.MinStem,
		StemTrim:         c.Matcher.StemTrim,
		MaxLenDiff:       c.Matcher.MaxLengthDiff,
	}
}

// EngineConfig returns the resolver configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		DefaultExpenseName:   c.Resolver.DefaultExpenseCategory,
		DefaultIncomeName:    c.Resolver.DefaultIncomeCategory,
		MaxDescriptionLength: c.Resolver.MaxDescriptionLength,
		RecentCategories:     c.Resolver.RecentCategories,
		BatchWorkers:         c.Resolver.BatchWorkers,
	}
}

// RouterRoutes converts the configured routes for router.Build. The
// analytical area uses the long timeout unless its route sets one.
func (c *Config) RouterRoutes() (map[model.FunctionalArea]router.AreaRoute, error) {
	out := make(map[model.FunctionalArea]router.AreaRoute, len(c.AI.Routes))
	for areaName, rc := range c.AI.Routes {
		area := model.FunctionalArea(areaName)

		primary, err := c.provider(rc.Primary.Provider)
		if err != nil {
			return nil, fmt.Errorf("area %s: %w", area, err)
		}
		route := router.AreaRoute{
			Primary: router.Target{Provider: primary, Model: rc.Primary.Model},
			Timeout: rc.Timeout,
		}
		if route.Timeout == 0 && area == model.AreaAnalytical {
			route.Timeout = c.AI.LongTimeout
		}
		if rc.Fallback != nil {
			fallback, err := c.provider(rc.Fallback.Provider)
			if err != nil {
				return nil, fmt.Errorf("area %s: %w", area, err)
			}
			route.Fallback = &router.Target{Provider: fallback, Model: rc.Fallback.Model}
		}
		out[area] = route
	}
	return out, nil
}

// Providers returns every configured provider that validates, sorted by name.
func (c *Config) Providers() []llm.Provider {
	var out []llm.Provider
	for _, name := range sortedKeys(c.AI.Providers) {
		if p, err := c.provider(name); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func knownArea(name string) bool {
	for _, a := range model.Areas() {
		if string(a) == name {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
