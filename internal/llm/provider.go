package llm

import (
	"fmt"
	"strings"
	"time"
)

// Dialect selects the wire format spoken by a provider.
type Dialect string

// Supported dialects.
const (
	// DialectOpenAI covers OpenAI and every chat-completions compatible
	// endpoint (DeepSeek, OpenRouter, Qwen and similar).
	DialectOpenAI Dialect = "openai"
	// DialectAnthropic is the Anthropic messages API.
	DialectAnthropic Dialect = "anthropic"
	// DialectGemini is Google's Gemini API through the official SDK.
	DialectGemini Dialect = "gemini"
)

// Default endpoints per dialect.
const (
	DefaultOpenAIURL    = "https://api.openai.com/v1"
	DefaultAnthropicURL = "https://api.anthropic.com/v1"
)

// Default call limits.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultLongTimeout = 60 * time.Second
	DefaultCooldown    = 5 * time.Minute
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 200
)

// Provider is a provider class: its identity, endpoint and credential set.
// Everything that differs between providers lives here as data.
type Provider struct {
	Name              string
	Dialect           Dialect
	BaseURL           string
	Keys              []string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
	UseProxy          bool
}

// Validate checks the provider definition.
func (p Provider) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("provider name is required")
	}
	switch p.Dialect {
	case DialectOpenAI, DialectAnthropic:
	case DialectGemini:
		if p.UseProxy {
			return fmt.Errorf("provider %s: gemini dialect does not support the outbound proxy", p.Name)
		}
	default:
		return fmt.Errorf("provider %s: %w %q", p.Name, ErrUnknownDialect, p.Dialect)
	}
	if len(p.Keys) == 0 {
		return fmt.Errorf("provider %s: at least one API key is required", p.Name)
	}
	for i, k := range p.Keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("provider %s: API key %d is empty", p.Name, i)
		}
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("provider %s: temperature must be between 0 and 2", p.Name)
	}
	return nil
}

func (p Provider) baseURL() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	switch p.Dialect {
	case DialectAnthropic:
		return DefaultAnthropicURL
	case DialectOpenAI:
		return DefaultOpenAIURL
	default:
		return ""
	}
}

func (p Provider) temperature() float64 {
	if p.Temperature == 0 {
		return DefaultTemperature
	}
	return p.Temperature
}

func (p Provider) maxTokens() int {
	if p.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return p.MaxTokens
}
