package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sananlb/Expense-bot-sub000/internal/notify"
)

// ChatRequest is one chat-style call.
type ChatRequest struct {
	System string
	Prompt string
	// Tools are dialect-specific tool definitions passed through verbatim.
	Tools []json.RawMessage
	// Timeout overrides the client timeout for this call.
	Timeout time.Duration
	// StructuredOnly drops Tools and asks the provider for JSON output.
	StructuredOnly bool
}

// ChatResponse is the text a provider produced.
type ChatResponse struct {
	Text     string
	Provider string
	Model    string
}

// dialect is a wire codec. It returns the reply text or an error, which is
// either a *ProviderError or a raw transport error.
type dialect interface {
	chat(ctx context.Context, hc *http.Client, key string, req ChatRequest) (string, error)
}

// Client calls one provider+model. It is safe for concurrent use.
type Client struct {
	dialect    dialect
	pool       *KeyPool
	limiter    *rate.Limiter
	cache      *resultCache
	notifier   notify.Notifier
	logger     *slog.Logger
	transports Transports
	provider   Provider
	model      string
	timeout    time.Duration
}

// ProviderName returns the provider class name.
func (c *Client) ProviderName() string {
	return c.provider.Name
}

// Model returns the model the client calls.
func (c *Client) Model() string {
	return c.model
}

// Keys returns the credential pool the client draws from.
func (c *Client) Keys() *KeyPool {
	return c.pool
}

// Chat performs one provider call bounded by the request or client timeout.
// The call runs detached from ctx: when the caller gives up first, Chat
// returns ctx.Err() and the in-flight call finishes in the background with
// its result discarded.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return ChatResponse{}, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	type result struct {
		err  error
		resp ChatResponse
	}
	done := make(chan result, 1)
	go func() {
		defer cancel()
		resp, err := c.do(callCtx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		c.logger.Debug("caller abandoned provider call",
			"provider", c.provider.Name,
			"model", c.model)
		return ChatResponse{}, ctx.Err()
	}
}

func (c *Client) do(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.StructuredOnly {
		req.Tools = nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return ChatResponse{}, &ProviderError{Provider: c.provider.Name, Kind: KindTimeout, Err: err}
		}
	}

	idx, key, err := c.pool.Acquire()
	if err != nil {
		return ChatResponse{}, &ProviderError{Provider: c.provider.Name, Kind: KindRateLimit, Err: err}
	}

	hc, viaProxy := c.httpClient()
	text, err := c.dialect.chat(ctx, hc, key, req)
	if err != nil {
		pe := c.asProviderError(err, viaProxy)
		if viaProxy && pe.Kind == KindNetwork && ctx.Err() == nil {
			c.logger.Warn("proxy call failed, retrying direct",
				"provider", c.provider.Name,
				"error", pe.Err)
			c.notifier.Notify(ctx, notify.Alert{
				Class:   notify.ClassProxyFallback,
				Message: "provider unreachable through proxy, retried direct",
				Fields:  map[string]any{"provider": c.provider.Name, "error": pe.Error()},
			})
			text, err = c.dialect.chat(ctx, c.transports.Direct, key, req)
			if err != nil {
				pe = c.asProviderError(err, false)
			}
		}
		if err != nil {
			if pe.PenalizesKey() {
				c.pool.MarkFailure(idx)
				c.logger.Warn("credential put on cooldown",
					"provider", c.provider.Name,
					"key_index", idx,
					"kind", pe.Kind)
			}
			return ChatResponse{}, pe
		}
	}

	c.pool.MarkSuccess(idx)
	return ChatResponse{Text: text, Provider: c.provider.Name, Model: c.model}, nil
}

func (c *Client) httpClient() (*http.Client, bool) {
	if c.provider.UseProxy && c.transports.Proxied != nil {
		return c.transports.Proxied, true
	}
	return c.transports.Direct, false
}

func (c *Client) asProviderError(err error, viaProxy bool) *ProviderError {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		pe = classifyTransportError(c.provider.Name, err)
	}
	pe.ViaProxy = viaProxy
	return pe
}
