package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sananlb/Expense-bot-sub000/internal/common"
)

// LogSink writes alerts to the structured log.
type LogSink struct {
	Logger *slog.Logger
}

// Send implements Sink.
func (s LogSink) Send(ctx context.Context, alert Alert) error {
	attrs := []any{"class", alert.Class}
	for k, v := range alert.Fields {
		attrs = append(attrs, k, v)
	}
	common.LoggerOrDefault(s.Logger).WarnContext(ctx, alert.Message, attrs...)
	return nil
}

// WebhookSink posts alerts as JSON. The payload carries a preformatted "text"
// field so chat webhooks can render it directly.
type WebhookSink struct {
	client *http.Client
	url    string
	retry  common.RetryOptions
}

// NewWebhookSink creates a sink posting to url.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{
		client: client,
		url:    url,
		retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}
}

type webhookPayload struct {
	Alert
	Text string `json:"text"`
}

// Send implements Sink.
func (s *WebhookSink) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Alert: alert,
		Text:  fmt.Sprintf("[%s] %s", alert.Class, alert.Message),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	return common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err)}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("webhook status %d: %w", resp.StatusCode, common.ErrRateLimit)
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return &common.RetryableError{Err: fmt.Errorf("webhook rejected alert: status %d", resp.StatusCode)}
		}
		return nil
	}, s.retry)
}
