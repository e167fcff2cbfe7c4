package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 1 << 20

// openAIDialect speaks the chat-completions API.
type openAIDialect struct {
	provider Provider
	model    string
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (d *openAIDialect) chat(ctx context.Context, hc *http.Client, key string, req ChatRequest) (string, error) {
	messages := make([]map[string]string, 0, 2)
	if req.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	requestBody := map[string]any{
		"model":       d.model,
		"messages":    messages,
		"temperature": d.provider.temperature(),
		"max_tokens":  d.provider.maxTokens(),
	}
	if req.StructuredOnly {
		requestBody["response_format"] = map[string]string{"type": "json_object"}
	} else if len(req.Tools) > 0 {
		requestBody["tools"] = req.Tools
	}

	headers := map[string]string{"Authorization": "Bearer " + key}
	body, err := postJSON(ctx, hc, d.provider.Name, d.provider.baseURL()+"/chat/completions", headers, requestBody)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(response.Choices) == 0 {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("no completion choices returned")}
	}
	return response.Choices[0].Message.Content, nil
}

// postJSON sends body as JSON and returns the response body of a 2xx reply.
// Non-2xx replies become a *ProviderError classified by status code;
// transport failures are returned unwrapped for the caller to classify.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, headers map[string]string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Kind: KindBadRequest, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &ProviderError{Provider: provider, Kind: KindBadRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   provider,
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("API error: %s", truncateBody(respBody)),
		}
	}
	return respBody, nil
}

func truncateBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
