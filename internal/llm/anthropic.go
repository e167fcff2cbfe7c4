package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

const jsonOnlyInstruction = "Respond with a single JSON object only. Do not include explanatory text or markdown formatting."

// anthropicDialect speaks the messages API.
type anthropicDialect struct {
	provider Provider
	model    string
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (d *anthropicDialect) chat(ctx context.Context, hc *http.Client, key string, req ChatRequest) (string, error) {
	system := req.System
	if req.StructuredOnly {
		system = strings.TrimSpace(system + "\n\n" + jsonOnlyInstruction)
	}

	requestBody := map[string]any{
		"model":       d.model,
		"max_tokens":  d.provider.maxTokens(),
		"temperature": d.provider.temperature(),
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if system != "" {
		requestBody["system"] = system
	}
	if !req.StructuredOnly && len(req.Tools) > 0 {
		requestBody["tools"] = req.Tools
	}

	headers := map[string]string{
		"x-api-key":         key,
		"anthropic-version": anthropicVersion,
	}
	body, err := postJSON(ctx, hc, d.provider.Name, d.provider.baseURL()+"/messages", headers, requestBody)
	if err != nil {
		return "", err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("no text content in response")}
	}
	return text.String(), nil
}
