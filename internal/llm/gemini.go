package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiDialect calls Gemini through the official SDK. The SDK owns its
// transport, so the HTTP client argument is unused and calls are always direct.
type geminiDialect struct {
	provider Provider
	model    string
}

func (d *geminiDialect) chat(ctx context.Context, _ *http.Client, key string, req ChatRequest) (string, error) {
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if d.provider.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(d.provider.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(d.model)
	model.SetTemperature(float32(d.provider.temperature()))
	model.SetMaxOutputTokens(int32(d.provider.maxTokens()))

	parts := make([]genai.Part, 0, 3)
	if req.System != "" {
		parts = append(parts, genai.Text(req.System))
	}
	if req.StructuredOnly {
		parts = append(parts, genai.Text(jsonOnlyInstruction))
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("no candidates in response")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return "", &ProviderError{Provider: d.provider.Name, Kind: KindParse, Err: fmt.Errorf("no text content in response")}
	}
	return text.String(), nil
}
