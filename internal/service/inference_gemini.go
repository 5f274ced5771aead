package service

import (
	"context"
	"fmt"
	"strings"

	"brevity-server/internal/domain"

	"google.golang.org/genai"
)

const defaultTemperature = float32(0.4)

// GeminiClient calls the Gemini API with an API key.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger domain.Logger
}

// NewGeminiClient creates a Gemini API client for the given model
func NewGeminiClient(ctx context.Context, apiKey, model string, logger domain.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// GenerateText sends the parts as a single user turn and joins the text of
// the first candidate.
func (c *GeminiClient) GenerateText(ctx context.Context, parts ...string) (string, error) {
	content := &genai.Content{Role: genai.RoleUser}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.NewPartFromText(p))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(defaultTemperature),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, config)
	if err != nil {
		return "", fmt.Errorf("gemini call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

// Close is a no-op; the genai client holds no resources.
func (c *GeminiClient) Close() error {
	return nil
}
