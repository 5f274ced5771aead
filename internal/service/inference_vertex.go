package service

import (
	"context"
	"fmt"
	"strings"

	"brevity-server/internal/domain"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// VertexClient calls Gemini models through Vertex AI using application
// default credentials.
type VertexClient struct {
	client *genai.Client
	model  string
	logger domain.Logger
}

// NewVertexClient creates a Vertex AI client for the given project and location
func NewVertexClient(ctx context.Context, projectID, location, model string, logger domain.Logger) (*VertexClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("gcp project id is required for vertex")
	}

	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("failed to get default credentials: %w", err)
	}

	client, err := genai.NewClient(ctx, projectID, location, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}

	return &VertexClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (c *VertexClient) GenerateText(ctx context.Context, parts ...string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(defaultTemperature)

	prompt := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		prompt = append(prompt, genai.Text(p))
	}

	resp, err := model.GenerateContent(ctx, prompt...)
	if err != nil {
		return "", fmt.Errorf("vertex call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", domain.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", domain.ErrEmptyResponse
	}
	return text, nil
}

func (c *VertexClient) Close() error {
	return c.client.Close()
}
