package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/telemetry"
)

const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Completer on the Gemini API.
type Client struct {
	models       generator
	defaultModel string
}

// NewClient builds a Gemini API client.
func NewClient(ctx context.Context, apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{models: client.Models, defaultModel: strings.TrimSpace(defaultModel)}, nil
}

// Complete flattens the chat into one prompt and generates a single candidate.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	model := c.modelName(req.Model)
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}

	started := time.Now()
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(llm.PromptText(req.Messages)), config)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return llm.ChatResponse{}, errors.New("gemini response empty")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return llm.ChatResponse{}, errors.New("gemini response empty content")
	}

	usage := toUsage(resp.UsageMetadata)
	fields := map[string]any{
		"provider":    "gemini",
		"model":       model,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if usage != nil {
		fields["prompt_tokens"] = usage.PromptTokens
		fields["completion_tokens"] = usage.CompletionTokens
		fields["total_tokens"] = usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)

	return llm.ChatResponse{
		ID:      resp.ResponseID,
		Model:   model,
		Content: text,
		Usage:   usage,
	}, nil
}

// modelName maps catalogue ids such as "google/gemini-2.0-flash-exp:free" to Gemini model names.
func (c *Client) modelName(requested string) string {
	name := strings.TrimSpace(requested)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	if strings.HasPrefix(name, "gemini") {
		return name
	}
	if c.defaultModel != "" {
		return c.defaultModel
	}
	return DefaultModel
}

func toUsage(meta *genai.GenerateContentResponseUsageMetadata) *llm.Usage {
	if meta == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
}

var _ llm.Completer = (*Client)(nil)
