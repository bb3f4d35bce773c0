package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no provider credentials are available.
var ErrNotConfigured = errors.New("llm provider not configured")

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse carries the first choice of a completion.
type ChatResponse struct {
	ID      string
	Model   string
	Content string
	Usage   *Usage
}

// Completer abstracts LLM providers for analysis and parsing.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ModelInfo is a raw entry from a provider's model catalogue.
type ModelInfo struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ContextLength int            `json:"context_length"`
	Pricing       map[string]any `json:"pricing"`
}

// ModelLister lists the models a provider exposes.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// PromptText flattens a message list into one prompt for providers that take plain text.
func PromptText(messages []Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var out []byte
	for i, m := range messages {
		if i > 0 {
			out = append(out, "\n\n"...)
		}
		out = append(out, m.Role...)
		out = append(out, ": "...)
		out = append(out, m.Content...)
	}
	return string(out)
}

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) Complete(context.Context, ChatRequest) (ChatResponse, error) {
	return ChatResponse{}, ErrNotConfigured
}

func (Unconfigured) ListModels(context.Context) ([]ModelInfo, error) {
	return nil, ErrNotConfigured
}
