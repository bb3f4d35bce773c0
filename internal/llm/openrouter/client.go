package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 2048
)

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
	Timeout time.Duration
	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client implements llm.Completer and llm.ModelLister against an OpenRouter-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	referer    string
	title      string
	httpClient *http.Client
}

// NewClient constructs a client. A missing API key is allowed; Complete then returns
// llm.ErrNotConfigured while ListModels still works against public catalogues.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		referer:    strings.TrimSpace(opts.Referer),
		title:      strings.TrimSpace(opts.Title),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Usage *llm.Usage `json:"usage,omitempty"`
	Error *apiError  `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

type modelsResponse struct {
	Data  []llm.ModelInfo `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

// Complete sends one chat completion request and returns the first choice.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if !c.Configured() {
		return llm.ChatResponse{}, llm.ErrNotConfigured
	}
	if strings.TrimSpace(req.Model) == "" {
		return llm.ChatResponse{}, errors.New("openrouter: model is required")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return llm.ChatResponse{}, err
	}

	started := time.Now()
	body, err := c.do(ctx, http.MethodPost, "/chat/completions", payload)
	if err != nil {
		return llm.ChatResponse{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("openrouter response parse: %w", err)
	}
	if parsed.Error != nil {
		return llm.ChatResponse{}, fmt.Errorf("openrouter error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return llm.ChatResponse{}, errors.New("openrouter response missing choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.ChatResponse{}, errors.New("openrouter response empty content")
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	logUsage(model, parsed.Usage, time.Since(started))

	return llm.ChatResponse{
		ID:      parsed.ID,
		Model:   model,
		Content: content,
		Usage:   parsed.Usage,
	}, nil
}

// ListModels fetches the provider's model catalogue.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	body, err := c.do(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter models parse: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openrouter error: %s", parsed.Error.Message)
	}
	return parsed.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openrouter request timeout: %w", err)
		}
		return nil, fmt.Errorf("openrouter request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

func logUsage(model string, usage *llm.Usage, elapsed time.Duration) {
	fields := map[string]any{
		"provider":    "openrouter",
		"model":       model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if usage != nil {
		fields["prompt_tokens"] = usage.PromptTokens
		fields["completion_tokens"] = usage.CompletionTokens
		fields["total_tokens"] = usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var (
	_ llm.Completer   = (*Client)(nil)
	_ llm.ModelLister = (*Client)(nil)
)
