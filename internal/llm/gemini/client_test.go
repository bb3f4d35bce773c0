package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"ats-backend/internal/llm"
)

type fakeModels struct {
	model  string
	config *genai.GenerateContentConfig
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		ResponseID: "resp-1",
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 8,
			TotalTokenCount:      20,
		},
	}
}

func TestCompleteMapsRequest(t *testing.T) {
	fake := &fakeModels{resp: textResponse(" {\"overallScore\": 70} ")}
	client := &Client{models: fake}

	resp, err := client.Complete(context.Background(), llm.ChatRequest{
		Model:       "google/gemini-2.0-flash-exp:free",
		Messages:    []llm.Message{{Role: "user", Content: "analyze"}},
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash-exp", fake.model)
	assert.Equal(t, "analyze", fake.prompt)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.3, *fake.config.Temperature, 0.0001)
	assert.EqualValues(t, 4000, fake.config.MaxOutputTokens)

	assert.Equal(t, `{"overallScore": 70}`, resp.Content)
	assert.Equal(t, "resp-1", resp.ID)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
}

func TestModelNameFallsBackForForeignModels(t *testing.T) {
	assert.Equal(t, DefaultModel, (&Client{}).modelName("meta-llama/llama-3-8b:free"))
	assert.Equal(t, "gemini-pro", (&Client{defaultModel: "gemini-pro"}).modelName(""))
	assert.Equal(t, "gemini-1.5-pro", (&Client{}).modelName("gemini-1.5-pro"))
}

func TestCompleteErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := (&Client{models: &fakeModels{err: boom}}).Complete(context.Background(), llm.ChatRequest{})
	assert.ErrorIs(t, err, boom)

	_, err = (&Client{models: &fakeModels{resp: textResponse("  ")}}).Complete(context.Background(), llm.ChatRequest{})
	assert.ErrorContains(t, err, "empty content")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), " ", "")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}
