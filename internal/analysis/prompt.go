package analysis

import (
	_ "embed"
	"strings"

	"ats-backend/internal/llm"
)

const (
	DefaultModel = "google/gemini-2.0-flash-exp:free"
	Temperature  = float32(0.3)
	MaxTokens    = 4000
)

var (
	//go:embed prompts/analyze.txt
	analyzePrompt string
	//go:embed prompts/parse.txt
	parsePrompt string
)

// Input is one analysis request.
type Input struct {
	ResumeText     string
	JobDescription string
	Model          string
}

// ResolveModel returns requested, or defaultModel when requested is blank.
func ResolveModel(requested, defaultModel string) string {
	if model := strings.TrimSpace(requested); model != "" {
		return model
	}
	if model := strings.TrimSpace(defaultModel); model != "" {
		return model
	}
	return DefaultModel
}

// BuildRequest renders the analysis prompt as a single user message.
func BuildRequest(input Input, defaultModel string) llm.ChatRequest {
	model := ResolveModel(input.Model, defaultModel)
	prompt := strings.NewReplacer(
		"{{RESUME_TEXT}}", input.ResumeText,
		"{{JOB_DESCRIPTION}}", input.JobDescription,
		"{{MODEL}}", model,
	).Replace(analyzePrompt)

	return llm.ChatRequest{
		Model:       model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
}

// BuildParseRequest asks the model for structured resume content.
func BuildParseRequest(text, defaultModel string) llm.ChatRequest {
	prompt := strings.NewReplacer("{{RESUME_TEXT}}", text).Replace(parsePrompt)
	return llm.ChatRequest{
		Model:       ResolveModel("", defaultModel),
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
}
