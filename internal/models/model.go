package models

import (
	"strconv"
	"strings"

	"ats-backend/internal/llm"
)

const defaultContextLength = 4096

// Model is a selectable analysis model.
type Model struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Provider      string         `json:"provider"`
	ContextLength int            `json:"contextLength"`
	Pricing       map[string]any `json:"pricing,omitempty"`
}

// Filter keeps free models and maps them to Model.
func Filter(infos []llm.ModelInfo) []Model {
	out := make([]Model, 0, len(infos))
	for _, info := range infos {
		if info.ID == "" || !isFree(info) {
			continue
		}
		out = append(out, fromInfo(info))
	}
	return out
}

// ProviderOf returns the id prefix before the first slash.
func ProviderOf(id string) string {
	provider, _, _ := strings.Cut(id, "/")
	return provider
}

func fromInfo(info llm.ModelInfo) Model {
	name := info.Name
	if name == "" {
		name = info.ID
	}
	contextLength := info.ContextLength
	if contextLength <= 0 {
		contextLength = defaultContextLength
	}
	return Model{
		ID:            info.ID,
		Name:          name,
		Provider:      ProviderOf(info.ID),
		ContextLength: contextLength,
		Pricing:       info.Pricing,
	}
}

func isFree(info llm.ModelInfo) bool {
	if strings.Contains(info.ID, "free") {
		return true
	}
	switch v := info.Pricing["prompt"].(type) {
	case string:
		price, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil && price == 0
	case float64:
		return v == 0
	}
	return false
}

func cloneModels(in []Model) []Model {
	if in == nil {
		return nil
	}
	out := make([]Model, len(in))
	copy(out, in)
	return out
}
