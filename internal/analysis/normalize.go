package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var knownFields = map[string]struct{}{
	"overallScore":        {},
	"keywordMatch":        {},
	"formattingScore":     {},
	"experienceRelevance": {},
	"actionableAdvice":    {},
	"modelUsed":           {},
}

type wireKeywordMatch struct {
	Score           score       `json:"score"`
	MatchedKeywords stringSlice `json:"matchedKeywords"`
	MissingKeywords stringSlice `json:"missingKeywords"`
}

type wireFormattingScore struct {
	Score       score       `json:"score"`
	Issues      stringSlice `json:"issues"`
	Suggestions stringSlice `json:"suggestions"`
}

type wireExperienceRelevance struct {
	Score              score       `json:"score"`
	RelevantExperience text        `json:"relevantExperience"`
	Gaps               stringSlice `json:"gaps"`
}

type wireModelUsed struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// StripFences removes a leading ```json or ``` marker and the closing fence.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Normalize parses a model reply into a Result.
//
// overallScore must be a number and keywordMatch and formattingScore objects; anything else is
// ErrInvalidFormat. Scores are clamped into [0,100] and unknown top-level fields land in Extra.
func Normalize(raw string) (Result, error) {
	body := StripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Result{}, fmt.Errorf("%w: response is not an object", ErrInvalidFormat)
		}
		return Result{}, &AnalysisError{Cause: fmt.Errorf("parse response: %w", err)}
	}
	if fields == nil {
		return Result{}, fmt.Errorf("%w: response is not an object", ErrInvalidFormat)
	}

	overall, err := requireKind(fields, "overallScore", kindNumber)
	if err != nil {
		return Result{}, err
	}
	keywordRaw, err := requireKind(fields, "keywordMatch", kindObject)
	if err != nil {
		return Result{}, err
	}
	formattingRaw, err := requireKind(fields, "formattingScore", kindObject)
	if err != nil {
		return Result{}, err
	}

	var res Result
	if err := json.Unmarshal(overall, &res.OverallScore); err != nil {
		return Result{}, fmt.Errorf("%w: overallScore: %v", ErrInvalidFormat, err)
	}

	var keyword wireKeywordMatch
	if err := json.Unmarshal(keywordRaw, &keyword); err != nil {
		return Result{}, fmt.Errorf("%w: keywordMatch: %v", ErrInvalidFormat, err)
	}
	res.KeywordMatch = KeywordMatch{
		Score:           float64(keyword.Score),
		MatchedKeywords: orEmpty(keyword.MatchedKeywords),
		MissingKeywords: orEmpty(keyword.MissingKeywords),
	}

	var formatting wireFormattingScore
	if err := json.Unmarshal(formattingRaw, &formatting); err != nil {
		return Result{}, fmt.Errorf("%w: formattingScore: %v", ErrInvalidFormat, err)
	}
	res.FormattingScore = FormattingScore{
		Score:       float64(formatting.Score),
		Issues:      orEmpty(formatting.Issues),
		Suggestions: orEmpty(formatting.Suggestions),
	}

	if rawExp, ok := present(fields, "experienceRelevance"); ok {
		var exp wireExperienceRelevance
		if err := json.Unmarshal(rawExp, &exp); err != nil {
			return Result{}, fmt.Errorf("%w: experienceRelevance: %v", ErrInvalidFormat, err)
		}
		res.ExperienceRelevance = &ExperienceRelevance{
			Score:              float64(exp.Score),
			RelevantExperience: string(exp.RelevantExperience),
			Gaps:               orEmpty(exp.Gaps),
		}
	}

	var advice stringSlice
	if rawAdvice, ok := present(fields, "actionableAdvice"); ok {
		if err := json.Unmarshal(rawAdvice, &advice); err != nil {
			return Result{}, fmt.Errorf("%w: actionableAdvice: %v", ErrInvalidFormat, err)
		}
	}
	res.ActionableAdvice = orEmpty(advice)

	if rawModel, ok := present(fields, "modelUsed"); ok && kindOf(rawModel) == kindObject {
		var mu wireModelUsed
		if err := json.Unmarshal(rawModel, &mu); err == nil {
			res.ModelUsed = ModelUsed(mu)
		}
	}

	for k, v := range fields {
		if _, known := knownFields[k]; known {
			continue
		}
		if res.Extra == nil {
			res.Extra = make(map[string]json.RawMessage)
		}
		res.Extra[k] = v
	}

	res.clamp()
	return res, nil
}

type jsonKind int

const (
	kindNull jsonKind = iota
	kindNumber
	kindObject
	kindOther
)

func kindOf(raw json.RawMessage) jsonKind {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return kindNull
	}
	switch c := b[0]; {
	case c == '{':
		return kindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber
	}
	return kindOther
}

func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok || kindOf(raw) == kindNull {
		return nil, false
	}
	return raw, true
}

func requireKind(fields map[string]json.RawMessage, key string, want jsonKind) (json.RawMessage, error) {
	raw, ok := present(fields, key)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidFormat, key)
	}
	if kindOf(raw) != want {
		return nil, fmt.Errorf("%w: %s has the wrong type", ErrInvalidFormat, key)
	}
	return raw, nil
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
