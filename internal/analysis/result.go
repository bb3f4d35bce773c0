package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"ats-backend/internal/models"
)

type KeywordMatch struct {
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matchedKeywords"`
	MissingKeywords []string `json:"missingKeywords"`
}

type FormattingScore struct {
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

type ExperienceRelevance struct {
	Score              float64  `json:"score"`
	RelevantExperience string   `json:"relevantExperience"`
	Gaps               []string `json:"gaps"`
}

type ModelUsed struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Result is a normalized ATS assessment.
type Result struct {
	OverallScore        float64              `json:"overallScore"`
	KeywordMatch        KeywordMatch         `json:"keywordMatch"`
	FormattingScore     FormattingScore      `json:"formattingScore"`
	ExperienceRelevance *ExperienceRelevance `json:"experienceRelevance,omitempty"`
	ActionableAdvice    []string             `json:"actionableAdvice"`
	ModelUsed           ModelUsed            `json:"modelUsed"`

	// Extra holds top-level fields outside the known schema.
	Extra map[string]json.RawMessage `json:"-"`
}

// MarshalJSON writes the known fields followed by Extra in key order.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FillModel sets modelUsed from the requested id when the reply omitted it.
func (r *Result) FillModel(id string) {
	if r.ModelUsed.ID == "" {
		r.ModelUsed.ID = id
	}
	if r.ModelUsed.Name == "" {
		r.ModelUsed.Name = r.ModelUsed.ID
	}
	if r.ModelUsed.Provider == "" {
		r.ModelUsed.Provider = models.ProviderOf(r.ModelUsed.ID)
	}
}

func (r *Result) clamp() {
	r.OverallScore = clampScore(r.OverallScore)
	r.KeywordMatch.Score = clampScore(r.KeywordMatch.Score)
	r.FormattingScore.Score = clampScore(r.FormattingScore.Score)
	if r.ExperienceRelevance != nil {
		r.ExperienceRelevance.Score = clampScore(r.ExperienceRelevance.Score)
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// stringSlice accepts a list of strings, a single string, or a list of scalars.
type stringSlice []string

func (s *stringSlice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		if strings.TrimSpace(one) == "" {
			*s = nil
		} else {
			*s = stringSlice{one}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(stringSlice, 0, len(items))
	for _, item := range items {
		var str string
		if err := json.Unmarshal(item, &str); err == nil {
			out = append(out, str)
			continue
		}
		out = append(out, strings.TrimSpace(string(item)))
	}
	*s = out
	return nil
}

// text accepts a string or a list of strings, which is joined with spaces.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var list stringSlice
	if err := list.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = text(strings.Join(list, " "))
	return nil
}

// score accepts a JSON number or a numeric string.
type score float64

func (s *score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
		if err != nil {
			return err
		}
		*s = score(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = score(v)
	return nil
}
