package export

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
	Website  string `json:"website"`
}

type Experience struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Current     bool     `json:"current"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	GPA         string `json:"gpa"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
}

type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url"`
}

// Content is the structured resume document. Text holds plain-text resumes that were
// never structured.
type Content struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         SkillList       `json:"skills"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
	Text           string          `json:"text,omitempty"`
}

// SkillList accepts an array of strings, a comma-separated string, or an object of
// category name to skills.
type SkillList []string

func (s *SkillList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = nil
		return nil
	}
	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*s = compact(items)
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = compact(strings.Split(raw, ","))
	case '{':
		var groups map[string][]string
		if err := json.Unmarshal(data, &groups); err != nil {
			return err
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, groups[k]...)
		}
		*s = compact(out)
	default:
		*s = nil
	}
	return nil
}

// ParseContent decodes stored resume content. A JSON string is tried as embedded JSON first
// and otherwise kept as plain text. Anything undecodable becomes a text-only document.
func ParseContent(raw json.RawMessage) Content {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return Content{}
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Content{Text: string(raw)}
		}
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "{") {
			var c Content
			if err := json.Unmarshal([]byte(trimmed), &c); err == nil {
				return c
			}
		}
		return Content{Text: s}
	}
	var c Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return Content{Text: string(raw)}
	}
	return c
}

// IsStructured reports whether any structured section is populated.
func (c Content) IsStructured() bool {
	return c.PersonalInfo != (PersonalInfo{}) || c.Summary != "" || len(c.Experience) > 0 ||
		len(c.Education) > 0 || len(c.Skills) > 0 || len(c.Certifications) > 0 || len(c.Projects) > 0
}

// ContactLine joins the non-empty contact fields.
func (c Content) ContactLine() string {
	p := c.PersonalInfo
	return strings.Join(compact([]string{p.Email, p.Phone, p.Location, p.LinkedIn, p.Website}), " | ")
}

// Period renders a start/end date range.
func (e Experience) Period() string {
	end := e.EndDate
	if e.Current {
		end = "Present"
	}
	return dateRange(e.StartDate, end)
}

func (e Education) Period() string {
	return dateRange(e.StartDate, e.EndDate)
}

func dateRange(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func joinNonEmpty(sep string, items ...string) string {
	return strings.Join(compact(items), sep)
}
