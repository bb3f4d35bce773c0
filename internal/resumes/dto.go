package resumes

import (
	"encoding/json"
	"time"
)

type createRequest struct {
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
	TemplateID string          `json:"templateId" binding:"omitempty,max=64"`
}

type updateRequest struct {
	Title             *string         `json:"title" binding:"omitempty,max=255"`
	Content           json.RawMessage `json:"content"`
	Status            *string         `json:"status" binding:"omitempty,max=32"`
	TemplateID        *string         `json:"templateId" binding:"omitempty,max=64"`
	OptimizationScore *int            `json:"optimizationScore" binding:"omitempty,min=0,max=100"`
}

func (r updateRequest) toPatch() Patch {
	return Patch{
		Title:             r.Title,
		Content:           r.Content,
		Status:            r.Status,
		TemplateID:        r.TemplateID,
		OptimizationScore: r.OptimizationScore,
	}
}

type previewRequest struct {
	Content    json.RawMessage `json:"content"`
	TemplateID string          `json:"templateId"`
}

type parseRequest struct {
	Text string `json:"text"`
}

type TemplateSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type TemplateResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Design      json.RawMessage `json:"design,omitempty"`
	IsPremium   bool            `json:"isPremium"`
	UsageCount  int             `json:"usageCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ResumeResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Title             string          `json:"title"`
	Content           json.RawMessage `json:"content"`
	Status            string          `json:"status"`
	OptimizationScore *int            `json:"optimizationScore"`
	TemplateID        *string         `json:"templateId"`
	Version           int             `json:"version"`
	LastAccessedAt    *time.Time      `json:"lastAccessedAt"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Template          any             `json:"template,omitempty"`
}

type VersionResponse struct {
	ID            string          `json:"id"`
	VersionNumber int             `json:"versionNumber"`
	Content       json.RawMessage `json:"content"`
	ChangeSummary string          `json:"changeSummary,omitempty"`
	ChangeType    string          `json:"changeType"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type listResponse struct {
	Resumes    []ResumeResponse `json:"resumes"`
	Pagination Pagination       `json:"pagination"`
}

func toResumeResponse(res Resume) ResumeResponse {
	out := ResumeResponse{
		ID:                res.ID,
		UserID:            res.UserID,
		Title:             res.Title,
		Content:           res.Content,
		Status:            res.Status,
		OptimizationScore: res.OptimizationScore,
		Version:           res.Version,
		LastAccessedAt:    res.LastAccessedAt,
		CreatedAt:         res.CreatedAt,
		UpdatedAt:         res.UpdatedAt,
	}
	if res.TemplateID != "" {
		id := res.TemplateID
		out.TemplateID = &id
	}
	return out
}

// toDetailResponse embeds the full template.
func toDetailResponse(d Detail) ResumeResponse {
	out := toResumeResponse(d.Resume)
	if d.Template != nil {
		out.Template = toTemplateResponse(*d.Template)
	}
	return out
}

// toSummaryResponse embeds only {id, name, category} of the template.
func toSummaryResponse(d Detail) ResumeResponse {
	out := toResumeResponse(d.Resume)
	if d.Template != nil {
		out.Template = TemplateSummary{ID: d.Template.ID, Name: d.Template.Name, Category: d.Template.Category}
	}
	return out
}

func toTemplateResponse(t Template) TemplateResponse {
	return TemplateResponse{
		ID:          t.ID,
		Name:        t.Name,
		Category:    t.Category,
		Description: t.Description,
		Design:      t.Design,
		IsPremium:   t.IsPremium,
		UsageCount:  t.UsageCount,
		CreatedAt:   t.CreatedAt,
	}
}

func toVersionResponses(versions []Version) []VersionResponse {
	out := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, VersionResponse{
			ID:            v.ID,
			VersionNumber: v.VersionNumber,
			Content:       v.Content,
			ChangeSummary: v.ChangeSummary,
			ChangeType:    v.ChangeType,
			CreatedAt:     v.CreatedAt,
		})
	}
	return out
}
