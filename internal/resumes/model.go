package resumes

import (
	"encoding/json"
	"time"
)

// StatusDraft is the status of a newly created resume.
const StatusDraft = "draft"

// Resume is a user-owned document. Content holds either a structured object or a JSON string.
type Resume struct {
	ID                string
	UserID            string
	Title             string
	Content           json.RawMessage
	Status            string
	OptimizationScore *int
	TemplateID        string
	Version           int
	LastAccessedAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Version is the snapshot of a resume's content taken before an update.
type Version struct {
	ID            string
	ResumeID      string
	VersionNumber int
	Content       json.RawMessage
	ChangeSummary string
	ChangeType    string
	CreatedAt     time.Time
}

// Template is a catalogue entry a resume can be rendered with.
type Template struct {
	ID          string
	Name        string
	Category    string
	Description string
	Design      json.RawMessage
	IsPremium   bool
	UsageCount  int
	CreatedAt   time.Time
}

// Patch lists the fields an update may change. Nil fields are left alone and an empty
// TemplateID detaches the template.
type Patch struct {
	Title             *string
	Content           json.RawMessage
	Status            *string
	TemplateID        *string
	OptimizationScore *int
}

func (p Patch) apply(r *Resume) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if len(p.Content) > 0 {
		r.Content = p.Content
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.TemplateID != nil {
		r.TemplateID = *p.TemplateID
	}
	if p.OptimizationScore != nil {
		score := *p.OptimizationScore
		r.OptimizationScore = &score
	}
}

// ListFilter selects one page of a user's resumes.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

const (
	versionChangeSummary = "Manual edit"
	versionChangeType    = "manual"
)
