package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"ats-backend/internal/export"
	"ats-backend/internal/llm"
	"ats-backend/internal/shared/telemetry"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	maxTitleLength  = 255
	maxStatusLength = 32
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Parser turns free resume text into structured content.
type Parser interface {
	ParseResume(ctx context.Context, text string) (json.RawMessage, error)
}

// Renderer produces the export and preview formats.
type Renderer interface {
	PDF(c export.Content, title string, d export.Design) ([]byte, error)
	DOCX(c export.Content, title string, d export.Design) ([]byte, error)
	HTML(c export.Content, title string, d export.Design) ([]byte, error)
}

// UsageRecorder tracks per-user resume counters.
type UsageRecorder interface {
	RecordResumeCreated(ctx context.Context, userID string) error
}

type Service struct {
	Repo      Repo
	Templates TemplateRepo
	Users     UsageRecorder
	Parser    Parser
	Renderer  Renderer
	Now       func() time.Time
}

func NewService(repo Repo, templates TemplateRepo) *Service {
	return &Service{
		Repo:      repo,
		Templates: templates,
		Renderer:  export.Renderer{},
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Detail is a resume together with its template, when it has one.
type Detail struct {
	Resume   Resume
	Template *Template
}

type CreateInput struct {
	Title      string
	Content    json.RawMessage
	TemplateID string
}

type ListQuery struct {
	Page   int
	Limit  int
	Status string
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type ListResult struct {
	Resumes    []Detail
	Pagination Pagination
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Detail, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || !validContent(in.Content) {
		return Detail{}, fmt.Errorf("%w: title and content required", ErrInvalidInput)
	}
	if len(title) > maxTitleLength {
		return Detail{}, fmt.Errorf("%w: title too long", ErrInvalidInput)
	}
	tmpl, err := s.template(ctx, strings.TrimSpace(in.TemplateID))
	if err != nil {
		return Detail{}, err
	}

	res := Resume{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   title,
		Content: in.Content,
		Status:  StatusDraft,
		Version: 1,
	}
	if tmpl != nil {
		res.TemplateID = tmpl.ID
	}
	created, err := s.Repo.Create(ctx, res)
	if err != nil {
		return Detail{}, err
	}

	if s.Users != nil {
		if err := s.Users.RecordResumeCreated(ctx, userID); err != nil {
			telemetry.Warn("resume.usage_record_failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
	}
	if tmpl != nil {
		if err := s.Templates.IncrementUsage(ctx, tmpl.ID); err != nil {
			telemetry.Warn("template.usage_record_failed", map[string]any{"template_id": tmpl.ID, "error": err.Error()})
		}
	}
	telemetry.Info("resume.created", map[string]any{"user_id": userID, "resume_id": created.ID})
	return Detail{Resume: created, Template: tmpl}, nil
}

func (s *Service) List(ctx context.Context, userID string, q ListQuery) (ListResult, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// Keeps the offset inside a Postgres-safe int32.
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}

	items, total, err := s.Repo.List(ctx, userID, ListFilter{
		Status: strings.TrimSpace(q.Status),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return ListResult{}, err
	}

	catalogue, err := s.catalogue(ctx)
	if err != nil {
		return ListResult{}, err
	}
	out := make([]Detail, 0, len(items))
	for _, res := range items {
		d := Detail{Resume: res}
		if t, ok := catalogue[res.TemplateID]; ok {
			d.Template = &t
		}
		out = append(out, d)
	}
	return ListResult{
		Resumes: out,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Get returns an owned resume with its full template and records the access.
func (s *Service) Get(ctx context.Context, userID, resumeID string) (Detail, error) {
	d, err := s.load(ctx, userID, resumeID)
	if err != nil {
		return Detail{}, err
	}
	now := s.now()
	if err := s.Repo.Touch(ctx, userID, resumeID, now); err != nil {
		return Detail{}, err
	}
	d.Resume.LastAccessedAt = &now
	return d, nil
}

func (s *Service) Update(ctx context.Context, userID, resumeID string, patch Patch) (Detail, error) {
	if err := s.validatePatch(&patch); err != nil {
		return Detail{}, err
	}
	var tmpl *Template
	if patch.TemplateID != nil {
		var err error
		if tmpl, err = s.template(ctx, *patch.TemplateID); err != nil {
			return Detail{}, err
		}
	}

	updated, err := s.Repo.Update(ctx, userID, resumeID, patch)
	if err != nil {
		return Detail{}, err
	}
	if patch.TemplateID == nil && updated.TemplateID != "" {
		if tmpl, err = s.template(ctx, updated.TemplateID); err != nil {
			tmpl = nil
		}
	}
	telemetry.Info("resume.updated", map[string]any{"user_id": userID, "resume_id": resumeID, "version": updated.Version})
	return Detail{Resume: updated, Template: tmpl}, nil
}

func (s *Service) Delete(ctx context.Context, userID, resumeID string) error {
	if err := s.Repo.Delete(ctx, userID, resumeID, s.now()); err != nil {
		return err
	}
	telemetry.Info("resume.deleted", map[string]any{"user_id": userID, "resume_id": resumeID})
	return nil
}

func (s *Service) Versions(ctx context.Context, userID, resumeID string) ([]Version, error) {
	return s.Repo.Versions(ctx, userID, resumeID)
}

func (s *Service) ExportPDF(ctx context.Context, userID, resumeID string) (File, error) {
	return s.render(ctx, userID, resumeID, "pdf", mimePDF, s.Renderer.PDF)
}

func (s *Service) ExportWord(ctx context.Context, userID, resumeID string) (File, error) {
	return s.render(ctx, userID, resumeID, "docx", mimeDOCX, s.Renderer.DOCX)
}

func (s *Service) Preview(ctx context.Context, userID, resumeID string) ([]byte, error) {
	d, err := s.load(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	return s.Renderer.HTML(export.ParseContent(d.Resume.Content), d.Resume.Title, design(d.Template))
}

// PreviewContent renders unsaved content. An unknown template falls back to the default design.
func (s *Service) PreviewContent(ctx context.Context, content json.RawMessage, templateID string) ([]byte, error) {
	if !validContent(content) {
		return nil, fmt.Errorf("%w: content required", ErrInvalidInput)
	}
	tmpl, err := s.template(ctx, strings.TrimSpace(templateID))
	if err != nil && !errors.Is(err, ErrInvalidInput) {
		return nil, err
	}
	c := export.ParseContent(content)
	return s.Renderer.HTML(c, c.PersonalInfo.FullName, design(tmpl))
}

func (s *Service) Parse(ctx context.Context, text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: resume text is required", ErrInvalidInput)
	}
	if s.Parser == nil {
		return nil, llm.ErrNotConfigured
	}
	return s.Parser.ParseResume(ctx, text)
}

// Catalogue lists the available templates.
func (s *Service) Catalogue(ctx context.Context) ([]Template, error) {
	return s.Templates.List(ctx)
}

type renderFunc func(export.Content, string, export.Design) ([]byte, error)

func (s *Service) render(ctx context.Context, userID, resumeID, ext, contentType string, fn renderFunc) (File, error) {
	d, err := s.load(ctx, userID, resumeID)
	if err != nil {
		return File{}, err
	}
	data, err := fn(export.ParseContent(d.Resume.Content), d.Resume.Title, design(d.Template))
	if err != nil {
		return File{}, fmt.Errorf("render %s: %w", ext, err)
	}
	telemetry.Info("resume.exported", map[string]any{"user_id": userID, "resume_id": resumeID, "format": ext, "size_bytes": len(data)})
	return File{
		Name:        fmt.Sprintf("resume-%s.%s", resumeID, ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *Service) load(ctx context.Context, userID, resumeID string) (Detail, error) {
	res, err := s.Repo.Get(ctx, userID, resumeID)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Resume: res}
	if res.TemplateID != "" {
		t, err := s.Templates.Get(ctx, res.TemplateID)
		switch {
		case err == nil:
			d.Template = &t
		case !errors.Is(err, ErrTemplateNotFound):
			return Detail{}, err
		}
	}
	return d, nil
}

// template resolves an optional template id; unknown ids are invalid input.
func (s *Service) template(ctx context.Context, templateID string) (*Template, error) {
	if templateID == "" {
		return nil, nil
	}
	t, err := s.Templates.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return nil, fmt.Errorf("%w: unknown template %q", ErrInvalidInput, templateID)
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) catalogue(ctx context.Context) (map[string]Template, error) {
	list, err := s.Templates.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Template, len(list))
	for _, t := range list {
		out[t.ID] = t
	}
	return out, nil
}

func (s *Service) validatePatch(p *Patch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" || len(title) > maxTitleLength {
			return fmt.Errorf("%w: invalid title", ErrInvalidInput)
		}
		p.Title = &title
	}
	if p.Content != nil && !validContent(p.Content) {
		return fmt.Errorf("%w: invalid content", ErrInvalidInput)
	}
	if p.Status != nil {
		status := strings.TrimSpace(*p.Status)
		if status == "" || len(status) > maxStatusLength {
			return fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		p.Status = &status
	}
	if p.TemplateID != nil {
		id := strings.TrimSpace(*p.TemplateID)
		p.TemplateID = &id
	}
	if p.OptimizationScore != nil && (*p.OptimizationScore < 0 || *p.OptimizationScore > 100) {
		return fmt.Errorf("%w: optimizationScore must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// validContent accepts a JSON object or a non-empty JSON string.
func validContent(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return false
	}
	switch b[0] {
	case '{':
		var obj map[string]json.RawMessage
		return json.Unmarshal(b, &obj) == nil && len(obj) > 0
	case '"':
		var s string
		return json.Unmarshal(b, &s) == nil && strings.TrimSpace(s) != ""
	}
	return false
}

func design(t *Template) export.Design {
	if t == nil {
		return export.DefaultDesign()
	}
	return export.ParseDesign(t.Design)
}
