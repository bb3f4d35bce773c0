package resumes

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	resumes  map[string]Resume
	versions map[string][]Version
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		resumes:  make(map[string]Resume),
		versions: make(map[string][]Version),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, resume Resume) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if resume.Status == "" {
		resume.Status = StatusDraft
	}
	if resume.Version == 0 {
		resume.Version = 1
	}
	resume.Content = cloneRaw(resume.Content)
	resume.CreatedAt = now
	resume.UpdatedAt = now
	r.resumes[resume.ID] = resume
	return cloneResume(resume), nil
}

func (r *MemoryRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Resume
	for _, res := range r.resumes {
		if res.UserID != userID || res.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		matched = append(matched, res)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	page := make([]Resume, 0, end-start)
	for _, res := range matched[start:end] {
		page = append(page, cloneResume(res))
	}
	return page, total, nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, resumeID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, err := r.owned(userID, resumeID)
	if err != nil {
		return Resume{}, err
	}
	return cloneResume(res), nil
}

func (r *MemoryRepo) Touch(ctx context.Context, userID, resumeID string, at time.Time) error {
	return r.mutate(ctx, userID, resumeID, func(res *Resume) {
		at := at.UTC()
		res.LastAccessedAt = &at
	})
}

func (r *MemoryRepo) Update(ctx context.Context, userID, resumeID string, patch Patch) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.owned(userID, resumeID)
	if err != nil {
		return Resume{}, err
	}
	now := r.now()
	r.versions[resumeID] = append(r.versions[resumeID], Version{
		ID:            uuid.NewString(),
		ResumeID:      resumeID,
		VersionNumber: res.Version,
		Content:       cloneRaw(res.Content),
		ChangeSummary: versionChangeSummary,
		ChangeType:    versionChangeType,
		CreatedAt:     now,
	})
	patch.Content = cloneRaw(patch.Content)
	patch.apply(&res)
	res.Version++
	res.UpdatedAt = now
	r.resumes[resumeID] = res
	return cloneResume(res), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, resumeID string, at time.Time) error {
	return r.mutate(ctx, userID, resumeID, func(res *Resume) {
		at := at.UTC()
		res.DeletedAt = &at
	})
}

func (r *MemoryRepo) Versions(ctx context.Context, userID, resumeID string) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, err := r.owned(userID, resumeID); err != nil {
		return nil, err
	}
	stored := r.versions[resumeID]
	out := make([]Version, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		v := stored[i]
		v.Content = cloneRaw(v.Content)
		out = append(out, v)
	}
	return out, nil
}

func (r *MemoryRepo) mutate(ctx context.Context, userID, resumeID string, fn func(*Resume)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.owned(userID, resumeID)
	if err != nil {
		return err
	}
	fn(&res)
	r.resumes[resumeID] = res
	return nil
}

// owned is the single lookup path for per-resume operations. Callers hold r.mu.
func (r *MemoryRepo) owned(userID, resumeID string) (Resume, error) {
	res, ok := r.resumes[resumeID]
	if !ok || userID == "" || res.UserID != userID || res.DeletedAt != nil {
		return Resume{}, ErrNotFound
	}
	return res, nil
}

func cloneResume(res Resume) Resume {
	res.Content = cloneRaw(res.Content)
	if res.OptimizationScore != nil {
		score := *res.OptimizationScore
		res.OptimizationScore = &score
	}
	return res
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

var _ Repo = (*MemoryRepo)(nil)

// MemoryTemplates is an in-memory catalogue seeded with the same templates as the migrations.
type MemoryTemplates struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryTemplates(seed ...Template) *MemoryTemplates {
	if len(seed) == 0 {
		seed = DefaultTemplates()
	}
	m := &MemoryTemplates{templates: make(map[string]Template, len(seed))}
	for _, t := range seed {
		m.templates[t.ID] = t
	}
	return m
}

// DefaultTemplates mirrors the seed migration.
func DefaultTemplates() []Template {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Template{
		{
			ID: "modern", Name: "Modern", Category: "professional",
			Description: "Clean single-column layout with an accent color",
			Design:      json.RawMessage(`{"primaryColor":"#2563eb","fontFamily":"Helvetica, Arial, sans-serif","layout":"single-column"}`),
			CreatedAt:   created,
		},
		{
			ID: "classic", Name: "Classic", Category: "traditional",
			Description: "Serif typography with a conservative layout",
			Design:      json.RawMessage(`{"primaryColor":"#111827","fontFamily":"Georgia, 'Times New Roman', serif","layout":"single-column"}`),
			CreatedAt:   created,
		},
		{
			ID: "minimal", Name: "Minimal", Category: "simple",
			Description: "Plain text-first layout that parses cleanly in ATS systems",
			Design:      json.RawMessage(`{"primaryColor":"#374151","fontFamily":"Arial, sans-serif","layout":"compact"}`),
			CreatedAt:   created,
		},
	}
}

func (m *MemoryTemplates) List(ctx context.Context) ([]Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryTemplates) Get(ctx context.Context, templateID string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[templateID]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	return t, nil
}

func (m *MemoryTemplates) IncrementUsage(ctx context.Context, templateID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[templateID]
	if !ok {
		return ErrTemplateNotFound
	}
	t.UsageCount++
	m.templates[templateID] = t
	return nil
}

var _ TemplateRepo = (*MemoryTemplates)(nil)
