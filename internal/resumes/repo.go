package resumes

import (
	"context"
	"time"
)

// Repo persists resumes. Every per-resume operation is scoped to the owner and skips
// soft-deleted rows; anything outside that scope is ErrNotFound.
type Repo interface {
	Create(ctx context.Context, resume Resume) (Resume, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error)
	Get(ctx context.Context, userID, resumeID string) (Resume, error)
	Touch(ctx context.Context, userID, resumeID string, at time.Time) error
	// Update snapshots the current content as a Version, applies the patch and bumps the
	// version counter in one step.
	Update(ctx context.Context, userID, resumeID string, patch Patch) (Resume, error)
	Delete(ctx context.Context, userID, resumeID string, at time.Time) error
	Versions(ctx context.Context, userID, resumeID string) ([]Version, error)
}

// TemplateRepo reads the template catalogue.
type TemplateRepo interface {
	List(ctx context.Context) ([]Template, error)
	Get(ctx context.Context, templateID string) (Template, error)
	IncrementUsage(ctx context.Context, templateID string) error
}
