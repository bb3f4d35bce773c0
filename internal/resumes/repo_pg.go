package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ownedResume scopes every per-resume statement: $1 is the resume id and $2 the owner.
const ownedResume = `id = $1 AND user_id = $2 AND deleted_at IS NULL`

const resumeColumns = `id, user_id, title, content, status, optimization_score, template_id, version,
  last_accessed_at, created_at, updated_at`

type PGRepo struct {
	DB *sqlx.DB
}

type resumeRow struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	Title             string         `db:"title"`
	Content           []byte         `db:"content"`
	Status            string         `db:"status"`
	OptimizationScore sql.NullInt64  `db:"optimization_score"`
	TemplateID        sql.NullString `db:"template_id"`
	Version           int            `db:"version"`
	LastAccessedAt    sql.NullTime   `db:"last_accessed_at"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row resumeRow) toModel() Resume {
	res := Resume{
		ID:         row.ID,
		UserID:     row.UserID,
		Title:      row.Title,
		Content:    json.RawMessage(row.Content),
		Status:     row.Status,
		TemplateID: row.TemplateID.String,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.OptimizationScore.Valid {
		score := int(row.OptimizationScore.Int64)
		res.OptimizationScore = &score
	}
	if row.LastAccessedAt.Valid {
		at := row.LastAccessedAt.Time
		res.LastAccessedAt = &at
	}
	return res
}

func (r *PGRepo) Create(ctx context.Context, resume Resume) (Resume, error) {
	query := `
INSERT INTO resumes (id, user_id, title, content, status, optimization_score, template_id, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now(), now())
RETURNING ` + resumeColumns
	status := resume.Status
	if status == "" {
		status = StatusDraft
	}
	var row resumeRow
	err := r.DB.QueryRowxContext(ctx, query,
		resume.ID,
		resume.UserID,
		resume.Title,
		[]byte(resume.Content),
		status,
		nullableScore(resume.OptimizationScore),
		nullableString(resume.TemplateID),
	).StructScan(&row)
	if err != nil {
		return Resume{}, fmt.Errorf("insert resume: %w", err)
	}
	return row.toModel(), nil
}

func (r *PGRepo) List(ctx context.Context, userID string, filter ListFilter) ([]Resume, int, error) {
	where := `user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}
	if filter.Status != "" {
		where += ` AND status = $2`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM resumes WHERE `+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count resumes: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM resumes WHERE %s ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		resumeColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var rows []resumeRow
	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list resumes: %w", err)
	}
	out := make([]Resume, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, total, nil
}

func (r *PGRepo) Get(ctx context.Context, userID, resumeID string) (Resume, error) {
	var row resumeRow
	err := r.DB.GetContext(ctx, &row, `SELECT `+resumeColumns+` FROM resumes WHERE `+ownedResume, resumeID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return row.toModel(), nil
}

func (r *PGRepo) Touch(ctx context.Context, userID, resumeID string, at time.Time) error {
	return r.exec(ctx, `UPDATE resumes SET last_accessed_at = $3 WHERE `+ownedResume, resumeID, userID, at.UTC())
}

func (r *PGRepo) Update(ctx context.Context, userID, resumeID string, patch Patch) (Resume, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return Resume{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row resumeRow
	err = tx.GetContext(ctx, &row, `SELECT `+resumeColumns+` FROM resumes WHERE `+ownedResume+` FOR UPDATE`, resumeID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, fmt.Errorf("lock resume: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO resume_versions (id, resume_id, version_number, content, change_summary, change_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`,
		uuid.NewString(), row.ID, row.Version, row.Content, versionChangeSummary, versionChangeType)
	if err != nil {
		return Resume{}, fmt.Errorf("insert resume version: %w", err)
	}

	next := row.toModel()
	patch.apply(&next)

	var updated resumeRow
	err = tx.QueryRowxContext(ctx, `
UPDATE resumes
SET title = $3, content = $4, status = $5, template_id = $6, optimization_score = $7,
    version = version + 1, updated_at = now()
WHERE `+ownedResume+`
RETURNING `+resumeColumns,
		resumeID, userID,
		next.Title,
		[]byte(next.Content),
		next.Status,
		nullableString(next.TemplateID),
		nullableScore(next.OptimizationScore),
	).StructScan(&updated)
	if err != nil {
		return Resume{}, fmt.Errorf("update resume: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Resume{}, fmt.Errorf("commit update: %w", err)
	}
	return updated.toModel(), nil
}

func (r *PGRepo) Delete(ctx context.Context, userID, resumeID string, at time.Time) error {
	return r.exec(ctx, `UPDATE resumes SET deleted_at = $3, updated_at = $3 WHERE `+ownedResume, resumeID, userID, at.UTC())
}

type versionRow struct {
	ID            string         `db:"id"`
	ResumeID      string         `db:"resume_id"`
	VersionNumber int            `db:"version_number"`
	Content       []byte         `db:"content"`
	ChangeSummary sql.NullString `db:"change_summary"`
	ChangeType    string         `db:"change_type"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r *PGRepo) Versions(ctx context.Context, userID, resumeID string) ([]Version, error) {
	var owned bool
	if err := r.DB.GetContext(ctx, &owned, `SELECT EXISTS (SELECT 1 FROM resumes WHERE `+ownedResume+`)`, resumeID, userID); err != nil {
		return nil, fmt.Errorf("check resume owner: %w", err)
	}
	if !owned {
		return nil, ErrNotFound
	}

	var rows []versionRow
	err := r.DB.SelectContext(ctx, &rows, `
SELECT id, resume_id, version_number, content, change_summary, change_type, created_at
FROM resume_versions
WHERE resume_id = $1
ORDER BY version_number DESC, created_at DESC`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("list resume versions: %w", err)
	}
	out := make([]Version, 0, len(rows))
	for _, row := range rows {
		out = append(out, Version{
			ID:            row.ID,
			ResumeID:      row.ResumeID,
			VersionNumber: row.VersionNumber,
			Content:       json.RawMessage(row.Content),
			ChangeSummary: row.ChangeSummary.String,
			ChangeType:    row.ChangeType,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out, nil
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}

var _ Repo = (*PGRepo)(nil)

type PGTemplates struct {
	DB *sqlx.DB
}

type templateRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Category    string         `db:"category"`
	Description sql.NullString `db:"description"`
	Design      []byte         `db:"design"`
	IsPremium   bool           `db:"is_premium"`
	UsageCount  int            `db:"usage_count"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (row templateRow) toModel() Template {
	return Template{
		ID:          row.ID,
		Name:        row.Name,
		Category:    row.Category,
		Description: row.Description.String,
		Design:      json.RawMessage(row.Design),
		IsPremium:   row.IsPremium,
		UsageCount:  row.UsageCount,
		CreatedAt:   row.CreatedAt,
	}
}

const templateColumns = `id, name, category, description, design, is_premium, usage_count, created_at`

func (r *PGTemplates) List(ctx context.Context) ([]Template, error) {
	var rows []templateRow
	if err := r.DB.SelectContext(ctx, &rows, `SELECT `+templateColumns+` FROM templates ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *PGTemplates) Get(ctx context.Context, templateID string) (Template, error) {
	var row templateRow
	if err := r.DB.GetContext(ctx, &row, `SELECT `+templateColumns+` FROM templates WHERE id = $1`, templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, err
	}
	return row.toModel(), nil
}

func (r *PGTemplates) IncrementUsage(ctx context.Context, templateID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE templates SET usage_count = usage_count + 1 WHERE id = $1`, templateID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

var _ TemplateRepo = (*PGTemplates)(nil)
