package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sqlx.DB
}

type userRow struct {
	ID               string         `db:"id"`
	Email            string         `db:"email"`
	PasswordHash     string         `db:"password_hash"`
	FirstName        sql.NullString `db:"first_name"`
	LastName         sql.NullString `db:"last_name"`
	SubscriptionTier string         `db:"subscription_tier"`
	ResumesCreated   int            `db:"resumes_created"`
	AnalysesRun      int            `db:"analyses_run"`
	LastLoginAt      sql.NullTime   `db:"last_login_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row userRow) toModel() User {
	user := User{
		ID:               row.ID,
		Email:            row.Email,
		PasswordHash:     row.PasswordHash,
		FirstName:        row.FirstName.String,
		LastName:         row.LastName.String,
		SubscriptionTier: row.SubscriptionTier,
		ResumesCreated:   row.ResumesCreated,
		AnalysesRun:      row.AnalysesRun,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.LastLoginAt.Valid {
		at := row.LastLoginAt.Time
		user.LastLoginAt = &at
	}
	return user
}

const userColumns = `id, email, password_hash, first_name, last_name, subscription_tier,
  resumes_created, analyses_run, last_login_at, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	query := `
INSERT INTO users (id, email, password_hash, first_name, last_name, subscription_tier, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
RETURNING ` + userColumns
	tier := user.SubscriptionTier
	if tier == "" {
		tier = DefaultSubscriptionTier
	}
	var row userRow
	err := r.DB.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullableString(user.FirstName),
		nullableString(user.LastName),
		tier,
	).StructScan(&row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return row.toModel(), nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL LIMIT 1`, userID)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL LIMIT 1`, email)
}

func (r *PGRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login_at = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, userID, at.UTC())
}

func (r *PGRepo) IncrementResumesCreated(ctx context.Context, userID string) error {
	return r.exec(ctx, `UPDATE users SET resumes_created = resumes_created + 1, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, userID)
}

func (r *PGRepo) IncrementAnalysesRun(ctx context.Context, userID string) error {
	return r.exec(ctx, `UPDATE users SET analyses_run = analyses_run + 1, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, userID)
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg any) (User, error) {
	var row userRow
	if err := r.DB.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return row.toModel(), nil
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

var _ Repo = (*PGRepo)(nil)
