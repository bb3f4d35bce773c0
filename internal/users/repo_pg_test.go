package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "first_name", "last_name", "subscription_tier",
	"resumes_created", "analyses_run", "last_login_at", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: sqlx.NewDb(db, "pgx")}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u-1", "a@example.com", "hash", "Ada", nil, "free").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "a@example.com", "hash", "Ada", nil, "free", 0, 0, nil, now, now))

	user, err := repo.Create(context.Background(), User{ID: "u-1", Email: "a@example.com", PasswordHash: "hash", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Empty(t, user.LastName)
	assert.Nil(t, user.LastLoginAt)
	assert.Equal(t, now, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), User{ID: "u-2", Email: "a@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestPGRepoGetByEmailExcludesDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1 AND deleted_at IS NULL`).
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoCounters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE users SET resumes_created = resumes_created \+ 1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET analyses_run = analyses_run \+ 1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET last_login_at = \$2`).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.IncrementResumesCreated(context.Background(), "u-1"))
	require.NoError(t, repo.IncrementAnalysesRun(context.Background(), "u-1"))
	assert.ErrorIs(t, repo.TouchLastLogin(context.Background(), "ghost", time.Now()), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
