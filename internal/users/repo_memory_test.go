package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, User{ID: "u-1", Email: "Ada@Example.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, DefaultSubscriptionTier, created.SubscriptionTier)

	_, err = repo.Create(ctx, User{ID: "u-2", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	byEmail, err := repo.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, "u-1", at))
	require.NoError(t, repo.IncrementResumesCreated(ctx, "u-1"))
	require.NoError(t, repo.IncrementAnalysesRun(ctx, "u-1"))

	got, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.Equal(t, at, *got.LastLoginAt)
	assert.Equal(t, 1, got.ResumesCreated)
	assert.Equal(t, 1, got.AnalysesRun)

	assert.ErrorIs(t, repo.IncrementAnalysesRun(ctx, "nobody"), ErrNotFound)
}

func TestServiceExists(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()
	_, err := repo.Create(ctx, User{ID: "u-1", Email: "a@example.com"})
	require.NoError(t, err)

	assert.NoError(t, svc.Exists(ctx, "u-1"))
	assert.ErrorIs(t, svc.Exists(ctx, "u-2"), ErrNotFound)
	assert.ErrorIs(t, svc.Exists(ctx, ""), ErrNotFound)
	assert.NoError(t, svc.RecordAnalysisRun(ctx, ""), "anonymous analysis is not counted")
}
