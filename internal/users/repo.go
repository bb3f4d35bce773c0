package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repo persists users. Lookups never return soft-deleted rows.
type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	IncrementResumesCreated(ctx context.Context, userID string) error
	IncrementAnalysesRun(ctx context.Context, userID string) error
}
