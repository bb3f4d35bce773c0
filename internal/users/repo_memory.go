package users

import (
	"context"
	"strings"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, user User) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return User{}, ErrEmailTaken
	}
	now := r.now()
	user.Email = email
	if user.SubscriptionTier == "" {
		user.SubscriptionTier = DefaultSubscriptionTier
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	return user, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeLocked(userID)
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.activeLocked(id)
}

func (r *MemoryRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.mutate(ctx, userID, func(u *User) {
		at := at.UTC()
		u.LastLoginAt = &at
	})
}

func (r *MemoryRepo) IncrementResumesCreated(ctx context.Context, userID string) error {
	return r.mutate(ctx, userID, func(u *User) { u.ResumesCreated++ })
}

func (r *MemoryRepo) IncrementAnalysesRun(ctx context.Context, userID string) error {
	return r.mutate(ctx, userID, func(u *User) { u.AnalysesRun++ })
}

func (r *MemoryRepo) mutate(ctx context.Context, userID string, fn func(*User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, err := r.activeLocked(userID)
	if err != nil {
		return err
	}
	fn(&user)
	user.UpdatedAt = r.now()
	r.users[userID] = user
	return nil
}

func (r *MemoryRepo) activeLocked(userID string) (User, error) {
	user, ok := r.users[userID]
	if !ok || user.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return user, nil
}

var _ Repo = (*MemoryRepo)(nil)
