package models

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/telemetry"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultFetchTimeout = 30 * time.Second

	flightKey = "models"
)

// Snapshot is a fetched model list with its fetch time.
type Snapshot struct {
	Models    []Model   `json:"models"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// SharedStore mirrors snapshots between replicas.
type SharedStore interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long a fetched list stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSharedStore mirrors the list into store.
func WithSharedStore(store SharedStore) Option {
	return func(c *Cache) {
		c.store = store
	}
}

// WithFetchTimeout bounds one remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// Cache holds the free model list for one process.
//
// Concurrent callers that find the list stale share a single remote fetch. The lock is
// process-local: replicas sharing a Redis store may still each fetch once when they go stale
// at the same moment.
type Cache struct {
	fetcher      llm.ModelLister
	store        SharedStore
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mu        sync.RWMutex
	models    []Model
	fetchedAt time.Time

	group singleflight.Group
}

// NewCache builds an empty cache around fetcher.
func NewCache(fetcher llm.ModelLister, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Models returns the cached list, fetching it when empty or older than the TTL.
func (c *Cache) Models(ctx context.Context) ([]Model, error) {
	if models, ok := c.fresh(); ok {
		metrics.IncModelCacheHit()
		return models, nil
	}
	metrics.IncModelCacheMiss()
	return c.load(ctx)
}

// Refresh drops the local and shared lists and fetches again.
func (c *Cache) Refresh(ctx context.Context) ([]Model, error) {
	c.mu.Lock()
	c.models = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			telemetry.Warn("models.store_clear_failed", map[string]any{"error": err.Error()})
		}
	}
	return c.load(ctx)
}

// Stats reports the number of cached models and when they were fetched.
func (c *Cache) Stats() (int, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models), c.fetchedAt
}

func (c *Cache) load(ctx context.Context) ([]Model, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		// The flight outlives any single caller; waiters keep their own deadlines below.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fill(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneModels(res.Val.([]Model)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fill(ctx context.Context) ([]Model, error) {
	if models, ok := c.fresh(); ok {
		return models, nil
	}

	if c.store != nil {
		snap, ok, err := c.store.Load(ctx)
		switch {
		case err != nil:
			telemetry.Warn("models.store_load_failed", map[string]any{"error": err.Error()})
		case ok && len(snap.Models) > 0 && c.isFresh(snap.FetchedAt):
			c.set(snap.Models, snap.FetchedAt)
			return cloneModels(snap.Models), nil
		}
	}

	metrics.IncModelFetch()
	infos, err := c.fetcher.ListModels(ctx)
	if err != nil {
		c.mu.RLock()
		stale := cloneModels(c.models)
		c.mu.RUnlock()
		if len(stale) > 0 {
			metrics.IncModelStaleServe()
			telemetry.Warn("models.fetch_failed_serving_stale", map[string]any{
				"error": err.Error(),
				"count": len(stale),
			})
			return stale, nil
		}
		return nil, err
	}

	models := Filter(infos)
	fetchedAt := c.now()
	c.set(models, fetchedAt)
	telemetry.Info("models.fetched", map[string]any{"count": len(models), "total": len(infos)})

	if c.store != nil {
		if err := c.store.Save(ctx, Snapshot{Models: models, FetchedAt: fetchedAt}, c.ttl); err != nil {
			telemetry.Warn("models.store_save_failed", map[string]any{"error": err.Error()})
		}
	}
	return cloneModels(models), nil
}

func (c *Cache) fresh() ([]Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.models) == 0 || !c.isFresh(c.fetchedAt) {
		return nil, false
	}
	return cloneModels(c.models), true
}

func (c *Cache) isFresh(fetchedAt time.Time) bool {
	return !fetchedAt.IsZero() && c.now().Sub(fetchedAt) < c.ttl
}

func (c *Cache) set(models []Model, fetchedAt time.Time) {
	c.mu.Lock()
	c.models = cloneModels(models)
	c.fetchedAt = fetchedAt
	c.mu.Unlock()
}
