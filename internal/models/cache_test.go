package models

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-backend/internal/llm"
)

type fakeFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}

	mu    sync.Mutex
	infos []llm.ModelInfo
	err   error
}

func (f *fakeFetcher) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infos, f.err
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type memoryStore struct {
	mu     sync.Mutex
	snap   *Snapshot
	ttl    time.Duration
	clears int
}

func (m *memoryStore) Load(context.Context) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *memoryStore) Save(_ context.Context, snap Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &snap
	m.ttl = ttl
	return nil
}

func (m *memoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	m.clears++
	return nil
}

func catalogue() []llm.ModelInfo {
	return []llm.ModelInfo{
		{ID: "google/gemini-2.0-flash-exp:free", Name: "Gemini Flash", ContextLength: 1000000},
		{ID: "openai/gpt-4o", Name: "GPT-4o", Pricing: map[string]any{"prompt": "0.0000025"}},
		{ID: "mistralai/mistral-7b", Pricing: map[string]any{"prompt": "0"}},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestModelsCachedWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	clk := newClock()
	cache := NewCache(fetcher, WithClock(clk.Now))

	first, err := cache.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", first[0].ID)
	assert.Equal(t, "mistralai/mistral-7b", first[1].Name)

	clk.Advance(23 * time.Hour)
	second, err := cache.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	clk.Advance(2 * time.Hour)
	_, err = cache.Models(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestModelsReturnsCopies(t *testing.T) {
	cache := NewCache(&fakeFetcher{infos: catalogue()})
	first, err := cache.Models(context.Background())
	require.NoError(t, err)
	first[0].ID = "mutated"

	second, err := cache.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", second[0].ID)
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	fetcher := &fakeFetcher{
		infos:   catalogue(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	cache := NewCache(fetcher)

	const callers = 32
	var wg sync.WaitGroup
	results := make([][]Model, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Models(context.Background())
		}(i)
	}

	<-fetcher.started
	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 2)
	}
}

func TestRefreshUnderConcurrencyFetchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	store := &memoryStore{}
	cache := NewCache(fetcher, WithSharedStore(store))

	_, err := cache.Models(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, fetcher.calls.Load())

	fetcher.release = make(chan struct{})
	fetcher.started = make(chan struct{}, 1)

	refreshed := make(chan error, 1)
	go func() {
		_, err := cache.Refresh(context.Background())
		refreshed <- err
	}()
	<-fetcher.started

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cache.Models(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()
	require.NoError(t, <-refreshed)

	assert.EqualValues(t, 2, fetcher.calls.Load())
	assert.Equal(t, 1, store.clears)
}

func TestStaleServedOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	clk := newClock()
	cache := NewCache(fetcher, WithClock(clk.Now), WithTTL(time.Hour))

	fresh, err := cache.Models(context.Background())
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	fetcher.fail(errors.New("upstream down"))

	stale, err := cache.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, stale)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestFetchErrorWithoutCachePropagates(t *testing.T) {
	boom := errors.New("upstream down")
	fetcher := &fakeFetcher{err: boom}
	cache := NewCache(fetcher)

	_, err := cache.Models(context.Background())
	assert.ErrorIs(t, err, boom)

	n, fetchedAt := cache.Stats()
	assert.Zero(t, n)
	assert.True(t, fetchedAt.IsZero())
}

func TestRefreshClearsBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	cache := NewCache(fetcher)
	_, err := cache.Models(context.Background())
	require.NoError(t, err)

	fetcher.fail(errors.New("upstream down"))
	_, err = cache.Refresh(context.Background())
	require.Error(t, err)

	n, _ := cache.Stats()
	assert.Zero(t, n)
}

func TestSharedStoreSnapshotAdopted(t *testing.T) {
	clk := newClock()
	store := &memoryStore{snap: &Snapshot{
		Models:    []Model{{ID: "x/y:free", Name: "Y", Provider: "x", ContextLength: 4096}},
		FetchedAt: clk.Now().Add(-time.Hour),
	}}
	fetcher := &fakeFetcher{infos: catalogue()}
	cache := NewCache(fetcher, WithClock(clk.Now), WithSharedStore(store))

	models, err := cache.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "x/y:free", models[0].ID)
	assert.Zero(t, fetcher.calls.Load())
}

func TestSharedStoreStaleSnapshotIgnored(t *testing.T) {
	clk := newClock()
	store := &memoryStore{snap: &Snapshot{
		Models:    []Model{{ID: "old/model:free"}},
		FetchedAt: clk.Now().Add(-48 * time.Hour),
	}}
	fetcher := &fakeFetcher{infos: catalogue()}
	cache := NewCache(fetcher, WithClock(clk.Now), WithSharedStore(store), WithTTL(24*time.Hour))

	models, err := cache.Models(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	require.NotNil(t, store.snap)
	assert.Len(t, store.snap.Models, 2)
	assert.Equal(t, 24*time.Hour, store.ttl)
}

func TestCancelledCallerDoesNotAbortFlight(t *testing.T) {
	fetcher := &fakeFetcher{
		infos:   catalogue(),
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	cache := NewCache(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Models(ctx)
		done <- err
	}()
	<-fetcher.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	waiter := make(chan []Model, 1)
	go func() {
		models, _ := cache.Models(context.Background())
		waiter <- models
	}()
	close(fetcher.release)

	assert.Len(t, <-waiter, 2)
	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		info llm.ModelInfo
		keep bool
		want Model
	}{
		{
			name: "free suffix with defaults",
			info: llm.ModelInfo{ID: "meta-llama/llama-3-8b:free"},
			keep: true,
			want: Model{ID: "meta-llama/llama-3-8b:free", Name: "meta-llama/llama-3-8b:free", Provider: "meta-llama", ContextLength: 4096},
		},
		{
			name: "zero prompt price",
			info: llm.ModelInfo{ID: "a/b", Name: "B", ContextLength: 8192, Pricing: map[string]any{"prompt": "0.0"}},
			keep: true,
			want: Model{ID: "a/b", Name: "B", Provider: "a", ContextLength: 8192, Pricing: map[string]any{"prompt": "0.0"}},
		},
		{
			name: "numeric zero price",
			info: llm.ModelInfo{ID: "a/c", Pricing: map[string]any{"prompt": float64(0)}},
			keep: true,
			want: Model{ID: "a/c", Name: "a/c", Provider: "a", ContextLength: 4096, Pricing: map[string]any{"prompt": float64(0)}},
		},
		{name: "paid", info: llm.ModelInfo{ID: "a/d", Pricing: map[string]any{"prompt": "0.001"}}},
		{name: "unparseable price", info: llm.ModelInfo{ID: "a/e", Pricing: map[string]any{"prompt": "n/a"}}},
		{name: "no pricing", info: llm.ModelInfo{ID: "a/f"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter([]llm.ModelInfo{tt.info})
			if !tt.keep {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestProviderOf(t *testing.T) {
	assert.Equal(t, "google", ProviderOf("google/gemini"))
	assert.Equal(t, "standalone", ProviderOf("standalone"))
}
