package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"ats-backend/internal/llm"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	ServiceName = "ATS Resume Analyzer API"
	Version     = "1.0.0"

	defaultTimeout = 5 * time.Second
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// CacheStats exposes the size and age of the model cache.
type CacheStats interface {
	Stats() (int, time.Time)
}

// Service probes the upstream model API and the optional backing stores.
type Service struct {
	Upstream llm.ModelLister
	Database PingFunc
	Redis    PingFunc
	Cache    CacheStats
	Timeout  time.Duration
	Now      func() time.Time
}

func NewService(upstream llm.ModelLister) *Service {
	return &Service{Upstream: upstream, Timeout: defaultTimeout}
}

// Check is the outcome of a single dependency probe.
type Check struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type CacheReport struct {
	Models    int        `json:"models"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

type Report struct {
	Status     string       `json:"status"`
	OpenRouter bool         `json:"openrouter"`
	Models     int          `json:"models"`
	Error      string       `json:"error,omitempty"`
	Database   *Check       `json:"database,omitempty"`
	Redis      *Check       `json:"redis,omitempty"`
	Cache      *CacheReport `json:"cache,omitempty"`
	CheckedAt  time.Time    `json:"checkedAt"`
}

// Check runs every configured probe concurrently. Probe failures are reported, never returned.
func (s *Service) Check(ctx context.Context) Report {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := Report{Status: StatusHealthy, CheckedAt: s.now()}
	var g errgroup.Group

	g.Go(func() error {
		if s.Upstream == nil {
			report.Error = llm.ErrNotConfigured.Error()
			return nil
		}
		models, err := s.Upstream.ListModels(ctx)
		if err != nil {
			report.Error = err.Error()
			return nil
		}
		report.OpenRouter = true
		report.Models = len(models)
		return nil
	})
	if s.Database != nil {
		report.Database = &Check{}
		g.Go(func() error {
			probe(ctx, s.Database, report.Database)
			return nil
		})
	}
	if s.Redis != nil {
		report.Redis = &Check{}
		g.Go(func() error {
			probe(ctx, s.Redis, report.Redis)
			return nil
		})
	}
	_ = g.Wait()

	if s.Cache != nil {
		n, fetchedAt := s.Cache.Stats()
		report.Cache = &CacheReport{Models: n}
		if !fetchedAt.IsZero() {
			report.Cache.FetchedAt = &fetchedAt
		}
	}

	if !report.OpenRouter || failed(report.Database) || failed(report.Redis) {
		report.Status = StatusUnhealthy
	}
	return report
}

func probe(ctx context.Context, ping PingFunc, out *Check) {
	if err := ping(ctx); err != nil {
		out.Error = err.Error()
		return
	}
	out.OK = true
}

func failed(c *Check) bool {
	return c != nil && !c.OK
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
