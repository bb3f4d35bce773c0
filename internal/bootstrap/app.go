package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"ats-backend/internal/analysis"
	"ats-backend/internal/auth"
	"ats-backend/internal/llm"
	"ats-backend/internal/llm/gemini"
	"ats-backend/internal/llm/openrouter"
	"ats-backend/internal/models"
	"ats-backend/internal/resumes"
	"ats-backend/internal/services/health"
	sharedauth "ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/server"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/storage/object"
	localstore "ats-backend/internal/shared/storage/object/local"
	s3store "ats-backend/internal/shared/storage/object/s3"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sqlx.DB
	Redis  *redis.Client
	Store  object.Store
	Models *models.Cache
}

// Build wires repositories, services and handlers. An empty DATABASE_URL in dev falls back to
// in-memory repositories.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	database, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: database}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	var (
		userRepo     users.Repo
		resumeRepo   resumes.Repo
		templateRepo resumes.TemplateRepo
	)
	if database != nil {
		userRepo = &users.PGRepo{DB: database}
		resumeRepo = &resumes.PGRepo{DB: database}
		templateRepo = &resumes.PGTemplates{DB: database}
	} else {
		userRepo = users.NewMemoryRepo()
		resumeRepo = resumes.NewMemoryRepo()
		templateRepo = resumes.NewMemoryTemplates()
	}

	tokens, err := sharedauth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		app.Close()
		return nil, err
	}

	userSvc := users.NewService(userRepo)
	authSvc := &auth.Service{Users: userRepo, Tokens: tokens}
	lookup := func(ctx context.Context, userID string) error {
		err := userSvc.Exists(ctx, userID)
		if errors.Is(err, users.ErrNotFound) {
			return middleware.ErrUserMissing
		}
		return err
	}

	router := openrouter.NewClient(openrouter.Options{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Referer: cfg.AppReferer,
		Title:   cfg.AppTitle,
		Timeout: cfg.LLMTimeout,
	})
	completer, err := buildCompleter(ctx, cfg, router)
	if err != nil {
		app.Close()
		return nil, err
	}

	analysisSvc := analysis.NewService(completer, cfg.AnalysisModel)
	analysisSvc.Users = userSvc
	if store != nil {
		analysisSvc.Store = store
	}

	cacheOpts := []models.Option{models.WithTTL(cfg.ModelCacheTTL)}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		client, err := models.NewRedisClient(ctx, cfg.RedisURL)
		switch {
		case err == nil:
			app.Redis = client
			cacheOpts = append(cacheOpts, models.WithSharedStore(models.NewRedisStore(client)))
		case config.IsDevLike(cfg.Env):
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err.Error()})
		default:
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	app.Models = models.NewCache(router, cacheOpts...)

	resumeSvc := resumes.NewService(resumeRepo, templateRepo)
	resumeSvc.Users = userSvc
	resumeSvc.Parser = analysisSvc

	healthSvc := health.NewService(router)
	healthSvc.Cache = app.Models
	if database != nil {
		healthSvc.Database = database.PingContext
	}
	if app.Redis != nil {
		client := app.Redis
		healthSvc.Redis = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: tokens,
		Lookup:   lookup,
		Limiter:  middleware.NewRateLimiter(nil),
		Auth:     auth.NewHandler(authSvc),
		Resumes:  resumes.NewHandler(resumeSvc),
		Analysis: analysis.NewHandler(analysisSvc, nil),
		Models:   models.NewHandler(app.Models),
		Health:   health.NewHandler(healthSvc),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"database":     database != nil,
		"redis":        app.Redis != nil,
		"object_store": cfg.ObjectStoreType,
	})
	return app, nil
}

// Close releases connections opened by Build. The Lambda database singleton is left open.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	var (
		database *sqlx.DB
		err      error
	)
	if db.IsLambdaRuntime() {
		database, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultLambdaOptions()))
	} else {
		database, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	}
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, database); err != nil {
			if !db.IsLambdaRuntime() {
				_ = database.Close()
			}
			return nil, err
		}
	}
	return database, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

// buildCompleter picks the analysis backend. A nil completer selects the local heuristic, which
// dev-like environments also fall back to when the provider key is missing.
func buildCompleter(ctx context.Context, cfg config.Config, router *openrouter.Client) (llm.Completer, error) {
	switch cfg.LLMProvider {
	case "heuristic":
		return nil, nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.AnalysisModel)
		if err == nil {
			return client, nil
		}
		if errors.Is(err, llm.ErrNotConfigured) && config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.heuristic_fallback", map[string]any{"provider": "gemini"})
			return nil, nil
		}
		return nil, fmt.Errorf("gemini client: %w", err)
	default:
		if router.Configured() {
			return router, nil
		}
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.heuristic_fallback", map[string]any{"provider": "openrouter"})
			return nil, nil
		}
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required: %w", llm.ErrNotConfigured)
	}
}
