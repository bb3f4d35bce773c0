package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAnalysisModel = "google/gemini-2.0-flash-exp:free"
	defaultOpenRouterURL = "https://openrouter.ai/api/v1"

	devAccessSecret  = "dev-access-secret"
	devRefreshSecret = "dev-refresh-secret"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	AutoMigrate     bool

	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	LLMProvider       string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	AnalysisModel     string
	GeminiAPIKey      string
	LLMTimeout        time.Duration
	AppReferer        string
	AppTitle          string

	ModelCacheTTL time.Duration
	RedisURL      string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))

	cfg := Config{
		Port:            getEnv("PORT", "3001"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		AutoMigrate:     getBool("AUTO_MIGRATE", false),

		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		LLMProvider:       normalizeProvider(getEnv("LLM_PROVIDER", "openrouter")),
		OpenRouterAPIKey:  firstEnv("OPENROUTER_API_KEY", "OPENAI_API_KEY"),
		OpenRouterBaseURL: strings.TrimRight(firstEnvOr(defaultOpenRouterURL, "OPENROUTER_BASE_URL", "BASE_URL"), "/"),
		AnalysisModel:     getEnv("ANALYSIS_MODEL", defaultAnalysisModel),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 120*time.Second),
		AppReferer:        getEnv("APP_REFERER", ""),
		AppTitle:          getEnv("APP_TITLE", "ATS Resume Analyzer"),

		ModelCacheTTL: getDuration("MODEL_CACHE_TTL", 24*time.Hour),
		RedisURL:      os.Getenv("REDIS_URL"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "none")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
	}

	if IsDevLike(cfg.Env) {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devAccessSecret
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = devRefreshSecret
		}
	}
	return cfg
}

// Validate reports configuration that would make the process unsafe to run.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if strings.TrimSpace(c.JWTRefreshSecret) == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		errs = append(errs, errors.New("OBJECT_STORE=s3 requires S3_BUCKET"))
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether env allows in-memory fallbacks and development secrets.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func firstEnv(keys ...string) string {
	return firstEnvOr("", keys...)
}

func firstEnvOr(def string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini":
		return "gemini"
	case "heuristic", "none", "offline":
		return "heuristic"
	default:
		return "openrouter"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}
