package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "PORT", "JWT_SECRET", "JWT_REFRESH_SECRET", "OPENAI_API_KEY", "OPENROUTER_API_KEY", "BASE_URL", "OPENROUTER_BASE_URL", "LLM_PROVIDER", "OBJECT_STORE", "MODEL_CACHE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.ModelCacheTTL)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, "google/gemini-2.0-flash-exp:free", cfg.AnalysisModel)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, "none", cfg.ObjectStoreType)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEqual(t, cfg.JWTSecret, cfg.JWTRefreshSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoadAliasesAndOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-or-legacy")
	t.Setenv("OPENROUTER_BASE_URL", "")
	t.Setenv("BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_TTL", "garbage")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "sk-or-legacy", cfg.OpenRouterAPIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.OpenRouterBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Empty(t, cfg.JWTSecret, "production must not receive development secrets")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "ok",
			cfg:  Config{Env: "production", DatabaseURL: "postgres://x", JWTSecret: "a", JWTRefreshSecret: "b"},
		},
		{
			name:    "missing secrets",
			cfg:     Config{Env: "production", DatabaseURL: "postgres://x"},
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "same secrets",
			cfg:     Config{Env: "dev", JWTSecret: "a", JWTRefreshSecret: "a"},
			wantErr: "must differ",
		},
		{
			name:    "production without database",
			cfg:     Config{Env: "production", JWTSecret: "a", JWTRefreshSecret: "b"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "s3 without bucket",
			cfg:     Config{Env: "dev", JWTSecret: "a", JWTRefreshSecret: "b", ObjectStoreType: "s3"},
			wantErr: "S3_BUCKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFilesDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ATS_TEST_FROM_FILE=file\nATS_TEST_PRESET=file\n"), 0o600))

	t.Setenv("ATS_TEST_PRESET", "env")
	t.Setenv("ATS_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("ATS_TEST_FROM_FILE"))

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	assert.Equal(t, "file", os.Getenv("ATS_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("ATS_TEST_PRESET"))
}
