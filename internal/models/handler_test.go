package models

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func modelsRouter(cache Lister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(cache).RegisterRoutes(r.Group("/api"))
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestListModelsHandler(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	r := modelsRouter(NewCache(fetcher))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.True(t, env.Success)
	var models []Model
	require.NoError(t, json.Unmarshal(env.Data, &models))
	require.Len(t, models, 2)
	assert.Equal(t, "google", models[0].Provider)
	assert.Equal(t, 1000000, models[0].ContextLength)
}

func TestRefreshModelsHandler(t *testing.T) {
	fetcher := &fakeFetcher{infos: catalogue()}
	r := modelsRouter(NewCache(fetcher))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/models/refresh", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Model cache refreshed", decode(t, rec).Message)
	}
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestModelsHandlerErrors(t *testing.T) {
	r := modelsRouter(NewCache(&fakeFetcher{err: errors.New("dial tcp: refused")}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Failed to fetch models", env.Error)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/models/refresh", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to refresh models", decode(t, rec).Error)
}
