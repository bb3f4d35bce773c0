package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-backend/internal/llm"
	sharedauth "ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/server/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type handlerFixture struct {
	router *gin.Engine
	svc    *Service
	tokens *sharedauth.TokenIssuer
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	issuer, err := sharedauth.NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	svc := NewService(NewMemoryRepo(), NewMemoryTemplates())
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"), middleware.RequireAuth(issuer, nil))
	return &handlerFixture{router: r, svc: svc, tokens: issuer}
}

func (f *handlerFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		pair, err := f.tokens.IssuePair(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type resumeData struct {
	Resume struct {
		ID         string          `json:"id"`
		Title      string          `json:"title"`
		Content    json.RawMessage `json:"content"`
		Status     string          `json:"status"`
		Version    int             `json:"version"`
		TemplateID *string         `json:"templateId"`
		Template   map[string]any  `json:"template"`
	} `json:"resume"`
}

func (f *handlerFixture) createResume(t *testing.T, userID string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/resumes", userID, map[string]any{
		"title":      "Backend CV",
		"content":    json.RawMessage(structured),
		"templateId": "modern",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data resumeData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	return data.Resume.ID
}

func TestResumeRoutesRequireAuth(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/resumes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", decode(t, rec).Error)
}

func TestCreateAndGetResume(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "user-1")

	rec := f.do(t, http.MethodGet, "/api/resumes/"+id, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)

	var data resumeData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Backend CV", data.Resume.Title)
	assert.Equal(t, "draft", data.Resume.Status)
	assert.Equal(t, 1, data.Resume.Version)
	assert.JSONEq(t, structured, string(data.Resume.Content))
	require.NotNil(t, data.Resume.TemplateID)
	assert.Equal(t, "Modern", data.Resume.Template["name"])
	assert.Contains(t, data.Resume.Template, "design")
}

func TestCreateResumeValidation(t *testing.T) {
	f := newHandlerFixture(t)
	for name, body := range map[string]map[string]any{
		"missing title":    {"content": "text"},
		"missing content":  {"title": "CV"},
		"unknown template": {"title": "CV", "content": "text", "templateId": "neon"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/resumes", "user-1", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decode(t, rec).Success)
		})
	}
}

func TestListResumes(t *testing.T) {
	f := newHandlerFixture(t)
	f.createResume(t, "user-1")
	f.createResume(t, "user-1")
	f.createResume(t, "user-2")

	rec := f.do(t, http.MethodGet, "/api/resumes?page=1&limit=1", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Resumes []struct {
			ID       string         `json:"id"`
			Template map[string]any `json:"template"`
		} `json:"resumes"`
		Pagination Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, Pagination{Total: 2, Page: 1, Limit: 1, Pages: 2}, data.Pagination)
	require.Len(t, data.Resumes, 1)
	assert.Equal(t, map[string]any{"id": "modern", "name": "Modern", "category": "professional"}, data.Resumes[0].Template)
}

func TestUpdateAndVersions(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "user-1")

	rec := f.do(t, http.MethodPatch, "/api/resumes/"+id, "user-1", map[string]any{
		"title":             "Updated",
		"optimizationScore": 91,
		"version":           99,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data resumeData
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "Updated", data.Resume.Title)
	assert.Equal(t, 2, data.Resume.Version)

	rec = f.do(t, http.MethodGet, "/api/resumes/"+id+"/versions", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var versions struct {
		Versions []VersionResponse `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &versions))
	require.Len(t, versions.Versions, 1)
	assert.Equal(t, 1, versions.Versions[0].VersionNumber)
	assert.JSONEq(t, structured, string(versions.Versions[0].Content))

	rec = f.do(t, http.MethodPatch, "/api/resumes/"+id, "user-1", map[string]any{"optimizationScore": 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteResume(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "user-1")

	rec := f.do(t, http.MethodDelete, "/api/resumes/"+id, "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `{"id": "`+id+`"}`, string(env.Data))

	rec = f.do(t, http.MethodGet, "/api/resumes/"+id, "user-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForeignResumeIsNotFound(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "owner")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/resumes/" + id},
		{http.MethodPatch, "/api/resumes/" + id},
		{http.MethodDelete, "/api/resumes/" + id},
		{http.MethodGet, "/api/resumes/" + id + "/versions"},
		{http.MethodGet, "/api/resumes/" + id + "/export/pdf"},
		{http.MethodGet, "/api/resumes/" + id + "/export/word"},
		{http.MethodGet, "/api/resumes/" + id + "/preview"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			var body any
			if tc.method == http.MethodPatch {
				body = map[string]any{"title": "mine now"}
			}
			rec := f.do(t, tc.method, tc.path, "intruder", body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Resume not found", decode(t, rec).Error)
		})
	}
}

func TestExportEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "user-1")

	rec := f.do(t, http.MethodGet, "/api/resumes/"+id+"/export/pdf", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume-`+id+`.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = f.do(t, http.MethodGet, "/api/resumes/"+id+"/export/word", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeDOCX, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestPreviewEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	id := f.createResume(t, "user-1")

	rec := f.do(t, http.MethodGet, "/api/resumes/"+id+"/preview", "user-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, htmlContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Jane Doe")

	rec = f.do(t, http.MethodPost, "/api/resumes/preview", "user-1", map[string]any{
		"content":    map[string]any{"personalInfo": map[string]any{"fullName": "<b>Ann</b>"}},
		"templateId": "classic",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "&lt;b&gt;Ann&lt;/b&gt;"))
}

func TestParseEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/resumes/parse", "user-1", map[string]any{"text": "Jane Doe"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.svc.Parser = fakeParser{out: json.RawMessage(`{"summary": "parsed"}`)}
	rec = f.do(t, http.MethodPost, "/api/resumes/parse", "user-1", map[string]any{"text": "Jane Doe"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary": "parsed"}`, string(decode(t, rec).Data))

	rec = f.do(t, http.MethodPost, "/api/resumes/parse", "user-1", map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.svc.Parser = fakeParser{err: errors.New("upstream broke")}
	rec = f.do(t, http.MethodPost, "/api/resumes/parse", "user-1", map[string]any{"text": "Jane Doe"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to parse resume", decode(t, rec).Error)

	f.svc.Parser = fakeParser{err: llm.ErrNotConfigured}
	rec = f.do(t, http.MethodPost, "/api/resumes/parse", "user-1", map[string]any{"text": "Jane Doe"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTemplatesArePublic(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Templates []TemplateResponse `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	require.Len(t, data.Templates, 3)
	assert.Equal(t, "classic", data.Templates[0].ID)

	_, err := f.svc.Templates.Get(context.Background(), "modern")
	require.NoError(t, err)
}
