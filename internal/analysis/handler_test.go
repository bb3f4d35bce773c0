package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ats-backend/internal/extract"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(context.Context, []byte, string, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type upload struct {
	field       string
	fileName    string
	contentType string
	data        []byte
	fields      map[string]string
}

func multipartBody(t *testing.T, u upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if u.field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, u.field, u.fileName))
		h.Set("Content-Type", u.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(u.data)
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pdfUpload() upload {
	return upload{
		field:       "resume",
		fileName:    "cv.pdf",
		contentType: extract.MimePDF,
		data:        []byte("%PDF-1.4 test document"),
		fields:      map[string]string{"jobDescription": "Senior Go engineer", "selectedModel": "x/y:free"},
	}
}

type analyzeFixture struct {
	router    *gin.Engine
	completer *fakeCompleter
	extractor *fakeExtractor
	store     *fakeStore
}

func newAnalyzeFixture(reply string) *analyzeFixture {
	gin.SetMode(gin.TestMode)
	f := &analyzeFixture{
		completer: &fakeCompleter{reply: reply},
		extractor: &fakeExtractor{text: longResume},
		store:     &fakeStore{},
	}
	svc := NewService(f.completer, DefaultModel)
	svc.Store = f.store

	r := gin.New()
	noAuth := func(c *gin.Context) { c.Next() }
	NewHandler(svc, f.extractor).RegisterRoutes(r.Group("/api"), noAuth)
	f.router = r
	return f
}

func (f *analyzeFixture) post(t *testing.T, u upload) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, contentType := multipartBody(t, u)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

const goodReply = `{"overallScore": 88, "keywordMatch": {"score": 80, "matchedKeywords": ["go"]}, "formattingScore": {"score": 90}}`

func TestAnalyzeSuccess(t *testing.T) {
	f := newAnalyzeFixture("```json\n" + goodReply + "\n```")
	rec, env := f.post(t, pdfUpload())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	score := data["overallScore"].(float64)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	assert.Equal(t, "x/y:free", data["modelUsed"].(map[string]any)["id"])

	assert.Equal(t, 1, f.completer.callCount())
	assert.Len(t, f.store.keys, 1)
	assert.Equal(t, extract.MimePDF, f.store.contentType)
}

func TestAnalyzeAcceptsAlternateFieldNames(t *testing.T) {
	f := newAnalyzeFixture(goodReply)
	u := pdfUpload()
	u.field = "file"
	u.fields = map[string]string{"jobDescription": "jd", "model": "alt/model:free"}

	rec, _ := f.post(t, u)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alt/model:free", f.completer.calls[0].Model)
}

func TestAnalyzeRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*upload, *analyzeFixture)
		wantError string
	}{
		{
			name:      "no file",
			mutate:    func(u *upload, _ *analyzeFixture) { u.field = "" },
			wantError: "No file uploaded",
		},
		{
			name: "disallowed mime",
			mutate: func(u *upload, _ *analyzeFixture) {
				u.contentType = "text/plain"
				u.fileName = "cv.txt"
			},
			wantError: "Invalid file type. Only PDF and DOCX are allowed.",
		},
		{
			name:      "too large",
			mutate:    func(u *upload, _ *analyzeFixture) { u.data = bytes.Repeat([]byte("a"), MaxUploadSize+1) },
			wantError: "File too large. Maximum size is 5MB",
		},
		{
			name:      "blank job description",
			mutate:    func(u *upload, _ *analyzeFixture) { u.fields["jobDescription"] = "   " },
			wantError: "Job description is required",
		},
		{
			name:      "extraction failure",
			mutate:    func(_ *upload, f *analyzeFixture) { f.extractor.err = extract.ErrUnreadable },
			wantError: "Failed to parse file",
		},
		{
			name:      "text too short",
			mutate:    func(_ *upload, f *analyzeFixture) { f.extractor.text = "  short text  " },
			wantError: "Resume text is too short or could not be extracted",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAnalyzeFixture(goodReply)
			u := pdfUpload()
			tt.mutate(&u, f)

			rec, env := f.post(t, u)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, env["success"])
			assert.Equal(t, tt.wantError, env["error"])
			assert.Zero(t, f.completer.callCount())
			assert.Empty(t, f.store.keys)
		})
	}
}

func TestAnalyzeDisallowedMimeSkipsExtraction(t *testing.T) {
	f := newAnalyzeFixture(goodReply)
	u := pdfUpload()
	u.contentType = "image/png"

	rec, _ := f.post(t, u)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.extractor.calls)
	assert.Zero(t, f.completer.callCount())
}

func TestAnalyzeFailureIs500(t *testing.T) {
	f := newAnalyzeFixture("")
	f.completer.err = errors.New("openrouter status 502: bad gateway")

	rec, env := f.post(t, pdfUpload())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Analysis failed", env["error"])
	assert.Equal(t, "AI analysis failed: openrouter status 502: bad gateway", env["details"])
}

func TestAnalyzeArchiveFailureDoesNotBlock(t *testing.T) {
	f := newAnalyzeFixture(goodReply)
	f.store.err = errors.New("bucket missing")

	rec, _ := f.post(t, pdfUpload())
	assert.Equal(t, http.StatusOK, rec.Code)
}
