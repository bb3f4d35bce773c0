package analysis

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/extract"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/telemetry"
)

// MaxUploadSize is the largest accepted resume file.
const MaxUploadSize = 5 << 20

// multipart framing and text fields on top of the file
const formOverhead = 1 << 20

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType, fileName string) (string, error)
}

type Handler struct {
	Svc       *Service
	Extractor TextExtractor
}

func NewHandler(svc *Service, extractor TextExtractor) *Handler {
	if extractor == nil {
		extractor = extract.Extractor{}
	}
	return &Handler{Svc: svc, Extractor: extractor}
}

// RegisterRoutes mounts POST /analyze. optionalAuth attaches the caller when a token is sent.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalAuth gin.HandlerFunc) {
	rg.POST("/analyze", optionalAuth, h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

	header, err := formFile(c, "resume", "file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "file_too_large", "File too large. Maximum size is 5MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}
	if header.Size > MaxUploadSize {
		respond.Error(c, http.StatusBadRequest, "file_too_large", "File too large. Maximum size is 5MB", nil)
		return
	}

	data, err := readUpload(header)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read file", nil)
		return
	}
	if len(data) > MaxUploadSize {
		respond.Error(c, http.StatusBadRequest, "file_too_large", "File too large. Maximum size is 5MB", nil)
		return
	}

	mimeType := extract.NormalizeMime(header.Header.Get("Content-Type"), header.Filename, data)
	if !extract.Allowed(mimeType) {
		respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "Invalid file type. Only PDF and DOCX are allowed.", gin.H{"mimeType": mimeType})
		return
	}

	jobDescription := strings.TrimSpace(c.PostForm("jobDescription"))
	if jobDescription == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Job description is required", nil)
		return
	}
	model := firstNonEmpty(c.PostForm("selectedModel"), c.PostForm("model"))

	ctx := c.Request.Context()
	text, err := h.Extractor.Extract(ctx, data, mimeType, header.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "parse_failed", "Failed to parse file", err.Error())
		return
	}
	if len(strings.TrimSpace(text)) < MinTextLength {
		respond.Error(c, http.StatusBadRequest, "text_too_short", "Resume text is too short or could not be extracted", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	if key, err := h.Svc.Archive(ctx, userID, header.Filename, mimeType, data); err != nil {
		telemetry.Warn("analysis.archive_failed", map[string]any{"user_id": userID, "error": err.Error()})
	} else if key != "" {
		telemetry.Info("analysis.archived", map[string]any{"user_id": userID, "key": key, "size_bytes": len(data)})
	}

	res, err := h.Svc.Analyze(ctx, userID, Input{
		ResumeText:     text,
		JobDescription: jobDescription,
		Model:          model,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrTextTooShort):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "analysis_failed", "Analysis failed", err.Error())
		}
		return
	}
	respond.OK(c, res)
}

func formFile(c *gin.Context, fields ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, field := range fields {
		header, err := c.FormFile(field)
		if err == nil {
			return header, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
