package resumes

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

const htmlContentType = "text/html; charset=utf-8"

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the public template catalogue and the resume routes behind requireAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/templates", h.templates)

	resumes := rg.Group("/resumes", requireAuth)
	resumes.GET("", h.list)
	resumes.POST("", h.create)
	resumes.POST("/parse", h.parse)
	resumes.POST("/preview", h.previewContent)
	resumes.GET("/:id", h.get)
	resumes.PATCH("/:id", h.update)
	resumes.DELETE("/:id", h.delete)
	resumes.GET("/:id/versions", h.versions)
	resumes.GET("/:id/export/pdf", h.exportPDF)
	resumes.GET("/:id/export/word", h.exportWord)
	resumes.GET("/:id/preview", h.preview)
}

func (h *Handler) templates(c *gin.Context) {
	list, err := h.Svc.Catalogue(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load templates", nil)
		return
	}
	out := make([]TemplateResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTemplateResponse(t))
	}
	respond.OK(c, gin.H{"templates": out})
}

func (h *Handler) list(c *gin.Context) {
	result, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), ListQuery{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Status: c.Query("status"),
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to list resumes", nil)
		return
	}
	out := make([]ResumeResponse, 0, len(result.Resumes))
	for _, d := range result.Resumes {
		out = append(out, toSummaryResponse(d))
	}
	respond.OK(c, listResponse{Resumes: out, Pagination: result.Pagination})
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Title and content required", nil)
		return
	}
	d, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), CreateInput{
		Title:      req.Title,
		Content:    req.Content,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		h.fail(c, err, "Failed to create resume")
		return
	}
	middleware.SetResumeID(c, d.Resume.ID)
	respond.Created(c, gin.H{"resume": toDetailResponse(d)})
}

func (h *Handler) get(c *gin.Context) {
	id := resumeID(c)
	d, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "Failed to load resume")
		return
	}
	respond.OK(c, gin.H{"resume": toDetailResponse(d)})
}

func (h *Handler) update(c *gin.Context) {
	id := resumeID(c)
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid request body", nil)
		return
	}
	d, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), id, req.toPatch())
	if err != nil {
		h.fail(c, err, "Failed to update resume")
		return
	}
	respond.OK(c, gin.H{"resume": toDetailResponse(d)})
}

func (h *Handler) delete(c *gin.Context) {
	id := resumeID(c)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		h.fail(c, err, "Failed to delete resume")
		return
	}
	respond.SuccessMessage(c, http.StatusOK, gin.H{"id": id}, "Resume deleted")
}

func (h *Handler) versions(c *gin.Context) {
	id := resumeID(c)
	versions, err := h.Svc.Versions(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "Failed to load versions")
		return
	}
	respond.OK(c, gin.H{"versions": toVersionResponses(versions)})
}

func (h *Handler) exportPDF(c *gin.Context) {
	id := resumeID(c)
	file, err := h.Svc.ExportPDF(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "Failed to export resume")
		return
	}
	sendFile(c, file)
}

func (h *Handler) exportWord(c *gin.Context) {
	id := resumeID(c)
	file, err := h.Svc.ExportWord(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "Failed to export resume")
		return
	}
	sendFile(c, file)
}

func (h *Handler) preview(c *gin.Context) {
	id := resumeID(c)
	html, err := h.Svc.Preview(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "Failed to render preview")
		return
	}
	c.Data(http.StatusOK, htmlContentType, html)
}

func (h *Handler) previewContent(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Content is required", nil)
		return
	}
	html, err := h.Svc.PreviewContent(c.Request.Context(), req.Content, req.TemplateID)
	if err != nil {
		h.fail(c, err, "Failed to render preview")
		return
	}
	c.Data(http.StatusOK, htmlContentType, html)
}

func (h *Handler) parse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Resume text is required", nil)
		return
	}
	parsed, err := h.Svc.Parse(c.Request.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "ai_unavailable", "AI parsing is not configured", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Resume text is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "parse_failed", "Failed to parse resume", err.Error())
		}
		return
	}
	respond.OK(c, parsed)
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", fallback, err.Error())
	}
}

func resumeID(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	middleware.SetResumeID(c, id)
	return id
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}

func sendFile(c *gin.Context, file File) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
