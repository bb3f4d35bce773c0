package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the liveness probe at /health and the dependency report at /api/health.
func (h *Handler) RegisterRoutes(root gin.IRoutes, api gin.IRoutes) {
	root.GET("/health", h.live)
	api.GET("/health", h.ready)
}

func (h *Handler) live(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"service":   ServiceName,
		"version":   Version,
	})
}

func (h *Handler) ready(c *gin.Context) {
	report := h.Svc.Check(c.Request.Context())
	if report.Status != StatusHealthy {
		telemetry.Warn("health.unhealthy", map[string]any{
			"openrouter": report.OpenRouter,
			"error":      report.Error,
		})
	}
	respond.OK(c, report)
}
