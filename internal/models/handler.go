package models

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/server/respond"
)

// Lister is the read side of the cache used by handlers.
type Lister interface {
	Models(ctx context.Context) ([]Model, error)
	Refresh(ctx context.Context) ([]Model, error)
}

type Handler struct {
	Cache Lister
}

func NewHandler(cache Lister) *Handler {
	return &Handler{Cache: cache}
}

// RegisterRoutes mounts GET /models and POST /models/refresh.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/models", h.list)
	rg.POST("/models/refresh", h.refresh)
}

func (h *Handler) list(c *gin.Context) {
	models, err := h.Cache.Models(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "models_unavailable", "Failed to fetch models", err.Error())
		return
	}
	respond.OK(c, models)
}

func (h *Handler) refresh(c *gin.Context) {
	models, err := h.Cache.Refresh(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "models_unavailable", "Failed to refresh models", err.Error())
		return
	}
	respond.SuccessMessage(c, http.StatusOK, models, "Model cache refreshed")
}
