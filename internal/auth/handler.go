package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
	"ats-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the public endpoints; requireAuth guards /me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/refresh", h.refresh)
	rg.GET("/me", requireAuth, h.me)
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Validation failed", validationDetails(err))
		return
	}
	session, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			respond.Error(c, http.StatusBadRequest, "user_exists", "User already exists", nil)
			return
		}
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Validation failed",
				[]fieldError{{Field: "password", Rule: "max_bytes"}})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Registration failed", nil)
		return
	}
	respond.SuccessMessage(c, http.StatusCreated, session, "User registered successfully")
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Validation failed", validationDetails(err))
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Login failed", nil)
		return
	}
	respond.SuccessMessage(c, http.StatusOK, session, "Login successful")
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusUnauthorized, "invalid_refresh_token", "Refresh token required", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			respond.Error(c, http.StatusUnauthorized, "invalid_refresh_token", "Invalid refresh token", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Token refresh failed", nil)
		return
	}
	respond.OK(c, gin.H{"tokens": pair})
}

func (h *Handler) me(c *gin.Context) {
	profile, err := h.Svc.Me(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{"user": profile})
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func validationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Field: "body", Rule: "json"}}
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: jsonName(fe.Field()), Rule: fe.Tag()})
	}
	return out
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
