package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/analysis"
	"ats-backend/internal/auth"
	"ats-backend/internal/models"
	"ats-backend/internal/resumes"
	"ats-backend/internal/services/health"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/server/middleware"
	"ats-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers and auth collaborators the router mounts.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Lookup   middleware.UserLookup
	Limiter  *middleware.RateLimiter

	Auth     *auth.Handler
	Resumes  *resumes.Handler
	Analysis *analysis.Handler
	Models   *models.Handler
	Health   *health.Handler
}

var rateLimitRoutes = map[string]string{
	"POST /api/auth/register":  "AUTH",
	"POST /api/auth/login":     "AUTH",
	"POST /api/auth/refresh":   "AUTH",
	"POST /api/analyze":        "ANALYZE",
	"POST /api/resumes/parse":  "ANALYZE",
	"POST /api/models/refresh": "ANALYZE",
}

// Rates are tokens per second.
var rateLimitRules = map[string]middleware.RateLimitRule{
	"AUTH":    {Rate: 10.0 / 60, Burst: 10},
	"ANALYZE": {Rate: 10.0 / 60, Burst: 5},
	"DEFAULT": {Rate: 5, Burst: 100},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !config.IsDevLike(deps.Config.Env) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rateLimitRules,
			GroupFor: middleware.GroupByRoute(rateLimitRoutes),
			Limiter:  deps.Limiter,
		}),
	)

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Lookup)
	optionalAuth := middleware.OptionalAuth(deps.Verifier, deps.Lookup)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	if deps.Health != nil {
		deps.Health.RegisterRoutes(r, api)
	}
	if deps.Auth != nil {
		deps.Auth.RegisterRoutes(api.Group("/auth"), requireAuth)
	}
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api, requireAuth)
	}
	if deps.Models != nil {
		deps.Models.RegisterRoutes(api)
	}
	if deps.Analysis != nil {
		deps.Analysis.RegisterRoutes(api, optionalAuth)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "Route not found", nil)
	})
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":3001"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
