package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	resumeIDKey  = "resumeId"
)

// ErrUserMissing is returned by a UserLookup when the token subject no longer exists.
var ErrUserMissing = errors.New("user not found")

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (auth.Claims, error)
}

// UserLookup confirms the token subject still exists.
type UserLookup func(ctx context.Context, userID string) error

// RequireAuth rejects requests without a valid bearer token for an existing user.
func RequireAuth(verifier TokenVerifier, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "No token provided", nil)
			return
		}
		if status, code, msg := authenticate(c, verifier, lookup, token); status != 0 {
			respond.Error(c, status, code, msg, nil)
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches identity when a valid token is present and otherwise continues anonymously.
func OptionalAuth(verifier TokenVerifier, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			_, _, _ = authenticate(c, verifier, lookup, token)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, verifier TokenVerifier, lookup UserLookup, token string) (int, string, string) {
	if verifier == nil {
		return http.StatusUnauthorized, "unauthorized", "Invalid token"
	}
	claims, err := verifier.VerifyAccess(token)
	if err != nil {
		return http.StatusUnauthorized, "unauthorized", "Invalid token"
	}
	if lookup != nil {
		if err := lookup(c.Request.Context(), claims.UserID); err != nil {
			if errors.Is(err, ErrUserMissing) {
				return http.StatusUnauthorized, "unauthorized", "User not found"
			}
			return http.StatusInternalServerError, "internal", "Authentication failed"
		}
	}
	c.Set(userIDKey, claims.UserID)
	if claims.Email != "" {
		c.Set(userEmailKey, claims.Email)
	}
	return 0, "", ""
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	return token, token != ""
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// SetResumeID records the resume a request operated on for request logging.
func SetResumeID(c *gin.Context, id string) {
	if c != nil && id != "" {
		c.Set(resumeIDKey, id)
	}
}
