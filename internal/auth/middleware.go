package auth

import (
	"errors"
	"net/http"
	"strings"

	"agentsouk/internal/api"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: msg})
}

// AuthMiddleware validates the bearer token and stashes the caller's
// identity in the request context. Refresh tokens are rejected here; they
// are only good for the refresh endpoint.
func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			abortUnauthorized(c, "authorization header must be a bearer token")
			return
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			abortUnauthorized(c, "token is empty")
			return
		}

		claims, err := ValidateToken(raw, accessTokenSecret)
		switch {
		case errors.Is(err, ErrTokenExpired):
			abortUnauthorized(c, "token expired")
			return
		case err != nil:
			abortUnauthorized(c, "invalid or malformed token")
			return
		}

		if claims.TokenType != tokenAccess {
			abortUnauthorized(c, "access token required")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// RequireRole gates a route on the role claim. Runs after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := c.Get(ctxUserRole)
		if !ok {
			abortUnauthorized(c, "user role not found")
			return
		}

		if roleStr, _ := got.(string); roleStr != role {
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{Error: "insufficient permissions"})
			return
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the request context.
func GetUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
