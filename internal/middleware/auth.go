package middleware

import (
	"net/http"
	"strings"

	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID  = "user_id"
	ContextEmail   = "email"
	ContextIsAdmin = "is_admin"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware validates the bearer token and stores the acting user in the
// gin context. Handlers read it back with GetUserID and pass it on explicitly.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			// the websocket feed cannot set headers from browsers
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "Missing authorization header",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "Invalid or expired token",
				Code:  "INVALID_TOKEN",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: "Insufficient permissions",
				Code:  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user's id, 0 when unauthenticated
func GetUserID(c *gin.Context) uint {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
