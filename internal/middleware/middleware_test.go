package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventdesk/eventdesk/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*service.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &service.Claims{UserID: 42, Email: "a@example.com"}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(stubValidator{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Token good", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", "", http.StatusUnauthorized},
		{"valid header", "Bearer good", "", http.StatusOK},
		{"valid query", "", "?token=good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthMiddleware(stubValidator{}), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestErrorHandlerRendersContextErrors(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(NewNotFoundError("Event").WithDetail("sid", 3))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("disk full"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
		c.Writer.WriteHeaderNow()
		_ = c.Error(errors.New("late"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Event not found","code":"NOT_FOUND","details":{"sid":3}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")
}
