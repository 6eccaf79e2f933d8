package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is satisfied by the repository database providers
type Pinger interface {
	Ping() error
}

type HealthHandler struct {
	startTime time.Time
	db        Pinger
	version   string
}

func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		db:        db,
		version:   version,
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "eventdesk",
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database_unavailable",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"uptime":   time.Since(h.startTime).String(),
	})
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"status":     "alive",
		"uptime":     time.Since(h.startTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"alloc_mb":   m.Alloc / 1024 / 1024,
	})
}

// MetricsEndpoint serves Prometheus metrics
// GET /prometheus
func (h *HealthHandler) MetricsEndpoint(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
