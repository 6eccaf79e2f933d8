package middleware

import (
	"strconv"
	"time"

	"github.com/eventdesk/eventdesk/internal/monitoring"
	"github.com/eventdesk/eventdesk/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs every request and feeds the API metrics
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		monitoring.RecordAPIRequest(c.Request.Method, endpoint, strconv.Itoa(status), latency)

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if userID := GetUserID(c); userID != 0 {
			fields["user_id"] = userID
		}

		message := "HTTP request"
		switch {
		case status >= 500:
			logger.Error(message, nil, fields)
		case status >= 400:
			logger.Warn(message, fields)
		default:
			logger.Info(message, fields)
		}
	}
}
