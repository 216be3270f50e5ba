package middleware

import (
	"strconv"
	"time"

	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one structured line per request and records the HTTP
// metrics. Routes are labelled by their pattern, not the raw path.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(elapsed.Seconds())

		fields := logger.Fields{
			"method":   c.Request.Method,
			"route":    route,
			"status":   status,
			"duration": elapsed.String(),
			"ip":       c.ClientIP(),
		}
		if id, ok := CurrentIdentity(c); ok {
			fields["user"] = id.UserID
		}
		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
