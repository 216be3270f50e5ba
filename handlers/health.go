package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Check reports whether one backing dependency is usable.
type Check func(ctx context.Context) error

var startTime = time.Now()

// RegisterHealth mounts GET /api/health (configuration summary) and GET /ready
// (live dependency checks).
func RegisterHealth(r gin.IRoutes, cfg *config.Config, checks map[string]Check) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "OK",
			"message":       "Ziota backend is running",
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"environment":   cfg.Server.Environment,
			"hasMongoUri":   cfg.MongoDB.URI != "",
			"hasJwtSecret":  cfg.JWT.Secret != "",
			"hasCloudinary": cfg.Media.Configured(),
			"hasFirebase":   cfg.Firebase.IssuerURL() != "",
		})
	})

	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := make(map[string]bool, len(names))
		for _, n := range names {
			err := checks[n](ctx)
			deps[n] = err == nil
			if err != nil {
				ready = false
				logger.Warnf("readiness: %s unavailable: %v", n, err)
			}
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
}
