// Package server assembles the HTTP surface from explicitly constructed
// dependencies. Both the API server and the dev server build their router here.
package server

import (
	"time"

	"github.com/demonically2004/ziota/handlers"
	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/sessions"
	udhandler "github.com/demonically2004/ziota/internal/userdata/handler"
	udservice "github.com/demonically2004/ziota/internal/userdata/service"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps are the constructed clients and services the router wires together.
// Optional fields may be left nil.
type Deps struct {
	Config   *config.Config
	Users    *users.Service
	Sessions *sessions.Service

	// External verifies identity-provider tokens. nil disables check-user and
	// the external bearer scheme.
	External *auth.ExternalScheme

	// Blacklist holds tokens revoked by logout.
	Blacklist *sessions.Blacklist

	// Media receives uploads. nil makes upload routes fail.
	Media udservice.MediaStore

	// Redis backs the shared rate limiter when RateLimit.UseRedis is set.
	Redis *redis.Client

	// Gatherer serves /metrics; defaults to the prometheus default registry.
	Gatherer prometheus.Gatherer

	// Checks are run by /ready.
	Checks map[string]handlers.Check
}

// rateLimiter returns the configured limiter, or nothing when limiting is off.
// Each call owns its own in-memory buckets.
func rateLimiter(d Deps) []gin.HandlerFunc {
	rl := d.Config.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.UseRedis && d.Redis != nil {
		win := time.Duration(rl.WindowSeconds) * time.Second
		return []gin.HandlerFunc{middleware.RedisRateLimitMiddleware(d.Redis, rl.RPS, rl.Burst, win)}
	}
	return []gin.HandlerFunc{middleware.RateLimitMiddleware(rl.RPS, rl.Burst)}
}

// NewRouter builds the gin engine: CORS, request logging and recovery, then
// the public, auth and user-data routes. The auth routes are limited per
// client IP; the user-data routes are limited per user, after authentication.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins), middleware.RequestLogger(), gin.Recovery())

	handlers.RegisterHealth(r, cfg, d.Checks)
	handlers.RegisterSwagger(r)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	schemes := []auth.Scheme{auth.NewLocalScheme(cfg)}
	var external handlers.IdentityVerifier
	if d.External != nil {
		schemes = append(schemes, d.External)
		external = d.External
	}
	dispatcher := auth.NewDispatcher(d.Users, schemes...)
	logger.Infof("auth schemes: %v", dispatcher.Schemes())

	handlers.NewAuthHandler(cfg, d.Users, d.Sessions, external, d.Blacklist).Register(r.Group("/", rateLimiter(d)...))

	api := r.Group("/api/user", middleware.AuthMiddleware(dispatcher, d.Blacklist))
	api.Use(rateLimiter(d)...)
	udhandler.RegisterUserDataRoutes(api, udservice.New(d.Users.Repository(), d.Media))

	return r
}
