package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demonically2004/ziota/handlers"
	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/database"
	"github.com/demonically2004/ziota/internal/oidc"
	"github.com/demonically2004/ziota/internal/server"
	"github.com/demonically2004/ziota/internal/sessions"
	"github.com/demonically2004/ziota/internal/storage"
	udservice "github.com/demonically2004/ziota/internal/userdata/service"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetFormat(os.Getenv("LOG_FORMAT"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: firebase=%v mongo=%v redis=%v media=%v",
		cfg.Firebase.IssuerURL() != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Media.Configured())

	ctx := context.Background()
	checks := map[string]handlers.Check{}

	// Redis is optional: sessions, the token blacklist and the shared limiter use it when present.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		c := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = c.Close()
		} else {
			rdb = c
			defer func() { _ = rdb.Close() }()
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			logger.Infof("connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is not set")
	}
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB, 5, time.Second)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	logger.Infof("connected to MongoDB database %q", cfg.MongoDB.Database)
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

	db := client.Database(cfg.MongoDB.Database)
	userRepo := users.NewMongoUserRepository(db.Collection("users"))
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("failed to ensure user indexes: %v", err)
	}
	userSvc := users.NewService(userRepo, users.WithPasswordOnlyLogin(cfg.Auth.PasswordOnlyLogin))

	var sessionsSvc *sessions.Service
	if rdb != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
		logger.Infof("using Redis for session storage")
	} else {
		srepo := sessions.NewMongoRepository(db.Collection("sessions"))
		if err := srepo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("failed to ensure session indexes: %v", err)
		}
		sessionsSvc = sessions.NewService(srepo)
		logger.Infof("using MongoDB for session storage")
	}

	var media udservice.MediaStore
	if cfg.Media.Configured() {
		ms, err := storage.NewMinIOStorage(ctx, cfg.Media)
		if err != nil {
			logger.Warnf("media host unavailable, uploads disabled: %v", err)
		} else {
			media = ms
			checks["media"] = ms.Ping
		}
	}

	external := externalScheme(ctx, cfg)
	if external == nil {
		logger.Warnf("no identity provider configured; only local tokens are accepted")
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r := server.NewRouter(server.Deps{
		Config:    cfg,
		Users:     userSvc,
		Sessions:  sessionsSvc,
		External:  external,
		Blacklist: sessions.NewBlacklist(rdb),
		Media:     media,
		Redis:     rdb,
		Checks:    checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting ziota API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Errorf("forced shutdown: %v", err)
	}
}

// externalScheme builds the identity-provider scheme, or nil when none is configured.
func externalScheme(ctx context.Context, cfg *config.Config) *auth.ExternalScheme {
	issuer := cfg.Firebase.IssuerURL()
	if issuer != "" {
		v, err := oidc.NewVerifier(ctx, issuer, cfg.Firebase.ProjectID)
		if err == nil {
			return auth.NewExternalScheme(v)
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.Firebase.AllowInsecure {
		logger.Warn("enabling insecure identity token verifier (integration mode)")
		return auth.NewExternalScheme(oidc.NewInsecureVerifier())
	}
	return nil
}
