package main

import (
	"fmt"
	"time"

	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/oidc"
	"github.com/demonically2004/ziota/internal/server"
	"github.com/demonically2004/ziota/internal/sessions"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	// flags
	host             string
	port             int
	jwtSecret        string
	logLevel         string
	passwordOnly     bool
	insecureIdentity bool
	origins          []string
)

func init() {
	RootCmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen address")
	RootCmd.Flags().IntVar(&port, "port", 5000, "listen port")
	RootCmd.Flags().StringVar(&jwtSecret, "jwt-secret", "dev-secret", "secret for locally issued tokens")
	RootCmd.Flags().StringVar(&logLevel, "log-level", "debug", "debug|info|warn|error")
	RootCmd.Flags().BoolVar(&passwordOnly, "password-only-login", true, "allow login with a bare password")
	RootCmd.Flags().BoolVar(&insecureIdentity, "insecure-identity", false, "accept identity tokens without signature checks")
	RootCmd.Flags().StringSliceVar(&origins, "cors-origin", []string{"*"}, "allowed CORS origins")
}

var RootCmd = cobra.Command{
	Use:   "devserver",
	Short: "Run the ziota API in memory",
	Long:  "Run the ziota API over in-memory users and sessions. Nothing survives a restart.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := devConfig()
		addr := fmt.Sprintf("%s:%d", host, port)
		logger.Infof("dev server listening on %s", addr)
		return newDevRouter(cfg, insecureIdentity).Run(addr)
	},
}

func devConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	cfg.JWT.Secret = jwtSecret
	cfg.JWT.AccessTokenTTL = time.Hour
	cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.CORS.AllowedOrigins = origins
	cfg.Auth.PasswordOnlyLogin = passwordOnly
	return cfg
}

func newDevRouter(cfg *config.Config, insecure bool) *gin.Engine {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	var external *auth.ExternalScheme
	if insecure {
		logger.Warn("identity tokens are accepted without signature checks")
		external = auth.NewExternalScheme(oidc.NewInsecureVerifier())
	}
	return server.NewRouter(server.Deps{
		Config:   cfg,
		Users:    users.NewService(users.NewMemoryRepository(), users.WithPasswordOnlyLogin(cfg.Auth.PasswordOnlyLogin)),
		Sessions: sessions.NewService(sessions.NewMemoryRepository()),
		External: external,
		Gatherer: reg,
	})
}
