package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/demonically2004/ziota/internal/apperrors"
	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/sessions"
	"github.com/demonically2004/ziota/internal/tokens"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/demonically2004/ziota/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest accepts email or username with a password, or a bare password.
type LoginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// IdentityVerifier verifies external identity tokens. *auth.ExternalScheme implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	external    IdentityVerifier
	blacklist   *sessions.Blacklist
}

// NewAuthHandler wires the account endpoints. external and blacklist may be nil
// when no identity provider or Redis is configured.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, external IdentityVerifier, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, external: external, blacklist: bl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.RegisterUser)
	a.POST("/login", h.Login)
	a.POST("/check-user", h.CheckUser)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// RegisterUser creates a password account.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Write(c, apperrors.Validation("Username, email, and password are required"))
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), users.RegisterInput(req))
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User registered successfully", "user": u.Public()})
}

// Login checks credentials and issues an access token plus a refresh session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Write(c, apperrors.Validation("Email, username, or password required"))
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), users.Credentials(req))
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		apperrors.Write(c, apperrors.Internal("Failed to create access token", err))
		return
	}
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.ID, h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		apperrors.Write(c, apperrors.Internal("Failed to create session", err))
		return
	}
	logger.Infof("login user id=%s", u.ID)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Login successful",
		"token":        access,
		"refreshToken": rft,
		"expiresIn":    int(h.cfg.JWT.AccessTokenTTL.Seconds()),
		"user":         u.Public(),
	})
}

// CheckUser verifies an external identity token and upserts the matching account.
func (h *AuthHandler) CheckUser(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		apperrors.Write(c, apperrors.Validation("No token provided"))
		return
	}
	if h.external == nil {
		apperrors.Write(c, apperrors.Authentication("Identity provider not configured"))
		return
	}
	claims, err := h.external.Verify(c.Request.Context(), req.Token)
	if err != nil {
		logger.Debugf("check-user rejected token: %v", err)
		apperrors.Write(c, apperrors.Authentication("Unauthorized"))
		return
	}
	u, err := h.usersSvc.UpsertExternal(c.Request.Context(), users.ExternalProfile{
		UID: claims.Subject, Email: claims.Email, Name: claims.Name,
	})
	if err != nil {
		apperrors.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.Public()})
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		apperrors.Write(c, apperrors.Validation("Refresh token is required"))
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessionsSvc.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		apperrors.Write(c, apperrors.Internal("Session lookup failed", err))
		return
	}
	if sess == nil {
		apperrors.Write(c, apperrors.Authentication("Invalid refresh token"))
		return
	}
	u, err := h.usersSvc.GetByID(ctx, sess.UserID)
	if err != nil {
		apperrors.Write(c, apperrors.Internal("User lookup failed", err))
		return
	}
	if u == nil {
		_ = h.sessionsSvc.DeleteRefresh(ctx, req.RefreshToken)
		apperrors.Write(c, apperrors.Authentication("Invalid refresh token"))
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		apperrors.Write(c, apperrors.Internal("Failed to create access token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": access, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout drops the refresh session and blacklists the presented access token
// for the rest of its lifetime. It succeeds even with nothing to revoke.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = c.ShouldBindJSON(&req)
	ctx := c.Request.Context()

	if at := middleware.BearerToken(c); at != "" {
		if exp, err := tokenExpiry(at); err == nil {
			if err := h.blacklist.Add(ctx, at, h.blacklistTTL(exp)); err != nil {
				apperrors.Write(c, apperrors.Internal("Failed to revoke access token", err))
				return
			}
		}
	}
	if req.RefreshToken != "" {
		if err := h.sessionsSvc.DeleteRefresh(ctx, req.RefreshToken); err != nil {
			apperrors.Write(c, apperrors.Internal("Failed to remove session", err))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// blacklistTTL is the remaining token lifetime, capped at the longest lifetime
// either scheme issues.
func (h *AuthHandler) blacklistTTL(exp time.Time) time.Duration {
	ttl := time.Until(exp)
	limit := h.cfg.JWT.AccessTokenTTL
	if limit < time.Hour {
		limit = time.Hour
	}
	if ttl > limit {
		return limit
	}
	return ttl
}

// tokenExpiry reads exp without verifying the token.
func tokenExpiry(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("exp claim not present")
	}
	return claims.ExpiresAt.Time, nil
}
