package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/demonically2004/ziota/internal/apperrors"
	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Authenticator resolves a bearer token to an identity. *auth.Dispatcher implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*auth.Identity, error)
}

// RevocationList reports tokens revoked by logout. *sessions.Blacklist implements it.
type RevocationList interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// AuthMiddleware returns a Gin middleware that resolves Bearer tokens through
// the dispatcher and stores the caller's identity on the context. revoked may be nil.
func AuthMiddleware(a Authenticator, revoked RevocationList) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "No token provided"})
			return
		}
		ctx := c.Request.Context()

		if revoked != nil {
			blocked, err := revoked.IsBlacklisted(ctx, token)
			if err != nil {
				logger.Warnf("blacklist check failed, continuing: %v", err)
			}
			if blocked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token revoked"})
				return
			}
		}

		id, err := a.Authenticate(ctx, token)
		if err != nil {
			var ae *auth.Error
			if !errors.As(err, &ae) {
				apperrors.Write(c, apperrors.Internal("Authentication failed", err))
				return
			}
			logger.WithFields(logger.Fields{"path": c.FullPath()}).Debugf("rejected token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token"})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// CurrentIdentity returns the identity stored by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok && id != nil
}

// MustUserID returns the authenticated user id, aborting with 401 when the
// route was mounted without AuthMiddleware.
func MustUserID(c *gin.Context) (string, bool) {
	id, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Not authenticated"})
		return "", false
	}
	return id.UserID, true
}

// limiterKey prefers the authenticated user, falling back to the client IP.
func limiterKey(c *gin.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return "user:" + id.UserID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
