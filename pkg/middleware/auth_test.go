package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeAuthenticator accepts "goodtoken" only.
type fakeAuthenticator struct {
	err error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, raw string) (*auth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if raw == "goodtoken" {
		return &auth.Identity{UserID: "user1", Kind: auth.KindLocal}, nil
	}
	return nil, &auth.Error{Attempts: []auth.Attempt{{Scheme: auth.KindLocal, Err: auth.ErrInvalidToken}}}
}

func serve(g *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func protected(a Authenticator, revoked RevocationList) *gin.Engine {
	g := gin.New()
	g.GET("/", AuthMiddleware(a, revoked), func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "kind": id.Kind})
	})
	return g
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	rw := serve(protected(&fakeAuthenticator{}, nil), "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "No token provided")
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	rw := serve(protected(&fakeAuthenticator{}, nil), "BadHeader")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	rw := serve(protected(&fakeAuthenticator{}, nil), "Bearer badtoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "Invalid token")
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	rw := serve(protected(&fakeAuthenticator{}, nil), "bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "user1", got["userId"])
	require.Equal(t, "local", got["kind"])
}

func TestAuthMiddleware_StoreFailureIs500(t *testing.T) {
	rw := serve(protected(&fakeAuthenticator{err: errors.New("mongo down")}, nil), "Bearer goodtoken")
	require.Equal(t, http.StatusInternalServerError, rw.Code)
	require.NotContains(t, rw.Body.String(), "mongo down")
}

func TestAuthMiddleware_RejectsBlacklistedToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	require.NoError(t, bl.Add(context.Background(), "goodtoken", 5*time.Second))

	rw := serve(protected(&fakeAuthenticator{}, bl), "Bearer goodtoken")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "Token revoked")

	m.FastForward(6 * time.Second)
	rw = serve(protected(&fakeAuthenticator{}, bl), "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
}

func TestMustUserIDWithoutMiddleware(t *testing.T) {
	g := gin.New()
	g.GET("/", func(c *gin.Context) {
		if _, ok := MustUserID(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})
	require.Equal(t, http.StatusUnauthorized, serve(g, "").Code)
}
