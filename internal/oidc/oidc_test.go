package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProject = "ziota-test"
	testIssuer  = "https://securetoken.google.com/ziota-test"
)

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestStaticVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewStaticVerifier(testIssuer, testProject, key.Public())
	ctx := context.Background()
	now := time.Now()

	good := signRS256(t, key, jwt.MapClaims{
		"iss": testIssuer, "aud": testProject, "sub": "fb-1", "email": "a@x.com",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})
	tok, err := v.Verify(ctx, good)
	require.NoError(t, err)
	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "fb-1", claims.Sub)
	assert.Equal(t, "a@x.com", claims.Email)

	wrongAud := signRS256(t, key, jwt.MapClaims{
		"iss": testIssuer, "aud": "other", "sub": "fb-1", "exp": now.Add(time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, wrongAud)
	assert.Error(t, err)

	expired := signRS256(t, key, jwt.MapClaims{
		"iss": testIssuer, "aud": testProject, "sub": "fb-1", "exp": now.Add(-time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, expired)
	var te *oidc.TokenExpiredError
	assert.ErrorAs(t, err, &te)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := signRS256(t, other, jwt.MapClaims{
		"iss": testIssuer, "aud": testProject, "sub": "fb-1", "exp": now.Add(time.Hour).Unix(),
	})
	_, err = v.Verify(ctx, forged)
	assert.Error(t, err)
}

func TestInsecureVerifier(t *testing.T) {
	v := NewInsecureVerifier()
	ctx := context.Background()

	tok := signRS256(t, mustKey(t), jwt.MapClaims{"sub": "fb-2", "exp": time.Now().Add(time.Hour).Unix()})
	got, err := v.Verify(ctx, tok)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, got.Claims(&claims))
	assert.Equal(t, "fb-2", claims["sub"])

	stale := signRS256(t, mustKey(t), jwt.MapClaims{"sub": "fb-2", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err = v.Verify(ctx, stale)
	var te *oidc.TokenExpiredError
	assert.ErrorAs(t, err, &te)

	_, err = v.Verify(ctx, "garbage")
	assert.Error(t, err)
}

func mustKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return k
}
