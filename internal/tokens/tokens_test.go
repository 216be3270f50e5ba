package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	return cfg
}

func TestGenerateAccessToken_RoundTrip(t *testing.T) {
	cfg := testConfig("test-secret-32-bytes-should-be-long-enough")
	u := &models.User{ID: "user-123", Email: "test@example.com"}

	tokenStr, err := GenerateAccessToken(cfg, u, 2*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	// same token resolves to the same user every time before expiry
	again, err := ParseAccessToken(cfg, tokenStr)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, again.UserID)
}

func TestParseAccessToken_Expired(t *testing.T) {
	cfg := testConfig("another-secret-32-bytes-longgggg")
	u := &models.User{ID: "u2"}
	tokenStr, err := GenerateAccessToken(cfg, u, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, tokenStr)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessToken_WrongSecretFails(t *testing.T) {
	u := &models.User{ID: "u3"}
	tokenStr, err := GenerateAccessToken(testConfig("secret-one-32-bytes-xxxxxxxxxxxxxxxx"), u, 2*time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(testConfig("different-secret-xxxxxxxxxxxxxxxx"), tokenStr)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessToken_Malformed(t *testing.T) {
	_, err := ParseAccessToken(testConfig("x"), "not.a.jwt")
	assert.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

// Rejected when alg=none (unsigned token)
func TestParseAccessToken_AlgNoneRejected(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	tok := enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(`{"userId":"u-none","exp":9999999999}`)) + "."
	_, err := ParseAccessToken(testConfig("x"), tok)
	assert.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestParseAccessToken_TamperedPayload(t *testing.T) {
	cfg := testConfig("tamper-test-secret-32-bytes-xxxxxxx")
	tokenStr, err := GenerateAccessToken(cfg, &models.User{ID: "user-t"}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payload), "user-t", "attacker", -1)))

	_, err = ParseAccessToken(cfg, strings.Join(parts, "."))
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseAccessToken_MissingUserID(t *testing.T) {
	cfg := testConfig("secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	s, err := tok.SignedString([]byte(cfg.JWT.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, s)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	require.NoError(t, err)
	b, err := NewRefreshToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
