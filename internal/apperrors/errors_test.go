package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindAuthentication: http.StatusUnauthorized,
		KindNotFound:       http.StatusNotFound,
		KindValidation:     http.StatusBadRequest,
		KindUpstream:       http.StatusInternalServerError,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("User not found")
	wrapped := fmt.Errorf("loading subject: %w", base)

	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "User not found", PublicMessage(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(plain))
	assert.Equal(t, "Server error", PublicMessage(plain))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("Failed to update user data", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "Failed to update user data", PublicMessage(err))
}

func TestWriteDoesNotLeakCause(t *testing.T) {
	g := gin.New()
	g.GET("/x", func(c *gin.Context) {
		Write(c, Upstream("Media upload failed", errors.New("dial tcp 10.0.0.1: secret-host")))
	})
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Media upload failed", body["error"])
	assert.NotContains(t, w.Body.String(), "secret-host")
}
