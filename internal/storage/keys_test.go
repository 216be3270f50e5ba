package storage

import (
	"strings"
	"testing"

	"github.com/demonically2004/ziota/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	k := ObjectKey("u1", ScopeSubjects, "python", "lecture notes.pdf")
	require.True(t, strings.HasPrefix(k, "users/u1/subjects/python/"), k)
	assert.True(t, strings.HasSuffix(k, "-lecture-notes.pdf"), k)

	img := ObjectKey("u1", ScopeImages, "", "cat.png")
	assert.True(t, strings.HasPrefix(img, "users/u1/images/"), img)
	assert.NotEqual(t, img, ObjectKey("u1", ScopeImages, "", "cat.png"))
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.txt`: "a-b.txt",
		"..":                  "file",
		"":                    "file",
		"naïve.md":            "na-ve.md",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitize(in), in)
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/ziota/users/u1/x.png",
		PublicURL("https://cdn.example.com/", "ziota", "users/u1/x.png"))

	assert.Equal(t, "http://localhost:9000", baseURL(config.MediaConfig{Endpoint: "localhost:9000"}))
	assert.Equal(t, "https://s3.example.com", baseURL(config.MediaConfig{Endpoint: "s3.example.com", UseSSL: true}))
	assert.Equal(t, "https://cdn.example.com", baseURL(config.MediaConfig{Endpoint: "s3", PublicURL: "https://cdn.example.com"}))
}
