package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Upload scopes used in object keys.
const (
	ScopeImages   = "images"
	ScopeSubjects = "subjects"
)

// ObjectKey builds users/<userID>/<scope>/<uuid>-<name>. sub optionally nests
// the object one level deeper (the subject id for subject files).
func ObjectKey(userID, scope, sub, name string) string {
	parts := []string{"users", sanitize(userID), scope}
	if sub != "" {
		parts = append(parts, sanitize(sub))
	}
	parts = append(parts, uuid.NewString()+"-"+sanitize(name))
	return path.Join(parts...)
}

func PublicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + key
}

// sanitize keeps letters, digits, dot, dash and underscore.
func sanitize(s string) string {
	s = path.Base(strings.ReplaceAll(s, "\\", "/"))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
