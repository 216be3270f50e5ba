package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/demonically2004/ziota/internal/auth"
	"github.com/demonically2004/ziota/internal/models"
	"github.com/demonically2004/ziota/internal/userdata/service"
	"github.com/demonically2004/ziota/internal/users"
	"github.com/demonically2004/ziota/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticAuth accepts any token as the given user.
type staticAuth struct{ userID string }

func (s staticAuth) Authenticate(ctx context.Context, raw string) (*auth.Identity, error) {
	return &auth.Identity{UserID: s.userID, Kind: auth.KindLocal}, nil
}

type memMedia struct{}

func (memMedia) Upload(ctx context.Context, key string, r io.Reader, size int64, ct string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://media.test/" + key, nil
}

func newRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	repo := users.NewMemoryRepository()
	u, err := repo.Create(context.Background(), &models.User{
		Username: "amy", Email: "amy@x.com", PasswordHash: "h", SubjectNotes: models.DefaultSubjectNotes(),
	})
	require.NoError(t, err)
	g := gin.New()
	rg := g.Group("/api/user", middleware.AuthMiddleware(staticAuth{userID: u.ID}, nil))
	RegisterUserDataRoutes(rg, service.New(repo, memMedia{}))
	return g, u.ID
}

func do(g http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer t")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

// data unwraps a {success:true, data:...} read response.
func data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	m := decode(t, w)
	require.Equal(t, true, m["success"], w.Body.String())
	d, ok := m["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return d
}

func TestUserData_GetAndPut(t *testing.T) {
	g, _ := newRouter(t)

	w := do(g, http.MethodGet, "/api/user/data", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := data(t, w)
	assert.Equal(t, "", got["generalNotes"])
	assert.Equal(t, false, got["isDarkMode"])
	assert.Len(t, got["subjectNotes"], 6)
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "email")

	w = do(g, http.MethodPut, "/api/user/data", `{"generalNotes":"hi","isDarkMode":true,"password":"x","email":"evil@x.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	got = data(t, do(g, http.MethodGet, "/api/user/data", ""))
	assert.Equal(t, "hi", got["generalNotes"])
	assert.Equal(t, true, got["isDarkMode"])
}

func TestUserData_PutOnlyUnknownKeys(t *testing.T) {
	g, _ := newRouter(t)
	before := do(g, http.MethodGet, "/api/user/data", "").Body.String()

	w := do(g, http.MethodPut, "/api/user/data", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, before, do(g, http.MethodGet, "/api/user/data", "").Body.String())
}

func TestUserData_BadJSON(t *testing.T) {
	g, _ := newRouter(t)
	w := do(g, http.MethodPut, "/api/user/data", `{"generalNotes":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestSubject_PutThenGet(t *testing.T) {
	g, _ := newRouter(t)

	w := do(g, http.MethodPut, "/api/user/subject/python", `{"notes":"loop syntax"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(g, http.MethodGet, "/api/user/subject/python", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "data": {
		"subject": {"id":"python","name":"python","icon":"`+models.DefaultSubjectIcon+`"},
		"notes": "loop syntax",
		"files": []
	}}`, w.Body.String())
}

func TestSubject_DeleteUnknownFileIsNoop(t *testing.T) {
	g, _ := newRouter(t)
	w := do(g, http.MethodDelete, "/api/user/subject/ai/files/nope", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "File deleted successfully", decode(t, w)["message"])
}

func TestSubject_UploadAndListFiles(t *testing.T) {
	g, _ := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "slides.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/user/subject/ai/files", &buf)
	req.Header.Set("Authorization", "Bearer t")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decode(t, w)["file"].(map[string]interface{})
	assert.Equal(t, "slides.pdf", file["name"])

	assert.Equal(t, "https://media.test/"+file["publicId"].(string), file["url"])

	for _, path := range []string{"/api/user/files", "/api/user/subject/files/all"} {
		w = do(g, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, true, body["success"], path)
		files := body["data"].([]interface{})
		require.Len(t, files, 1, path)
		assert.Equal(t, "ai", files[0].(map[string]interface{})["subjectId"])
		assert.Equal(t, file["id"], files[0].(map[string]interface{})["id"])
		assert.Equal(t, file["publicId"], files[0].(map[string]interface{})["publicId"])
	}

	// a subject literally named "files" still resolves through the param route
	w = do(g, http.MethodGet, "/api/user/subject/files", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "files", data(t, w)["subject"].(map[string]interface{})["id"])
}

func TestSubject_NumericFileIDs(t *testing.T) {
	g, _ := newRouter(t)

	w := do(g, http.MethodPut, "/api/user/subject/python", `{"files":[
		{"id":1712345678901.42,"name":"a.pdf","url":"https://m/a.pdf","publicId":"documents/1_a","type":"application/pdf","size":10},
		{"id":"f2","name":"b.pdf","url":"https://m/b.pdf"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	files := data(t, do(g, http.MethodGet, "/api/user/subject/python", ""))["files"].([]interface{})
	require.Len(t, files, 2)
	first := files[0].(map[string]interface{})
	assert.Equal(t, "1712345678901.42", first["id"])
	assert.Equal(t, "documents/1_a", first["publicId"])
	assert.NotContains(t, files[1].(map[string]interface{}), "publicId")

	w = do(g, http.MethodDelete, "/api/user/subject/python/files/1712345678901.42", "")
	require.Equal(t, http.StatusOK, w.Code)
	files = data(t, do(g, http.MethodGet, "/api/user/subject/python", ""))["files"].([]interface{})
	require.Len(t, files, 1)
	assert.Equal(t, "f2", files[0].(map[string]interface{})["id"])
}

func TestSubject_RejectsObjectFileID(t *testing.T) {
	g, _ := newRouter(t)
	w := do(g, http.MethodPut, "/api/user/subject/python", `{"files":[{"id":{"n":1}}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserData_EmptyBodyIsNoop(t *testing.T) {
	g, _ := newRouter(t)
	before := do(g, http.MethodGet, "/api/user/data", "").Body.String()

	w := do(g, http.MethodPut, "/api/user/data", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])
	assert.JSONEq(t, before, do(g, http.MethodGet, "/api/user/data", "").Body.String())

	w = do(g, http.MethodPut, "/api/user/subject/ai", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUserData_SavedFilesGetUploadDate(t *testing.T) {
	g, _ := newRouter(t)
	w := do(g, http.MethodPut, "/api/user/data", `{"savedFiles":[
		{"name":"kept.pdf","url":"https://m/kept.pdf","uploadDate":"2025-01-02T03:04:05Z"},
		{"name":"fresh.pdf","url":"https://m/fresh.pdf"}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	saved := data(t, do(g, http.MethodGet, "/api/user/data", ""))["savedFiles"].([]interface{})
	require.Len(t, saved, 2)
	kept, err := time.Parse(time.RFC3339, saved[0].(map[string]interface{})["uploadDate"].(string))
	require.NoError(t, err)
	assert.True(t, kept.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	fresh, err := time.Parse(time.RFC3339, saved[1].(map[string]interface{})["uploadDate"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), fresh, time.Minute)
}

func TestUpload_MissingFile(t *testing.T) {
	g, _ := newRouter(t)
	w := do(g, http.MethodPost, "/api/user/images", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImages_Clear(t *testing.T) {
	g, _ := newRouter(t)
	require.Equal(t, http.StatusOK, do(g, http.MethodPut, "/api/user/data", `{"images":["a","b"]}`).Code)
	require.Equal(t, http.StatusOK, do(g, http.MethodDelete, "/api/user/images", "").Code)
	got := data(t, do(g, http.MethodGet, "/api/user/data", ""))
	assert.Empty(t, got["images"])
}

func TestVanishedUserIs404(t *testing.T) {
	g := gin.New()
	rg := g.Group("/api/user", middleware.AuthMiddleware(staticAuth{userID: "ghost"}, nil))
	RegisterUserDataRoutes(rg, service.New(users.NewMemoryRepository(), nil))

	w := do(g, http.MethodGet, "/api/user/data", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w)["error"])
}
