package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSPA(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shell</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	spa := NewSPA(dir, "test")
	r := gin.New()
	r.GET("/", spa.Root)
	r.NoRoute(spa.NoRoute)
	return r
}

func get(r *gin.Engine, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSPA_Root(t *testing.T) {
	r := setupSPA(t)

	w := get(r, "/", "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"clinic-api","version":"test"}`, w.Body.String())

	w = get(r, "/", "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shell")
}

func TestSPA_Fallback(t *testing.T) {
	r := setupSPA(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "static file", path: "/assets/app.js", wantCode: http.StatusOK, wantBody: "console.log(1)"},
		{name: "client route", path: "/patients/123", wantCode: http.StatusOK, wantBody: "shell"},
		{name: "traversal stays inside dir", path: "/../../etc/passwd", wantCode: http.StatusOK, wantBody: "shell"},
		{name: "unknown api route", path: "/api/nope", wantCode: http.StatusNotFound, wantBody: `"status":"error"`},
		{name: "api root", path: "/api", wantCode: http.StatusNotFound, wantBody: `"status":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSPA_NoIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spa := NewSPA(t.TempDir(), "test")
	r := gin.New()
	r.NoRoute(spa.NoRoute)

	w := get(r, "/somewhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
