package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const APIPrefix = "/api"

// SPA serves the built web client from dir. Unknown paths outside /api get
// index.html so the client-side router can handle them.
type SPA struct {
	dir     string
	version string
}

func NewSPA(dir, version string) *SPA {
	return &SPA{dir: dir, version: version}
}

// Root answers "/" with a JSON health document for API clients and the
// web shell for browsers.
func (s *SPA) Root(c *gin.Context) {
	if !strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "clinic-api",
			"version": s.version,
		})
		return
	}
	s.serveIndex(c)
}

func (s *SPA) NoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if path == APIPrefix || strings.HasPrefix(path, APIPrefix+"/") {
		RespondError(c, apperrors.NotFound("route", nil))
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		RespondError(c, apperrors.NotFound("route", nil))
		return
	}

	if file, ok := s.resolve(path); ok && serveFile(c, file) == nil {
		return
	}
	s.serveIndex(c)
}

func (s *SPA) serveIndex(c *gin.Context) {
	if err := serveFile(c, filepath.Join(s.dir, "index.html")); err != nil {
		RespondError(c, apperrors.NotFound("page", err))
	}
}

// serveFile writes name with http.ServeContent. The request path is not
// consulted, so the caller is responsible for resolving name safely.
func serveFile(c *gin.Context, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.ErrNotExist
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	return nil
}

// resolve maps a URL path to a regular file inside dir. Paths that would
// escape dir are rejected.
func (s *SPA) resolve(urlPath string) (string, bool) {
	if s.dir == "" {
		return "", false
	}
	rel := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+urlPath)), "/"))
	if rel == "" || rel == "." {
		return "", false
	}
	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", false
	}
	full := filepath.Join(root, rel)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", false
	}
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
