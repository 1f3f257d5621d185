package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// mediaDirs are the storage subdirectories exposed under /media.
var mediaDirs = map[string]bool{
	"videos": true,
	"edited": true,
}

// MediaHandler serves uploaded and edited videos read-only.
type MediaHandler struct {
	basePath string
}

// NewMediaHandler creates a new media handler rooted at basePath.
func NewMediaHandler(basePath string) *MediaHandler {
	return &MediaHandler{basePath: basePath}
}

// Serve handles GET /media/{dir}/{file}
// Range requests are supported so the wizard can seek in previews.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + chi.URLParam(r, "*"))
	dir, name, ok := strings.Cut(strings.TrimPrefix(rel, "/"), "/")
	if !ok || !mediaDirs[dir] || name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(filepath.Join(h.basePath, dir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
