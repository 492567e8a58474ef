package asset

import (
	"log/slog"
	"net/http"
	"os"
)

// Handler serves the static image files referenced by designs, such as
// the sample portrait placeholder.
type Handler struct {
	dir string
}

// NewHandler creates a handler serving files from dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Serve returns an http.Handler for /assets/.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Published assets are never rewritten in place
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}
