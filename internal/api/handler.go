// Package api provides HTTP handlers for the coin gallery.
package api

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ashureev/coin-gallery/internal/catalog"
	"github.com/ashureev/coin-gallery/internal/metadata"
)

// Handler provides common handler dependencies.
type Handler struct {
	picturesDir string
	store       *metadata.Store
	pages       *template.Template
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(picturesDir string, store *metadata.Store, pages *template.Template) *Handler {
	return &Handler{
		picturesDir: picturesDir,
		store:       store,
		pages:       pages,
	}
}

// scan reads the pictures directory. The catalog is rebuilt per request so
// new photographs appear without a restart.
func (h *Handler) scan() (*catalog.Catalog, error) {
	return catalog.Scan(h.picturesDir)
}

// render executes a page template into a buffer so that a template error
// never leaves a half-written page.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write page", "page", name, "error", err)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
