package http

import (
	"io"
	"net/http"
	"path/filepath"

	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/storage"
)

// ImageHandler serves captured dashboard images back to operators and reviewers.
type ImageHandler struct {
	store storage.StorageInterface
}

func NewImageHandler(store storage.StorageInterface) *ImageHandler {
	return &ImageHandler{store: store}
}

// GetImage streams the image stored under the "key" query parameter.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing key parameter"})
		return
	}

	file, err := h.store.ReadFile(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Failed to stream image", "key", key, "error", err)
	}
}
