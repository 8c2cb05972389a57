package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

// StorageHandler serves the file view URLs handed out at patient registration.
type StorageHandler struct {
	storage   platform.Storage
	projectID string
	logger    *logging.Logger
}

func NewStorageHandler(storage platform.Storage, projectID string, logger *logging.Logger) *StorageHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StorageHandler{storage: storage, projectID: projectID, logger: logger}
}

// ViewFile handles GET /storage/buckets/{bucketID}/files/{fileID}/view.
func (h *StorageHandler) ViewFile(w http.ResponseWriter, r *http.Request) {
	if h.projectID != "" && r.URL.Query().Get("project") != h.projectID {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}
	bucketID := chi.URLParam(r, "bucketID")
	fileID := chi.URLParam(r, "fileID")

	body, file, err := h.storage.GetFile(r.Context(), bucketID, fileID)
	if errors.Is(err, platform.ErrNotFound) {
		jsonError(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to open file", "error", err, "bucket_id", bucketID, "file_id", fileID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if !viewableInline(contentType) {
		w.Header().Set("Content-Disposition", attachmentDisposition(file.Name, fileID))
	}
	if file.SizeOriginal > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.SizeOriginal, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("file stream interrupted", "error", err, "file_id", fileID)
	}
}

// viewableInline reports whether an uploaded type may render in the browser.
// Only raster images and PDF qualify; SVG carries script.
func viewableInline(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/pdf" {
		return true
	}
	return strings.HasPrefix(mediaType, "image/") && mediaType != "image/svg+xml"
}

func attachmentDisposition(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
