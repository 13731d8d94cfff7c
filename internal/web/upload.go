// pattern: Imperative Shell

package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxImageUploadBytes caps a single pasted-image upload.
const maxImageUploadBytes = 50 * 1024 * 1024

// handleUploadImage handles POST /api/upload-image: the browser paste/drop
// path for getting a screenshot onto disk where the terminal session's shell
// can pick it up by path.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeAPIError(w, http.StatusBadRequest, "invalid_content_type", "Content-Type must be image/*")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "read_error", err.Error())
		return
	}
	if len(data) == 0 {
		writeAPIError(w, http.StatusBadRequest, "empty_body", "Uploaded image is empty")
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0o755); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "write_error", err.Error())
		return
	}

	filename := fmt.Sprintf("screenshot_%d.%s", time.Now().UnixMilli(), extensionForContentType(contentType))
	path := filepath.Join(s.imagesDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "write_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":     path,
		"filename": filename,
	})
}

// extensionForContentType maps an image/* MIME type to a filename extension,
// defaulting to png for anything unrecognized.
func extensionForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return "png"
	}
}
