package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/portalautarca/portal/internal/service"
)

type UploadHandler struct {
	documentService *service.DocumentService
}

func NewUploadHandler(documentService *service.DocumentService) *UploadHandler {
	return &UploadHandler{documentService: documentService}
}

// Serve streams a stored upload by its generated file name.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	file, err := h.documentService.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if !file.Inline {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
		w.Header().Set("Content-Security-Policy", "sandbox")
	}

	_, err = io.Copy(w, file.Body)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to stream upload", "name", r.PathValue("name"), "error", err)
	}
}
