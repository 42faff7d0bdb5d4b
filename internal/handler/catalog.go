package handler

import (
	"errors"
	"net/http"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) Parishes(w http.ResponseWriter, r *http.Request) {
	parishes, err := h.catalogService.ListParishes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parishes)
}

func (h *CatalogHandler) CreateParish(w http.ResponseWriter, r *http.Request) {
	var in service.CreateParishInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	parish, err := h.catalogService.CreateParish(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "parish": parish})
}

func (h *CatalogHandler) DeleteParish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.catalogService.DeleteParish(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *CatalogHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.catalogService.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTagInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tag, err := h.catalogService.CreateTag(r.Context(), in)
	var dup *service.DuplicateTagError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": apperr.Message(err), "tag": dup.Tag})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "tag": tag})
}
