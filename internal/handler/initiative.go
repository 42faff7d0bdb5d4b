package handler

import (
	"net/http"

	"github.com/portalautarca/portal/internal/service"
)

// InitiativeHandler serves the public portal.
type InitiativeHandler struct {
	initiativeService *service.InitiativeService
}

func NewInitiativeHandler(initiativeService *service.InitiativeService) *InitiativeHandler {
	return &InitiativeHandler{initiativeService: initiativeService}
}

func (h *InitiativeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.initiativeService.Search(r.Context(), service.SearchParams{
		Search: q.Get("search"),
		Parish: q.Get("parish"),
		Tag:    q.Get("tag"),
		Page:   queryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *InitiativeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := h.initiativeService.PublicDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
