package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/ctxkeys"
	"github.com/portalautarca/portal/internal/service"
)

// BackofficeHandler serves initiative management for signed-in users.
type BackofficeHandler struct {
	initiativeService *service.InitiativeService
	importService     *service.ImportService
	maxUpload         int64
}

func NewBackofficeHandler(initiativeService *service.InitiativeService, importService *service.ImportService, maxUpload int64) *BackofficeHandler {
	return &BackofficeHandler{
		initiativeService: initiativeService,
		importService:     importService,
		maxUpload:         maxUpload,
	}
}

func (h *BackofficeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.initiativeService.AdminList(r.Context(), queryInt(r, "page", 1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *BackofficeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	detail, err := h.initiativeService.Full(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *BackofficeHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInitiative(w, r, h.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	initiative, err := h.initiativeService.Create(r.Context(), ctxkeys.User(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": initiative.ID, "success": true})
}

func (h *BackofficeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, err := decodeInitiative(w, r, h.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	initiative, err := h.initiativeService.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "initiative": initiative})
}

func (h *BackofficeHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	docID, err := pathID(r, "docId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.initiativeService.DeleteDocument(r.Context(), id, docID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BackofficeHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+maxJSONBody)
	err = r.ParseMultipartForm(multipartMemory)
	if err != nil {
		writeError(w, r, apperr.Validation("invalid multipart body"))
		return
	}

	kind := service.KindDocument
	up, err := formUpload(r, "document", h.maxUpload)
	if err == nil && up == nil {
		kind = service.KindProposal
		up, err = formUpload(r, "proposalDocument", h.maxUpload)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if up == nil {
		writeError(w, r, apperr.Validation("document is required"))
		return
	}

	doc, err := h.initiativeService.AddDocument(r.Context(), id, up, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "document": doc})
}

func (h *BackofficeHandler) AddVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var in service.VoteInput
	err = decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vote, err := h.initiativeService.AddVote(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "vote": vote})
}

func (h *BackofficeHandler) DeleteVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	voteID, err := pathID(r, "voteId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.initiativeService.DeleteVote(r.Context(), id, voteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BackofficeHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.initiativeService.AddTag(r.Context(), id, tagID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BackofficeHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tagID, err := pathID(r, "tagId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.initiativeService.RemoveTag(r.Context(), id, tagID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *BackofficeHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, r, apperr.Validation("ids must be a non-empty array"))
		return
	}

	result := h.initiativeService.BulkDelete(r.Context(), req.IDs)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"deletedCount": result.Deleted,
		"errors":       result.Errors,
		"message":      fmt.Sprintf("%d initiatives deleted", result.Deleted),
	})
}

func (h *BackofficeHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.initiativeService.DeleteAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": result.Deleted,
		"errors":  result.Errors,
		"message": fmt.Sprintf("%d initiatives deleted", result.Deleted),
	})
}

// Import accepts the file either as the raw body or as a multipart "file" field.
func (h *BackofficeHandler) Import(w http.ResponseWriter, r *http.Request) {
	text, err := h.importText(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.importService.Import(r.Context(), ctxkeys.User(r.Context()), text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *BackofficeHandler) importText(w http.ResponseWriter, r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
		if err != nil {
			return "", apperr.Validation("import file is too large")
		}
		return string(data), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+maxJSONBody)
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		return "", apperr.Validation("invalid multipart body")
	}

	up, err := formUpload(r, "file", h.maxUpload)
	if err != nil {
		return "", err
	}
	if up == nil {
		return "", apperr.Validation("file is required")
	}
	return string(up.Data), nil
}
