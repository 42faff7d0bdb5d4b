package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/service"
)

const multipartMemory = 32 << 20

// initiativeJSON is the JSON shape of a create or update body.
type initiativeJSON struct {
	service.InitiativeInput
	Tags        []json.RawMessage    `json:"tags"`
	Votes       *[]service.VoteInput `json:"votes"`
	RemoveCover bool                 `json:"remove_cover"`
}

// decodeInitiative reads a create or update body sent either as JSON or as
// multipart/form-data. Both produce the same service input.
func decodeInitiative(w http.ResponseWriter, r *http.Request, maxUpload int64) (*service.InitiativeInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return decodeInitiativeForm(w, r, maxUpload)
	}

	var body initiativeJSON
	err := decodeJSON(w, r, &body)
	if err != nil {
		return nil, err
	}

	in := body.InitiativeInput
	in.RemoveCover = body.RemoveCover
	if body.Votes != nil {
		in.Votes = *body.Votes
		in.VotesSet = true
	}

	in.TagIDs, in.TagNames, err = splitTags(body.Tags)
	if err != nil {
		return nil, err
	}

	return &in, nil
}

func decodeInitiativeForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (*service.InitiativeInput, error) {
	// three files plus form fields
	r.Body = http.MaxBytesReader(w, r.Body, 3*maxUpload+maxJSONBody)

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperr.Validation("upload is too large")
		}
		return nil, apperr.Validation("invalid multipart body")
	}

	in := &service.InitiativeInput{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Content:        r.FormValue("content"),
		Status:         r.FormValue("status"),
		VoteDate:       formString(r, "voteDate"),
		ProposalNumber: formString(r, "proposalNumber"),
		ProposalType:   formString(r, "proposalType"),
		MeetingNumber:  formString(r, "meetingNumber"),
		MeetingDate:    formString(r, "meetingDate"),
		MeetingType:    formString(r, "meetingType"),
		MeetingNotes:   formString(r, "meetingNotes"),
		ProposalLink:   formString(r, "proposalLink"),
	}

	in.RemoveCover, _ = strconv.ParseBool(r.FormValue("removeCover"))

	if v := strings.TrimSpace(r.FormValue("parish_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, apperr.Validation("invalid parish_id")
		}
		in.ParishID = &id
	}

	if v := r.FormValue("tags"); v != "" {
		var raw []json.RawMessage
		err = json.Unmarshal([]byte(v), &raw)
		if err != nil {
			return nil, apperr.Validation("tags must be a JSON array")
		}
		in.TagIDs, in.TagNames, err = splitTags(raw)
		if err != nil {
			return nil, err
		}
	}

	if _, ok := r.MultipartForm.Value["votes"]; ok {
		in.VotesSet = true
		if v := r.FormValue("votes"); v != "" {
			err = json.Unmarshal([]byte(v), &in.Votes)
			if err != nil {
				return nil, apperr.Validation("votes must be a JSON array")
			}
		}
	}

	for field, dst := range map[string]**service.Upload{
		"document":         &in.Document,
		"proposalDocument": &in.ProposalDocument,
		"coverImage":       &in.CoverImage,
	} {
		*dst, err = formUpload(r, field, maxUpload)
		if err != nil {
			return nil, err
		}
	}

	return in, nil
}

// splitTags accepts tag ids and tag names in the same array.
func splitTags(raw []json.RawMessage) ([]int64, []string, error) {
	var ids []int64
	var names []string
	for _, item := range raw {
		var id int64
		if json.Unmarshal(item, &id) == nil {
			ids = append(ids, id)
			continue
		}
		var name string
		if json.Unmarshal(item, &name) == nil {
			names = append(names, name)
			continue
		}
		return nil, nil, apperr.Validation("tags must contain tag ids or names")
	}
	return ids, names, nil
}

func formString(r *http.Request, name string) *string {
	v, ok := r.MultipartForm.Value[name]
	if !ok || len(v) == 0 || strings.TrimSpace(v[0]) == "" {
		return nil
	}
	return &v[0]
}

// formUpload reads an optional file field. Empty file inputs are ignored.
func formUpload(r *http.Request, field string, maxUpload int64) (*service.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("invalid %s upload", field)
	}
	defer file.Close()

	if header.Size == 0 {
		return nil, nil
	}

	return readUpload(file, header, maxUpload)
}

func readUpload(file multipart.File, header *multipart.FileHeader, maxUpload int64) (*service.Upload, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file, maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if maxUpload > 0 && n > maxUpload {
		return nil, apperr.Validation("%s is too large: maximum size is %d MB", header.Filename, maxUpload/(1<<20))
	}

	return &service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        buf.Bytes(),
	}, nil
}
