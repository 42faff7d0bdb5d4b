package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/delimited"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
)

// RowError reports why one imported row was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Line  int    `json:"line"`
		Error string `json:"error"`
	}{e.Line, apperr.Message(e.Err)})
}

type ImportResult struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors"`
}

type ImportService struct {
	initiativeService *InitiativeService
	catalogService    *CatalogService
}

func NewImportService(initiativeService *InitiativeService, catalogService *CatalogService) *ImportService {
	return &ImportService{
		initiativeService: initiativeService,
		catalogService:    catalogService,
	}
}

// Import creates one initiative per data row of a ';'-delimited file whose
// first row names the columns. A failing row is recorded and skipped.
func (s *ImportService) Import(ctx context.Context, creator *model.User, text string) (*ImportResult, error) {
	header, records := delimited.Records(text)
	if len(header) == 0 {
		return nil, apperr.Validation("import file is empty")
	}
	if !slices.Contains(header, "title") {
		return nil, apperr.Validation("import file must have a title column")
	}

	result := &ImportResult{Errors: []RowError{}}
	parishes := map[string]int64{}

	for _, rec := range records {
		in, err := s.rowInput(ctx, rec, parishes)
		if err == nil {
			_, err = s.initiativeService.Create(ctx, creator, in)
		}
		if err != nil {
			if apperr.Status(err) >= 500 {
				slog.ErrorContext(ctx, "import row failed", "line", rec.Line, "error", err)
			}
			result.Errors = append(result.Errors, RowError{Line: rec.Line, Err: err})
			continue
		}
		result.Created++
	}

	slog.InfoContext(ctx, "import finished", "created", result.Created, "errors", len(result.Errors))
	return result, nil
}

func (s *ImportService) rowInput(ctx context.Context, rec delimited.Record, parishes map[string]int64) (*InitiativeInput, error) {
	in := &InitiativeInput{
		Title:          rec.Get("title"),
		Description:    rec.Get("description"),
		Content:        rec.Get("content"),
		Status:         rec.Get("status"),
		ProposalNumber: optional(rec.Get("proposal_number")),
		ProposalType:   optional(rec.Get("proposal_type")),
		MeetingNumber:  optional(rec.Get("meeting_number")),
		MeetingDate:    optional(rec.Get("meeting_date")),
		MeetingType:    optional(rec.Get("meeting_type")),
		MeetingNotes:   optional(rec.Get("meeting_notes")),
		ProposalLink:   optional(rec.Get("proposal_link")),
	}

	if tags := rec.Get("tags"); tags != "" {
		in.TagNames = strings.Split(tags, ",")
	}

	code := rec.Get("parish")
	if code == "" {
		return in, nil
	}

	id, ok := parishes[code]
	if !ok {
		parish, err := s.catalogService.ParishByCode(ctx, code)
		if errors.Is(err, repository.ErrParishNotFound) {
			return nil, apperr.Validation("unknown parish %q", code)
		}
		if err != nil {
			return nil, err
		}
		id = parish.ID
		parishes[code] = id
	}
	in.ParishID = &id

	return in, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
