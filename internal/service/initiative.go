package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/markdown"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/tally"
	"github.com/portalautarca/portal/internal/validation"
)

const (
	PublicPageSize = 24
	AdminPageSize  = 50
)

const dateLayout = "2006-01-02"

// InitiativeInput is the transport-independent body of a create or update.
// Nil optional fields are stored as NULL.
type InitiativeInput struct {
	Title          string  `json:"title" validate:"required,max=500"`
	Description    string  `json:"description"`
	Content        string  `json:"content"`
	ParishID       *int64  `json:"parish_id"`
	Status         string  `json:"status"`
	VoteDate       *string `json:"vote_date"`
	ProposalNumber *string `json:"proposal_number" validate:"omitempty,max=100"`
	ProposalType   *string `json:"proposal_type"`
	MeetingNumber  *string `json:"meeting_number" validate:"omitempty,max=100"`
	MeetingDate    *string `json:"meeting_date"`
	MeetingType    *string `json:"meeting_type"`
	MeetingNotes   *string `json:"meeting_notes"`
	ProposalLink   *string `json:"proposal_link" validate:"omitempty,url"`

	TagIDs   []int64  `json:"-"`
	TagNames []string `json:"-"`

	// Votes replace the stored list only when VotesSet is true
	Votes    []VoteInput `json:"-"`
	VotesSet bool        `json:"-"`

	Document         *Upload `json:"-"`
	ProposalDocument *Upload `json:"-"`
	CoverImage       *Upload `json:"-"`
	RemoveCover      bool    `json:"-"`
}

type VoteInput struct {
	VoterName string  `json:"voter_name"`
	Vote      string  `json:"vote"`
	Notes     *string `json:"notes"`
}

type SearchParams struct {
	Search string
	Parish string
	Tag    string
	Page   int
}

// InitiativeView is an initiative with its computed voting outcome.
type InitiativeView struct {
	*model.Initiative
	Result tally.Result `json:"result"`
}

type InitiativeDetail struct {
	*model.Initiative
	Result      tally.Result `json:"result"`
	Statistics  tally.Stats  `json:"statistics"`
	ContentHTML string       `json:"content_html"`
}

type Page struct {
	Initiatives []*InitiativeView `json:"initiatives"`
	TotalCount  int               `json:"totalCount"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	PerPage     int               `json:"perPage"`
}

type DeleteResult struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

type InitiativeService struct {
	initiativeRepository repository.InitiativeRepository
	voteRepository       repository.VoteRepository
	catalogService       *CatalogService
	documentService      *DocumentService
	renderer             *markdown.Renderer
}

func NewInitiativeService(
	initiativeRepository repository.InitiativeRepository,
	voteRepository repository.VoteRepository,
	catalogService *CatalogService,
	documentService *DocumentService,
	renderer *markdown.Renderer,
) *InitiativeService {
	return &InitiativeService{
		initiativeRepository: initiativeRepository,
		voteRepository:       voteRepository,
		catalogService:       catalogService,
		documentService:      documentService,
		renderer:             renderer,
	}
}

// Create stores a new initiative with its tags and votes. The cover is saved
// first and removed again if the insert fails. If the attached documents
// cannot be stored the new initiative is deleted again, so a failed create
// leaves nothing behind.
func (s *InitiativeService) Create(ctx context.Context, creator *model.User, in *InitiativeInput) (*model.Initiative, error) {
	err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.StatusDraft
	}
	if !model.ValidStatus(status) {
		return nil, apperr.Validation("invalid status %q", in.Status)
	}

	parishID := in.ParishID
	if parishID == nil && creator != nil {
		parishID = creator.ParishID
	}
	if parishID == nil {
		return nil, apperr.Validation("parish_id is required")
	}

	err = s.checkUploads(in)
	if err != nil {
		return nil, err
	}

	tagIDs, err := s.tagIDs(ctx, in)
	if err != nil {
		return nil, err
	}

	voteDate, err := parseDate("vote_date", in.VoteDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	initiative := &model.Initiative{
		Title:          in.Title,
		Description:    in.Description,
		Content:        in.Content,
		ParishID:       *parishID,
		Status:         status,
		VoteDate:       voteDate,
		CreatedAt:      now,
		UpdatedAt:      now,
		ProposalNumber: in.ProposalNumber,
		ProposalType:   in.ProposalType,
		MeetingNumber:  in.MeetingNumber,
		MeetingDate:    in.MeetingDate,
		MeetingType:    in.MeetingType,
		MeetingNotes:   in.MeetingNotes,
		ProposalLink:   in.ProposalLink,
	}
	if creator != nil {
		initiative.CreatedBy = creator.ID
	}
	if status == model.StatusSubmitted || status == model.StatusApproved {
		initiative.SubmissionDate = &now
	}

	if in.CoverImage != nil {
		key, err := s.documentService.StoreCover(ctx, in.CoverImage)
		if err != nil {
			return nil, err
		}
		initiative.CoverImage = &key
	}

	err = s.initiativeRepository.Create(ctx, initiative, repository.Links{
		TagIDs: tagIDs,
		Votes:  buildVotes(in.Votes, now),
	})
	if err != nil {
		if initiative.CoverImage != nil {
			s.documentService.RemoveFiles(ctx, []string{*initiative.CoverImage})
		}
		return nil, err
	}

	_, err = s.storeDocuments(ctx, initiative.ID, in)
	if err != nil {
		rollbackErr := s.Delete(ctx, initiative.ID)
		if rollbackErr != nil {
			slog.ErrorContext(ctx, "failed to remove initiative after document error", "initiative_id", initiative.ID, "error", rollbackErr)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "initiative created", "initiative_id", initiative.ID, "status", status, "parish_id", initiative.ParishID)
	return initiative, nil
}

// Update replaces the mutable fields of an initiative. An empty status keeps
// the stored one. The submission date is stamped on the first move out of
// draft and never changed afterwards. New documents are stored before the
// row is updated and removed again if the update fails.
func (s *InitiativeService) Update(ctx context.Context, id int64, in *InitiativeInput) (*model.Initiative, error) {
	err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.initiativeRepository.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = existing.Status
	}
	if !model.ValidStatus(status) {
		return nil, apperr.Validation("invalid status %q", in.Status)
	}

	err = s.checkUploads(in)
	if err != nil {
		return nil, err
	}

	tagIDs, err := s.tagIDs(ctx, in)
	if err != nil {
		return nil, err
	}

	voteDate, err := parseDate("vote_date", in.VoteDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var submittedAt *time.Time
	if model.LeavesDraft(existing.Status, status) {
		submittedAt = &now
	}

	updated := *existing
	updated.Title = in.Title
	updated.Description = in.Description
	updated.Content = in.Content
	updated.Status = status
	updated.VoteDate = voteDate
	updated.UpdatedAt = now
	updated.ProposalNumber = in.ProposalNumber
	updated.ProposalType = in.ProposalType
	updated.MeetingNumber = in.MeetingNumber
	updated.MeetingDate = in.MeetingDate
	updated.MeetingType = in.MeetingType
	updated.MeetingNotes = in.MeetingNotes
	updated.ProposalLink = in.ProposalLink
	if in.ParishID != nil {
		updated.ParishID = *in.ParishID
	}

	var staleCover string
	if existing.CoverImage != nil && (in.CoverImage != nil || in.RemoveCover) {
		staleCover = *existing.CoverImage
	}
	if in.RemoveCover {
		updated.CoverImage = nil
	}
	if in.CoverImage != nil {
		key, err := s.documentService.StoreCover(ctx, in.CoverImage)
		if err != nil {
			return nil, err
		}
		updated.CoverImage = &key
	}

	docs, err := s.storeDocuments(ctx, id, in)
	if err != nil {
		if in.CoverImage != nil {
			s.documentService.RemoveFiles(ctx, []string{*updated.CoverImage})
		}
		return nil, err
	}

	err = s.initiativeRepository.Update(ctx, &updated, submittedAt, repository.Links{
		TagIDs:       tagIDs,
		ReplaceTags:  true,
		Votes:        buildVotes(in.Votes, now),
		ReplaceVotes: in.VotesSet,
	})
	if err != nil {
		if in.CoverImage != nil {
			s.documentService.RemoveFiles(ctx, []string{*updated.CoverImage})
		}
		s.discardDocuments(ctx, docs)
		return nil, err
	}

	if staleCover != "" {
		s.documentService.RemoveFiles(ctx, []string{staleCover})
	}

	slog.InfoContext(ctx, "initiative updated", "initiative_id", id, "status", status)
	return s.initiativeRepository.Full(ctx, id)
}

func (s *InitiativeService) normalize(in *InitiativeInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Status = strings.TrimSpace(in.Status)
	in.ProposalNumber = trimmed(in.ProposalNumber)
	in.MeetingNumber = trimmed(in.MeetingNumber)
	in.MeetingNotes = trimmed(in.MeetingNotes)
	in.ProposalLink = trimmed(in.ProposalLink)
	in.MeetingDate = trimmed(in.MeetingDate)
	in.VoteDate = trimmed(in.VoteDate)

	// Unknown enum values are dropped rather than rejected
	in.ProposalType = oneOf(trimmed(in.ProposalType), model.ProposalTypeProposal, model.ProposalTypeAmendment)
	in.MeetingType = oneOf(trimmed(in.MeetingType), model.MeetingTypePublic, model.MeetingTypePrivate, model.MeetingTypeExtraordinary)

	err := validation.Struct(in)
	if err != nil {
		return err
	}

	if in.MeetingDate != nil {
		if _, err := time.Parse(dateLayout, *in.MeetingDate); err != nil {
			return apperr.Validation("meeting_date must be a date in the format YYYY-MM-DD")
		}
	}

	return nil
}

func (s *InitiativeService) checkUploads(in *InitiativeInput) error {
	for _, c := range []struct {
		up   *Upload
		kind DocumentKind
	}{
		{in.Document, KindDocument},
		{in.ProposalDocument, KindProposal},
		{in.CoverImage, KindCover},
	} {
		if c.up == nil {
			continue
		}
		err := s.documentService.Check(c.up, c.kind)
		if err != nil {
			return err
		}
	}
	return nil
}

// storeDocuments saves the supporting and proposal documents of an input.
// Either both are stored or neither is.
func (s *InitiativeService) storeDocuments(ctx context.Context, initiativeID int64, in *InitiativeInput) ([]*model.Document, error) {
	var docs []*model.Document
	for _, up := range []struct {
		upload *Upload
		kind   DocumentKind
	}{
		{in.Document, KindDocument},
		{in.ProposalDocument, KindProposal},
	} {
		if up.upload == nil {
			continue
		}
		doc, err := s.documentService.Store(ctx, initiativeID, up.upload, up.kind)
		if err != nil {
			s.discardDocuments(ctx, docs)
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *InitiativeService) discardDocuments(ctx context.Context, docs []*model.Document) {
	for _, doc := range docs {
		err := s.documentService.Delete(ctx, doc.InitiativeID, doc.ID)
		if err != nil {
			slog.WarnContext(ctx, "failed to discard document", "initiative_id", doc.InitiativeID, "document_id", doc.ID, "error", err)
		}
	}
}

func (s *InitiativeService) tagIDs(ctx context.Context, in *InitiativeInput) ([]int64, error) {
	ids := append([]int64{}, in.TagIDs...)
	if len(in.TagNames) > 0 {
		resolved, err := s.catalogService.ResolveTagNames(ctx, in.TagNames)
		if err != nil {
			return nil, err
		}
		ids = append(ids, resolved...)
	}
	return ids, nil
}

// buildVotes keeps only votes with a voter name and a known value.
func buildVotes(in []VoteInput, now time.Time) []*model.Vote {
	votes := make([]*model.Vote, 0, len(in))
	for _, v := range in {
		name := strings.TrimSpace(v.VoterName)
		if name == "" || !model.ValidVote(v.Vote) {
			continue
		}
		votes = append(votes, &model.Vote{
			VoterName: name,
			Vote:      v.Vote,
			Notes:     trimmed(v.Notes),
			CreatedAt: now,
		})
	}
	return votes
}

// Search lists approved initiatives for the public portal.
func (s *InitiativeService) Search(ctx context.Context, params SearchParams) (*Page, error) {
	page, offset := paginate(params.Page, PublicPageSize)

	initiatives, total, err := s.initiativeRepository.Search(ctx, repository.SearchFilter{
		Search:     strings.TrimSpace(params.Search),
		ParishCode: strings.TrimSpace(params.Parish),
		TagName:    strings.TrimSpace(params.Tag),
		Limit:      PublicPageSize,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}

	return s.page(ctx, initiatives, total, page, PublicPageSize, true)
}

// AdminList lists every initiative regardless of status.
func (s *InitiativeService) AdminList(ctx context.Context, page int) (*Page, error) {
	page, offset := paginate(page, AdminPageSize)

	initiatives, total, err := s.initiativeRepository.List(ctx, AdminPageSize, offset)
	if err != nil {
		return nil, err
	}

	return s.page(ctx, initiatives, total, page, AdminPageSize, false)
}

func (s *InitiativeService) page(ctx context.Context, initiatives []*model.Initiative, total, page, perPage int, withVotes bool) (*Page, error) {
	err := s.initiativeRepository.AttachTags(ctx, initiatives)
	if err != nil {
		return nil, err
	}
	if withVotes {
		err = s.initiativeRepository.AttachVotes(ctx, initiatives)
		if err != nil {
			return nil, err
		}
	}

	views := make([]*InitiativeView, 0, len(initiatives))
	for _, in := range initiatives {
		DecorateTags(in.Tags)
		views = append(views, &InitiativeView{Initiative: in, Result: tally.Tally(in.Votes)})
	}

	return &Page{
		Initiatives: views,
		TotalCount:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(perPage))),
		CurrentPage: page,
		PerPage:     perPage,
	}, nil
}

// paginate clamps a 1-based page number and returns it with the row offset.
func paginate(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * perPage
}

// Full returns an initiative in any status with everything attached.
func (s *InitiativeService) Full(ctx context.Context, id int64) (*InitiativeDetail, error) {
	initiative, err := s.initiativeRepository.Full(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(initiative)
}

// PublicDetail hides drafts from the public portal.
func (s *InitiativeService) PublicDetail(ctx context.Context, id int64) (*InitiativeDetail, error) {
	initiative, err := s.initiativeRepository.Full(ctx, id)
	if err != nil {
		return nil, err
	}
	if initiative.Status == model.StatusDraft {
		return nil, repository.ErrInitiativeNotFound
	}
	initiative.CreatedByEmail = nil
	return s.detail(initiative)
}

func (s *InitiativeService) detail(initiative *model.Initiative) (*InitiativeDetail, error) {
	html, err := s.renderer.Render(initiative.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	DecorateTags(initiative.Tags)

	return &InitiativeDetail{
		Initiative:  initiative,
		Result:      tally.Tally(initiative.Votes),
		Statistics:  tally.Statistics(initiative.Votes),
		ContentHTML: html,
	}, nil
}

// Delete removes one initiative with its votes, tag links and documents,
// then releases the stored files.
func (s *InitiativeService) Delete(ctx context.Context, id int64) error {
	removed, err := s.initiativeRepository.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.documentService.RemoveFiles(ctx, removed.StorageKeys())
	slog.InfoContext(ctx, "initiative deleted", "initiative_id", id)
	return nil
}

// BulkDelete deletes each id in its own transaction. Ids that no longer
// exist are skipped without counting as errors.
func (s *InitiativeService) BulkDelete(ctx context.Context, ids []int64) DeleteResult {
	var result DeleteResult
	for _, id := range ids {
		err := s.Delete(ctx, id)
		if errors.Is(err, repository.ErrInitiativeNotFound) {
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete initiative", "initiative_id", id, "error", err)
			result.Errors++
			continue
		}
		result.Deleted++
	}
	return result
}

// DeleteAll empties the initiative tables. Files that could not be removed
// are counted in Errors.
func (s *InitiativeService) DeleteAll(ctx context.Context) (DeleteResult, error) {
	removed, err := s.initiativeRepository.DeleteAll(ctx)
	if err != nil {
		return DeleteResult{}, err
	}

	failed := s.documentService.RemoveFiles(ctx, removed.StorageKeys())

	slog.InfoContext(ctx, "all initiatives deleted", "count", removed.Initiatives, "file_errors", failed)
	return DeleteResult{Deleted: removed.Initiatives, Errors: failed}, nil
}

func (s *InitiativeService) AddTag(ctx context.Context, initiativeID, tagID int64) error {
	return s.initiativeRepository.AddTag(ctx, initiativeID, tagID)
}

func (s *InitiativeService) RemoveTag(ctx context.Context, initiativeID, tagID int64) error {
	return s.initiativeRepository.RemoveTag(ctx, initiativeID, tagID)
}

func (s *InitiativeService) ClearTags(ctx context.Context, initiativeID int64) error {
	return s.initiativeRepository.ClearTags(ctx, initiativeID)
}

func (s *InitiativeService) AddVote(ctx context.Context, initiativeID int64, in VoteInput) (*model.Vote, error) {
	votes := buildVotes([]VoteInput{in}, time.Now().UTC())
	if len(votes) == 0 {
		return nil, apperr.Validation("a vote needs a voter_name and one of: favor, against, abstention")
	}

	_, err := s.initiativeRepository.ByID(ctx, initiativeID)
	if err != nil {
		return nil, err
	}

	vote := votes[0]
	vote.InitiativeID = initiativeID
	err = s.voteRepository.Add(ctx, vote)
	if err != nil {
		return nil, err
	}
	return vote, nil
}

func (s *InitiativeService) DeleteVote(ctx context.Context, initiativeID, voteID int64) error {
	return s.voteRepository.Delete(ctx, initiativeID, voteID)
}

func (s *InitiativeService) ClearVotes(ctx context.Context, initiativeID int64) error {
	return s.voteRepository.Clear(ctx, initiativeID)
}

func (s *InitiativeService) AddDocument(ctx context.Context, initiativeID int64, up *Upload, kind DocumentKind) (*model.Document, error) {
	_, err := s.initiativeRepository.ByID(ctx, initiativeID)
	if err != nil {
		return nil, err
	}
	return s.documentService.Store(ctx, initiativeID, up, kind)
}

func (s *InitiativeService) DeleteDocument(ctx context.Context, initiativeID, docID int64) error {
	return s.documentService.Delete(ctx, initiativeID, docID)
}

func (s *InitiativeService) ClearDocuments(ctx context.Context, initiativeID int64) error {
	return s.documentService.Clear(ctx, initiativeID)
}

func parseDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, *value)
	}
	if err != nil {
		return nil, apperr.Validation("%s must be a date in the format YYYY-MM-DD", field)
	}
	t = t.UTC()
	return &t, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func oneOf(s *string, allowed ...string) *string {
	if s == nil {
		return nil
	}
	for _, a := range allowed {
		if *s == a {
			return s
		}
	}
	return nil
}
