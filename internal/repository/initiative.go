package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
)

var (
	ErrInitiativeNotFound = apperr.NotFound("initiative not found")
)

// SearchFilter narrows the public listing. Empty fields are ignored.
type SearchFilter struct {
	Search     string
	ParishCode string
	TagName    string
	Limit      int
	Offset     int
}

// Links describes how an update reconciles the initiative's tags and votes.
// A nil slice with Replace* set clears the collection.
type Links struct {
	TagIDs       []int64
	ReplaceTags  bool
	Votes        []*model.Vote
	ReplaceVotes bool
}

type InitiativeRepository interface {
	Create(ctx context.Context, initiative *model.Initiative, links Links) error
	Update(ctx context.Context, initiative *model.Initiative, submittedAt *time.Time, links Links) error
	ByID(ctx context.Context, id int64) (*model.Initiative, error)
	Full(ctx context.Context, id int64) (*model.Initiative, error)
	Search(ctx context.Context, filter SearchFilter) ([]*model.Initiative, int, error)
	List(ctx context.Context, limit, offset int) ([]*model.Initiative, int, error)
	AttachTags(ctx context.Context, initiatives []*model.Initiative) error
	AttachVotes(ctx context.Context, initiatives []*model.Initiative) error
	AddTag(ctx context.Context, initiativeID, tagID int64) error
	RemoveTag(ctx context.Context, initiativeID, tagID int64) error
	ClearTags(ctx context.Context, initiativeID int64) error
	SetCoverImage(ctx context.Context, initiativeID int64, key *string) error
	Delete(ctx context.Context, id int64) (*Removed, error)
	DeleteAll(ctx context.Context) (*Removed, error)
}

// Removed lists what a cascade delete took out, so the caller can release
// the stored files after the rows are gone.
type Removed struct {
	Initiatives int
	Documents   []*model.Document
	CoverImages []string
}

// StorageKeys returns every file referenced by the removed rows.
func (r *Removed) StorageKeys() []string {
	keys := make([]string, 0, len(r.Documents)+len(r.CoverImages))
	for _, d := range r.Documents {
		keys = append(keys, d.FilePath)
	}
	return append(keys, r.CoverImages...)
}

type initiativeRepository struct {
	db *sqlx.DB
}

func NewInitiativeRepository(db *sqlx.DB) InitiativeRepository {
	return &initiativeRepository{db: db}
}

const initiativeSelect = `SELECT i.*, p.name AS parish_name, p.code AS parish_code, u.email AS created_by_email
	FROM initiatives i
	JOIN parishes p ON p.id = i.parish_id
	LEFT JOIN users u ON u.id = i.created_by`

// Create inserts the initiative together with its tag links and votes in one
// transaction. Either everything is stored or nothing is.
func (r *initiativeRepository) Create(ctx context.Context, in *model.Initiative, links Links) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO initiatives (
	            title, description, content, parish_id, status, submission_date, vote_date, created_by,
	            created_at, updated_at, proposal_number, proposal_type, meeting_number, meeting_date,
	            meeting_type, meeting_notes, proposal_link, cover_image)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	          RETURNING id`

	err = tx.QueryRowxContext(ctx, query,
		in.Title,
		in.Description,
		in.Content,
		in.ParishID,
		in.Status,
		in.SubmissionDate,
		in.VoteDate,
		in.CreatedBy,
		in.CreatedAt,
		in.UpdatedAt,
		in.ProposalNumber,
		in.ProposalType,
		in.MeetingNumber,
		in.MeetingDate,
		in.MeetingType,
		in.MeetingNotes,
		in.ProposalLink,
		in.CoverImage,
	).Scan(&in.ID)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown parish or creator")
	}
	if err != nil {
		return fmt.Errorf("failed to insert initiative: %w", err)
	}

	err = linkTags(ctx, tx, in.ID, links.TagIDs)
	if err != nil {
		return err
	}

	for _, v := range links.Votes {
		v.InitiativeID = in.ID
		err = insertVote(ctx, tx, v)
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
	}

	return tx.Commit()
}

// Update replaces the mutable fields. submittedAt is only written when the
// stored submission date is still empty, so it is stamped at most once.
func (r *initiativeRepository) Update(ctx context.Context, in *model.Initiative, submittedAt *time.Time, links Links) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE initiatives SET
	            title = $1, description = $2, content = $3, parish_id = $4, status = $5, vote_date = $6,
	            proposal_number = $7, proposal_type = $8, meeting_number = $9, meeting_date = $10,
	            meeting_type = $11, meeting_notes = $12, proposal_link = $13, cover_image = $14,
	            updated_at = $15, submission_date = COALESCE(submission_date, $16)
	          WHERE id = $17`

	result, err := tx.ExecContext(ctx, query,
		in.Title,
		in.Description,
		in.Content,
		in.ParishID,
		in.Status,
		in.VoteDate,
		in.ProposalNumber,
		in.ProposalType,
		in.MeetingNumber,
		in.MeetingDate,
		in.MeetingType,
		in.MeetingNotes,
		in.ProposalLink,
		in.CoverImage,
		in.UpdatedAt,
		submittedAt,
		in.ID,
	)
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown parish")
	}
	if err != nil {
		return fmt.Errorf("failed to update initiative: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInitiativeNotFound
	}

	if links.ReplaceTags {
		_, err = tx.ExecContext(ctx, `DELETE FROM initiative_tags WHERE initiative_id = $1`, in.ID)
		if err != nil {
			return err
		}
		err = linkTags(ctx, tx, in.ID, links.TagIDs)
		if err != nil {
			return err
		}
	}

	if links.ReplaceVotes {
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE initiative_id = $1`, in.ID)
		if err != nil {
			return err
		}
		for _, v := range links.Votes {
			v.InitiativeID = in.ID
			err = insertVote(ctx, tx, v)
			if err != nil {
				return fmt.Errorf("failed to insert vote: %w", err)
			}
		}
	}

	return tx.Commit()
}

func linkTags(ctx context.Context, tx *sqlx.Tx, initiativeID int64, tagIDs []int64) error {
	seen := make(map[int64]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		_, err := tx.ExecContext(ctx, `INSERT INTO initiative_tags (initiative_id, tag_id) VALUES ($1, $2)`, initiativeID, tagID)
		if isForeignKeyViolation(err) {
			return apperr.Validation("unknown tag %d", tagID)
		}
		if err != nil {
			return fmt.Errorf("failed to link tag %d: %w", tagID, err)
		}
	}
	return nil
}

func (r *initiativeRepository) ByID(ctx context.Context, id int64) (*model.Initiative, error) {
	return initiativeByID(ctx, r.db, id)
}

func initiativeByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Initiative, error) {
	initiative := &model.Initiative{}
	err := sqlx.GetContext(ctx, q, initiative, initiativeSelect+` WHERE i.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInitiativeNotFound
	}
	if err != nil {
		return nil, err
	}
	return initiative, nil
}

// Full loads the initiative with tags, votes and documents from a single
// snapshot.
func (r *initiativeRepository) Full(ctx context.Context, id int64) (*model.Initiative, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	initiative, err := initiativeByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	initiative.Tags, err = initiativeTags(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	initiative.Votes, err = initiativeVotes(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	initiative.Documents, err = initiativeDocuments(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	return initiative, tx.Commit()
}

// Search lists approved initiatives, newest first.
func (r *initiativeRepository) Search(ctx context.Context, filter SearchFilter) ([]*model.Initiative, int, error) {
	from := ` FROM initiatives i JOIN parishes p ON p.id = i.parish_id`
	if filter.TagName != "" {
		from += ` JOIN initiative_tags it ON it.initiative_id = i.id JOIN tags t ON t.id = it.tag_id`
	}

	args := []any{model.StatusApproved}
	where := []string{"i.status = $1"}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(i.title) LIKE $%d OR LOWER(i.description) LIKE $%d OR LOWER(i.content) LIKE $%d)", n, n, n))
	}
	if filter.ParishCode != "" {
		args = append(args, filter.ParishCode)
		where = append(where, fmt.Sprintf("p.code = $%d", len(args)))
	}
	if filter.TagName != "" {
		args = append(args, filter.TagName)
		where = append(where, fmt.Sprintf("t.name = $%d", len(args)))
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(DISTINCT i.id)`+from+whereClause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count initiatives: %w", err)
	}

	query := `SELECT DISTINCT i.*, p.name AS parish_name, p.code AS parish_code` + from + whereClause +
		fmt.Sprintf(" ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	initiatives := []*model.Initiative{}
	err = r.db.SelectContext(ctx, &initiatives, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search initiatives: %w", err)
	}

	return initiatives, total, nil
}

// List returns every initiative regardless of status for the backoffice.
func (r *initiativeRepository) List(ctx context.Context, limit, offset int) ([]*model.Initiative, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM initiatives`)
	if err != nil {
		return nil, 0, err
	}

	initiatives := []*model.Initiative{}
	err = r.db.SelectContext(ctx, &initiatives, initiativeSelect+` ORDER BY i.created_at DESC, i.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return initiatives, total, nil
}

func (r *initiativeRepository) AttachTags(ctx context.Context, initiatives []*model.Initiative) error {
	for _, in := range initiatives {
		tags, err := initiativeTags(ctx, r.db, in.ID)
		if err != nil {
			return err
		}
		in.Tags = tags
	}
	return nil
}

func (r *initiativeRepository) AttachVotes(ctx context.Context, initiatives []*model.Initiative) error {
	for _, in := range initiatives {
		votes, err := initiativeVotes(ctx, r.db, in.ID)
		if err != nil {
			return err
		}
		in.Votes = votes
	}
	return nil
}

func (r *initiativeRepository) AddTag(ctx context.Context, initiativeID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO initiative_tags (initiative_id, tag_id) VALUES ($1, $2)`, initiativeID, tagID)
	if isUniqueViolation(err) {
		return nil
	}
	if isForeignKeyViolation(err) {
		return apperr.Validation("unknown initiative or tag")
	}
	return err
}

func (r *initiativeRepository) RemoveTag(ctx context.Context, initiativeID, tagID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM initiative_tags WHERE initiative_id = $1 AND tag_id = $2`, initiativeID, tagID)
	return err
}

func (r *initiativeRepository) ClearTags(ctx context.Context, initiativeID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM initiative_tags WHERE initiative_id = $1`, initiativeID)
	return err
}

func (r *initiativeRepository) SetCoverImage(ctx context.Context, initiativeID int64, key *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE initiatives SET cover_image = $1, updated_at = $2 WHERE id = $3`, key, time.Now().UTC(), initiativeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInitiativeNotFound
	}
	return nil
}

// Delete removes one initiative and everything hanging off it.
func (r *initiativeRepository) Delete(ctx context.Context, id int64) (*Removed, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cover *string
	err = tx.GetContext(ctx, &cover, `SELECT cover_image FROM initiatives WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInitiativeNotFound
	}
	if err != nil {
		return nil, err
	}

	docs, err := initiativeDocuments(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	for _, stmt := range []string{
		`DELETE FROM votes WHERE initiative_id = $1`,
		`DELETE FROM initiative_tags WHERE initiative_id = $1`,
		`DELETE FROM initiative_documents WHERE initiative_id = $1`,
		`DELETE FROM initiatives WHERE id = $1`,
	} {
		_, err = tx.ExecContext(ctx, stmt, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete initiative %d: %w", id, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}

	removed := &Removed{Initiatives: 1, Documents: docs}
	if cover != nil && *cover != "" {
		removed.CoverImages = []string{*cover}
	}
	return removed, nil
}

// DeleteAll empties the initiative tables.
func (r *initiativeRepository) DeleteAll(ctx context.Context) (*Removed, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	removed := &Removed{}

	err = tx.SelectContext(ctx, &removed.Documents, `SELECT * FROM initiative_documents ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}

	err = tx.SelectContext(ctx, &removed.CoverImages, `SELECT cover_image FROM initiatives WHERE cover_image IS NOT NULL AND cover_image <> ''`)
	if err != nil {
		return nil, err
	}

	for _, stmt := range []string{
		`DELETE FROM votes`,
		`DELETE FROM initiative_tags`,
		`DELETE FROM initiative_documents`,
	} {
		_, err = tx.ExecContext(ctx, stmt)
		if err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM initiatives`)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	removed.Initiatives = int(rows)

	return removed, tx.Commit()
}
