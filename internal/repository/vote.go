package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
)

var ErrVoteNotFound = apperr.NotFound("vote not found")

type VoteRepository interface {
	Add(ctx context.Context, vote *model.Vote) error
	Delete(ctx context.Context, initiativeID, voteID int64) error
	Clear(ctx context.Context, initiativeID int64) error
	ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Vote, error)
}

type voteRepository struct {
	db *sqlx.DB
}

func NewVoteRepository(db *sqlx.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Add(ctx context.Context, vote *model.Vote) error {
	return insertVote(ctx, r.db, vote)
}

func (r *voteRepository) Delete(ctx context.Context, initiativeID, voteID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE id = $1 AND initiative_id = $2`, voteID, initiativeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVoteNotFound
	}
	return nil
}

func (r *voteRepository) Clear(ctx context.Context, initiativeID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE initiative_id = $1`, initiativeID)
	return err
}

func (r *voteRepository) ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Vote, error) {
	return initiativeVotes(ctx, r.db, initiativeID)
}

func insertVote(ctx context.Context, q sqlx.QueryerContext, vote *model.Vote) error {
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO votes (initiative_id, voter_name, vote, notes, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return q.QueryRowxContext(ctx, query, vote.InitiativeID, vote.VoterName, vote.Vote, vote.Notes, vote.CreatedAt).Scan(&vote.ID)
}

func initiativeVotes(ctx context.Context, q sqlx.QueryerContext, initiativeID int64) ([]*model.Vote, error) {
	votes := []*model.Vote{}
	err := sqlx.SelectContext(ctx, q, &votes, `SELECT * FROM votes WHERE initiative_id = $1 ORDER BY voter_name ASC, id ASC`, initiativeID)
	if err != nil {
		return nil, err
	}
	return votes, nil
}
