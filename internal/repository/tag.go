package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
)

var (
	ErrTagNotFound  = apperr.NotFound("tag not found")
	ErrDuplicateTag = apperr.Conflict("tag already exists")
)

type TagRepository interface {
	Create(ctx context.Context, tag *model.Tag) error
	ByID(ctx context.Context, id int64) (*model.Tag, error)
	ByName(ctx context.Context, name string) (*model.Tag, error)
	List(ctx context.Context) ([]*model.Tag, error)
	ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Tag, error)
}

type tagRepository struct {
	db *sqlx.DB
}

func NewTagRepository(db *sqlx.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *model.Tag) error {
	query := `INSERT INTO tags (name, color, created_at) VALUES ($1, $2, $3) RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, tag.Name, tag.Color, tag.CreatedAt).Scan(&tag.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateTag
	}
	return err
}

func (r *tagRepository) ByID(ctx context.Context, id int64) (*model.Tag, error) {
	tag := &model.Tag{}
	err := r.db.GetContext(ctx, tag, `SELECT * FROM tags WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	return tag, err
}

func (r *tagRepository) ByName(ctx context.Context, name string) (*model.Tag, error) {
	tag := &model.Tag{}
	err := r.db.GetContext(ctx, tag, `SELECT * FROM tags WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	return tag, err
}

func (r *tagRepository) List(ctx context.Context) ([]*model.Tag, error) {
	tags := []*model.Tag{}
	err := r.db.SelectContext(ctx, &tags, `SELECT * FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Tag, error) {
	return initiativeTags(ctx, r.db, initiativeID)
}

func initiativeTags(ctx context.Context, q sqlx.QueryerContext, initiativeID int64) ([]*model.Tag, error) {
	tags := []*model.Tag{}
	query := `SELECT t.* FROM tags t
	          JOIN initiative_tags it ON it.tag_id = t.id
	          WHERE it.initiative_id = $1
	          ORDER BY t.name ASC`

	err := sqlx.SelectContext(ctx, q, &tags, query, initiativeID)
	if err != nil {
		return nil, err
	}
	return tags, nil
}
