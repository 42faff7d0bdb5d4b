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
	ErrParishNotFound   = apperr.NotFound("parish not found")
	ErrDuplicateParish  = apperr.Conflict("a parish with this name or code already exists")
	ErrParishReferenced = apperr.Conflict("parish still has initiatives or users")
)

type ParishRepository interface {
	Create(ctx context.Context, parish *model.Parish) error
	ByID(ctx context.Context, id int64) (*model.Parish, error)
	ByCode(ctx context.Context, code string) (*model.Parish, error)
	List(ctx context.Context) ([]*model.Parish, error)
	CountInitiatives(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

type parishRepository struct {
	db *sqlx.DB
}

func NewParishRepository(db *sqlx.DB) ParishRepository {
	return &parishRepository{db: db}
}

func (r *parishRepository) Create(ctx context.Context, parish *model.Parish) error {
	query := `INSERT INTO parishes (name, code, type, description, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, parish.Name, parish.Code, parish.Type, parish.Description, parish.CreatedAt).Scan(&parish.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateParish
	}
	return err
}

func (r *parishRepository) ByID(ctx context.Context, id int64) (*model.Parish, error) {
	parish := &model.Parish{}
	err := r.db.GetContext(ctx, parish, `SELECT * FROM parishes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParishNotFound
	}
	return parish, err
}

func (r *parishRepository) ByCode(ctx context.Context, code string) (*model.Parish, error) {
	parish := &model.Parish{}
	err := r.db.GetContext(ctx, parish, `SELECT * FROM parishes WHERE code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParishNotFound
	}
	return parish, err
}

func (r *parishRepository) List(ctx context.Context) ([]*model.Parish, error) {
	parishes := []*model.Parish{}
	err := r.db.SelectContext(ctx, &parishes, `SELECT * FROM parishes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return parishes, nil
}

func (r *parishRepository) CountInitiatives(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM initiatives WHERE parish_id = $1`, id)
	return count, err
}

func (r *parishRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM parishes WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return ErrParishReferenced
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrParishNotFound
	}

	return nil
}
