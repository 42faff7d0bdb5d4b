package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
)

var ErrDocumentNotFound = apperr.NotFound("document not found")

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	ByID(ctx context.Context, initiativeID, docID int64) (*model.Document, error)
	ByFilename(ctx context.Context, filename string) (*model.Document, error)
	ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Document, error)
	All(ctx context.Context) ([]*model.Document, error)
	Delete(ctx context.Context, initiativeID, docID int64) error
	Clear(ctx context.Context, initiativeID int64) error
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	query := `INSERT INTO initiative_documents (initiative_id, filename, original_filename, file_path, file_size, mime_type, uploaded_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	return r.db.QueryRowxContext(ctx, query,
		doc.InitiativeID,
		doc.Filename,
		doc.OriginalFilename,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.UploadedAt,
	).Scan(&doc.ID)
}

func (r *documentRepository) ByID(ctx context.Context, initiativeID, docID int64) (*model.Document, error) {
	doc := &model.Document{}
	err := r.db.GetContext(ctx, doc, `SELECT * FROM initiative_documents WHERE id = $1 AND initiative_id = $2`, docID, initiativeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

func (r *documentRepository) ByFilename(ctx context.Context, filename string) (*model.Document, error) {
	doc := &model.Document{}
	err := r.db.GetContext(ctx, doc, `SELECT * FROM initiative_documents WHERE filename = $1`, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

func (r *documentRepository) ForInitiative(ctx context.Context, initiativeID int64) ([]*model.Document, error) {
	return initiativeDocuments(ctx, r.db, initiativeID)
}

func (r *documentRepository) All(ctx context.Context) ([]*model.Document, error) {
	docs := []*model.Document{}
	err := r.db.SelectContext(ctx, &docs, `SELECT * FROM initiative_documents ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Delete(ctx context.Context, initiativeID, docID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM initiative_documents WHERE id = $1 AND initiative_id = $2`, docID, initiativeID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepository) Clear(ctx context.Context, initiativeID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM initiative_documents WHERE initiative_id = $1`, initiativeID)
	return err
}

func initiativeDocuments(ctx context.Context, q sqlx.QueryerContext, initiativeID int64) ([]*model.Document, error) {
	docs := []*model.Document{}
	err := sqlx.SelectContext(ctx, q, &docs, `SELECT * FROM initiative_documents WHERE initiative_id = $1 ORDER BY uploaded_at ASC, id ASC`, initiativeID)
	if err != nil {
		return nil, err
	}
	return docs, nil
}
