package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/skillswap/exchange-server-go/internal/model"
)

type FileRepository interface {
	FindByID(ctx context.Context, sessionID, id string) (*model.SharedFile, error)
	Create(ctx context.Context, params model.CreateSharedFileParams) (*model.SharedFile, error)
	// ListBySession returns files newest first.
	ListBySession(ctx context.Context, sessionID string) ([]model.SharedFile, error)
	Delete(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) FileRepository
}

type fileRepo struct {
	db sqlxDB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepo{db: db}
}

func (r *fileRepo) WithTx(tx *sqlx.Tx) FileRepository {
	return &fileRepo{db: tx}
}

func (r *fileRepo) FindByID(ctx context.Context, sessionID, id string) (*model.SharedFile, error) {
	var file model.SharedFile
	err := r.db.GetContext(ctx, &file, `
		SELECT * FROM session_files WHERE id = $1 AND session_id = $2
	`, id, sessionID)
	return HandleNotFound(&file, err)
}

func (r *fileRepo) Create(ctx context.Context, params model.CreateSharedFileParams) (*model.SharedFile, error) {
	var file model.SharedFile
	err := r.db.GetContext(ctx, &file, `
		INSERT INTO session_files (session_id, name, url, path, uploaded_by, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.SessionID, params.Name, params.URL, params.Path, params.By, params.ContentType, params.Size)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepo) ListBySession(ctx context.Context, sessionID string) ([]model.SharedFile, error) {
	files := []model.SharedFile{}
	err := r.db.SelectContext(ctx, &files, `
		SELECT * FROM session_files
		WHERE session_id = $1
		ORDER BY created_at DESC, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_files WHERE id = $1`, id)
	return err
}
