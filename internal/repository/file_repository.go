package repository

import (
	"context"
	"database/sql"
	"errors"

	"document-routing-server/config"
	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/util"
	"github.com/jmoiron/sqlx"
)

type FileRepository struct {
	*config.Database
}

func NewFileRepository(database *config.Database) *FileRepository {
	return &FileRepository{database}
}

const fileColumns = `uuid, document_uuid, recipient_uuid, file_path, original_filename,
		       mime_type, size_bytes, uploaded_by, upload_type, created_at`

func (r *FileRepository) Insert(ctx context.Context, exec sqlx.ExtContext, file *model.DocumentFile) error {
	query := `
		INSERT INTO document_files (uuid, document_uuid, recipient_uuid, file_path, original_filename,
		                            mime_type, size_bytes, uploaded_by, upload_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		file.UUID,
		file.DocumentUUID,
		file.RecipientUUID,
		file.FilePath,
		file.OriginalFilename,
		file.MimeType,
		file.SizeBytes,
		file.UploadedBy,
		file.UploadType,
	)
	if err != nil {
		return util.LogError("[FileRepo] не удалось сохранить файл", err)
	}
	return nil
}

func (r *FileRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentFile, error) {
	query := `SELECT ` + fileColumns + ` FROM document_files WHERE document_uuid = $1 ORDER BY created_at ASC`

	files := []model.DocumentFile{}
	rows, err := exec.QueryxContext(ctx, query, documentUUID)
	if err != nil {
		return nil, util.LogError("[FileRepo] не удалось получить файлы документа", err)
	}
	defer rows.Close()

	for rows.Next() {
		var file model.DocumentFile
		if err := rows.StructScan(&file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, nil
}

func (r *FileRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, fileUUID string) (*model.DocumentFile, error) {
	query := `SELECT ` + fileColumns + ` FROM document_files WHERE uuid = $1`

	var file model.DocumentFile
	err := sqlx.GetContext(ctx, exec, &file, query, fileUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (r *FileRepository) Delete(ctx context.Context, exec sqlx.ExtContext, fileUUID string) error {
	_, err := exec.ExecContext(ctx, `DELETE FROM document_files WHERE uuid = $1`, fileUUID)
	if err != nil {
		return util.LogError("[FileRepo] не удалось удалить файл", err)
	}
	return nil
}
