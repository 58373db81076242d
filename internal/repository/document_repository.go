package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"document-routing-server/config"
	"document-routing-server/internal/apperrors"
	"document-routing-server/internal/model"
	"document-routing-server/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type DocumentRepository struct {
	*config.Database
}

func NewDocumentRepository(database *config.Database) *DocumentRepository {
	return &DocumentRepository{database}
}

const documentColumns = `uuid, owner_uuid, department_id, subject, description, order_number,
		       document_type, status, is_public, public_token, barcode_value,
		       through_department_ids, created_at, updated_at, deleted_at`

// Create : сохраняет новый документ; гонка по номеру приказа (unique violation)
// отдается наверх как ErrDuplicateOrderNumber, сервис решает — ретрай или отказ
func (r *DocumentRepository) Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error {
	query := `
		INSERT INTO documents (uuid, owner_uuid, department_id, subject, description, order_number,
		                       document_type, status, is_public, barcode_value, through_department_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		document.UUID,
		document.OwnerUUID,
		document.DepartmentID,
		document.Subject,
		document.Description,
		document.OrderNumber,
		document.DocumentType,
		document.Status,
		document.IsPublic,
		document.BarcodeValue,
		document.ThroughDepartmentIDs,
	)
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateOrderNumber
	}
	return err
}

func (r *DocumentRepository) GetByUUID(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE uuid = $1 AND deleted_at IS NULL`

	var document model.Document
	err := sqlx.GetContext(ctx, exec, &document, query, documentUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &document, nil
}

// GetForUpdate : читает документ с блокировкой строки — сериализует конкурентные
// мутации цепочки по одному документу в рамках транзакции
func (r *DocumentRepository) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE uuid = $1 AND deleted_at IS NULL FOR UPDATE`

	var document model.Document
	err := sqlx.GetContext(ctx, exec, &document, query, documentUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &document, nil
}

// GetByBarcode : точное совпадение по штрихкоду. Штрихкод уникален только в
// пределах отдел+день — при коллизии берется самый свежий неархивный документ
func (r *DocumentRepository) GetByBarcode(ctx context.Context, exec sqlx.ExtContext, barcode string) (*model.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE barcode_value = $1 AND status <> $2 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var document model.Document
	err := sqlx.GetContext(ctx, exec, &document, query, barcode, model.DocStatusArchived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &document, nil
}

func (r *DocumentRepository) GetPublicByToken(ctx context.Context, exec sqlx.ExtContext, token string) (*model.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE public_token = $1 AND is_public = TRUE AND deleted_at IS NULL
	`

	var document model.Document
	err := sqlx.GetContext(ctx, exec, &document, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &document, nil
}

// MaxOrderSuffix : максимальный числовой суффикс номера приказа среди неархивных
// документов отдела за календарный день; для президентского отдела — еще и по типу
func (r *DocumentRepository) MaxOrderSuffix(ctx context.Context, exec sqlx.ExtContext, departmentID string, documentType model.DocumentType, day time.Time, perType bool) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT COALESCE(MAX(CAST(split_part(order_number, '-', 3) AS INTEGER)), 0)
		FROM documents
		WHERE department_id = $1
		  AND created_at >= $2 AND created_at < $3
		  AND status <> $4
		  AND deleted_at IS NULL
	`
	args := []interface{}{departmentID, dayStart, dayEnd, model.DocStatusArchived}
	if perType {
		query += ` AND document_type = $5`
		args = append(args, documentType)
	}

	var maxSuffix int
	if err := sqlx.GetContext(ctx, exec, &maxSuffix, query, args...); err != nil {
		return 0, util.LogError("[DocumentRepo] не удалось получить максимальный суффикс номера", err)
	}

	return maxSuffix, nil
}

func (r *DocumentRepository) OrderNumberExists(ctx context.Context, exec sqlx.ExtContext, departmentID string, orderNumber string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var exists bool
	err := sqlx.GetContext(ctx, exec, &exists, `
		SELECT EXISTS (
			SELECT 1
			FROM documents
			WHERE department_id = $1
			  AND order_number = $2
			  AND created_at >= $3 AND created_at < $4
			  AND status <> $5
			  AND deleted_at IS NULL
		)
	`, departmentID, orderNumber, dayStart, dayEnd, model.DocStatusArchived)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *DocumentRepository) PublicTokenExists(ctx context.Context, exec sqlx.ExtContext, token string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, exec, &exists, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE public_token = $1)
	`, token)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string, status model.DocumentStatus) error {
	query := `
		UPDATE documents
		SET status = $2, updated_at = NOW()
		WHERE uuid = $1
	`
	_, err := exec.ExecContext(ctx, query, documentUUID, status)
	if err != nil {
		return util.LogError("[DocumentRepo] не удалось обновить статус документа", err)
	}
	return nil
}

func (r *DocumentRepository) SetPublic(ctx context.Context, exec sqlx.ExtContext, documentUUID string, token string) error {
	query := `
		UPDATE documents
		SET is_public = TRUE, public_token = $2, updated_at = NOW()
		WHERE uuid = $1
	`
	_, err := exec.ExecContext(ctx, query, documentUUID, token)
	if err != nil {
		return util.LogError("[DocumentRepo] не удалось опубликовать документ", err)
	}
	return nil
}

// ListForActor : документы, где актор владелец либо его отдел встречается в цепочке
// (cursor по created_at — как и в остальных списках, вместо OFFSET/LIMIT)
func (r *DocumentRepository) ListForActor(ctx context.Context, exec sqlx.ExtContext, userUUID string, departmentID string, cursor string, limit int) ([]model.Document, string, error) {
	query := `
		SELECT DISTINCT d.uuid, d.owner_uuid, d.department_id, d.subject, d.description, d.order_number,
		       d.document_type, d.status, d.is_public, d.public_token, d.barcode_value,
		       d.through_department_ids, d.created_at, d.updated_at, d.deleted_at
		FROM documents AS d
		LEFT JOIN document_recipients AS rec
		  ON rec.document_uuid = d.uuid AND rec.department_id = $2
		WHERE d.deleted_at IS NULL
		  AND (d.owner_uuid = $1 OR rec.uuid IS NOT NULL)
	`

	args := []interface{}{userUUID, departmentID}
	if cursor != "" {
		cursorTime, err := time.Parse("2006-01-02T15:04:05.999999Z07:00", cursor)
		if err != nil {
			return nil, "", apperrors.ErrValidationFailed
		}
		query += ` AND d.created_at < $3`
		args = append(args, cursorTime)
	}
	if limit <= 0 {
		limit = 20
	}
	query += ` ORDER BY d.created_at DESC LIMIT ` + strconv.Itoa(limit)

	docs := []model.Document{}
	rows, err := exec.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	for rows.Next() {
		var document model.Document
		if err := rows.StructScan(&document); err != nil {
			return nil, "", err
		}
		docs = append(docs, document)
	}

	var nextCursor string
	if len(docs) == limit && limit > 0 {
		nextCursor = docs[len(docs)-1].CreatedAt.Format("2006-01-02T15:04:05.999999Z07:00")
	}

	return docs, nextCursor, nil
}

// Delete : жесткое удаление с каскадом; возвращает file_path вложений для очистки S3
func (r *DocumentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]string, error) {
	paths := []string{}
	rows, err := exec.QueryxContext(ctx, `SELECT file_path FROM document_files WHERE document_uuid = $1`, documentUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	for _, query := range []string{
		`DELETE FROM document_files WHERE document_uuid = $1`,
		`DELETE FROM document_recipients WHERE document_uuid = $1`,
		`DELETE FROM document_activity_logs WHERE document_uuid = $1`,
		`DELETE FROM documents WHERE uuid = $1`,
	} {
		if _, err := exec.ExecContext(ctx, query, documentUUID); err != nil {
			return nil, util.LogError("[DocumentRepo] ошибка каскадного удаления", err)
		}
	}

	return paths, nil
}

func (r *DocumentRepository) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return tx, func() error { return tx.Rollback() }, func() error { return tx.Commit() }, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
