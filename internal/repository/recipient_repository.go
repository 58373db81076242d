package repository

import (
	"context"

	"document-routing-server/config"
	"document-routing-server/internal/model"
	"document-routing-server/internal/util"
	"github.com/jmoiron/sqlx"
)

type RecipientRepository struct {
	*config.Database
}

func NewRecipientRepository(database *config.Database) *RecipientRepository {
	return &RecipientRepository{database}
}

const recipientColumns = `uuid, document_uuid, sequence, department_id, user_uuid, forwarded_by,
		       final_recipient_department_id, status, is_active, comments,
		       responded_at, received_at, received_by, created_at`

// ListByDocument : вся цепочка документа в порядке sequence
func (r *RecipientRepository) ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentRecipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM document_recipients
		WHERE document_uuid = $1
		ORDER BY sequence ASC, created_at ASC
	`

	entries := []model.DocumentRecipient{}
	rows, err := exec.QueryxContext(ctx, query, documentUUID)
	if err != nil {
		return nil, util.LogError("[RecipientRepo] не удалось прочитать цепочку документа", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.DocumentRecipient
		if err := rows.StructScan(&entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Insert : добавляет звено цепочки; sequence вычисляет сервис под блокировкой
// строки документа, терминальные записи приходят уже с responded_at
func (r *RecipientRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *model.DocumentRecipient) error {
	query := `
		INSERT INTO document_recipients (uuid, document_uuid, sequence, department_id, user_uuid,
		                                 forwarded_by, final_recipient_department_id, status, is_active,
		                                 comments, responded_at, received_at, received_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := exec.ExecContext(
		ctx,
		query,
		entry.UUID,
		entry.DocumentUUID,
		entry.Sequence,
		entry.DepartmentID,
		entry.UserUUID,
		entry.ForwardedBy,
		entry.FinalRecipientDepartmentID,
		entry.Status,
		entry.IsActive,
		entry.Comments,
		entry.RespondedAt,
		entry.ReceivedAt,
		entry.ReceivedBy,
	)
	if err != nil {
		return util.LogError("[RecipientRepo] не удалось добавить звено цепочки", err)
	}
	return nil
}

// Close : закрывает звено — статус, responded_at, is_active=false;
// при receivedBy != nil дополнительно фиксирует received_at и received_by
func (r *RecipientRepository) Close(ctx context.Context, exec sqlx.ExtContext, entryUUID string, status model.RecipientStatus, receivedBy *string) error {
	query := `
		UPDATE document_recipients
		SET status = $2,
		    responded_at = NOW(),
		    is_active = FALSE,
		    received_at = CASE WHEN $3::text IS NOT NULL THEN NOW() ELSE received_at END,
		    received_by = COALESCE($3, received_by)
		WHERE uuid = $1
	`
	_, err := exec.ExecContext(ctx, query, entryUUID, status, receivedBy)
	if err != nil {
		return util.LogError("[RecipientRepo] не удалось закрыть звено цепочки", err)
	}
	return nil
}

func (r *RecipientRepository) Deactivate(ctx context.Context, exec sqlx.ExtContext, entryUUID string) error {
	query := `UPDATE document_recipients SET is_active = FALSE WHERE uuid = $1`
	_, err := exec.ExecContext(ctx, query, entryUUID)
	if err != nil {
		return util.LogError("[RecipientRepo] не удалось деактивировать звено", err)
	}
	return nil
}
