package repository

import (
	"context"

	"document-routing-server/config"
	"document-routing-server/internal/util"
	"github.com/google/uuid"
)

// ActivityRepository — append-only журнал действий; ядро его только пишет,
// чтение — забота модуля отчетности (вне этого сервиса)
type ActivityRepository struct {
	*config.Database
}

func NewActivityRepository(database *config.Database) *ActivityRepository {
	return &ActivityRepository{database}
}

func (r *ActivityRepository) RecordDocument(ctx context.Context, documentUUID string, actorUUID string, action string, description string) error {
	query := `
		INSERT INTO document_activity_logs (uuid, document_uuid, actor_uuid, action, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, uuid.New().String(), documentUUID, actorUUID, action, description)
	if err != nil {
		return util.LogError("[ActivityRepo] не удалось записать действие по документу", err)
	}
	return nil
}

func (r *ActivityRepository) RecordUser(ctx context.Context, userUUID string, actorUUID string, action string, description string) error {
	query := `
		INSERT INTO user_activity_logs (uuid, user_uuid, actor_uuid, action, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, uuid.New().String(), userUUID, actorUUID, action, description)
	if err != nil {
		return util.LogError("[ActivityRepo] не удалось записать действие пользователя", err)
	}
	return nil
}
