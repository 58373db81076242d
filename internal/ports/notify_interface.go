package ports

import "context"

// Notifier — fire-and-forget уведомления; ошибки доставки не откатывают переход
type Notifier interface {
	NotifyUser(ctx context.Context, userUUID string, message string, documentUUID string) error
	NotifyDepartment(ctx context.Context, departmentID string, message string, documentUUID string) error
}

// AuditSink — append-only журнал действий, пишется после коммита транзакции
type AuditSink interface {
	RecordDocument(ctx context.Context, documentUUID string, actorUUID string, action string, description string) error
	RecordUser(ctx context.Context, userUUID string, actorUUID string, action string, description string) error
}
