package ports

import (
	"context"

	"document-routing-server/internal/model"
	"document-routing-server/internal/security"
	"github.com/jmoiron/sqlx"
)

// RecipientRepository : SQL слой маршрутной цепочки (append-only)
type RecipientRepository interface {
	ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentRecipient, error)
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *model.DocumentRecipient) error
	// Close закрывает запись: статус, responded_at=now, is_active=false;
	// при receivedBy != nil дополнительно received_at=now и received_by
	Close(ctx context.Context, exec sqlx.ExtContext, entryUUID string, status model.RecipientStatus, receivedBy *string) error
	Deactivate(ctx context.Context, exec sqlx.ExtContext, entryUUID string) error
}

type RoutingService interface {
	Forward(ctx context.Context, actor *security.Claims, documentUUID string, target model.ForwardTarget, comments string, files []model.FileInput) ([]model.UploadSlot, error)
	Respond(ctx context.Context, actor *security.Claims, documentUUID string, decision model.RecipientStatus, comments string) error
	Receive(ctx context.Context, actor *security.Claims, documentUUID string) error
	ReceiveByBarcode(ctx context.Context, actor *security.Claims, barcode string) (*model.Document, error)
	Resend(ctx context.Context, actor *security.Claims, documentUUID string, target model.ForwardTarget, comments string) error
	Cancel(ctx context.Context, actor *security.Claims, documentUUID string) error
}
