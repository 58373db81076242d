package ports

import (
	"context"

	"document-routing-server/internal/model"
)

type CacheRepository interface {
	GetDocument(ctx context.Context, uuid string) (*model.Document, error)
	SetDocument(ctx context.Context, document *model.Document) error
	DeleteDocument(ctx context.Context, uuid string) error
}
