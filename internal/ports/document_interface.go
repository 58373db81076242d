package ports

import (
	"context"
	"time"

	"document-routing-server/internal/model"
	"document-routing-server/internal/security"
	"github.com/jmoiron/sqlx"
)

// DocumentRepository : SQL слой документов
type DocumentRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, document *model.Document) error
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error)
	GetForUpdate(ctx context.Context, exec sqlx.ExtContext, documentUUID string) (*model.Document, error)
	GetByBarcode(ctx context.Context, exec sqlx.ExtContext, barcode string) (*model.Document, error)
	GetPublicByToken(ctx context.Context, exec sqlx.ExtContext, token string) (*model.Document, error)
	MaxOrderSuffix(ctx context.Context, exec sqlx.ExtContext, departmentID string, documentType model.DocumentType, day time.Time, perType bool) (int, error)
	OrderNumberExists(ctx context.Context, exec sqlx.ExtContext, departmentID string, orderNumber string, day time.Time) (bool, error)
	PublicTokenExists(ctx context.Context, exec sqlx.ExtContext, token string) (bool, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, documentUUID string, status model.DocumentStatus) error
	SetPublic(ctx context.Context, exec sqlx.ExtContext, documentUUID string, token string) error
	ListForActor(ctx context.Context, exec sqlx.ExtContext, userUUID string, departmentID string, cursor string, limit int) ([]model.Document, string, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]string, error)
	BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error)
}

type FileRepository interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, file *model.DocumentFile) error
	ListByDocument(ctx context.Context, exec sqlx.ExtContext, documentUUID string) ([]model.DocumentFile, error)
	GetByUUID(ctx context.Context, exec sqlx.ExtContext, fileUUID string) (*model.DocumentFile, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, fileUUID string) error
}

type DocumentService interface {
	CreateDocument(ctx context.Context, actor *security.Claims, input *model.CreateDocumentInput) (*model.CreateDocumentOutput, error)
	GetDocumentByUUID(ctx context.Context, actor *security.Claims, documentUUID string) (*model.GetDocumentResult, error)
	GetPublicDocument(ctx context.Context, token string) (*model.GetDocumentResult, error)
	ListDocuments(ctx context.Context, actor *security.Claims, cursor string, limit int) ([]model.Document, string, error)
	PublishDocument(ctx context.Context, actor *security.Claims, documentUUID string) (string, error)
	DeleteDocument(ctx context.Context, actor *security.Claims, documentUUID string) error
	DeleteFile(ctx context.Context, actor *security.Claims, fileUUID string) error
}
