package model

import (
	"time"

	"github.com/lib/pq"
)

type DocumentType string

const (
	TypeOrder         DocumentType = "order"
	TypeMemorandum    DocumentType = "memorandum"
	TypeCommunication DocumentType = "communication"
	TypeForInfo       DocumentType = "for_info"
)

func (t DocumentType) Valid() bool {
	switch t {
	case TypeOrder, TypeMemorandum, TypeCommunication, TypeForInfo:
		return true
	}
	return false
}

type DocumentStatus string

const (
	DocStatusPending   DocumentStatus = "pending"
	DocStatusInReview  DocumentStatus = "in_review"
	DocStatusApproved  DocumentStatus = "approved"
	DocStatusRejected  DocumentStatus = "rejected"
	DocStatusReturned  DocumentStatus = "returned"
	DocStatusReceived  DocumentStatus = "received"
	DocStatusCancelled DocumentStatus = "cancelled"
	DocStatusArchived  DocumentStatus = "archived"
)

type Document struct {
	UUID         string         `db:"uuid" json:"uuid"`
	OwnerUUID    string         `db:"owner_uuid" json:"owner_uuid"`
	DepartmentID string         `db:"department_id" json:"department_id"`
	Subject      string         `db:"subject" json:"subject"`
	Description  string         `db:"description" json:"description"`
	OrderNumber  string         `db:"order_number" json:"order_number"`
	DocumentType DocumentType   `db:"document_type" json:"document_type"`
	Status       DocumentStatus `db:"status" json:"status"`
	IsPublic     bool           `db:"is_public" json:"is_public"`
	PublicToken  *string        `db:"public_token" json:"public_token,omitempty"`
	// BarcodeValue — номер приказа без разделителей; уникален только в пределах
	// отдел+день(+тип), см. GetByBarcode
	BarcodeValue         string         `db:"barcode_value" json:"barcode_value"`
	ThroughDepartmentIDs pq.StringArray `db:"through_department_ids" json:"through_department_ids"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
	DeletedAt            *time.Time     `db:"deleted_at" json:"deleted_at,omitempty"`
}

type UploadType string

const (
	UploadOriginal UploadType = "original"
	UploadResponse UploadType = "response"
)

type DocumentFile struct {
	UUID             string     `db:"uuid" json:"uuid"`
	DocumentUUID     string     `db:"document_uuid" json:"document_uuid"`
	RecipientUUID    *string    `db:"recipient_uuid" json:"recipient_uuid,omitempty"`
	FilePath         string     `db:"file_path" json:"-"`
	OriginalFilename string     `db:"original_filename" json:"original_filename"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	SizeBytes        int64      `db:"size_bytes" json:"size_bytes"`
	UploadedBy       string     `db:"uploaded_by" json:"uploaded_by"`
	UploadType       UploadType `db:"upload_type" json:"upload_type"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

type FileWithURL struct {
	File   DocumentFile `json:"file"`
	GetURL string       `json:"get_url"`
}

type GetDocumentResult struct {
	Document   *Document
	Recipients []DocumentRecipient
	Files      []FileWithURL
}
