package requestresponse

import (
	"time"

	"document-routing-server/internal/model"
)

// FileMeta : мета-данные вложения, сам файл клиент загружает по pre-signed URL
type FileMeta struct {
	OriginalFilename string `json:"original_filename" example:"prikaz.pdf"`
	MimeType         string `json:"mime_type" example:"application/pdf"`
	SizeBytes        int64  `json:"size_bytes" example:"204800"`
}

// CreateDocumentRequest : регистрация документа и открытие маршрута
type CreateDocumentRequest struct {
	Subject              string     `json:"subject" example:"О назначении ответственных"`
	Description          string     `json:"description" example:"Приказ по основной деятельности"`
	DocumentType         string     `json:"document_type" example:"order"`
	TargetDepartmentID   string     `json:"target_department_id" example:"dep-rectorat"`
	ThroughDepartmentIDs []string   `json:"through_department_ids,omitempty"`
	InfoDepartmentIDs    []string   `json:"info_department_ids,omitempty"`
	OrderNumber          string     `json:"order_number,omitempty" example:"OIT-091525-007"`
	Files                []FileMeta `json:"files,omitempty"`
}

func (r *CreateDocumentRequest) ToInput() *model.CreateDocumentInput {
	files := make([]model.FileInput, 0, len(r.Files))
	for _, f := range r.Files {
		files = append(files, model.FileInput{
			OriginalFilename: f.OriginalFilename,
			MimeType:         f.MimeType,
			SizeBytes:        f.SizeBytes,
		})
	}
	return &model.CreateDocumentInput{
		Subject:              r.Subject,
		Description:          r.Description,
		DocumentType:         model.DocumentType(r.DocumentType),
		TargetDepartmentID:   r.TargetDepartmentID,
		ThroughDepartmentIDs: r.ThroughDepartmentIDs,
		InfoDepartmentIDs:    r.InfoDepartmentIDs,
		OrderNumber:          r.OrderNumber,
		Files:                files,
	}
}

// DocumentResponse : документ для JSON-ответа
type DocumentResponse struct {
	UUID         string   `json:"uuid" example:"9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"`
	OrderNumber  string   `json:"order_number" example:"OIT-091525-007"`
	Barcode      string   `json:"barcode" example:"OIT091525007"`
	Subject      string   `json:"subject"`
	Description  string   `json:"description,omitempty"`
	DocumentType string   `json:"document_type" example:"order"`
	Status       string   `json:"status" example:"in_review"`
	OwnerUUID    string   `json:"owner_uuid"`
	DepartmentID string   `json:"department_id"`
	IsPublic     bool     `json:"is_public"`
	ThroughIDs   []string `json:"through_department_ids,omitempty"`
	CreatedAt    string   `json:"created_at" example:"2025-09-15T12:34:56Z"`
	UpdatedAt    string   `json:"updated_at"`
}

func DocumentResponseFromModel(doc *model.Document) DocumentResponse {
	return DocumentResponse{
		UUID:         doc.UUID,
		OrderNumber:  doc.OrderNumber,
		Barcode:      doc.BarcodeValue,
		Subject:      doc.Subject,
		Description:  doc.Description,
		DocumentType: string(doc.DocumentType),
		Status:       string(doc.Status),
		OwnerUUID:    doc.OwnerUUID,
		DepartmentID: doc.DepartmentID,
		IsPublic:     doc.IsPublic,
		ThroughIDs:   doc.ThroughDepartmentIDs,
		CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.Format(time.RFC3339),
	}
}

// RecipientResponse : звено маршрутной цепочки для JSON-ответа
type RecipientResponse struct {
	UUID              string  `json:"uuid"`
	Sequence          int     `json:"sequence" example:"2"`
	DepartmentID      *string `json:"department_id,omitempty"`
	UserUUID          *string `json:"user_uuid,omitempty"`
	ForwardedBy       *string `json:"forwarded_by,omitempty"`
	FinalDepartmentID *string `json:"final_recipient_department_id,omitempty"`
	Status            string  `json:"status" example:"pending"`
	IsActive          bool    `json:"is_active"`
	Comments          *string `json:"comments,omitempty"`
	RespondedAt       *string `json:"responded_at,omitempty"`
	ReceivedAt        *string `json:"received_at,omitempty"`
	ReceivedBy        *string `json:"received_by,omitempty"`
}

func RecipientResponseFromModel(entry *model.DocumentRecipient) RecipientResponse {
	resp := RecipientResponse{
		UUID:              entry.UUID,
		Sequence:          entry.Sequence,
		DepartmentID:      entry.DepartmentID,
		UserUUID:          entry.UserUUID,
		ForwardedBy:       entry.ForwardedBy,
		FinalDepartmentID: entry.FinalRecipientDepartmentID,
		Status:            string(entry.Status),
		IsActive:          entry.IsActive,
		Comments:          entry.Comments,
		ReceivedBy:        entry.ReceivedBy,
	}
	if entry.RespondedAt != nil {
		v := entry.RespondedAt.Format(time.RFC3339)
		resp.RespondedAt = &v
	}
	if entry.ReceivedAt != nil {
		v := entry.ReceivedAt.Format(time.RFC3339)
		resp.ReceivedAt = &v
	}
	return resp
}

// FileResponse : вложение с временной ссылкой на скачивание
type FileResponse struct {
	UUID             string `json:"uuid"`
	OriginalFilename string `json:"original_filename" example:"prikaz.pdf"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
	UploadType       string `json:"upload_type" example:"original"`
	GetURL           string `json:"get_url,omitempty"`
}

// UploadSlotResponse : зарегистрированный файл и URL для его загрузки
type UploadSlotResponse struct {
	FileUUID string `json:"file_uuid"`
	PutURL   string `json:"put_url"`
}

// CreateDocumentResponse : ответ регистрации документа
type CreateDocumentResponse struct {
	Document DocumentResponse     `json:"document"`
	Uploads  []UploadSlotResponse `json:"uploads,omitempty"`
}

// GetDocumentResponse : карточка документа с цепочкой и файлами
type GetDocumentResponse struct {
	Document   DocumentResponse    `json:"document"`
	Recipients []RecipientResponse `json:"recipients"`
	Files      []FileResponse      `json:"files"`
	ExpiresIn  string              `json:"expires_in,omitempty"`
}

func GetDocumentResponseFromResult(result *model.GetDocumentResult, expiresIn string) GetDocumentResponse {
	recipients := make([]RecipientResponse, 0, len(result.Recipients))
	for i := range result.Recipients {
		recipients = append(recipients, RecipientResponseFromModel(&result.Recipients[i]))
	}
	files := make([]FileResponse, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, FileResponse{
			UUID:             f.File.UUID,
			OriginalFilename: f.File.OriginalFilename,
			MimeType:         f.File.MimeType,
			SizeBytes:        f.File.SizeBytes,
			UploadType:       string(f.File.UploadType),
			GetURL:           f.GetURL,
		})
	}
	return GetDocumentResponse{
		Document:   DocumentResponseFromModel(result.Document),
		Recipients: recipients,
		Files:      files,
		ExpiresIn:  expiresIn,
	}
}

// ListDocumentsResponse : ответ API со списком документов
type ListDocumentsResponse struct {
	Data struct {
		Docs []DocumentResponse `json:"docs"`
	} `json:"data"`
	NextCursor string `json:"next_cursor,omitempty"`
	Count      int    `json:"count" example:"10"`
}

// PublishDocumentResponse : токен публичной ссылки
type PublishDocumentResponse struct {
	Token     string `json:"token" example:"9f8d7c6b5a..."`
	PublicURL string `json:"public_url" example:"/public/docs/9f8d7c6b5a..."`
}

// ErrorResponse : общий объект ошибки
type ErrorResponse struct {
	Code int    `json:"code" example:"400"`
	Text string `json:"text" example:"описание ошибки"`
}

// SuccessResponse : стандартный ответ успешного выполнения операции
type SuccessResponse struct {
	Message string `json:"message" example:"Операция выполнена успешно"`
}
