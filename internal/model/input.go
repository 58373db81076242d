package model

// FileInput — метаданные файла, сам файл клиент загружает по pre-signed URL
type FileInput struct {
	OriginalFilename string `json:"original_filename"`
	MimeType         string `json:"mime_type"`
	SizeBytes        int64  `json:"size_bytes"`
}

type CreateDocumentInput struct {
	Subject              string       `json:"subject"`
	Description          string       `json:"description"`
	DocumentType         DocumentType `json:"document_type"`
	TargetDepartmentID   string       `json:"target_department_id"`
	ThroughDepartmentIDs []string     `json:"through_department_ids"`
	InfoDepartmentIDs    []string     `json:"info_department_ids"`
	// OrderNumber — ручной номер; при пустом значении номер генерируется
	OrderNumber string      `json:"order_number"`
	Files       []FileInput `json:"files"`
}

type UploadSlot struct {
	File   DocumentFile `json:"file"`
	PutURL string       `json:"put_url"`
}

type CreateDocumentOutput struct {
	Document *Document    `json:"document"`
	Uploads  []UploadSlot `json:"uploads"`
}
