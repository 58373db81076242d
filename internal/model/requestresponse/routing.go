package requestresponse

import "document-routing-server/internal/model"

// ForwardRequest : передача документа следующему получателю
type ForwardRequest struct {
	TargetKind string     `json:"target_kind" example:"department"`
	TargetID   string     `json:"target_id" example:"dep-buh"`
	Comments   string     `json:"comments,omitempty"`
	Files      []FileMeta `json:"files,omitempty"`
}

func (r *ForwardRequest) Target() model.ForwardTarget {
	return model.ForwardTarget{Kind: model.TargetKind(r.TargetKind), ID: r.TargetID}
}

// RespondRequest : решение по документу (approved, rejected, returned)
type RespondRequest struct {
	Decision string `json:"decision" example:"approved"`
	Comments string `json:"comments,omitempty"`
}

// ResendRequest : повторная отправка возвращенного документа
type ResendRequest struct {
	TargetKind string `json:"target_kind" example:"department"`
	TargetID   string `json:"target_id" example:"dep-buh"`
	Comments   string `json:"comments,omitempty"`
}

func (r *ResendRequest) Target() model.ForwardTarget {
	return model.ForwardTarget{Kind: model.TargetKind(r.TargetKind), ID: r.TargetID}
}

// BarcodeReceiveRequest : подтверждение получения сканированием
type BarcodeReceiveRequest struct {
	Barcode string `json:"barcode" example:"OIT091525007"`
}

// BarcodeReceiveResponse : документ, получение которого подтверждено
type BarcodeReceiveResponse struct {
	Document DocumentResponse `json:"document"`
}

// ForwardResponse : слоты загрузки для сопроводительных файлов
type ForwardResponse struct {
	Uploads []UploadSlotResponse `json:"uploads,omitempty"`
}
