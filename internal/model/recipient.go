package model

import "time"

type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientForwarded RecipientStatus = "forwarded"
	RecipientReceived  RecipientStatus = "received"
	RecipientApproved  RecipientStatus = "approved"
	RecipientRejected  RecipientStatus = "rejected"
	RecipientReturned  RecipientStatus = "returned"
)

// DocumentRecipient — звено маршрутной цепочки документа (append-only журнал,
// sequence монотонно растет в пределах документа, активная запись всегда одна)
type DocumentRecipient struct {
	UUID                       string          `db:"uuid" json:"uuid"`
	DocumentUUID               string          `db:"document_uuid" json:"document_uuid"`
	Sequence                   int             `db:"sequence" json:"sequence"`
	DepartmentID               *string         `db:"department_id" json:"department_id,omitempty"`
	UserUUID                   *string         `db:"user_uuid" json:"user_uuid,omitempty"`
	ForwardedBy                *string         `db:"forwarded_by" json:"forwarded_by,omitempty"`
	FinalRecipientDepartmentID *string         `db:"final_recipient_department_id" json:"final_recipient_department_id,omitempty"`
	Status                     RecipientStatus `db:"status" json:"status"`
	IsActive                   bool            `db:"is_active" json:"is_active"`
	Comments                   *string         `db:"comments" json:"comments,omitempty"`
	RespondedAt                *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	ReceivedAt                 *time.Time      `db:"received_at" json:"received_at,omitempty"`
	ReceivedBy                 *string         `db:"received_by" json:"received_by,omitempty"`
	CreatedAt                  time.Time       `db:"created_at" json:"created_at"`
}

type TargetKind string

const (
	TargetUser       TargetKind = "user"
	TargetDepartment TargetKind = "department"
)

// ForwardTarget — адресат пересылки: либо конкретный пользователь, либо отдел
type ForwardTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func UserTarget(userUUID string) ForwardTarget {
	return ForwardTarget{Kind: TargetUser, ID: userUUID}
}

func DepartmentTarget(departmentID string) ForwardTarget {
	return ForwardTarget{Kind: TargetDepartment, ID: departmentID}
}

func (t ForwardTarget) Valid() bool {
	return t.ID != "" && (t.Kind == TargetUser || t.Kind == TargetDepartment)
}
