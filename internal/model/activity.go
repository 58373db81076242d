package model

import "time"

// Журнал действий — только запись, ядро его не читает

type DocumentActivityLog struct {
	UUID         string    `db:"uuid" json:"uuid"`
	DocumentUUID string    `db:"document_uuid" json:"document_uuid"`
	ActorUUID    string    `db:"actor_uuid" json:"actor_uuid"`
	Action       string    `db:"action" json:"action"`
	Description  string    `db:"description" json:"description"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type UserActivityLog struct {
	UUID        string    `db:"uuid" json:"uuid"`
	UserUUID    string    `db:"user_uuid" json:"user_uuid"`
	ActorUUID   string    `db:"actor_uuid" json:"actor_uuid"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
