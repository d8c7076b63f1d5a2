package entity

import "time"

// AuditLog est un journal en append-only. Chaque mutation du module pièces
// écrit un enregistrement dans la même transaction que la mutation.
type AuditLog struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	UserID     string    `json:"user_id" gorm:"size:32;index"`
	Action     string    `json:"action" gorm:"size:64;not null"`
	EntityType string    `json:"entity_type" gorm:"size:32;not null;index"`
	EntityID   string    `json:"entity_id" gorm:"size:32;index"`
	Details    JSONB     `json:"details" gorm:"type:jsonb"`
	IP         string    `json:"ip" gorm:"size:64"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
