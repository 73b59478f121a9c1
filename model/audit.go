package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records reward payouts and other state changes worth tracing.
type AuditLog struct {
	ID          string         `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	TraceID     string         `gorm:"index:idx_audit_trace;size:36" bson:"trace_id" json:"trace_id"`
	UserID      string         `gorm:"size:36" bson:"user_id,omitempty" json:"user_id"`
	CharacterID string         `gorm:"index:idx_audit_character;size:36" bson:"character_id,omitempty" json:"character_id"`
	Action      string         `gorm:"size:64;not null" bson:"action" json:"action"`
	Detail      datatypes.JSON `bson:"detail" json:"detail"`
	Error       string         `gorm:"type:text" bson:"error,omitempty" json:"error"`
	CreatedAt   time.Time      `gorm:"index:idx_audit_created" bson:"created_at" json:"created_at"`
}
