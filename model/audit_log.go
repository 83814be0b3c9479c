package model

import "time"

const AuditEventFileUpload = "FileUpload"

type AuditLog struct {
	ID uint64 `gorm:"primaryKey"`

	ActorID *uint64 `gorm:"column:actor_id;index"` // nil for anonymous uploads

	ClientIP     string `gorm:"column:client_ip;size:64;not null;default:''"`
	EventType    string `gorm:"column:event_type;size:32;not null;index"`
	ResourcePath string `gorm:"column:resource_path;size:1024;not null"`
	Details      string `gorm:"column:details;type:text"` // json

	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the database table name.
func (AuditLog) TableName() string {
	return "audit_log"
}
