package model

import "time"

const NotificationShareUpload = "share_upload"

type Notification struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	UserID uint64 `gorm:"column:user_id;not null;index" json:"user_id"`

	Type     string `gorm:"column:type;size:32;not null" json:"type"`
	Title    string `gorm:"column:title;size:255;not null" json:"title"`
	Message  string `gorm:"column:message;type:text" json:"message"`
	Link     string `gorm:"column:link;size:1024" json:"link"`
	Metadata string `gorm:"column:metadata;type:text" json:"metadata"` // json

	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Notification) TableName() string {
	return "notification"
}
