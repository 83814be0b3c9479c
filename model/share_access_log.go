package model

import "time"

// ShareAccessLog stores satisfied downloads of public share links.
type ShareAccessLog struct {
	ID uint64 `gorm:"primaryKey"`

	ShareID string `gorm:"column:share_id;size:36;not null;index"`
	OwnerID uint64 `gorm:"column:owner_id;not null;index"`

	VisitorIP string `gorm:"column:visitor_ip;size:64;not null;default:'';index"`
	Referer   string `gorm:"column:referer;type:text"`
	UserAgent string `gorm:"column:user_agent;type:text"`

	AccessedAt time.Time `gorm:"column:accessed_at;not null;index"`
	CreatedAt  time.Time
}

// TableName returns the database table name.
func (ShareAccessLog) TableName() string {
	return "share_access_log"
}
