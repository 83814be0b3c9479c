package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ShareType is the closed set of share kinds.
type ShareType string

const (
	ShareTypeDownload ShareType = "download"
	ShareTypeUpload   ShareType = "upload"
	ShareTypeEdit     ShareType = "edit"
)

// ParseShareType converts user input into a ShareType.
func ParseShareType(raw string) (ShareType, error) {
	switch ShareType(strings.ToLower(strings.TrimSpace(raw))) {
	case ShareTypeDownload:
		return ShareTypeDownload, nil
	case ShareTypeUpload:
		return ShareTypeUpload, nil
	case ShareTypeEdit:
		return ShareTypeEdit, nil
	default:
		return "", fmt.Errorf("unknown share type %q", raw)
	}
}

// ExtensionSet is a lower-case extension allowlist stored as a comma list.
// An empty set allows any extension.
type ExtensionSet []string

// NewExtensionSet normalizes, dedupes and sorts extensions ("PDF", ".pdf" -> "pdf").
func NewExtensionSet(exts []string) ExtensionSet {
	seen := make(map[string]struct{}, len(exts))
	out := make(ExtensionSet, 0, len(exts))
	for _, ext := range exts {
		ext = NormalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// NormalizeExtension lower-cases an extension and strips leading dots.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// Contains reports whether ext (already normalized) is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	for _, v := range s {
		if v == ext {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer.
func (s ExtensionSet) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

// Scan implements sql.Scanner.
func (s *ExtensionSet) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported Scan value for ExtensionSet: %T", value)
	}
	if raw == "" {
		*s = nil
		return nil
	}
	*s = NewExtensionSet(strings.Split(raw, ","))
	return nil
}

type ShareRecord struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	Token string `gorm:"column:token;size:64;uniqueIndex;not null" json:"token"`

	ResourcePath string `gorm:"column:resource_path;size:1024;not null" json:"resource_path"`

	OwnerID uint64 `gorm:"column:owner_id;not null;index" json:"owner_id"`

	Type ShareType `gorm:"column:type;type:varchar(16);not null" json:"type"`

	PasswordHash   string     `gorm:"column:password_hash;size:255" json:"-"`
	ExpiresAt      *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	MaxAccessCount *int64     `gorm:"column:max_access_count" json:"max_access_count,omitempty"`
	AccessCount    int64      `gorm:"column:access_count;not null;default:0" json:"access_count"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	RequireLogin   bool       `gorm:"column:require_login;not null;default:false" json:"require_login"`
	Editable       bool       `gorm:"column:editable;not null;default:false" json:"editable"`

	MaxFileSizeBytes   int64        `gorm:"column:max_file_size_bytes;not null;default:0" json:"max_file_size_bytes"` // 0 unlimited
	AllowedExtensions  ExtensionSet `gorm:"column:allowed_extensions;type:varchar(1024)" json:"allowed_extensions"`
	MaxTotalSizeBytes  int64        `gorm:"column:max_total_size_bytes;not null;default:0" json:"max_total_size_bytes"` // 0 unlimited
	TotalUploadedBytes int64        `gorm:"column:total_uploaded_bytes;not null;default:0" json:"total_uploaded_bytes"`
	UploadCount        int64        `gorm:"column:upload_count;not null;default:0" json:"upload_count"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (ShareRecord) TableName() string {
	return "share_record"
}

// HasPassword reports whether the share is password protected.
func (s *ShareRecord) HasPassword() bool {
	return s.PasswordHash != ""
}

// IsExpired reports whether ExpiresAt has passed at now.
func (s *ShareRecord) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// RemainingBytes returns the unused total budget, or -1 when unlimited.
func (s *ShareRecord) RemainingBytes() int64 {
	if s.MaxTotalSizeBytes <= 0 {
		return -1
	}
	remaining := s.MaxTotalSizeBytes - s.TotalUploadedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}
