package dto

import (
	"Go_Share/model"
	"time"
)

// ShareResponse is returned to the share owner.
type ShareResponse struct {
	*model.ShareRecord
	HasPassword bool   `json:"has_password"`
	URL         string `json:"url,omitempty"`
}

// UploadLimits is what an uploader needs to know before opening a session.
type UploadLimits struct {
	MaxFileSizeBytes  int64    `json:"max_file_size_bytes"`
	MaxTotalSizeBytes int64    `json:"max_total_size_bytes"`
	RemainingBytes    int64    `json:"remaining_bytes"` // -1 unlimited
	AllowedExtensions []string `json:"allowed_extensions"`
	UploadURL         string   `json:"upload_url"`
}

// ProbeResponse describes a share without consuming an access.
type ProbeResponse struct {
	Type          model.ShareType `json:"type"`
	Name          string          `json:"name"`
	IsDir         bool            `json:"is_dir"`
	Size          int64           `json:"size,omitempty"`
	NeedsPassword bool            `json:"needs_password"`
	RequireLogin  bool            `json:"require_login"`
	Editable      bool            `json:"editable"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Decision      string          `json:"decision"`
	Upload        *UploadLimits   `json:"upload,omitempty"`
}

type EditResponse struct {
	Size int64 `json:"size"`
}
