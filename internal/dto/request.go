package dto

import "time"

type CreateShareRequest struct {
	ResourcePath string `json:"resource_path" binding:"required"`
	Type         string `json:"type" binding:"required"`
	Password     string `json:"password"`

	// ExpiresAt wins over ExpireDays when both are set.
	ExpiresAt      *time.Time `json:"expires_at"`
	ExpireDays     int        `json:"expire_days" binding:"gte=0"`
	MaxAccessCount *int64     `json:"max_access_count" binding:"omitempty,gt=0"`
	RequireLogin   bool       `json:"require_login"`
	Editable       bool       `json:"editable"`

	MaxFileSizeBytes  int64    `json:"max_file_size_bytes" binding:"gte=0"`
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxTotalSizeBytes int64    `json:"max_total_size_bytes" binding:"gte=0"`
}

type ListSharesRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
