package service

import (
	"Go_Share/internal/worker"
	"Go_Share/model"
	"context"
	"encoding/json"
)

type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}

// AuditService writes upload audit rows.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

type uploadAuditDetails struct {
	FileName   string `json:"fileName"`
	Size       int64  `json:"size"`
	Source     string `json:"source"`
	ShareToken string `json:"shareToken"`
	ShareOwner string `json:"shareOwner,omitempty"`
}

func (s *AuditService) RecordUpload(ctx context.Context, entry worker.UploadAudit) error {
	details, err := json.Marshal(uploadAuditDetails{
		FileName:   entry.FileName,
		Size:       entry.Size,
		Source:     "share_upload",
		ShareToken: entry.ShareToken,
		ShareOwner: entry.ShareOwner,
	})
	if err != nil {
		return err
	}
	return s.store.Create(ctx, &model.AuditLog{
		ActorID:      entry.ActorID,
		ClientIP:     entry.ClientIP,
		EventType:    model.AuditEventFileUpload,
		ResourcePath: entry.ResourcePath,
		Details:      string(details),
	})
}
