package service

import (
	"Go_Share/internal/dto"
	"Go_Share/internal/repo"
	"Go_Share/internal/storage"
	"Go_Share/model"
	"Go_Share/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrInvalidShare = errors.New("invalid share")
	ErrForbidden    = errors.New("permission denied")
)

// ResourceStater is the part of storage.Source needed to validate a new share.
type ResourceStater interface {
	Stat(ctx context.Context, resourcePath string) (storage.ObjectInfo, error)
}

// ShareService is the owner side of share management.
type ShareService struct {
	store  repo.ShareStore
	source ResourceStater
	now    func() time.Time
}

func NewShareService(store repo.ShareStore, source ResourceStater) *ShareService {
	return &ShareService{store: store, source: source, now: time.Now}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidShare, fmt.Sprintf(format, args...))
}

// CreateShare validates the request against the resource and persists a new share.
func (s *ShareService) CreateShare(ctx context.Context, ownerID uint64, req dto.CreateShareRequest) (*model.ShareRecord, error) {
	shareType, err := model.ParseShareType(req.Type)
	if err != nil {
		return nil, invalid("%v", err)
	}

	resourcePath := strings.TrimSpace(req.ResourcePath)
	if !storage.IsObjectPath(resourcePath) {
		resourcePath = storage.NormalizeRelPath(resourcePath)
	}
	info, err := s.source.Stat(ctx, resourcePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrOutsideRoot) {
			return nil, invalid("resource %q not found", req.ResourcePath)
		}
		if errors.Is(err, storage.ErrUnsupported) {
			return nil, invalid("resource %q is not available", req.ResourcePath)
		}
		return nil, err
	}

	switch shareType {
	case model.ShareTypeUpload:
		if !info.IsDir {
			return nil, invalid("upload shares need a directory")
		}
		if storage.IsObjectPath(resourcePath) {
			return nil, invalid("upload shares need a local directory")
		}
	case model.ShareTypeEdit:
		if info.IsDir {
			return nil, invalid("edit shares need a single file")
		}
	case model.ShareTypeDownload:
	}

	if shareType != model.ShareTypeUpload &&
		(req.MaxFileSizeBytes > 0 || req.MaxTotalSizeBytes > 0 || len(req.AllowedExtensions) > 0) {
		return nil, invalid("upload limits only apply to upload shares")
	}
	if shareType != model.ShareTypeEdit && req.Editable {
		return nil, invalid("only edit shares can be editable")
	}

	bad := lo.Filter(req.AllowedExtensions, func(ext string, _ int) bool {
		n := model.NormalizeExtension(ext)
		return n == "" || strings.ContainsAny(n, `./\, `)
	})
	if len(bad) > 0 {
		return nil, invalid("invalid extensions: %s", strings.Join(bad, ", "))
	}

	token, err := utils.NewShareToken()
	if err != nil {
		return nil, err
	}
	share := &model.ShareRecord{
		ID:                uuid.NewString(),
		Token:             token,
		ResourcePath:      resourcePath,
		OwnerID:           ownerID,
		Type:              shareType,
		MaxAccessCount:    req.MaxAccessCount,
		IsActive:          true,
		RequireLogin:      req.RequireLogin,
		Editable:          req.Editable,
		MaxFileSizeBytes:  req.MaxFileSizeBytes,
		AllowedExtensions: model.NewExtensionSet(req.AllowedExtensions),
		MaxTotalSizeBytes: req.MaxTotalSizeBytes,
	}

	now := s.now()
	switch {
	case req.ExpiresAt != nil:
		if !req.ExpiresAt.After(now) {
			return nil, invalid("expires_at must be in the future")
		}
		expiresAt := *req.ExpiresAt
		share.ExpiresAt = &expiresAt
	case req.ExpireDays > 0:
		expiresAt := now.Add(time.Duration(req.ExpireDays) * 24 * time.Hour)
		share.ExpiresAt = &expiresAt
	}

	if req.Password != "" {
		hash, err := utils.GetPwd(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		share.PasswordHash = hash
	}

	if err := s.store.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// ListShares returns one page of the owner's shares, newest first, and the total.
func (s *ShareService) ListShares(ctx context.Context, ownerID uint64, page, pageSize int) ([]model.ShareRecord, int, error) {
	shares, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	return lo.Slice(shares, start, start+pageSize), len(shares), nil
}

// Owned returns the share when it belongs to ownerID.
func (s *ShareService) Owned(ctx context.Context, ownerID uint64, id string) (*model.ShareRecord, error) {
	share, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if share.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return share, nil
}

// Deactivate makes every further operation on the share fail.
func (s *ShareService) Deactivate(ctx context.Context, ownerID uint64, id string) error {
	if _, err := s.Owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.Deactivate(ctx, id)
}

// Delete removes the record only; the shared resource is untouched.
func (s *ShareService) Delete(ctx context.Context, ownerID uint64, id string) error {
	if _, err := s.Owned(ctx, ownerID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}
