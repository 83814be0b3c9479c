package repo

import (
	"Go_Share/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrShareNotFound is returned when no share record matches.
var ErrShareNotFound = errors.New("share not found")

// ShareStore is the authoritative persisted state of share records.
//
// IncrementAccess and AddUpload are single atomic "add to counters"
// operations; implementations must never read, modify, then write.
type ShareStore interface {
	Create(ctx context.Context, share *model.ShareRecord) error
	GetByToken(ctx context.Context, token string) (*model.ShareRecord, error)
	GetByID(ctx context.Context, id string) (*model.ShareRecord, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.ShareRecord, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	IncrementAccess(ctx context.Context, id string) error
	AddUpload(ctx context.Context, id string, deltaBytes int64) error
}

// GormShareStore keeps share records in MySQL.
type GormShareStore struct {
	db *gorm.DB
}

// NewGormShareStore builds a ShareStore on a gorm handle.
func NewGormShareStore(db *gorm.DB) *GormShareStore {
	return &GormShareStore{db: db}
}

// Create inserts a new share record.
func (s *GormShareStore) Create(ctx context.Context, share *model.ShareRecord) error {
	return s.db.WithContext(ctx).Create(share).Error
}

// GetByToken finds a share by its public token.
func (s *GormShareStore) GetByToken(ctx context.Context, token string) (*model.ShareRecord, error) {
	var share model.ShareRecord
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&share).Error; err != nil {
		return nil, translateErr(err)
	}
	return &share, nil
}

// GetByID finds a share by primary key.
func (s *GormShareStore) GetByID(ctx context.Context, id string) (*model.ShareRecord, error) {
	var share model.ShareRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&share).Error; err != nil {
		return nil, translateErr(err)
	}
	return &share, nil
}

// ListByOwner lists an owner's shares, newest first.
func (s *GormShareStore) ListByOwner(ctx context.Context, ownerID uint64) ([]model.ShareRecord, error) {
	var shares []model.ShareRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&shares).Error
	return shares, err
}

// Deactivate flips is_active off.
func (s *GormShareStore) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.ShareRecord{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false)
	if res.Error == nil && res.RowsAffected == 0 {
		// MySQL reports zero rows when the share was already inactive.
		var n int64
		if err := s.db.WithContext(ctx).Model(&model.ShareRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	return affected(res)
}

// Delete removes the record only; the shared file is never touched.
func (s *GormShareStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ShareRecord{})
	return affected(res)
}

// IncrementAccess adds one to access_count in the database.
func (s *GormShareStore) IncrementAccess(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.ShareRecord{}).
		Where("id = ?", id).
		UpdateColumn("access_count", gorm.Expr("access_count + ?", 1))
	return affected(res)
}

// AddUpload bumps upload_count and total_uploaded_bytes in one statement.
func (s *GormShareStore) AddUpload(ctx context.Context, id string, deltaBytes int64) error {
	res := s.db.WithContext(ctx).Model(&model.ShareRecord{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"upload_count":         gorm.Expr("upload_count + ?", 1),
			"total_uploaded_bytes": gorm.Expr("total_uploaded_bytes + ?", deltaBytes),
		})
	return affected(res)
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrShareNotFound
	}
	return nil
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrShareNotFound
	}
	return err
}
