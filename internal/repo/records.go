package repo

import (
	"Go_Share/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrUserNotFound is returned when the owner account no longer exists.
var ErrUserNotFound = errors.New("user not found")

// UserRepo reads owner accounts.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByID returns a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AuditRepo appends audit rows.
type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// NotificationRepo stores owner notifications.
type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser returns the newest notifications of a user.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// AccessLogRepo stores share download records.
type AccessLogRepo struct {
	db *gorm.DB
}

func NewAccessLogRepo(db *gorm.DB) *AccessLogRepo {
	return &AccessLogRepo{db: db}
}

func (r *AccessLogRepo) Create(ctx context.Context, entry *model.ShareAccessLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByShare returns the latest accesses of one share.
func (r *AccessLogRepo) ListByShare(ctx context.Context, shareID string, limit int) ([]model.ShareAccessLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []model.ShareAccessLog
	err := r.db.WithContext(ctx).
		Where("share_id = ?", shareID).
		Order("accessed_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
