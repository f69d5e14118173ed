package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
)

// NotificationRepository stores the audit trail of notification attempts
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, entry *domain.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// HasSuccessfulSince reports whether a notification of the type was delivered
// to the user at or after since.
func (r *NotificationRepository) HasSuccessfulSince(ctx context.Context, userID uuid.UUID, notificationType domain.NotificationType, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.NotificationLog{}).
		Where("user_id = ? AND notification_type = ? AND success = ? AND sent_at >= ?", userID, notificationType, true, since).
		Count(&count).Error
	return count > 0, err
}

// ListByUser returns the latest attempts for a user
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.NotificationLog, error) {
	var entries []domain.NotificationLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
