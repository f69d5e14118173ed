package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRecordRepository struct {
	db *gorm.DB
}

func NewPaymentRecordRepository(db *gorm.DB) *PaymentRecordRepository {
	return &PaymentRecordRepository{db: db}
}

// CreateIfAbsent inserts the payment record unless one exists for the
// (subscription_id, user_id) pair.
func (r *PaymentRecordRepository) CreateIfAbsent(ctx context.Context, record *domain.PaymentRecord) (*domain.PaymentRecord, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return record, true, nil
	}
	existing, err := r.GetBySubscription(ctx, record.SubscriptionID, record.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PaymentRecordRepository) GetBySubscription(ctx context.Context, subscriptionID, userID uuid.UUID) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := r.db.WithContext(ctx).
		First(&record, "subscription_id = ? AND user_id = ?", subscriptionID, userID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *PaymentRecordRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PaymentRecord{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
