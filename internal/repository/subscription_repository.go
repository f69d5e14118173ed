package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CreateIfAbsent inserts the subscription unless the user already has one.
// A conflicting insert (duplicate or concurrent) returns the existing row.
func (r *SubscriptionRepository) CreateIfAbsent(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(sub)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return sub, true, nil
	}
	existing, err := r.GetByUserID(ctx, sub.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SubscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByStripeSubscriptionID(ctx context.Context, stripeID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).First(&sub, "stripe_subscription_id = ?", stripeID).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateFields applies a partial update to a subscription
func (r *SubscriptionRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// ListTrialsEndingBetween returns trialing subscriptions whose trial ends in [from, to)
func (r *SubscriptionRepository) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND trial_end >= ? AND trial_end < ?", domain.SubscriptionStatusTrial, from, to).
		Order("trial_end ASC").
		Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
