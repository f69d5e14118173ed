package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail looks up a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", domain.NormalizeEmail(email)).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByStripeCustomerID looks up the user owning a billing customer
func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "stripe_customer_id = ?", customerID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertProfile inserts the user or refreshes its registration fields.
// Billing and completion columns are never touched here.
func (r *UserRepository) UpsertProfile(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name", "last_name", "phone", "vat_number", "country", "professions",
			"business_size", "selected_plan", "billing_cycle", "language", "updated_at",
		}),
	}).Create(user).Error
}

// UpsertSubscriber inserts the user or sets its billing state after payment
func (r *UserRepository) UpsertSubscriber(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_status", "trial_start", "trial_end", "stripe_customer_id",
			"stripe_subscription_id", "selected_plan", "billing_cycle", "updated_at",
		}),
	}).Create(user).Error
}

// MarkRegistrationCompleted flips the completion flag. It reports true only
// for the call that changed it, so concurrent completions agree on one winner.
func (r *UserRepository) MarkRegistrationCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND registration_completed = ?", id, false).
		Updates(map[string]interface{}{
			"registration_completed": true,
			"updated_at":             time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateSubscriptionStatus sets the account billing status
func (r *UserRepository) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status domain.SubscriptionStatus) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"updated_at":          time.Now().UTC(),
		}).Error
}

// UpdatePlan records the plan after a plan change
func (r *UserRepository) UpdatePlan(ctx context.Context, id uuid.UUID, planType string, cycle domain.BillingCycle) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"selected_plan": planType,
			"billing_cycle": cycle,
			"updated_at":    time.Now().UTC(),
		}).Error
}
