package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProfileRepository struct {
	db *gorm.DB
}

func NewUserProfileRepository(db *gorm.DB) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

// CreateIfAbsent inserts the profile unless the user already has one.
// It returns the stored row and whether this call created it.
func (r *UserProfileRepository) CreateIfAbsent(ctx context.Context, profile *domain.UserProfile) (*domain.UserProfile, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(profile)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return profile, true, nil
	}
	existing, err := r.GetByUserID(ctx, profile.UserID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *UserProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CountByUserID is used to assert the one-profile-per-user invariant
func (r *UserProfileRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.UserProfile{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
