package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyProfileRepository struct {
	db *gorm.DB
}

func NewCompanyProfileRepository(db *gorm.DB) *CompanyProfileRepository {
	return &CompanyProfileRepository{db: db}
}

// Upsert writes the default company profile of a user keyed by user_id.
// The logo path is preserved on update.
func (r *CompanyProfileRepository) Upsert(ctx context.Context, profile *domain.CompanyProfile) error {
	profile.IsDefault = true
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"company_name", "vat_number", "address", "postal_code", "city", "state",
			"country", "phone", "email", "is_default", "updated_at",
		}),
	}).Create(profile).Error
}

func (r *CompanyProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.CompanyProfile, error) {
	var profile domain.CompanyProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateLogoPath stores the storage path of the uploaded logo
func (r *CompanyProfileRepository) UpdateLogoPath(ctx context.Context, userID uuid.UUID, path string) error {
	result := r.db.WithContext(ctx).Model(&domain.CompanyProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"logo_path":  path,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
