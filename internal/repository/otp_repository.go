package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OTPRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Replace stores a fresh code for the email, resetting attempts
func (r *OTPRepository) Replace(ctx context.Context, otp *domain.EmailVerificationOTP) error {
	otp.Attempts = 0
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "attempts", "updated_at"}),
	}).Create(otp).Error
}

func (r *OTPRepository) GetByEmail(ctx context.Context, email string) (*domain.EmailVerificationOTP, error) {
	var otp domain.EmailVerificationOTP
	err := r.db.WithContext(ctx).First(&otp, "email = ?", domain.NormalizeEmail(email)).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	err := r.db.WithContext(ctx).Model(&domain.EmailVerificationOTP{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
	if err != nil {
		return 0, err
	}
	var otp domain.EmailVerificationOTP
	if err := r.db.WithContext(ctx).Select("attempts").First(&otp, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return otp.Attempts, nil
}

func (r *OTPRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.EmailVerificationOTP{}, "id = ?", id).Error
}

// DeleteExpired removes codes that expired before now
func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.EmailVerificationOTP{})
	return result.RowsAffected, result.Error
}
