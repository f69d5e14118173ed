package repository

import (
	"context"

	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppSettingRepository struct {
	db *gorm.DB
}

func NewAppSettingRepository(db *gorm.DB) *AppSettingRepository {
	return &AppSettingRepository{db: db}
}

func (r *AppSettingRepository) Get(ctx context.Context, key string) (*domain.AppSetting, error) {
	var setting domain.AppSetting
	err := r.db.WithContext(ctx).Where(&domain.AppSetting{Key: key}).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *AppSettingRepository) Upsert(ctx context.Context, setting *domain.AppSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}
