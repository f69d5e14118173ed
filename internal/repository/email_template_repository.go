package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"gorm.io/gorm"
)

type EmailTemplateRepository struct {
	db *gorm.DB
}

func NewEmailTemplateRepository(db *gorm.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

func (r *EmailTemplateRepository) Create(ctx context.Context, tmpl *domain.EmailTemplate) error {
	return r.db.WithContext(ctx).Create(tmpl).Error
}

// FindForUser returns the user's own active template for a type and language
func (r *EmailTemplateRepository) FindForUser(ctx context.Context, userID uuid.UUID, templateType domain.NotificationType, language string) (*domain.EmailTemplate, error) {
	var tmpl domain.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND template_type = ? AND language = ? AND is_active = ?", userID, templateType, language, true).
		Order("updated_at DESC").
		First(&tmpl).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// FindDefault returns the active system default for a type and language
func (r *EmailTemplateRepository) FindDefault(ctx context.Context, templateType domain.NotificationType, language string) (*domain.EmailTemplate, error) {
	var tmpl domain.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("template_type = ? AND language = ? AND is_default = ? AND is_active = ?", templateType, language, true, true).
		Order("updated_at DESC").
		First(&tmpl).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// FindAnyActive returns any active template of the type, system templates first
func (r *EmailTemplateRepository) FindAnyActive(ctx context.Context, templateType domain.NotificationType) (*domain.EmailTemplate, error) {
	var tmpl domain.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("template_type = ? AND is_active = ?", templateType, true).
		Order("is_default DESC").
		Order("created_at ASC").
		First(&tmpl).Error
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}
