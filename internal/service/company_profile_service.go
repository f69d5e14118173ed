package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/mapper"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allowedLogoTypes are the accepted logo content types
var allowedLogoTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// CompanyProfileService reads the default company profile and manages its logo
type CompanyProfileService struct {
	companyRepo *repository.CompanyProfileRepository
	storage     storage.Storage
	logger      *zap.Logger
}

// NewCompanyProfileService creates a new CompanyProfileService instance
func NewCompanyProfileService(companyRepo *repository.CompanyProfileRepository, store storage.Storage, logger *zap.Logger) *CompanyProfileService {
	return &CompanyProfileService{
		companyRepo: companyRepo,
		storage:     store,
		logger:      logger,
	}
}

// Get returns the default company profile of a user
func (s *CompanyProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.CompanyProfileDTO, error) {
	profile, err := s.companyRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company profile: %w", err)
	}
	dto := mapper.ToCompanyProfileDTO(profile)
	return &dto, nil
}

// UploadLogo stores a new logo and points the profile at it. The previous
// logo is removed once the profile is updated.
func (s *CompanyProfileService) UploadLogo(ctx context.Context, userID uuid.UUID, filename, contentType string, data io.Reader) (*domain.CompanyProfileDTO, error) {
	if !allowedLogoTypes[contentType] {
		return nil, fmt.Errorf("%w: unsupported logo type %q", ErrInvalidInput, contentType)
	}

	profile, err := s.companyRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company profile: %w", err)
	}

	key, size, err := s.storage.Upload(ctx, storage.Object{
		Prefix:      "logos/" + userID.String(),
		Filename:    filename,
		ContentType: contentType,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store logo: %w", err)
	}

	if err := s.companyRepo.UpdateLogoPath(ctx, userID, key); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned logo", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to save logo path: %w", err)
	}

	if old := profile.LogoPath; old != "" && old != key {
		if err := s.storage.Delete(ctx, old); err != nil {
			s.logger.Warn("Failed to remove previous logo", zap.String("key", old), zap.Error(err))
		}
	}

	s.logger.Info("Company logo uploaded",
		zap.String("user_id", userID.String()),
		zap.String("key", key),
		zap.Int64("size", size),
	)

	profile.LogoPath = key
	dto := mapper.ToCompanyProfileDTO(profile)
	return &dto, nil
}
