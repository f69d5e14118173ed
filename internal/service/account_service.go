package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/mapper"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultNotificationHistory = 20
	maxNotificationHistory     = 100
)

// AccountService serves the signed-in user's own account data
type AccountService struct {
	userRepo         *repository.UserRepository
	profileRepo      *repository.UserProfileRepository
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

func NewAccountService(
	userRepo *repository.UserRepository,
	profileRepo *repository.UserProfileRepository,
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// GetAccount returns the user with the module permissions of their profile
func (s *AccountService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.AccountDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	dto := mapper.ToAccountDTO(user, profile)
	return &dto, nil
}

// ListNotifications returns the latest email attempts for the user, newest first
func (s *AccountService) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.NotificationLogDTO, error) {
	if limit < 1 {
		limit = defaultNotificationHistory
	}
	if limit > maxNotificationHistory {
		limit = maxNotificationHistory
	}

	entries, err := s.notificationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationLogDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToNotificationLogDTO(&entries[i])
	}
	return dtos, nil
}
