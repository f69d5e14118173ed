package service

import (
	"context"
	"fmt"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
)

// trialReminderLookback bounds the dedup search when a subscription has no
// recorded trial start.
const trialReminderLookback = 30 * 24 * time.Hour

// TrialReminderService warns trialing users before their trial ends
type TrialReminderService struct {
	subRepo       *repository.SubscriptionRepository
	notifications *NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewTrialReminderService creates a new TrialReminderService instance
func NewTrialReminderService(subRepo *repository.SubscriptionRepository, notifications *NotificationService, logger *zap.Logger) *TrialReminderService {
	return &TrialReminderService{
		subRepo:       subRepo,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// SendTrialEndingReminders sends one trial_ending email to every subscription
// whose trial ends within the next withinDays days. Users already reminded
// during the current trial are skipped. A failing send does not stop the run.
func (s *TrialReminderService) SendTrialEndingReminders(ctx context.Context, withinDays int) (sent int, failed int, err error) {
	now := s.now().UTC()
	subs, err := s.subRepo.ListTrialsEndingBetween(ctx, now, now.AddDate(0, 0, withinDays))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list ending trials: %w", err)
	}

	for i := range subs {
		sub := &subs[i]
		log := s.logger.With(zap.String("user_id", sub.UserID.String()), zap.String("subscription_id", sub.ID.String()))

		since := now.Add(-trialReminderLookback)
		if sub.TrialStart != nil {
			since = *sub.TrialStart
		}
		already, err := s.notifications.SentSince(ctx, sub.UserID, domain.NotificationTrialEnding, since)
		if err != nil {
			log.Warn("Failed to check previous trial reminder", zap.Error(err))
			failed++
			continue
		}
		if already {
			continue
		}

		userID := sub.UserID
		if err := s.notifications.Send(ctx, NotificationRequest{
			Type:         domain.NotificationTrialEnding,
			UserID:       &userID,
			PlanType:     sub.PlanType,
			BillingCycle: sub.Interval,
			TrialEnd:     sub.TrialEnd,
		}); err != nil {
			log.Warn("Failed to send trial reminder", zap.Error(err))
			failed++
			continue
		}
		sent++
	}
	return sent, failed, nil
}
