package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/logger"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingWebhookService applies verified billing provider events
type BillingWebhookService struct {
	gateway    billing.Gateway
	completion *CompletionService
	userRepo   *repository.UserRepository
	subRepo    *repository.SubscriptionRepository
	logger     *zap.Logger
}

// NewBillingWebhookService creates a new BillingWebhookService instance
func NewBillingWebhookService(
	gateway billing.Gateway,
	completion *CompletionService,
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	logger *zap.Logger,
) *BillingWebhookService {
	return &BillingWebhookService{
		gateway:    gateway,
		completion: completion,
		userRepo:   userRepo,
		subRepo:    subRepo,
		logger:     logger,
	}
}

// HandleWebhook verifies the payload signature and dispatches the event.
// Unknown event types are acknowledged without action.
func (s *BillingWebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	return event, s.HandleEvent(ctx, event)
}

// HandleEvent applies one parsed event
func (s *BillingWebhookService) HandleEvent(ctx context.Context, event *billing.Event) error {
	log := logger.WithBillingEvent(s.logger, event.ID, event.Type)

	switch event.Type {
	case billing.EventCheckoutSessionCompleted, billing.EventCheckoutAsyncSucceeded:
		result, err := s.gateway.GetCheckoutResult(ctx, event.CheckoutSessionID)
		if err != nil {
			return fmt.Errorf("failed to retrieve checkout session: %w", err)
		}
		_, err = s.completion.Complete(ctx, result)
		if errors.Is(err, ErrCheckoutNotPaid) {
			// Delayed payment methods settle later with an async_payment_succeeded event.
			log.Info("Checkout completed without settled payment",
				zap.String("checkout_session_id", event.CheckoutSessionID),
			)
			return nil
		}
		return err

	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		if event.Subscription == nil {
			log.Warn("Subscription event without payload")
			return nil
		}
		return s.applySubscriptionUpdate(ctx, event.Type, event.Subscription)

	case billing.EventInvoicePaymentFailed:
		return s.markPastDue(ctx, event.CustomerID)

	default:
		log.Debug("Ignoring unhandled billing event")
		return nil
	}
}

func (s *BillingWebhookService) applySubscriptionUpdate(ctx context.Context, eventType string, update *billing.SubscriptionUpdate) error {
	sub, err := s.subRepo.GetByStripeSubscriptionID(ctx, update.SubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The checkout has not been completed yet; completion will record the state.
		s.logger.Info("Subscription event for unknown subscription",
			zap.String("stripe_subscription_id", update.SubscriptionID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	status := MapSubscriptionStatus(update.Status)
	if eventType == billing.EventSubscriptionDeleted {
		status = domain.SubscriptionStatusCancelled
	}

	fields := map[string]interface{}{
		"status":               status,
		"cancel_at_period_end": update.CancelAtPeriodEnd,
	}
	if t := epochTime(update.PeriodStart); t != nil {
		fields["current_period_start"] = t
	}
	if t := epochTime(update.PeriodEnd); t != nil {
		fields["current_period_end"] = t
	}
	if t := epochTime(update.TrialEnd); t != nil {
		fields["trial_end"] = t
	}
	if err := s.subRepo.UpdateFields(ctx, sub.ID, fields); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if err := s.userRepo.UpdateSubscriptionStatus(ctx, sub.UserID, status); err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	s.logger.Info("Subscription updated from billing event",
		zap.String("user_id", sub.UserID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *BillingWebhookService) markPastDue(ctx context.Context, customerID string) error {
	if customerID == "" {
		return nil
	}
	user, err := s.userRepo.GetByStripeCustomerID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Info("Payment failure for unknown customer", zap.String("stripe_customer_id", customerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	sub, err := s.subRepo.GetByUserID(ctx, user.ID)
	switch {
	case err == nil:
		if err := s.subRepo.UpdateFields(ctx, sub.ID, map[string]interface{}{"status": domain.SubscriptionStatusPastDue}); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to get subscription: %w", err)
	}

	if err := s.userRepo.UpdateSubscriptionStatus(ctx, user.ID, domain.SubscriptionStatusPastDue); err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	s.logger.Warn("Subscription payment failed", zap.String("user_id", user.ID.String()))
	return nil
}

// MapSubscriptionStatus maps a provider subscription status to the account status
func MapSubscriptionStatus(providerStatus string) domain.SubscriptionStatus {
	switch providerStatus {
	case billing.SubscriptionStatusTrialing:
		return domain.SubscriptionStatusTrial
	case billing.SubscriptionStatusActive:
		return domain.SubscriptionStatusActive
	case billing.SubscriptionStatusPastDue, billing.SubscriptionStatusUnpaid:
		return domain.SubscriptionStatusPastDue
	case billing.SubscriptionStatusCanceled:
		return domain.SubscriptionStatusCancelled
	default:
		return domain.SubscriptionStatusPending
	}
}
