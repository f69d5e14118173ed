package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/config"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/mapper"
	"github.com/haliqo/haliqo-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckoutRequest describes the checkout to open for a user
type CheckoutRequest struct {
	UserID       uuid.UUID
	Email        string
	CustomerID   string
	PlanType     string
	BillingCycle domain.BillingCycle
	// Form is an optional snapshot copied into the session metadata so the
	// completion webhook can rebuild the company profile.
	Form *domain.RegistrationForm
}

// CheckoutService creates hosted checkouts and manages the subscription
// lifecycle with the billing provider.
type CheckoutService struct {
	gateway       billing.Gateway
	userRepo      *repository.UserRepository
	subRepo       *repository.SubscriptionRepository
	pricing       *PricingService
	notifications *NotificationService
	cfg           *config.StripeConfig
	logger        *zap.Logger
}

// NewCheckoutService creates a new CheckoutService instance
func NewCheckoutService(
	gateway billing.Gateway,
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	pricing *PricingService,
	notifications *NotificationService,
	cfg *config.StripeConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		gateway:       gateway,
		userRepo:      userRepo,
		subRepo:       subRepo,
		pricing:       pricing,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger,
	}
}

// CreateSession opens a subscription checkout. There is no retry: any
// provider failure surfaces as ErrCheckoutInitFailed.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*billing.CheckoutSession, error) {
	if !req.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: billing cycle %q", ErrInvalidInput, req.BillingCycle)
	}
	plan, err := s.pricing.GetPlan(ctx, req.PlanType)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("user_id", req.UserID.String()),
		zap.String("plan_type", req.PlanType),
		zap.String("billing_cycle", string(req.BillingCycle)),
	)

	priceID := s.cfg.PriceID(req.PlanType, string(req.BillingCycle))
	if priceID == "" {
		log.Error("No price configured for plan")
		return nil, fmt.Errorf("%w: no price configured for %s/%s", ErrCheckoutInitFailed, req.PlanType, req.BillingCycle)
	}

	trialDays := s.cfg.TrialDays
	if plan.TrialDays > 0 {
		trialDays = int64(plan.TrialDays)
	}

	locale := ""
	if req.Form != nil {
		locale = req.Form.Language
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		PriceID:       priceID,
		CustomerEmail: req.Email,
		CustomerID:    req.CustomerID,
		UserID:        req.UserID,
		SuccessURL:    withSessionPlaceholder(s.cfg.SuccessURL),
		CancelURL:     s.cfg.CancelURL,
		TrialDays:     trialDays,
		Locale:        locale,
		Metadata:      checkoutMetadata(req),
	})
	if err != nil {
		log.Error("Checkout session creation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCheckoutInitFailed, err)
	}

	log.Info("Checkout session created", zap.String("checkout_session_id", session.ID))
	return session, nil
}

// CreateCheckoutForUser opens a checkout for an already registered user
func (s *CheckoutService) CreateCheckoutForUser(ctx context.Context, userID uuid.UUID, req *domain.CreateCheckoutRequest) (*billing.CheckoutSession, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.CreateSession(ctx, CheckoutRequest{
		UserID:       user.ID,
		Email:        user.Email,
		CustomerID:   user.StripeCustomerID,
		PlanType:     req.PlanType,
		BillingCycle: req.BillingCycle,
	})
}

func withSessionPlaceholder(successURL string) string {
	sep := "?"
	if strings.Contains(successURL, "?") {
		sep = "&"
	}
	return successURL + sep + "session_id={CHECKOUT_SESSION_ID}"
}

func checkoutMetadata(req CheckoutRequest) map[string]string {
	meta := map[string]string{
		billing.MetaUserID:       req.UserID.String(),
		billing.MetaPlanType:     req.PlanType,
		billing.MetaBillingCycle: string(req.BillingCycle),
		billing.MetaEmail:        req.Email,
	}
	if f := req.Form; f != nil {
		snapshot := map[string]string{
			billing.MetaFirstName:   f.FirstName,
			billing.MetaLastName:    f.LastName,
			billing.MetaPhone:       f.Phone,
			billing.MetaLanguage:    f.Language,
			billing.MetaCompanyName: f.CompanyName,
			billing.MetaVATNumber:   f.VATNumber,
			billing.MetaAddress:     f.Address,
			billing.MetaPostalCode:  f.PostalCode,
			billing.MetaCity:        f.City,
			billing.MetaState:       f.State,
			billing.MetaCountry:     f.Country,
		}
		for k, v := range snapshot {
			if v == "" {
				continue
			}
			meta[k] = truncateRunes(v, maxMetadataValue)
		}
	}
	return meta
}

// maxMetadataValue is the provider's limit on one metadata value, in characters
const maxMetadataValue = 500

func truncateRunes(v string, limit int) string {
	if utf8.RuneCountInString(v) <= limit {
		return v
	}
	return string([]rune(v)[:limit])
}

// CreatePortalSession returns the billing portal URL of the user
func (s *CheckoutService) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	url, err := s.gateway.CreatePortalSession(ctx, user.StripeCustomerID, s.cfg.PortalReturnURL)
	if err != nil {
		s.logger.Error("Portal session creation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return url, nil
}

// CancelSubscription schedules cancellation at the end of the current period
func (s *CheckoutService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionDTO, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, true)
}

// ReactivateSubscription revokes a scheduled cancellation
func (s *CheckoutService) ReactivateSubscription(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionDTO, error) {
	return s.setCancelAtPeriodEnd(ctx, userID, false)
}

func (s *CheckoutService) setCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) (*domain.SubscriptionDTO, error) {
	sub, err := s.getSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.StripeSubscriptionID == "" {
		return nil, ErrNoBillingAccount
	}

	if err := s.gateway.SetCancelAtPeriodEnd(ctx, sub.StripeSubscriptionID, cancel); err != nil {
		s.logger.Error("Failed to update subscription cancellation",
			zap.String("user_id", userID.String()),
			zap.Bool("cancel", cancel),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}

	if err := s.subRepo.UpdateFields(ctx, sub.ID, map[string]interface{}{"cancel_at_period_end": cancel}); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	sub.CancelAtPeriodEnd = cancel

	notificationType := domain.NotificationSubscriptionReactivated
	if cancel {
		notificationType = domain.NotificationSubscriptionCancelled
	}
	s.notify(ctx, NotificationRequest{
		Type:         notificationType,
		UserID:       &userID,
		PlanType:     sub.PlanType,
		BillingCycle: sub.Interval,
		PeriodEnd:    sub.CurrentPeriodEnd,
	})

	dto := mapper.ToSubscriptionDTO(sub)
	return &dto, nil
}

// ChangePlan moves the subscription to another plan or billing cycle and
// sends an upgrade or downgrade notification.
func (s *CheckoutService) ChangePlan(ctx context.Context, userID uuid.UUID, req *domain.ChangePlanRequest) (*domain.SubscriptionDTO, error) {
	sub, err := s.getSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.StripeSubscriptionID == "" {
		return nil, ErrNoBillingAccount
	}
	if sub.PlanType == req.PlanType && sub.Interval == req.BillingCycle {
		return nil, fmt.Errorf("%w: already on this plan", ErrInvalidInput)
	}

	plan, err := s.pricing.GetPlan(ctx, req.PlanType)
	if err != nil {
		return nil, err
	}
	priceID := s.cfg.PriceID(req.PlanType, string(req.BillingCycle))
	if priceID == "" {
		return nil, fmt.Errorf("%w: no price configured for %s/%s", ErrInvalidInput, req.PlanType, req.BillingCycle)
	}

	if err := s.gateway.ChangePrice(ctx, sub.StripeSubscriptionID, priceID); err != nil {
		s.logger.Error("Failed to change subscription price", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to change plan: %w", err)
	}

	oldPlanType := sub.PlanType
	oldAmount := sub.Amount
	newAmount := plan.Amount(req.BillingCycle)

	fields := map[string]interface{}{
		"plan_type":            req.PlanType,
		"plan_name":            DisplayPlanName(req.PlanType),
		"interval":             req.BillingCycle,
		"amount":               newAmount,
		"cancel_at_period_end": false,
	}
	if err := s.subRepo.UpdateFields(ctx, sub.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	if err := s.userRepo.UpdatePlan(ctx, userID, req.PlanType, req.BillingCycle); err != nil {
		s.logger.Warn("Failed to update user plan", zap.String("user_id", userID.String()), zap.Error(err))
	}

	sub.PlanType = req.PlanType
	sub.PlanName = DisplayPlanName(req.PlanType)
	sub.Interval = req.BillingCycle
	sub.Amount = newAmount
	sub.CancelAtPeriodEnd = false

	notificationType := domain.NotificationSubscriptionUpgraded
	if newAmount.LessThan(oldAmount) {
		notificationType = domain.NotificationSubscriptionDowngraded
	}
	s.notify(ctx, NotificationRequest{
		Type:         notificationType,
		UserID:       &userID,
		OldPlanType:  oldPlanType,
		NewPlanType:  req.PlanType,
		PlanType:     req.PlanType,
		BillingCycle: req.BillingCycle,
		PeriodEnd:    sub.CurrentPeriodEnd,
	})

	dto := mapper.ToSubscriptionDTO(sub)
	return &dto, nil
}

// GetSubscription returns the subscription of a user
func (s *CheckoutService) GetSubscription(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionDTO, error) {
	sub, err := s.getSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToSubscriptionDTO(sub)
	return &dto, nil
}

func (s *CheckoutService) notify(ctx context.Context, req NotificationRequest) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Send(ctx, req); err != nil {
		s.logger.Warn("Subscription notification failed",
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
	}
}

func (s *CheckoutService) getUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *CheckoutService) getSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}
