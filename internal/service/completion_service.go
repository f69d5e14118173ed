package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/logger"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/session"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionResult summarizes a processed checkout
type CompletionResult struct {
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Status         domain.SubscriptionStatus
	// AlreadyCompleted is true when an earlier run finalized the registration
	AlreadyCompleted bool
}

// CompletionService turns a paid (or trialing) checkout into the account
// rows. Every step is insert-or-ignore so redelivered events are harmless.
type CompletionService struct {
	gateway         billing.Gateway
	userRepo        *repository.UserRepository
	userProfileRepo *repository.UserProfileRepository
	companyRepo     *repository.CompanyProfileRepository
	subRepo         *repository.SubscriptionRepository
	paymentRepo     *repository.PaymentRecordRepository
	notifications   *NotificationService
	sessions        session.Store
	logger          *zap.Logger
	now             func() time.Time
}

// NewCompletionService creates a new CompletionService instance
func NewCompletionService(
	gateway billing.Gateway,
	userRepo *repository.UserRepository,
	userProfileRepo *repository.UserProfileRepository,
	companyRepo *repository.CompanyProfileRepository,
	subRepo *repository.SubscriptionRepository,
	paymentRepo *repository.PaymentRecordRepository,
	notifications *NotificationService,
	sessions session.Store,
	logger *zap.Logger,
) *CompletionService {
	return &CompletionService{
		gateway:         gateway,
		userRepo:        userRepo,
		userProfileRepo: userProfileRepo,
		companyRepo:     companyRepo,
		subRepo:         subRepo,
		paymentRepo:     paymentRepo,
		notifications:   notifications,
		sessions:        sessions,
		logger:          logger,
		now:             time.Now,
	}
}

// CompleteSession fetches a checkout by id on behalf of the signed-in user
// and completes it. The checkout must have been created for that user.
func (s *CompletionService) CompleteSession(ctx context.Context, userID uuid.UUID, sessionID string) (*CompletionResult, error) {
	result, err := s.gateway.GetCheckoutResult(ctx, sessionID)
	if err != nil {
		s.logger.Error("Failed to retrieve checkout session",
			zap.String("checkout_session_id", sessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	owner, err := result.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if owner != userID {
		return nil, ErrCheckoutNotOwned
	}
	return s.Complete(ctx, result)
}

// Complete runs the completion steps in order. Steps up to the payment
// record propagate their errors; notifications are best effort. Checkouts
// the provider has not confirmed as paid or trialing are refused.
func (s *CompletionService) Complete(ctx context.Context, result *billing.CheckoutResult) (*CompletionResult, error) {
	userID, err := result.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	log := logger.WithCheckout(s.logger, result.SessionID, userID.String())

	if !result.IsSettled() {
		log.Info("Checkout not settled, completion deferred",
			zap.String("session_status", result.Status),
			zap.String("payment_status", result.PaymentStatus),
		)
		return nil, fmt.Errorf("%w: session %s, payment %s", ErrCheckoutNotPaid, result.Status, result.PaymentStatus)
	}

	status := domain.SubscriptionStatusActive
	if result.IsTrialing() {
		status = domain.SubscriptionStatusTrial
	}

	// 1. user
	user, err := s.upsertUser(ctx, userID, result, status)
	if err != nil {
		return nil, err
	}

	// 2. user profile
	if _, created, err := s.userProfileRepo.CreateIfAbsent(ctx, &domain.UserProfile{
		UserID:      userID,
		Name:        user.FullName(),
		Email:       user.Email,
		Role:        domain.ProfileRoleAdmin,
		Permissions: domain.FullAccessPermissions(),
		IsActive:    true,
	}); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	} else if created {
		log.Debug("User profile created")
	}

	// 3. company profile
	if company := companyFromMetadata(userID, user, result); company != nil {
		if err := s.companyRepo.Upsert(ctx, company); err != nil {
			return nil, fmt.Errorf("failed to save company profile: %w", err)
		}
	}

	// 4. subscription
	sub, _, err := s.subRepo.CreateIfAbsent(ctx, &domain.Subscription{
		UserID:               userID,
		PlanType:             user.SelectedPlan,
		PlanName:             DisplayPlanName(user.SelectedPlan),
		Interval:             user.BillingCycle,
		Amount:               centsToAmount(subscriptionCents(result)),
		Currency:             currencyCode(result.Currency),
		Status:               status,
		CurrentPeriodStart:   epochTime(result.PeriodStart),
		CurrentPeriodEnd:     epochTime(result.PeriodEnd),
		TrialStart:           epochTime(result.TrialStart),
		TrialEnd:             epochTime(result.TrialEnd),
		StripeSubscriptionID: result.SubscriptionID,
		StripeCustomerID:     result.CustomerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	// 5. payment record, then the completion flag
	record := &domain.PaymentRecord{
		SubscriptionID:        sub.ID,
		UserID:                userID,
		StripePaymentIntentID: result.PaymentIntentID,
		StripeInvoiceID:       result.InvoiceID,
		StripeSessionID:       result.SessionID,
		Amount:                centsToAmount(result.AmountTotal),
		Currency:              currencyCode(result.Currency),
		Status:                MapPaymentStatus(result.PaymentStatus),
	}
	if record.Status == domain.PaymentStatusSucceeded {
		paidAt := s.now().UTC()
		record.PaidAt = &paidAt
	}
	if _, _, err := s.paymentRepo.CreateIfAbsent(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}
	flipped, err := s.userRepo.MarkRegistrationCompleted(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark registration completed: %w", err)
	}

	s.markSessionCompleted(ctx, user, result.SessionID)

	// 6. notifications, only on the run that flipped the completion flag
	if flipped {
		s.sendCompletionEmails(ctx, user, sub, status)
		log.Info("Registration completed", zap.String("status", string(status)))
	} else {
		log.Info("Checkout already completed, skipping notifications")
	}

	return &CompletionResult{
		UserID:           userID,
		SubscriptionID:   sub.ID,
		Status:           sub.Status,
		AlreadyCompleted: !flipped,
	}, nil
}

func (s *CompletionService) upsertUser(ctx context.Context, userID uuid.UUID, result *billing.CheckoutResult, status domain.SubscriptionStatus) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = userFromMetadata(userID, result)
		if user.Email == "" {
			return nil, fmt.Errorf("%w: checkout has no email for unknown user", ErrInvalidInput)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if plan := result.Meta(billing.MetaPlanType); plan != "" {
		user.SelectedPlan = plan
	}
	if cycle := domain.BillingCycle(result.Meta(billing.MetaBillingCycle)); cycle.IsValid() {
		user.BillingCycle = cycle
	}
	if user.SelectedPlan == "" {
		return nil, fmt.Errorf("%w: checkout has no plan", ErrInvalidInput)
	}
	if !user.BillingCycle.IsValid() {
		user.BillingCycle = domain.BillingCycleMonthly
	}

	user.SubscriptionStatus = status
	if status == domain.SubscriptionStatusTrial {
		user.TrialStart = epochTime(result.TrialStart)
		user.TrialEnd = epochTime(result.TrialEnd)
	}
	if result.CustomerID != "" {
		user.StripeCustomerID = result.CustomerID
	}
	if result.SubscriptionID != "" {
		user.StripeSubscriptionID = result.SubscriptionID
	}

	if err := s.userRepo.UpsertSubscriber(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

func userFromMetadata(userID uuid.UUID, result *billing.CheckoutResult) *domain.User {
	lang := result.Meta(billing.MetaLanguage)
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	return &domain.User{
		ID:          userID,
		Email:       domain.NormalizeEmail(result.Meta(billing.MetaEmail)),
		FirstName:   result.Meta(billing.MetaFirstName),
		LastName:    result.Meta(billing.MetaLastName),
		Phone:       result.Meta(billing.MetaPhone),
		VATNumber:   result.Meta(billing.MetaVATNumber),
		Country:     result.Meta(billing.MetaCountry),
		Professions: []string{},
		Language:    lang,
	}
}

func companyFromMetadata(userID uuid.UUID, user *domain.User, result *billing.CheckoutResult) *domain.CompanyProfile {
	name := result.Meta(billing.MetaCompanyName)
	if name == "" {
		return nil
	}
	return &domain.CompanyProfile{
		UserID:      userID,
		CompanyName: name,
		VATNumber:   result.Meta(billing.MetaVATNumber),
		Address:     result.Meta(billing.MetaAddress),
		PostalCode:  result.Meta(billing.MetaPostalCode),
		City:        result.Meta(billing.MetaCity),
		State:       result.Meta(billing.MetaState),
		Country:     result.Meta(billing.MetaCountry),
		Phone:       user.Phone,
		Email:       user.Email,
		IsDefault:   true,
	}
}

func (s *CompletionService) markSessionCompleted(ctx context.Context, user *domain.User, checkoutSessionID string) {
	key := session.RegistrationKey(user.ID)
	if err := s.sessions.Put(ctx, key, &session.State{
		UserID:            user.ID,
		Email:             user.Email,
		Completed:         true,
		CheckoutSessionID: checkoutSessionID,
	}); err != nil {
		s.logger.Warn("Failed to update registration session", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *CompletionService) sendCompletionEmails(ctx context.Context, user *domain.User, sub *domain.Subscription, status domain.SubscriptionStatus) {
	if s.notifications == nil {
		return
	}

	subscriptionType := domain.NotificationSubscriptionActivated
	if status == domain.SubscriptionStatusTrial {
		subscriptionType = domain.NotificationTrialStarted
	}

	requests := []NotificationRequest{
		{
			Type:         subscriptionType,
			UserID:       &user.ID,
			PlanType:     sub.PlanType,
			BillingCycle: sub.Interval,
			TrialEnd:     sub.TrialEnd,
			PeriodEnd:    sub.CurrentPeriodEnd,
		},
		{
			Type:   domain.NotificationWelcomeRegistration,
			UserID: &user.ID,
		},
	}
	for _, req := range requests {
		if err := s.notifications.Send(ctx, req); err != nil {
			s.logger.Warn("Completion notification failed",
				zap.String("user_id", user.ID.String()),
				zap.String("type", string(req.Type)),
				zap.Error(err),
			)
		}
	}
}

// MapPaymentStatus maps a provider payment status to the stored one
func MapPaymentStatus(providerStatus string) domain.PaymentStatus {
	switch providerStatus {
	case billing.PaymentStatusPaid:
		return domain.PaymentStatusSucceeded
	case billing.PaymentStatusNoPaymentRequired:
		return domain.PaymentStatusTrial
	default:
		return domain.PaymentStatusPending
	}
}

// subscriptionCents prefers the recurring line item over the session total,
// which is zero during a trial.
func subscriptionCents(result *billing.CheckoutResult) int64 {
	if result.LineItemAmount != nil {
		return *result.LineItemAmount
	}
	return result.AmountTotal
}

// centsToAmount converts minor units to a decimal amount (6999 -> 69.99)
func centsToAmount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func currencyCode(currency string) string {
	if currency == "" {
		return "EUR"
	}
	return strings.ToUpper(currency)
}

func epochTime(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}
