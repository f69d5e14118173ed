package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/session"
	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidCheckout(userID uuid.UUID) *billing.CheckoutResult {
	lineItem := int64(6999)
	now := time.Now().UTC()
	return &billing.CheckoutResult{
		SessionID:          "cs_test_paid",
		Status:             billing.CheckoutStatusComplete,
		CustomerID:         "cus_123",
		SubscriptionID:     "sub_123",
		PaymentIntentID:    "pi_123",
		InvoiceID:          "in_123",
		AmountTotal:        6999,
		LineItemAmount:     &lineItem,
		Currency:           "eur",
		PaymentStatus:      billing.PaymentStatusPaid,
		SubscriptionStatus: billing.SubscriptionStatusActive,
		PeriodStart:        now.Unix(),
		PeriodEnd:          now.AddDate(0, 1, 0).Unix(),
		Metadata: map[string]string{
			billing.MetaUserID:       userID.String(),
			billing.MetaPlanType:     "pro",
			billing.MetaBillingCycle: "monthly",
			billing.MetaEmail:        "marie@example.com",
			billing.MetaFirstName:    "Marie",
			billing.MetaLastName:     "Dupont",
			billing.MetaCompanyName:  "Dupont Électricité",
			billing.MetaCity:         "Bruxelles",
			billing.MetaCountry:      "BE",
		},
	}
}

func TestCompletionService_Complete_NewUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedTemplate(t, domain.NotificationSubscriptionActivated, "fr", "Abonnement {plan_name} activé", "<p>{plan_amount}</p>")

	userID := uuid.New()
	result, err := env.completion.Complete(ctx, paidCheckout(userID))
	require.NoError(t, err)

	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, domain.SubscriptionStatusActive, result.Status)
	assert.False(t, result.AlreadyCompleted)

	user, err := env.userRepo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "marie@example.com", user.Email)
	assert.True(t, user.RegistrationCompleted)
	assert.Equal(t, domain.SubscriptionStatusActive, user.SubscriptionStatus)
	assert.Equal(t, "cus_123", user.StripeCustomerID)

	sub, err := env.subRepo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, sub.Amount.Equal(decimal.RequireFromString("69.99")), "got %s", sub.Amount)
	assert.Equal(t, "EUR", sub.Currency)
	assert.Equal(t, "Pro", sub.PlanName)
	assert.Equal(t, "sub_123", sub.StripeSubscriptionID)
	require.NotNil(t, sub.CurrentPeriodEnd)

	record, err := env.paymentRepo.GetBySubscription(ctx, sub.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, record.Status)
	assert.True(t, record.Amount.Equal(decimal.RequireFromString("69.99")))
	assert.NotNil(t, record.PaidAt)

	company, err := env.companyRepo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Dupont Électricité", company.CompanyName)

	state, err := env.sessions.Get(ctx, session.RegistrationKey(userID))
	require.NoError(t, err)
	assert.True(t, state.Completed)

	sent := env.sender.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Abonnement Pro activé", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "69,99 €")
	assert.Equal(t, "Bienvenue sur Haliqo, Marie Dupont !", sent[1].Subject)
}

func TestCompletionService_Complete_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	checkout := paidCheckout(userID)

	first, err := env.completion.Complete(ctx, checkout)
	require.NoError(t, err)
	sentAfterFirst := len(env.sender.sent())

	second, err := env.completion.Complete(ctx, checkout)
	require.NoError(t, err)

	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)

	subs, err := env.subRepo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), subs)

	payments, err := env.paymentRepo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payments)

	assert.Len(t, env.sender.sent(), sentAfterFirst, "a redelivered checkout sends no email")
}

func TestCompletionService_Complete_Trial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing := testutil.CreateTestUser(t, env.db, "jean@example.com")
	trialStart := time.Now().UTC().Truncate(time.Second)
	trialEnd := trialStart.AddDate(0, 0, 14)

	checkout := paidCheckout(existing.ID)
	checkout.AmountTotal = 0
	checkout.PaymentStatus = billing.PaymentStatusNoPaymentRequired
	checkout.SubscriptionStatus = billing.SubscriptionStatusTrialing
	checkout.TrialStart = trialStart.Unix()
	checkout.TrialEnd = trialEnd.Unix()

	result, err := env.completion.Complete(ctx, checkout)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusTrial, result.Status)

	user, err := env.userRepo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "jean@example.com", user.Email, "existing rows keep their email")
	assert.Equal(t, domain.SubscriptionStatusTrial, user.SubscriptionStatus)
	require.NotNil(t, user.TrialEnd)
	assert.True(t, user.TrialEnd.Equal(trialEnd))

	sub, err := env.subRepo.GetByUserID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, sub.Amount.Equal(decimal.RequireFromString("69.99")), "the line item price is kept during the trial")

	record, err := env.paymentRepo.GetBySubscription(ctx, sub.ID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusTrial, record.Status)
	assert.True(t, record.Amount.IsZero())
	assert.Nil(t, record.PaidAt)
}

func TestCompletionService_Complete_RequiresSettledPayment(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		paymentStatus string
	}{
		{"payment pending", billing.CheckoutStatusComplete, billing.PaymentStatusUnpaid},
		{"session still open", "open", billing.PaymentStatusUnpaid},
		{"session expired", "expired", billing.PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			userID := uuid.New()
			checkout := paidCheckout(userID)
			checkout.Status = tt.status
			checkout.PaymentStatus = tt.paymentStatus

			_, err := env.completion.Complete(ctx, checkout)
			assert.ErrorIs(t, err, ErrCheckoutNotPaid)

			_, err = env.userRepo.GetByID(ctx, userID)
			assert.Error(t, err, "no account is provisioned before payment")
			subs, err := env.subRepo.CountByUserID(ctx, userID)
			require.NoError(t, err)
			assert.Zero(t, subs)
			assert.Empty(t, env.sender.sent())
		})
	}
}

func TestCompletionService_Complete_NotificationFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.sender.err = errors.New("smtp: connection refused")

	userID := uuid.New()
	result, err := env.completion.Complete(ctx, paidCheckout(userID))
	require.NoError(t, err)
	assert.False(t, result.AlreadyCompleted)

	user, err := env.userRepo.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, user.RegistrationCompleted)
	assert.Equal(t, domain.SubscriptionStatusActive, user.SubscriptionStatus)

	subs, err := env.subRepo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), subs)
}

func TestCompletionService_Complete_RetryAfterPartialRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := uuid.New()
	checkout := paidCheckout(userID)

	_, err := env.completion.Complete(ctx, checkout)
	require.NoError(t, err)
	sentAfterFirst := len(env.sender.sent())
	require.NotZero(t, sentAfterFirst)

	// Payment record stored but the completion flag never written.
	require.NoError(t, env.db.Model(&domain.User{}).Where("id = ?", userID).
		Update("registration_completed", false).Error)

	retry, err := env.completion.Complete(ctx, checkout)
	require.NoError(t, err)
	assert.False(t, retry.AlreadyCompleted)
	assert.Len(t, env.sender.sent(), 2*sentAfterFirst, "the run that finalizes the registration notifies")

	payments, err := env.paymentRepo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), payments)
}

func TestCompletionService_Complete_MissingUserReference(t *testing.T) {
	env := newTestEnv(t)

	checkout := paidCheckout(uuid.New())
	delete(checkout.Metadata, billing.MetaUserID)

	_, err := env.completion.Complete(context.Background(), checkout)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompletionService_CompleteSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := uuid.New()
	env.gateway.results["cs_test_paid"] = paidCheckout(owner)

	_, err := env.completion.CompleteSession(ctx, uuid.New(), "cs_test_paid")
	assert.ErrorIs(t, err, ErrCheckoutNotOwned)

	result, err := env.completion.CompleteSession(ctx, owner, "cs_test_paid")
	require.NoError(t, err)
	assert.Equal(t, owner, result.UserID)

	_, err = env.completion.CompleteSession(ctx, owner, "cs_unknown")
	assert.Error(t, err)
}

func TestMapPaymentStatus(t *testing.T) {
	assert.Equal(t, domain.PaymentStatusSucceeded, MapPaymentStatus(billing.PaymentStatusPaid))
	assert.Equal(t, domain.PaymentStatusTrial, MapPaymentStatus(billing.PaymentStatusNoPaymentRequired))
	assert.Equal(t, domain.PaymentStatusPending, MapPaymentStatus(billing.PaymentStatusUnpaid))
	assert.Equal(t, domain.PaymentStatusPending, MapPaymentStatus(""))
}

func TestCentsToAmount(t *testing.T) {
	assert.Equal(t, "69.99", centsToAmount(6999).StringFixed(2))
	assert.Equal(t, "0.00", centsToAmount(0).StringFixed(2))
	assert.Equal(t, "699.90", centsToAmount(69990).StringFixed(2))
}
