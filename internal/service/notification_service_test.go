package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_TemplateResolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	env.seedTemplate(t, domain.NotificationTrialStarted, "fr", "Essai démarré (fr)", "<p>fr</p>")
	env.seedTemplate(t, domain.NotificationTrialStarted, "en", "Trial started (en)", "<p>en</p>")

	send := func(lang string) string {
		t.Helper()
		before := len(env.sender.sent())
		require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
			Type:     domain.NotificationTrialStarted,
			UserID:   &user.ID,
			Language: lang,
		}))
		sent := env.sender.sent()
		require.Len(t, sent, before+1)
		return sent[len(sent)-1].Subject
	}

	assert.Equal(t, "Trial started (en)", send("en"))
	assert.Equal(t, "Essai démarré (fr)", send("nl"), "missing language falls back to the French default")

	own := &domain.EmailTemplate{
		UserID:       &user.ID,
		TemplateType: domain.NotificationTrialStarted,
		Language:     "en",
		Subject:      "My own template",
		HTMLContent:  "<p>own</p>",
		IsActive:     true,
	}
	require.NoError(t, env.templateRepo.Create(ctx, own))
	assert.Equal(t, "My own template", send("en"), "a user's template wins over the defaults")
}

func TestNotificationService_AnyActiveTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.templateRepo.Create(ctx, &domain.EmailTemplate{
		TemplateType: domain.NotificationSubscriptionCancelled,
		Language:     "en",
		Subject:      "Cancelled",
		HTMLContent:  "<p>cancelled</p>",
		IsActive:     true,
	}))

	require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
		Type:     domain.NotificationSubscriptionCancelled,
		Email:    "someone@example.com",
		Language: "fr",
	}))
	sent := env.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Cancelled", sent[0].Subject)
}

func TestNotificationService_NoTemplate(t *testing.T) {
	env := newTestEnv(t)

	err := env.notifications.Send(context.Background(), NotificationRequest{
		Type:  domain.NotificationSubscriptionDowngraded,
		Email: "someone@example.com",
	})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Empty(t, env.sender.sent())
}

func TestNotificationService_RenderingVariables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	env.seedTemplate(t, domain.NotificationSubscriptionUpgraded, "fr",
		"{old_plan_name} → {new_plan_name}",
		"<p>Bonjour {user_name}, {new_plan_amount} ({billing_cycle}) dès le {effective_date}</p>",
	)

	effective := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
		Type:          domain.NotificationSubscriptionUpgraded,
		UserID:        &user.ID,
		OldPlanType:   "starter",
		NewPlanType:   "pro",
		BillingCycle:  domain.BillingCycleYearly,
		EffectiveDate: &effective,
		Vars:          TemplateVars{UserName: "<Jean & Co>"},
	}))

	sent := env.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Starter → Pro", sent[0].Subject)
	assert.Equal(t, "<p>Bonjour &lt;Jean &amp; Co&gt;, 699,90 € (annuel) dès le 01/06/2026</p>", sent[0].HTML)
	assert.Equal(t, "jean@example.com", sent[0].To)
}

func TestNotificationService_UnknownPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	env.seedTemplate(t, domain.NotificationTrialEnding, "fr", "Fin d'essai", "<p>{discount_code}</p>")

	err := env.notifications.Send(ctx, NotificationRequest{Type: domain.NotificationTrialEnding, UserID: &user.ID})
	assert.ErrorIs(t, err, ErrUnknownTemplateVariable)
	assert.Empty(t, env.sender.sent())

	logs, err := repository.NewNotificationRepository(env.db).ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.Contains(t, logs[0].ErrorMessage, "discount_code")
}

func TestNotificationService_DeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	env.sender.err = errors.New("relay refused")

	err := env.notifications.Send(ctx, NotificationRequest{Type: domain.NotificationWelcomeRegistration, UserID: &user.ID})
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	sent, err := env.notifications.SentSince(ctx, user.ID, domain.NotificationWelcomeRegistration, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, sent, "failed attempts do not count as delivered")
}

func TestNotificationService_RecipientRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	missing := uuid.New()
	err := env.notifications.Send(ctx, NotificationRequest{Type: domain.NotificationWelcomeRegistration, UserID: &missing})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.notifications.Send(ctx, NotificationRequest{Type: domain.NotificationWelcomeRegistration})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = env.notifications.Send(ctx, NotificationRequest{Type: "newsletter", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// An unknown user id still reaches an explicit address
	require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
		Type:   domain.NotificationWelcomeRegistration,
		UserID: &missing,
		Email:  "Direct@Example.com",
	}))
	assert.Equal(t, "direct@example.com", env.sender.sent()[0].To)
}

func TestNotificationService_LanguagePreference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	require.NoError(t, env.db.Model(user).Update("language", "nl").Error)

	require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
		Type:           domain.NotificationWelcomeRegistration,
		UserID:         &user.ID,
		AcceptLanguage: "en-US,en;q=0.9",
	}))
	require.NoError(t, env.notifications.Send(ctx, NotificationRequest{
		Type:     domain.NotificationWelcomeRegistration,
		UserID:   &user.ID,
		Language: "en",
	}))

	sent := env.sender.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Welkom bij Haliqo, Jean Dupont!", sent[0].Subject, "the saved language beats Accept-Language")
	assert.Equal(t, "Welcome to Haliqo, Jean Dupont!", sent[1].Subject, "an explicit language beats the saved one")
}

func TestNegotiateLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "fr"},
		{"en-US,en;q=0.9", "en"},
		{"nl-BE,nl;q=0.8,fr;q=0.5", "nl"},
		{"fr-FR", "fr"},
		{"ja-JP", "fr"},
		{";;;garbage", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, NegotiateLanguage(tt.header))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	amount := centsToAmount(6999)
	assert.Equal(t, "69,99 €", formatAmount(amount, "EUR", "fr"))
	assert.Equal(t, "69,99 €", formatAmount(amount, "eur", "nl"))
	assert.Equal(t, "€69.99", formatAmount(amount, "EUR", "en"))
	assert.Equal(t, "69,99 CHF", formatAmount(amount, "CHF", "fr"))
}
