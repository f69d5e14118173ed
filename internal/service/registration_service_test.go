package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/identity"
	"github.com/haliqo/haliqo-api/internal/session"
	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationService_ValidateStep_FieldErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		step      int
		mutate    func(f *domain.RegistrationForm)
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing first name",
			step:      1,
			mutate:    func(f *domain.RegistrationForm) { f.FirstName = "  " },
			wantField: "firstName",
			wantMsg:   "Ce champ est obligatoire",
		},
		{
			name:      "invalid email",
			step:      1,
			mutate:    func(f *domain.RegistrationForm) { f.Email = "not-an-email" },
			wantField: "email",
			wantMsg:   "Adresse e-mail invalide",
		},
		{
			name:      "short password",
			step:      1,
			mutate:    func(f *domain.RegistrationForm) { f.Password, f.ConfirmPassword = "court", "court" },
			wantField: "password",
			wantMsg:   "Le mot de passe doit contenir au moins 8 caractères",
		},
		{
			name:      "password mismatch",
			step:      1,
			mutate:    func(f *domain.RegistrationForm) { f.ConfirmPassword = "autrechose1" },
			wantField: "confirmPassword",
			wantMsg:   "Les mots de passe ne correspondent pas",
		},
		{
			name:      "invalid phone",
			step:      1,
			mutate:    func(f *domain.RegistrationForm) { f.Phone = "04-70-AB" },
			wantField: "phone",
		},
		{
			name:      "country name instead of code",
			step:      2,
			mutate:    func(f *domain.RegistrationForm) { f.Country = "France" },
			wantField: "country",
			wantMsg:   "Code pays invalide (ISO 3166-1, ex. BE ou FR)",
		},
		{
			name:      "unknown country code",
			step:      2,
			mutate:    func(f *domain.RegistrationForm) { f.Country = "XX" },
			wantField: "country",
		},
		{
			name:      "no profession",
			step:      2,
			mutate:    func(f *domain.RegistrationForm) { f.Professions = nil },
			wantField: "professions",
			wantMsg:   "Sélectionnez au moins un métier",
		},
		{
			name:      "terms not accepted",
			step:      3,
			mutate:    func(f *domain.RegistrationForm) { f.AcceptTerms = false },
			wantField: "acceptTerms",
			wantMsg:   "Vous devez accepter les conditions générales",
		},
		{
			name:      "unknown billing cycle",
			step:      3,
			mutate:    func(f *domain.RegistrationForm) { f.BillingCycle = "weekly" },
			wantField: "billingCycle",
		},
		{
			name:      "plan not in catalog",
			step:      3,
			mutate:    func(f *domain.RegistrationForm) { f.SelectedPlan = "enterprise" },
			wantField: "selectedPlan",
			wantMsg:   msgPlanNotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)

			result, err := env.registration.ValidateStep(ctx, tt.step, form)
			require.NoError(t, err)
			assert.False(t, result.Valid())
			require.Contains(t, result.Errors, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, result.Errors[tt.wantField])
			}
		})
	}
}

func TestRegistrationService_ValidateStep_OnlyChecksStepFields(t *testing.T) {
	env := newTestEnv(t)

	form := validForm()
	form.CompanyName = ""
	form.SelectedPlan = ""

	result, err := env.registration.ValidateStep(context.Background(), 1, form)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "step 1 ignores company and plan fields: %v", result.Errors)
	assert.False(t, result.Resuming)
}

func TestRegistrationService_ValidateStep_CountryCodeIsUppercased(t *testing.T) {
	env := newTestEnv(t)

	form := validForm()
	form.Country = " be "

	result, err := env.registration.ValidateStep(context.Background(), 2, form)
	require.NoError(t, err)
	assert.True(t, result.Valid(), "%v", result.Errors)
}

func TestRegistrationService_ValidateStep_UnknownStep(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.registration.ValidateStep(context.Background(), 4, validForm())
	require.NoError(t, err)
	assert.Contains(t, result.Errors, "step")
}

func TestRegistrationService_ValidateStep_EmailClassification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	completed := testutil.CreateTestUser(t, env.db, "done@example.com")
	_, err := env.userRepo.MarkRegistrationCompleted(ctx, completed.ID)
	require.NoError(t, err)

	abandoned := testutil.CreateTestUser(t, env.db, "marie@example.com")
	require.NoError(t, env.companyRepo.Upsert(ctx, &domain.CompanyProfile{
		UserID:      abandoned.ID,
		CompanyName: "Dupont Électricité",
		City:        "Bruxelles",
		Country:     "BE",
	}))

	t.Run("available", func(t *testing.T) {
		form := validForm()
		form.Email = "new@example.com"
		result, err := env.registration.ValidateStep(ctx, 1, form)
		require.NoError(t, err)
		assert.True(t, result.Valid())
		assert.False(t, result.Resuming)
		assert.Nil(t, result.Prefill)
	})

	t.Run("completed account is rejected", func(t *testing.T) {
		form := validForm()
		form.Email = "  DONE@example.com "
		result, err := env.registration.ValidateStep(ctx, 1, form)
		require.NoError(t, err)
		assert.Equal(t, msgEmailRegistered, result.Errors["email"])
		assert.False(t, result.Resuming)
	})

	t.Run("incomplete account resumes with prefill", func(t *testing.T) {
		result, err := env.registration.ValidateStep(ctx, 1, validForm())
		require.NoError(t, err)
		assert.True(t, result.Valid())
		assert.True(t, result.Resuming)
		require.NotNil(t, result.Prefill)
		assert.Equal(t, "Jean", result.Prefill.FirstName)
		assert.Equal(t, "Dupont Électricité", result.Prefill.CompanyName)
		assert.Equal(t, "BE", result.Prefill.Country)
		assert.Empty(t, result.Prefill.Password)
	})

	status, err := env.registration.CheckEmail(ctx, "done@example.com")
	require.NoError(t, err)
	assert.Equal(t, EmailRegistered, status)
}

func TestRegistrationService_Submit_NewUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	identityID := uuid.New()
	env.identity.signUpID = identityID
	require.NoError(t, env.sessions.MarkEmailVerified(ctx, "marie@example.com", time.Now()))

	result, err := env.registration.Submit(ctx, validForm())
	require.NoError(t, err)

	assert.Equal(t, identityID, result.UserID)
	assert.False(t, result.Resumed)
	assert.NotEmpty(t, result.CheckoutSessionID)
	assert.True(t, strings.HasPrefix(result.CheckoutURL, "https://checkout.stripe.com/"))

	require.Len(t, env.identity.signUps, 1)
	assert.True(t, env.identity.signUps[0].EmailConfirmed)
	assert.Empty(t, env.identity.signIns)

	user, err := env.userRepo.GetByID(ctx, identityID)
	require.NoError(t, err)
	assert.Equal(t, "marie@example.com", user.Email)
	assert.Equal(t, domain.SubscriptionStatusPending, user.SubscriptionStatus)
	assert.False(t, user.RegistrationCompleted)

	company, err := env.companyRepo.GetByUserID(ctx, identityID)
	require.NoError(t, err)
	assert.Equal(t, "Dupont Électricité", company.CompanyName)

	require.Len(t, env.gateway.checkouts, 1)
	params := env.gateway.checkouts[0]
	assert.Equal(t, "price_pro_monthly", params.PriceID)
	assert.Equal(t, int64(14), params.TrialDays)
	assert.Equal(t, "https://app.haliqo.com/registration/success?session_id={CHECKOUT_SESSION_ID}", params.SuccessURL)
	assert.Equal(t, identityID.String(), params.Metadata[billing.MetaUserID])
	assert.Equal(t, "Dupont Électricité", params.Metadata[billing.MetaCompanyName])

	state, err := env.sessions.Get(ctx, session.RegistrationKey(identityID))
	require.NoError(t, err)
	assert.True(t, state.Pending)
	assert.Equal(t, result.CheckoutSessionID, state.CheckoutSessionID)
}

func TestRegistrationService_Submit_RequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registration.Submit(context.Background(), validForm())

	var stepErr *StepValidationError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Step)
	assert.Equal(t, msgEmailNotVerified, stepErr.Errors["email"])
	assert.Empty(t, env.identity.signUps)
	assert.Empty(t, env.gateway.checkouts)
}

func TestRegistrationService_Submit_InvalidStepStopsEarly(t *testing.T) {
	env := newTestEnv(t)

	form := validForm()
	form.City = ""

	_, err := env.registration.Submit(context.Background(), form)

	var stepErr *StepValidationError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 2, stepErr.Step)
	assert.Contains(t, stepErr.Errors, "city")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegistrationService_Submit_IdentityAlreadyRegistered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.identity.signUpErr = identity.ErrAlreadyRegistered
	require.NoError(t, env.sessions.MarkEmailVerified(ctx, "marie@example.com", time.Now()))

	_, err := env.registration.Submit(ctx, validForm())
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered, "a foreign identity is not taken over")
	assert.Empty(t, env.gateway.checkouts)
}

func TestRegistrationService_Submit_RecoversOrphanIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A previous submit created the identity, then failed before the users row was written.
	orphanID := uuid.New()
	env.identity.signUpErr = identity.ErrAlreadyRegistered
	env.identity.accounts["marie@example.com"] = orphanID
	env.identity.passwords["marie@example.com"] = "motdepasse1"
	require.NoError(t, env.sessions.MarkEmailVerified(ctx, "marie@example.com", time.Now()))

	result, err := env.registration.Submit(ctx, validForm())
	require.NoError(t, err)
	assert.Equal(t, orphanID, result.UserID)
	assert.Equal(t, []string{"marie@example.com"}, env.identity.signIns)
	assert.Equal(t, "Marie", env.identity.metadata[orphanID]["first_name"])

	user, err := env.userRepo.GetByID(ctx, orphanID)
	require.NoError(t, err)
	assert.Equal(t, "BE", user.Country)
	require.Len(t, env.gateway.checkouts, 1)
}

func TestRegistrationService_Submit_IdentityDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.identity.signUpErr = identity.ErrUnavailable
	require.NoError(t, env.sessions.MarkEmailVerified(ctx, "marie@example.com", time.Now()))

	_, err := env.registration.Submit(ctx, validForm())
	assert.ErrorIs(t, err, ErrRemoteService)
}

func TestRegistrationService_Submit_Resume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	existing := testutil.CreateTestUser(t, env.db, "marie@example.com")
	env.identity.accounts["marie@example.com"] = existing.ID
	env.identity.passwords["marie@example.com"] = "motdepasse1"

	result, err := env.registration.Submit(ctx, validForm())
	require.NoError(t, err)

	assert.True(t, result.Resumed)
	assert.Equal(t, existing.ID, result.UserID)
	assert.Empty(t, env.identity.signUps, "resuming never creates a second identity")
	assert.Equal(t, []string{"marie@example.com"}, env.identity.signIns)
	assert.Equal(t, "Marie", env.identity.metadata[existing.ID]["first_name"])

	user, err := env.userRepo.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marie", user.FirstName, "resubmitted data overwrites the saved row")
}

func TestRegistrationService_Submit_ResumeWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	existing := testutil.CreateTestUser(t, env.db, "marie@example.com")
	env.identity.accounts["marie@example.com"] = existing.ID
	env.identity.passwords["marie@example.com"] = "un-autre-mot"

	_, err := env.registration.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrResumeCredentialsMismatch)
	assert.Empty(t, env.gateway.checkouts)
}

func TestRegistrationService_Submit_CheckoutFailureClearsMarker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	identityID := uuid.New()
	env.identity.signUpID = identityID
	env.gateway.createErr = errors.New("stripe unavailable")
	require.NoError(t, env.sessions.MarkEmailVerified(ctx, "marie@example.com", time.Now()))

	_, err := env.registration.Submit(ctx, validForm())
	assert.ErrorIs(t, err, ErrCheckoutInitFailed)

	_, err = env.sessions.Get(ctx, session.RegistrationKey(identityID))
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The saved rows stay so the user can resume
	_, err = env.userRepo.GetByID(ctx, identityID)
	assert.NoError(t, err)
}

func TestRegistrationService_Status(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "marie@example.com")
	require.NoError(t, env.sessions.Put(ctx, session.RegistrationKey(user.ID), &session.State{
		UserID:            user.ID,
		Pending:           true,
		CheckoutSessionID: "cs_test_123",
	}))

	status, err := env.registration.Status(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, status.Pending)
	assert.False(t, status.Completed)
	assert.Equal(t, "cs_test_123", status.CheckoutSessionID)

	_, err = env.registration.Status(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
