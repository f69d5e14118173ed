package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/config"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/email"
	"github.com/haliqo/haliqo-api/internal/identity"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/session"
	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeSender records delivered messages
type fakeSender struct {
	mu       sync.Mutex
	messages []*email.Message
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg *email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sent() []*email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*email.Message(nil), f.messages...)
}

// fakeIdentity is an in-memory identity provider
type fakeIdentity struct {
	mu        sync.Mutex
	signUps   []identity.SignUpRequest
	signIns   []string
	metadata  map[uuid.UUID]map[string]interface{}
	confirmed []uuid.UUID

	signUpID  uuid.UUID
	signUpErr error
	// passwords maps email to the password accepted by SignIn
	passwords map[string]string
	accounts  map[string]uuid.UUID
	signInErr error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		metadata:  map[uuid.UUID]map[string]interface{}{},
		passwords: map[string]string{},
		accounts:  map[string]uuid.UUID{},
	}
}

func (f *fakeIdentity) SignUp(_ context.Context, req identity.SignUpRequest) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, req)
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	id := f.signUpID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &identity.Identity{ID: id, Email: req.Email, EmailConfirmed: req.EmailConfirmed}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, emailAddr, password string) (*identity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns = append(f.signIns, emailAddr)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if expected, ok := f.passwords[emailAddr]; !ok || expected != password {
		return nil, identity.ErrInvalidCredentials
	}
	return &identity.Identity{ID: f.accounts[emailAddr], Email: emailAddr}, nil
}

func (f *fakeIdentity) UpdateMetadata(_ context.Context, id uuid.UUID, metadata map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[id] = metadata
	return nil
}

func (f *fakeIdentity) ConfirmEmail(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, id)
	return nil
}

// fakeGateway is a scripted billing gateway
type fakeGateway struct {
	mu         sync.Mutex
	checkouts  []billing.CheckoutParams
	createErr  error
	results    map[string]*billing.CheckoutResult
	cancels    map[string]bool
	priceMoves map[string]string
	event      *billing.Event
	parseErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results:    map[string]*billing.CheckoutResult{},
		cancels:    map[string]bool{},
		priceMoves: map[string]string{},
	}
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts = append(f.checkouts, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := "cs_test_" + uuid.NewString()[:8]
	return &billing.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

func (f *fakeGateway) GetCheckoutResult(_ context.Context, sessionID string) (*billing.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.results[sessionID]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	return result, nil
}

func (f *fakeGateway) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	return "https://billing.stripe.com/p/session/" + customerID, nil
}

func (f *fakeGateway) SetCancelAtPeriodEnd(_ context.Context, subscriptionID string, cancel bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels[subscriptionID] = cancel
	return nil
}

func (f *fakeGateway) ChangePrice(_ context.Context, subscriptionID, priceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceMoves[subscriptionID] = priceID
	return nil
}

func (f *fakeGateway) ParseWebhook(_ []byte, _ string) (*billing.Event, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return f.event, nil
}

// testEnv wires every service against a private SQLite database
type testEnv struct {
	db       *gorm.DB
	sender   *fakeSender
	identity *fakeIdentity
	gateway  *fakeGateway
	sessions *session.MemoryStore
	stripe   *config.StripeConfig

	userRepo     *repository.UserRepository
	companyRepo  *repository.CompanyProfileRepository
	subRepo      *repository.SubscriptionRepository
	paymentRepo  *repository.PaymentRecordRepository
	settingRepo  *repository.AppSettingRepository
	templateRepo *repository.EmailTemplateRepository
	otpRepo      *repository.OTPRepository

	pricing       *PricingService
	notifications *NotificationService
	checkout      *CheckoutService
	registration  *RegistrationService
	completion    *CompletionService
	webhooks      *BillingWebhookService
	otp           *OTPService
	followUps     *FollowUpService
	reminders     *TrialReminderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := testutil.Logger()

	env := &testEnv{
		db:       db,
		sender:   &fakeSender{},
		identity: newFakeIdentity(),
		gateway:  newFakeGateway(),
		sessions: session.NewMemoryStore(time.Hour),
		stripe: &config.StripeConfig{
			PriceStarterMonthly: "price_starter_monthly",
			PriceStarterYearly:  "price_starter_yearly",
			PriceProMonthly:     "price_pro_monthly",
			PriceProYearly:      "price_pro_yearly",
			TrialDays:           14,
			SuccessURL:          "https://app.haliqo.com/registration/success",
			CancelURL:           "https://app.haliqo.com/registration",
			PortalReturnURL:     "https://app.haliqo.com/settings/billing",
		},
		userRepo:     repository.NewUserRepository(db),
		companyRepo:  repository.NewCompanyProfileRepository(db),
		subRepo:      repository.NewSubscriptionRepository(db),
		paymentRepo:  repository.NewPaymentRecordRepository(db),
		settingRepo:  repository.NewAppSettingRepository(db),
		templateRepo: repository.NewEmailTemplateRepository(db),
		otpRepo:      repository.NewOTPRepository(db),
	}

	env.pricing = NewPricingService(env.settingRepo, time.Minute, log)
	env.notifications = NewNotificationService(
		env.userRepo, env.templateRepo, repository.NewNotificationRepository(db), env.pricing, env.sender,
		NotificationSettings{AppURL: "https://app.haliqo.com", SupportEmail: "support@haliqo.com"},
		log,
	)
	env.checkout = NewCheckoutService(env.gateway, env.userRepo, env.subRepo, env.pricing, env.notifications, env.stripe, log)
	env.registration = NewRegistrationService(env.userRepo, env.companyRepo, env.pricing, env.checkout, env.identity, env.sessions, log)
	env.completion = NewCompletionService(
		env.gateway, env.userRepo, repository.NewUserProfileRepository(db), env.companyRepo,
		env.subRepo, env.paymentRepo, env.notifications, env.sessions, log,
	)
	env.webhooks = NewBillingWebhookService(env.gateway, env.completion, env.userRepo, env.subRepo, log)
	env.otp = NewOTPService(env.otpRepo, env.userRepo, env.notifications, env.identity, env.sessions, log)
	env.followUps = NewFollowUpService(repository.NewFollowUpRepository(db), log)
	env.reminders = NewTrialReminderService(env.subRepo, env.notifications, log)
	return env
}

// seedTemplate stores an active system template
func (env *testEnv) seedTemplate(t *testing.T, templateType domain.NotificationType, lang, subject, html string) *domain.EmailTemplate {
	t.Helper()
	tmpl := &domain.EmailTemplate{
		TemplateType: templateType,
		Language:     lang,
		Subject:      subject,
		HTMLContent:  html,
		TextContent:  subject,
		IsDefault:    true,
		IsActive:     true,
	}
	require.NoError(t, env.templateRepo.Create(context.Background(), tmpl))
	return tmpl
}

// validForm returns a registration form passing every step
func validForm() *domain.RegistrationForm {
	return &domain.RegistrationForm{
		FirstName:       "Marie",
		LastName:        "Dupont",
		Email:           "marie@example.com",
		Password:        "motdepasse1",
		ConfirmPassword: "motdepasse1",
		Phone:           "+32470123456",
		CompanyName:     "Dupont Électricité",
		Address:         "12 rue des Lilas",
		PostalCode:      "1000",
		City:            "Bruxelles",
		Country:         "BE",
		Professions:     []string{"électricien"},
		BusinessSize:    "solo",
		SelectedPlan:    "pro",
		BillingCycle:    domain.BillingCycleMonthly,
		AcceptTerms:     true,
		Language:        "fr",
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
