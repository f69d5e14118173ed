package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/identity"
	"github.com/haliqo/haliqo-api/internal/mapper"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgEmailRegistered  = "Cette adresse e-mail est déjà associée à un compte actif. Connectez-vous pour continuer."
	msgEmailNotVerified = "Veuillez vérifier votre adresse e-mail avec le code reçu avant de continuer."
	msgPlanNotAvailable = "Cette formule n'est pas disponible"
)

// EmailStatus is the outcome of the step-1 email lookup
type EmailStatus int

const (
	// EmailAvailable means no account uses the email
	EmailAvailable EmailStatus = iota
	// EmailRegistered means the account finished registration; never resumed
	EmailRegistered
	// EmailResumable means the account exists but never completed payment
	EmailResumable
)

// StepResult is the outcome of validating one registration step
type StepResult struct {
	Errors   map[string]string
	Resuming bool
	Prefill  *domain.RegistrationForm
}

// Valid reports whether the step may advance
func (r *StepResult) Valid() bool {
	return len(r.Errors) == 0
}

// SubmitResult tells the caller where to send the user for payment
type SubmitResult struct {
	UserID            uuid.UUID
	CheckoutSessionID string
	CheckoutURL       string
	Resumed           bool
}

// RegistrationService drives the three-step registration flow up to the
// payment redirect.
type RegistrationService struct {
	userRepo    *repository.UserRepository
	companyRepo *repository.CompanyProfileRepository
	pricing     *PricingService
	checkout    *CheckoutService
	identity    identity.Provider
	sessions    session.Store
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewRegistrationService creates a new RegistrationService instance
func NewRegistrationService(
	userRepo *repository.UserRepository,
	companyRepo *repository.CompanyProfileRepository,
	pricing *PricingService,
	checkout *CheckoutService,
	identityProvider identity.Provider,
	sessions session.Store,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		pricing:     pricing,
		checkout:    checkout,
		identity:    identityProvider,
		sessions:    sessions,
		validate:    newFormValidator(),
		logger:      logger,
	}
}

// ValidateStep runs the field checks of a step. Step 1 also classifies the
// email: a completed account is an error, an incomplete one switches the flow
// to resume mode and returns the saved data as prefill.
func (s *RegistrationService) ValidateStep(ctx context.Context, step int, input *domain.RegistrationForm) (*StepResult, error) {
	form := *input
	form.Normalize()

	result := &StepResult{Errors: validateRegistrationStep(s.validate, step, &form)}

	switch step {
	case 1:
		if _, bad := result.Errors["email"]; bad {
			break
		}
		status, user, err := s.lookupEmail(ctx, form.Email)
		if err != nil {
			return nil, err
		}
		switch status {
		case EmailRegistered:
			result.Errors["email"] = msgEmailRegistered
		case EmailResumable:
			result.Resuming = true
			result.Prefill = s.prefill(ctx, user)
		}
	case 3:
		if _, bad := result.Errors["selectedPlan"]; bad {
			break
		}
		if _, err := s.pricing.GetPlan(ctx, form.SelectedPlan); err != nil {
			if !errors.Is(err, ErrPlanNotFound) {
				return nil, err
			}
			result.Errors["selectedPlan"] = msgPlanNotAvailable
		}
	}

	return result, nil
}

// CheckEmail classifies an email for step 1
func (s *RegistrationService) CheckEmail(ctx context.Context, email string) (EmailStatus, error) {
	status, _, err := s.lookupEmail(ctx, email)
	return status, err
}

func (s *RegistrationService) lookupEmail(ctx context.Context, email string) (EmailStatus, *domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmailAvailable, nil, nil
	}
	if err != nil {
		return EmailAvailable, nil, fmt.Errorf("failed to look up email: %w", err)
	}
	if user.RegistrationCompleted {
		return EmailRegistered, user, nil
	}
	return EmailResumable, user, nil
}

func (s *RegistrationService) prefill(ctx context.Context, user *domain.User) *domain.RegistrationForm {
	company, err := s.companyRepo.GetByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("Failed to load company profile for prefill",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
	if err != nil {
		company = nil
	}
	return mapper.ToRegistrationForm(user, company)
}

// SaveProgress persists the partial user and company rows for a known user
// so an abandoned flow keeps its data. Safe to call repeatedly.
func (s *RegistrationService) SaveProgress(ctx context.Context, userID uuid.UUID, input *domain.RegistrationForm) error {
	form := *input
	form.Normalize()

	user := &domain.User{
		ID:           userID,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Phone:        form.Phone,
		VATNumber:    form.VATNumber,
		Country:      form.Country,
		Professions:  form.Professions,
		BusinessSize: form.BusinessSize,
		SelectedPlan: form.SelectedPlan,
		BillingCycle: form.BillingCycle,
		Language:     form.Language,
	}
	if err := s.userRepo.UpsertProfile(ctx, user); err != nil {
		return fmt.Errorf("failed to save user progress: %w", err)
	}

	if form.HasCompany() {
		profile := &domain.CompanyProfile{
			UserID:      userID,
			CompanyName: form.CompanyName,
			VATNumber:   form.VATNumber,
			Address:     form.Address,
			PostalCode:  form.PostalCode,
			City:        form.City,
			State:       form.State,
			Country:     form.Country,
			Phone:       form.Phone,
			Email:       form.Email,
		}
		if err := s.companyRepo.Upsert(ctx, profile); err != nil {
			return fmt.Errorf("failed to save company progress: %w", err)
		}
	}
	return nil
}

// Submit finalizes the form: it creates or signs in the identity, saves the
// data, and opens a checkout session. Nothing is rolled back on failure;
// only the pending marker is cleared.
func (s *RegistrationService) Submit(ctx context.Context, input *domain.RegistrationForm) (*SubmitResult, error) {
	form := *input
	form.Normalize()

	resuming := false
	for step := 1; step <= domain.RegistrationStepCount; step++ {
		result, err := s.ValidateStep(ctx, step, &form)
		if err != nil {
			return nil, err
		}
		if !result.Valid() {
			return nil, &StepValidationError{Step: step, Errors: result.Errors}
		}
		if step == 1 {
			resuming = result.Resuming
		}
	}

	var userID uuid.UUID
	if resuming {
		id, err := s.resumeIdentity(ctx, &form)
		if err != nil {
			return nil, err
		}
		userID = id
	} else {
		id, err := s.createIdentity(ctx, &form)
		if err != nil {
			return nil, err
		}
		userID = id
	}

	log := s.logger.With(zap.String("user_id", userID.String()), zap.Bool("resumed", resuming))

	if err := s.SaveProgress(ctx, userID, &form); err != nil {
		return nil, err
	}

	key := session.RegistrationKey(userID)
	if err := s.sessions.Put(ctx, key, &session.State{UserID: userID, Email: form.Email, Pending: true}); err != nil {
		log.Warn("Failed to set registration pending marker", zap.Error(err))
	}

	var customerID string
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		customerID = user.StripeCustomerID
	}

	checkout, err := s.checkout.CreateSession(ctx, CheckoutRequest{
		UserID:       userID,
		Email:        form.Email,
		CustomerID:   customerID,
		PlanType:     form.SelectedPlan,
		BillingCycle: form.BillingCycle,
		Form:         &form,
	})
	if err != nil {
		if delErr := s.sessions.Delete(ctx, key); delErr != nil {
			log.Warn("Failed to clear registration pending marker", zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.sessions.Put(ctx, key, &session.State{
		UserID:            userID,
		Email:             form.Email,
		Pending:           true,
		CheckoutSessionID: checkout.ID,
	}); err != nil {
		log.Warn("Failed to record checkout session on registration marker", zap.Error(err))
	}

	log.Info("Registration submitted, redirecting to checkout", zap.String("checkout_session_id", checkout.ID))

	return &SubmitResult{
		UserID:            userID,
		CheckoutSessionID: checkout.ID,
		CheckoutURL:       checkout.URL,
		Resumed:           resuming,
	}, nil
}

func (s *RegistrationService) createIdentity(ctx context.Context, form *domain.RegistrationForm) (uuid.UUID, error) {
	verified, err := s.sessions.IsEmailVerified(ctx, form.Email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read email verification: %w", err)
	}
	if !verified {
		return uuid.Nil, &StepValidationError{Step: 1, Errors: map[string]string{"email": msgEmailNotVerified}}
	}

	ident, err := s.identity.SignUp(ctx, identity.SignUpRequest{
		Email:          form.Email,
		Password:       form.Password,
		EmailConfirmed: true,
		Metadata:       identityMetadata(form),
	})
	if errors.Is(err, identity.ErrAlreadyRegistered) {
		// An identity without a users row is left over from a submit that
		// failed before saving; the owner can pick it up again.
		s.logger.Info("Identity exists without registration row, signing in", zap.String("email", form.Email))
		id, err := s.resumeIdentity(ctx, form)
		if errors.Is(err, ErrResumeCredentialsMismatch) {
			return uuid.Nil, ErrEmailAlreadyRegistered
		}
		return id, err
	}
	if err != nil {
		s.logger.Error("Identity sign up failed", zap.String("email", form.Email), zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: sign up: %v", ErrRemoteService, err)
	}
	return ident.ID, nil
}

func (s *RegistrationService) resumeIdentity(ctx context.Context, form *domain.RegistrationForm) (uuid.UUID, error) {
	ident, err := s.identity.SignIn(ctx, form.Email, form.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return uuid.Nil, ErrResumeCredentialsMismatch
	}
	if err != nil {
		s.logger.Error("Identity sign in failed", zap.String("email", form.Email), zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: sign in: %v", ErrRemoteService, err)
	}

	if err := s.identity.UpdateMetadata(ctx, ident.ID, identityMetadata(form)); err != nil {
		s.logger.Error("Identity metadata update failed", zap.String("user_id", ident.ID.String()), zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: update metadata: %v", ErrRemoteService, err)
	}
	return ident.ID, nil
}

func identityMetadata(form *domain.RegistrationForm) map[string]interface{} {
	return map[string]interface{}{
		"first_name":   form.FirstName,
		"last_name":    form.LastName,
		"phone":        form.Phone,
		"company_name": form.CompanyName,
		"language":     form.Language,
	}
}

// Status returns the registration session of a user, falling back to the
// persisted row when no session entry exists.
func (s *RegistrationService) Status(ctx context.Context, userID uuid.UUID) (*domain.RegistrationStatusDTO, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	dto := &domain.RegistrationStatusDTO{
		UserID:                userID,
		SubscriptionStatus:    user.SubscriptionStatus,
		RegistrationCompleted: user.RegistrationCompleted,
		Completed:             user.RegistrationCompleted,
	}

	state, err := s.sessions.Get(ctx, session.RegistrationKey(userID))
	switch {
	case err == nil:
		dto.Pending = state.Pending && !user.RegistrationCompleted
		dto.Completed = state.Completed || user.RegistrationCompleted
		dto.CheckoutSessionID = state.CheckoutSessionID
	case !errors.Is(err, session.ErrNotFound):
		s.logger.Warn("Failed to read registration session", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return dto, nil
}
