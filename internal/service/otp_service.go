package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/identity"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpLength      = 6
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 5
)

// OTPService issues and checks email verification codes
type OTPService struct {
	otpRepo       *repository.OTPRepository
	userRepo      *repository.UserRepository
	notifications *NotificationService
	identity      identity.Provider
	sessions      session.Store
	logger        *zap.Logger
	now           func() time.Time
	generateCode  func() (string, error)
}

// NewOTPService creates a new OTPService instance
func NewOTPService(
	otpRepo *repository.OTPRepository,
	userRepo *repository.UserRepository,
	notifications *NotificationService,
	identityProvider identity.Provider,
	sessions session.Store,
	logger *zap.Logger,
) *OTPService {
	return &OTPService{
		otpRepo:       otpRepo,
		userRepo:      userRepo,
		notifications: notifications,
		identity:      identityProvider,
		sessions:      sessions,
		logger:        logger,
		now:           time.Now,
		generateCode:  randomCode,
	}
}

// Generate replaces any previous code for the email and sends a new one.
// It returns the expiry of the new code.
func (s *OTPService) Generate(ctx context.Context, email, language, acceptLanguage string) (time.Time, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return time.Time{}, fmt.Errorf("%w: email required", ErrInvalidInput)
	}

	code, err := s.generateCode()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := s.now().UTC().Add(otpTTL)
	if err := s.otpRepo.Replace(ctx, &domain.EmailVerificationOTP{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: expiresAt,
	}); err != nil {
		return time.Time{}, fmt.Errorf("failed to store code: %w", err)
	}

	if err := s.notifications.Send(ctx, NotificationRequest{
		Type:           domain.NotificationEmailVerification,
		Email:          email,
		Language:       language,
		AcceptLanguage: acceptLanguage,
		Vars: TemplateVars{
			VerificationCode: code,
			ExpiresInMinutes: strconv.Itoa(int(otpTTL / time.Minute)),
		},
	}); err != nil {
		return time.Time{}, fmt.Errorf("failed to send verification code: %w", err)
	}

	s.logger.Info("Verification code issued", zap.String("email", email))
	return expiresAt, nil
}

// Verify checks a code. A wrong code consumes one attempt; after the last
// attempt the code stays locked until a new one is generated.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)

	otp, err := s.otpRepo.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}

	now := s.now().UTC()
	if !now.Before(otp.ExpiresAt) {
		if err := s.otpRepo.Delete(ctx, otp.ID); err != nil {
			s.logger.Warn("Failed to delete expired code", zap.String("email", email), zap.Error(err))
		}
		return ErrOTPExpired
	}
	if otp.Attempts >= otpMaxAttempts {
		return ErrOTPLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		attempts, err := s.otpRepo.IncrementAttempts(ctx, otp.ID)
		if err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		if attempts >= otpMaxAttempts {
			s.logger.Warn("Verification code locked", zap.String("email", email))
			return ErrOTPLocked
		}
		return &OTPAttemptError{Remaining: otpMaxAttempts - attempts}
	}

	if err := s.otpRepo.Delete(ctx, otp.ID); err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if err := s.sessions.MarkEmailVerified(ctx, email, now); err != nil {
		return fmt.Errorf("failed to record verification: %w", err)
	}

	s.confirmIdentity(ctx, email)
	s.logger.Info("Email verified", zap.String("email", email))
	return nil
}

// confirmIdentity marks the provider identity confirmed when an account
// already exists for the email. Failures are logged only.
func (s *OTPService) confirmIdentity(ctx context.Context, email string) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Failed to look up user for email confirmation", zap.String("email", email), zap.Error(err))
		}
		return
	}
	if err := s.identity.ConfirmEmail(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to confirm identity email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

// CleanupExpired deletes codes past their expiry
func (s *OTPService) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.otpRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", err)
	}
	return deleted, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}
