package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyRegistered is returned for an email whose registration is complete
	ErrEmailAlreadyRegistered = errors.New("email already registered")

	// ErrEmailNotVerified is returned when a new registration has no verified email
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrResumeCredentialsMismatch is returned when a resuming user's password is wrong
	ErrResumeCredentialsMismatch = errors.New("existing account credentials do not match")

	// ErrRemoteService wraps failures of the identity provider
	ErrRemoteService = errors.New("remote service failure")

	// ErrCheckoutInitFailed is returned when no checkout session could be created
	ErrCheckoutInitFailed = errors.New("payment initialization failed")

	// ErrPlanNotFound is returned for a plan missing from the catalog
	ErrPlanNotFound = errors.New("plan not found")

	// ErrNoBillingAccount is returned when the user has no billing customer yet
	ErrNoBillingAccount = errors.New("no billing account")

	// ErrSubscriptionNotFound is returned when the user has no subscription
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrCheckoutNotPaid is returned for checkouts the provider has not settled yet
	ErrCheckoutNotPaid = errors.New("checkout session is not paid")
	// ErrCheckoutNotOwned is returned when a checkout belongs to another user
	ErrCheckoutNotOwned = errors.New("checkout session does not belong to current user")

	// ErrTemplateNotFound is returned when no template resolves for a notification
	ErrTemplateNotFound = errors.New("no template found")

	// ErrUnknownTemplateVariable is returned for a placeholder with no variable
	ErrUnknownTemplateVariable = errors.New("unknown template variable")

	// ErrDeliveryFailed is returned when the mail relay rejects or cannot take a message
	ErrDeliveryFailed = errors.New("email delivery failed")

	// ErrOTPNotFound is returned when no code was requested for the email
	ErrOTPNotFound = errors.New("no verification code requested")

	// ErrOTPExpired is returned for an expired code
	ErrOTPExpired = errors.New("verification code expired")

	// ErrOTPInvalid is returned for a wrong code
	ErrOTPInvalid = errors.New("invalid verification code")

	// ErrOTPLocked is returned once the attempt limit is reached
	ErrOTPLocked = errors.New("too many verification attempts")
)

// ResumeCredentialsMessage is shown when a resuming user enters a wrong password
const ResumeCredentialsMessage = "Un compte existe déjà pour cette adresse e-mail, mais le mot de passe saisi ne correspond pas.\n" +
	"Saisissez le mot de passe choisi lors de votre première inscription pour reprendre là où vous vous êtes arrêté.\n" +
	"Mot de passe oublié ? Utilisez « Mot de passe oublié » sur la page de connexion pour le réinitialiser, puis reprenez votre inscription."

// StepValidationError carries field errors produced by step validation
type StepValidationError struct {
	Step   int
	Errors map[string]string
}

func (e *StepValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("step %d validation failed: %s", e.Step, strings.Join(fields, ", "))
}

// Unwrap lets callers match ErrInvalidInput
func (e *StepValidationError) Unwrap() error {
	return ErrInvalidInput
}

// OTPAttemptError reports a wrong code with the attempts left
type OTPAttemptError struct {
	Remaining int
}

func (e *OTPAttemptError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

func (e *OTPAttemptError) Unwrap() error {
	return ErrOTPInvalid
}
