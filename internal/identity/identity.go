// Package identity talks to the hosted auth provider (Supabase GoTrue).
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned by SignIn when email or password is wrong
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrAlreadyRegistered is returned by SignUp when the email already has an identity
	ErrAlreadyRegistered = errors.New("email already registered with identity provider")
	// ErrUnavailable wraps transport failures and open circuit breakers
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Identity is the provider-side user record
type Identity struct {
	ID             uuid.UUID
	Email          string
	EmailConfirmed bool
	AccessToken    string
}

// SignUpRequest creates a new identity
type SignUpRequest struct {
	Email          string
	Password       string
	EmailConfirmed bool
	Metadata       map[string]interface{}
}

// Provider is the subset of the auth provider used by registration and OTP
type Provider interface {
	SignUp(ctx context.Context, req SignUpRequest) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) error
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
}
