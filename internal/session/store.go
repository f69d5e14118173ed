// Package session keeps short-lived registration state between the
// registration submit, the payment redirect and the completion call.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/domain"
)

// ErrNotFound is returned when no state exists for a key
var ErrNotFound = errors.New("session state not found")

// State is the typed registration session of one user or email
type State struct {
	UserID            uuid.UUID  `json:"userId,omitempty"`
	Email             string     `json:"email,omitempty"`
	Pending           bool       `json:"pending"`
	Completed         bool       `json:"completed"`
	CheckoutSessionID string     `json:"checkoutSessionId,omitempty"`
	EmailVerifiedAt   *time.Time `json:"emailVerifiedAt,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Store persists registration state with a TTL
type Store interface {
	Get(ctx context.Context, key string) (*State, error)
	Put(ctx context.Context, key string, state *State) error
	Delete(ctx context.Context, key string) error
	MarkEmailVerified(ctx context.Context, email string, at time.Time) error
	IsEmailVerified(ctx context.Context, email string) (bool, error)
}

// RegistrationKey is the key of a user's registration state
func RegistrationKey(userID uuid.UUID) string {
	return "registration:" + userID.String()
}

// VerificationKey is the key of an email's verification state
func VerificationKey(email string) string {
	return "email-verified:" + domain.NormalizeEmail(email)
}

// markVerified and isVerified implement the email flag on top of Get/Put so
// both stores share the same semantics.
func markVerified(ctx context.Context, s Store, email string, at time.Time) error {
	at = at.UTC()
	return s.Put(ctx, VerificationKey(email), &State{
		Email:           domain.NormalizeEmail(email),
		EmailVerifiedAt: &at,
		UpdatedAt:       at,
	})
}

func isVerified(ctx context.Context, s Store, email string) (bool, error) {
	state, err := s.Get(ctx, VerificationKey(email))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return state.EmailVerifiedAt != nil, nil
}
