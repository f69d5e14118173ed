package auth

import (
	"context"

	"github.com/google/uuid"
)

// SystemUserID identifies requests authenticated with the API key
var SystemUserID = uuid.Nil

// UserContext holds authenticated caller information
type UserContext struct {
	UserID      uuid.UUID
	Email       string
	Role        string
	IsSystem    bool
	AccessToken string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// IsUser reports whether the caller is a signed-in end user
func (u *UserContext) IsUser() bool {
	return !u.IsSystem && u.UserID != uuid.Nil
}

func systemUser() *UserContext {
	return &UserContext{
		UserID:   SystemUserID,
		Email:    "system@haliqo.com",
		Role:     "service_role",
		IsSystem: true,
	}
}
