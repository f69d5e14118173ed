package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(userID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   userID.String(),
		"email": "artisan@example.fr",
		"role":  "authenticated",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestJWTValidator_ValidateToken(t *testing.T) {
	v := NewJWTValidator(testSecret)
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		userCtx, err := v.ValidateToken(signToken(t, testSecret, validClaims(userID)))
		require.NoError(t, err)
		assert.Equal(t, userID, userCtx.UserID)
		assert.Equal(t, "artisan@example.fr", userCtx.Email)
		assert.True(t, userCtx.IsUser())
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims(userID)
		claims["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := v.ValidateToken(signToken(t, testSecret, claims))
		assert.True(t, errors.Is(err, ErrExpiredToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.ValidateToken(signToken(t, "another-secret-another-secret-another", validClaims(userID)))
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims(userID)
		claims["aud"] = "anon"
		_, err := v.ValidateToken(signToken(t, testSecret, claims))
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		claims := validClaims(userID)
		claims["sub"] = "not-a-uuid"
		_, err := v.ValidateToken(signToken(t, testSecret, claims))
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	m := NewMiddleware(testSecret, "system-key", zap.NewNop())
	var seen *UserContext
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantSystem bool
	}{
		{"missing credentials", func(r *http.Request) {}, http.StatusUnauthorized, false},
		{"bad api key", func(r *http.Request) { r.Header.Set("x-api-key", "nope") }, http.StatusUnauthorized, false},
		{"api key", func(r *http.Request) { r.Header.Set("x-api-key", "system-key") }, http.StatusOK, true},
		{"bearer token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(uuid.New())))
		}, http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/registration/status", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantSystem, seen.IsSystem)
			}
		})
	}
}

func TestMiddleware_RequireUser(t *testing.T) {
	m := NewMiddleware(testSecret, "system-key", zap.NewNop())
	handler := m.Authenticate(m.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("x-api-key", "system-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims(uuid.New())))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
