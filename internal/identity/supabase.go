package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// SupabaseConfig configures the GoTrue client
type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// SupabaseClient implements Provider against the GoTrue REST API.
// Admin calls use the service role key; password sign-in uses the anon key.
type SupabaseClient struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker[*http.Response]
	logger         *zap.Logger
}

type gotrueUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
}

type gotrueToken struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
}

type gotrueError struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
	Msg              string      `json:"msg"`
}

func (e gotrueError) message() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// NewSupabaseClient creates a client with a circuit breaker around transport failures
func NewSupabaseClient(cfg SupabaseConfig, logger *zap.Logger) *SupabaseClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "supabase-auth",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &SupabaseClient{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		anonKey:        cfg.AnonKey,
		serviceRoleKey: cfg.ServiceRoleKey,
		httpClient:     &http.Client{Timeout: timeout},
		breaker:        breaker,
		logger:         logger,
	}
}

// SignUp creates a user through the admin API so the email can be marked
// confirmed when it was verified by OTP beforehand.
func (c *SupabaseClient) SignUp(ctx context.Context, req SignUpRequest) (*Identity, error) {
	body := map[string]interface{}{
		"email":         req.Email,
		"password":      req.Password,
		"email_confirm": req.EmailConfirmed,
		"user_metadata": req.Metadata,
	}
	var user gotrueUser
	status, apiErr, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", c.serviceRoleKey, body, &user)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return nil, ErrAlreadyRegistered
	case status >= 300:
		return nil, fmt.Errorf("sign up failed (%d): %s", status, apiErr.message())
	}
	return toIdentity(user, "")
}

// SignIn performs a password grant
func (c *SupabaseClient) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]string{"email": email, "password": password}
	var token gotrueToken
	status, apiErr, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, body, &token)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case status >= 300:
		return nil, fmt.Errorf("sign in failed (%d): %s", status, apiErr.message())
	}
	return toIdentity(token.User, token.AccessToken)
}

// UpdateMetadata replaces the user_metadata of an identity
func (c *SupabaseClient) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]interface{}) error {
	return c.updateUser(ctx, id, map[string]interface{}{"user_metadata": metadata})
}

// ConfirmEmail marks the identity's email as confirmed
func (c *SupabaseClient) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	return c.updateUser(ctx, id, map[string]interface{}{"email_confirm": true})
}

func (c *SupabaseClient) updateUser(ctx context.Context, id uuid.UUID, body map[string]interface{}) error {
	status, apiErr, err := c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+id.String(), c.serviceRoleKey, body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("update user %s failed (%d): %s", id, status, apiErr.message())
	}
	return nil
}

// do sends a JSON request. Transport errors and 5xx responses count as
// breaker failures; 4xx responses are returned to the caller as a status.
func (c *SupabaseClient) do(ctx context.Context, method, path, key string, body, out interface{}) (int, gotrueError, error) {
	var apiErr gotrueError

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, apiErr, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", key)
		req.Header.Set("Authorization", "Bearer "+key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("server error %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, apiErr, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		c.logger.Error("Identity provider request failed",
			zap.String("method", method),
			zap.String("path", strings.SplitN(path, "?", 2)[0]),
			zap.Error(err),
		)
		return 0, apiErr, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, apiErr, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		_ = json.Unmarshal(raw, &apiErr)
		return resp.StatusCode, apiErr, nil
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, apiErr, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, apiErr, nil
}

func toIdentity(user gotrueUser, accessToken string) (*Identity, error) {
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return nil, fmt.Errorf("identity provider returned invalid user id %q: %w", user.ID, err)
	}
	return &Identity{
		ID:             id,
		Email:          user.Email,
		EmailConfirmed: user.EmailConfirmedAt != nil,
		AccessToken:    accessToken,
	}, nil
}
