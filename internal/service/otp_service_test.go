package service

import (
	"context"
	"testing"
	"time"

	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOTPTestEnv(t *testing.T, code string) (*testEnv, *time.Time) {
	t.Helper()
	env := newTestEnv(t)
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	env.otp.now = func() time.Time { return now }
	env.otp.generateCode = func() (string, error) { return code, nil }
	return env, &now
}

func TestOTPService_Generate(t *testing.T) {
	env, now := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	expiresAt, err := env.otp.Generate(ctx, " Marie@Example.com ", "en", "")
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), expiresAt)

	stored, err := env.otpRepo.GetByEmail(ctx, "marie@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "482913", stored.CodeHash, "codes are stored hashed")
	assert.Equal(t, 0, stored.Attempts)

	sent := env.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "marie@example.com", sent[0].To)
	assert.Equal(t, "Your Haliqo verification code", sent[0].Subject)
	assert.Contains(t, sent[0].Text, "482913")
	assert.Contains(t, sent[0].Text, "10 minutes")
}

func TestOTPService_Generate_RequiresEmail(t *testing.T) {
	env, _ := newOTPTestEnv(t, "482913")

	_, err := env.otp.Generate(context.Background(), "   ", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, env.sender.sent())
}

func TestOTPService_Verify_Success(t *testing.T) {
	env, _ := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	_, err := env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)

	require.NoError(t, env.otp.Verify(ctx, "MARIE@example.com", "482913"))

	verified, err := env.sessions.IsEmailVerified(ctx, "marie@example.com")
	require.NoError(t, err)
	assert.True(t, verified)

	// The code is single use
	assert.ErrorIs(t, env.otp.Verify(ctx, "marie@example.com", "482913"), ErrOTPNotFound)
}

func TestOTPService_Verify_ConfirmsExistingIdentity(t *testing.T) {
	env, _ := newOTPTestEnv(t, "111111")
	ctx := context.Background()

	user := testutil.CreateTestUser(t, env.db, "marie@example.com")
	_, err := env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)

	require.NoError(t, env.otp.Verify(ctx, "marie@example.com", "111111"))
	assert.Contains(t, env.identity.confirmed, user.ID)
}

func TestOTPService_Verify_WrongCodeCountsDown(t *testing.T) {
	env, _ := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	_, err := env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)

	for remaining := 4; remaining >= 1; remaining-- {
		err := env.otp.Verify(ctx, "marie@example.com", "000000")
		var attemptErr *OTPAttemptError
		require.ErrorAs(t, err, &attemptErr)
		assert.Equal(t, remaining, attemptErr.Remaining)
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}

	assert.ErrorIs(t, env.otp.Verify(ctx, "marie@example.com", "000000"), ErrOTPLocked)
	assert.ErrorIs(t, env.otp.Verify(ctx, "marie@example.com", "482913"), ErrOTPLocked, "a locked code rejects even the right value")

	verified, err := env.sessions.IsEmailVerified(ctx, "marie@example.com")
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestOTPService_Generate_ResetsLock(t *testing.T) {
	env, _ := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	_, err := env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)
	for i := 0; i < otpMaxAttempts; i++ {
		_ = env.otp.Verify(ctx, "marie@example.com", "000000")
	}

	env.otp.generateCode = func() (string, error) { return "654321", nil }
	_, err = env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)

	assert.NoError(t, env.otp.Verify(ctx, "marie@example.com", "654321"))
}

func TestOTPService_Verify_Expired(t *testing.T) {
	env, now := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	_, err := env.otp.Generate(ctx, "marie@example.com", "", "")
	require.NoError(t, err)

	*now = now.Add(10 * time.Minute)
	assert.ErrorIs(t, env.otp.Verify(ctx, "marie@example.com", "482913"), ErrOTPExpired)

	_, err = env.otpRepo.GetByEmail(ctx, "marie@example.com")
	assert.Error(t, err, "expired codes are deleted on use")
}

func TestOTPService_Verify_NotRequested(t *testing.T) {
	env, _ := newOTPTestEnv(t, "482913")
	assert.ErrorIs(t, env.otp.Verify(context.Background(), "nobody@example.com", "123456"), ErrOTPNotFound)
}

func TestOTPService_CleanupExpired(t *testing.T) {
	env, now := newOTPTestEnv(t, "482913")
	ctx := context.Background()

	_, err := env.otp.Generate(ctx, "old@example.com", "", "")
	require.NoError(t, err)

	*now = now.Add(20 * time.Minute)
	_, err = env.otp.Generate(ctx, "fresh@example.com", "", "")
	require.NoError(t, err)

	deleted, err := env.otp.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = env.otpRepo.GetByEmail(ctx, "fresh@example.com")
	assert.NoError(t, err)
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := randomCode()
		require.NoError(t, err)
		assert.Len(t, code, otpLength)
		assert.Regexp(t, `^[0-9]{6}$`, code)
	}
}
