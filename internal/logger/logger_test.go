package logger_test

import (
	"testing"

	"github.com/haliqo/haliqo-api/internal/config"
	"github.com/haliqo/haliqo-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	log, err := logger.NewLogger(
		&config.LoggingConfig{Level: "warn", Format: "console"},
		&config.AppConfig{Name: "haliqo-api", Environment: "development"},
	)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = logger.NewLogger(
		&config.LoggingConfig{Level: "not-a-level"},
		&config.AppConfig{Name: "haliqo-api", Environment: "production"},
	)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel), "unknown levels fall back to info")
}

func TestFieldHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	logger.WithCheckout(base, "cs_123", "user-1").Info("checkout")
	logger.WithBillingEvent(base, "evt_1", "checkout.session.completed").Info("event")
	logger.WithUser(base, "user-1", "marie@example.com").Info("user")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "cs_123", entries[0].ContextMap()["checkout_session_id"])
	assert.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, "checkout.session.completed", entries[1].ContextMap()["event_type"])
	assert.Equal(t, "m***@example.com", entries[2].ContextMap()["user_email"])
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "m***@example.com", logger.MaskEmail("marie@example.com"))
	assert.Equal(t, "***", logger.MaskEmail("@example.com"))
	assert.Equal(t, "***", logger.MaskEmail("no-at-sign"))
	assert.Equal(t, "", logger.MaskEmail(""))
}
