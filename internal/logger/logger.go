package logger

import (
	"fmt"
	"strings"

	"github.com/haliqo/haliqo-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the application logger. Production and the json format
// get the sampled JSON encoder; anything else logs colored console lines.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// WithRequest adds request context to logger
func WithRequest(log *zap.Logger, method, path, requestID string) *zap.Logger {
	return log.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithUser adds the caller to logger. The address is masked.
func WithUser(log *zap.Logger, userID, email string) *zap.Logger {
	return log.With(
		zap.String("user_id", userID),
		zap.String("user_email", MaskEmail(email)),
	)
}

// WithCheckout scopes a logger to one checkout session of a user
func WithCheckout(log *zap.Logger, sessionID, userID string) *zap.Logger {
	return log.With(
		zap.String("checkout_session_id", sessionID),
		zap.String("user_id", userID),
	)
}

// WithBillingEvent scopes a logger to one provider webhook event
func WithBillingEvent(log *zap.Logger, eventID, eventType string) *zap.Logger {
	return log.With(
		zap.String("event_id", eventID),
		zap.String("event_type", eventType),
	)
}

// MaskEmail keeps the first character of the local part and the domain:
// "marie@example.com" becomes "m***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
