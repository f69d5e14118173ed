package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/haliqo/haliqo-api/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// healthCheckTimeout bounds each dependency check
const healthCheckTimeout = 3 * time.Second

// HealthCheck tests one dependency for the readiness endpoint
type HealthCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	db     *gorm.DB
	checks map[string]HealthCheck
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. The database is always
// checked; extra checks (e.g. redis) are added by name.
func NewHealthHandler(db *gorm.DB, checks map[string]HealthCheck, logger *zap.Logger) *HealthHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthHandler{db: db, checks: checks, logger: logger}
}

// Live is the basic liveness check
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database is the readiness check with connection pool statistics
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, h.db)
	if err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// Ready checks every dependency and reports each one
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	runCheck := func(name string, check HealthCheck) {
		if err := check(ctx); err != nil {
			h.logger.Error("Health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	runCheck("database", func(ctx context.Context) error { return database.HealthCheck(ctx, h.db) })
	for name, check := range h.checks {
		runCheck(name, check)
	}

	status, label := http.StatusOK, "healthy"
	if !allHealthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	respondJSON(w, status, map[string]interface{}{
		"status": label,
		"checks": checks,
	})
}
