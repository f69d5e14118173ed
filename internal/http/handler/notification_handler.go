package handler

import (
	"net/http"
	"strconv"

	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// NotificationHandler exposes the user's transactional email history
type NotificationHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(accountService *service.AccountService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// List godoc
// @Summary List sent notifications
// @Description Returns the latest subscription emails sent (or attempted) to the current user, newest first
// @Tags Notifications
// @Produce json
// @Param limit query int false "Number of entries (max 100)" default(20)
// @Success 200 {array} domain.NotificationLogDTO
// @Failure 401 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.accountService.ListNotifications(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "list notifications")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
