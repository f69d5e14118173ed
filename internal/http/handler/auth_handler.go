package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	accountService *service.AccountService
	logger         *zap.Logger
}

func NewAuthHandler(accountService *service.AccountService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the account of the authenticated user with the module permissions of their profile
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AccountDTO
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get account")
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// Permissions godoc
// @Summary Get current user's permissions
// @Description Returns the module access levels of the authenticated user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.Permissions
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /auth/permissions [get]
func (h *AuthHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get permissions")
		return
	}

	respondJSON(w, http.StatusOK, account.Permissions)
}
