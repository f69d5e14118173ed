package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// BillingHandler serves checkout, portal and subscription management
type BillingHandler struct {
	checkoutService   *service.CheckoutService
	completionService *service.CompletionService
	logger            *zap.Logger
}

// NewBillingHandler creates a new BillingHandler instance
func NewBillingHandler(
	checkoutService *service.CheckoutService,
	completionService *service.CompletionService,
	logger *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		checkoutService:   checkoutService,
		completionService: completionService,
		logger:            logger,
	}
}

// CreateCheckout godoc
// @Summary Create a checkout session
// @Description Opens a hosted checkout for the signed-in user
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body domain.CreateCheckoutRequest true "Plan and billing cycle"
// @Success 200 {object} domain.CheckoutResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security BearerAuth
// @Router /billing/checkout [post]
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req domain.CreateCheckoutRequest
	if !parseJSON(w, r, &req) {
		return
	}

	session, err := h.checkoutService.CreateCheckoutForUser(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create checkout session")
		return
	}
	respondJSON(w, http.StatusOK, domain.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// CreatePortal godoc
// @Summary Create a billing portal session
// @Tags Billing
// @Produce json
// @Success 200 {object} domain.CheckoutResponse
// @Failure 401 {object} domain.APIError
// @Failure 409 {object} domain.APIError "No billing account"
// @Security BearerAuth
// @Router /billing/portal [post]
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	url, err := h.checkoutService.CreatePortalSession(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "create portal session")
		return
	}
	respondJSON(w, http.StatusOK, domain.CheckoutResponse{URL: url})
}

// GetSubscription godoc
// @Summary Get the current subscription
// @Tags Billing
// @Produce json
// @Success 200 {object} domain.SubscriptionDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /billing/subscription [get]
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.checkoutService.GetSubscription(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get subscription")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Cancel godoc
// @Summary Cancel the subscription at period end
// @Tags Billing
// @Produce json
// @Success 200 {object} domain.SubscriptionDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /billing/cancel [post]
func (h *BillingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.checkoutService.CancelSubscription(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "cancel subscription")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Reactivate godoc
// @Summary Undo a scheduled cancellation
// @Tags Billing
// @Produce json
// @Success 200 {object} domain.SubscriptionDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /billing/reactivate [post]
func (h *BillingHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.checkoutService.ReactivateSubscription(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "reactivate subscription")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// ChangePlan godoc
// @Summary Change plan or billing cycle
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body domain.ChangePlanRequest true "New plan"
// @Success 200 {object} domain.SubscriptionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /billing/change-plan [post]
func (h *BillingHandler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req domain.ChangePlanRequest
	if !parseJSON(w, r, &req) {
		return
	}

	sub, err := h.checkoutService.ChangePlan(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "change plan")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Complete godoc
// @Summary Complete a registration after checkout
// @Description Called by the client after the payment redirect. Safe to repeat; the webhook runs the same completion.
// @Tags Billing
// @Accept json
// @Produce json
// @Param request body domain.CompleteCheckoutRequest true "Checkout session"
// @Success 200 {object} domain.CompletionResponse
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment not settled yet"
// @Security BearerAuth
// @Router /billing/complete [post]
func (h *BillingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req domain.CompleteCheckoutRequest
	if !parseJSON(w, r, &req) {
		return
	}

	result, err := h.completionService.CompleteSession(r.Context(), userID, req.SessionID)
	if err != nil {
		respondServiceError(w, h.logger, err, "complete registration")
		return
	}
	respondJSON(w, http.StatusOK, domain.CompletionResponse{
		UserID:         result.UserID,
		SubscriptionID: result.SubscriptionID,
		Status:         result.Status,
		AlreadyDone:    result.AlreadyCompleted,
	})
}
