package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/haliqo/haliqo-api/internal/billing"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// maxWebhookBodyBytes bounds the payload read from the billing provider
const maxWebhookBodyBytes = 65536

// WebhookHandler receives billing provider events
type WebhookHandler struct {
	webhookService *service.BillingWebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(webhookService *service.BillingWebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// Stripe godoc
// @Summary Stripe webhook
// @Description Verifies the Stripe-Signature header and applies checkout and subscription events. Processing failures return 500 so the provider retries.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	event, err := h.webhookService.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			h.logger.Warn("Rejected webhook with invalid signature", zap.Error(err))
			respondWithError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		fields := []zap.Field{zap.Error(err)}
		if event != nil {
			fields = append(fields, zap.String("event_id", event.ID), zap.String("event_type", event.Type))
		}
		h.logger.Error("Failed to process webhook event", fields...)
		respondWithError(w, http.StatusInternalServerError, "Failed to process event")
		return
	}

	h.logger.Info("Webhook event processed", zap.String("event_id", event.ID), zap.String("event_type", event.Type))
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
