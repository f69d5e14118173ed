package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// FollowUpHandler lists classified invoice and quote follow-ups
type FollowUpHandler struct {
	followUpService *service.FollowUpService
	logger          *zap.Logger
}

// NewFollowUpHandler creates a new FollowUpHandler instance
func NewFollowUpHandler(followUpService *service.FollowUpService, logger *zap.Logger) *FollowUpHandler {
	return &FollowUpHandler{
		followUpService: followUpService,
		logger:          logger,
	}
}

// parseFollowUpFilter reads the optional type and priority query parameters
func parseFollowUpFilter(w http.ResponseWriter, r *http.Request) (service.FollowUpFilter, bool) {
	filter := service.FollowUpFilter{
		Type:     domain.FollowUpType(r.URL.Query().Get("type")),
		Priority: domain.FollowUpPriority(r.URL.Query().Get("priority")),
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		respondWithError(w, http.StatusBadRequest, "invalid type: must be one of overdue, approaching_deadline")
		return filter, false
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		respondWithError(w, http.StatusBadRequest, "invalid priority: must be one of high, medium, low")
		return filter, false
	}
	return filter, true
}

// ListInvoices godoc
// @Summary List invoice follow-ups
// @Tags FollowUps
// @Produce json
// @Param type query string false "Follow-up type" Enums(overdue, approaching_deadline)
// @Param priority query string false "Priority" Enums(high, medium, low)
// @Success 200 {object} domain.FollowUpListResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /follow-ups/invoices [get]
func (h *FollowUpHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	filter, ok := parseFollowUpFilter(w, r)
	if !ok {
		return
	}

	items, err := h.followUpService.ListInvoiceFollowUps(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "list invoice follow-ups")
		return
	}
	respondJSON(w, http.StatusOK, domain.FollowUpListResponse{Data: items, Total: len(items)})
}

// ListQuotes godoc
// @Summary List quote follow-ups
// @Tags FollowUps
// @Produce json
// @Param type query string false "Follow-up type" Enums(overdue, approaching_deadline)
// @Param priority query string false "Priority" Enums(high, medium, low)
// @Success 200 {object} domain.FollowUpListResponse
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /follow-ups/quotes [get]
func (h *FollowUpHandler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	filter, ok := parseFollowUpFilter(w, r)
	if !ok {
		return
	}

	items, err := h.followUpService.ListQuoteFollowUps(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "list quote follow-ups")
		return
	}
	respondJSON(w, http.StatusOK, domain.FollowUpListResponse{Data: items, Total: len(items)})
}
