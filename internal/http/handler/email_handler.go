package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/haliqo/haliqo-api/internal/auth"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// EmailHandler triggers transactional emails on behalf of the web client or
// internal callers holding the API key.
type EmailHandler struct {
	notificationService *service.NotificationService
	logger              *zap.Logger
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(notificationService *service.NotificationService, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// Send godoc
// @Summary Send a transactional email
// @Description Resolves the template for emailType, renders it with emailData and sends it. Users may only target their own account.
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body domain.SendEmailRequest true "Email type and data"
// @Success 200 {object} domain.SendEmailResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 502 {object} domain.APIError "Delivery failed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /emails/send [post]
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req domain.SendEmailRequest
	if !parseJSON(w, r, &req) {
		return
	}
	if !req.EmailType.IsValid() {
		respondFieldErrors(w, map[string]string{"emailType": "Type d'e-mail inconnu"})
		return
	}

	data := req.EmailData
	if userCtx.IsUser() {
		id := userCtx.UserID
		data.UserID = &id
		data.UserEmail = ""
	}
	if data.UserID == nil && data.UserEmail == "" {
		respondFieldErrors(w, map[string]string{"userEmail": "Destinataire requis"})
		return
	}

	trialEnd, err := parseOptionalDate(data.TrialEndDate)
	if err != nil {
		respondFieldErrors(w, map[string]string{"trialEndDate": "Date invalide"})
		return
	}
	effective, err := parseOptionalDate(data.EffectiveDate)
	if err != nil {
		respondFieldErrors(w, map[string]string{"effectiveDate": "Date invalide"})
		return
	}

	notification := service.NotificationRequest{
		Type:           req.EmailType,
		UserID:         data.UserID,
		Email:          data.UserEmail,
		Language:       data.Language,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		PlanType:       data.PlanType,
		OldPlanType:    data.OldPlanType,
		NewPlanType:    data.NewPlanType,
		BillingCycle:   domain.BillingCycle(data.BillingCycle),
		TrialEnd:       trialEnd,
		EffectiveDate:  effective,
		Vars:           service.TemplateVars{UserName: data.UserName},
	}

	if err := h.notificationService.Send(r.Context(), notification); err != nil {
		respondServiceError(w, h.logger, err, "send email")
		return
	}
	respondJSON(w, http.StatusOK, domain.SendEmailResponse{Success: true})
}

// parseOptionalDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates
func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}
