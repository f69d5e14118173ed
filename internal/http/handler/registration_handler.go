package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// RegistrationHandler serves the three-step registration flow
type RegistrationHandler struct {
	registrationService *service.RegistrationService
	logger              *zap.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler instance
func NewRegistrationHandler(registrationService *service.RegistrationService, logger *zap.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		logger:              logger,
	}
}

// ValidateStep godoc
// @Summary Validate a registration step
// @Description Runs the field checks of one step. Step 1 also reports whether the email belongs to an unfinished registration, returning its saved data as prefill.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body domain.ValidateStepRequest true "Step and form data"
// @Success 200 {object} domain.StepResultDTO
// @Failure 400 {object} domain.APIError
// @Router /registration/validate [post]
func (h *RegistrationHandler) ValidateStep(w http.ResponseWriter, r *http.Request) {
	var req domain.ValidateStepRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Step < 1 || req.Step > domain.RegistrationStepCount {
		respondFieldErrors(w, map[string]string{"step": "Étape inconnue"})
		return
	}

	result, err := h.registrationService.ValidateStep(r.Context(), req.Step, &req.Form)
	if err != nil {
		respondServiceError(w, h.logger, err, "validate registration step")
		return
	}

	respondJSON(w, http.StatusOK, domain.StepResultDTO{
		Valid:    result.Valid(),
		Errors:   result.Errors,
		Resuming: result.Resuming,
		Prefill:  result.Prefill,
	})
}

// Submit godoc
// @Summary Submit the registration
// @Description Creates (or resumes) the account, saves the form and opens a checkout session
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body domain.RegistrationForm true "Complete registration form"
// @Success 201 {object} domain.SubmitRegistrationResponse
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError "Existing account, wrong password"
// @Failure 409 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Router /registration/submit [post]
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form domain.RegistrationForm
	if !decodeJSON(w, r, &form) {
		return
	}
	if form.Language == "" {
		form.Language = service.NegotiateLanguage(r.Header.Get("Accept-Language"))
	}

	result, err := h.registrationService.Submit(r.Context(), &form)
	if err != nil {
		respondServiceError(w, h.logger, err, "submit registration")
		return
	}

	respondJSON(w, http.StatusCreated, domain.SubmitRegistrationResponse{
		UserID:            result.UserID,
		CheckoutSessionID: result.CheckoutSessionID,
		CheckoutURL:       result.CheckoutURL,
		Resumed:           result.Resumed,
	})
}

// SaveProgress godoc
// @Summary Save registration progress
// @Description Persists the current form of the signed-in user without validating it
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body domain.RegistrationForm true "Partial registration form"
// @Success 200 {object} domain.ActionResponse
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /registration/progress [put]
func (h *RegistrationHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var form domain.RegistrationForm
	if !decodeJSON(w, r, &form) {
		return
	}

	if err := h.registrationService.SaveProgress(r.Context(), userID, &form); err != nil {
		respondServiceError(w, h.logger, err, "save registration progress")
		return
	}
	respondJSON(w, http.StatusOK, domain.ActionResponse{Success: true})
}

// Status godoc
// @Summary Get registration status
// @Tags Registration
// @Produce json
// @Success 200 {object} domain.RegistrationStatusDTO
// @Failure 401 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /registration/status [get]
func (h *RegistrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	status, err := h.registrationService.Status(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get registration status")
		return
	}
	respondJSON(w, http.StatusOK, status)
}
