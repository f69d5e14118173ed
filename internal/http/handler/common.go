package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/auth"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// Package-level validator instance
var validate = validator.New()

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError writes a validation error response with field-level details
func respondValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fieldErrors := make(map[string]string)
		for _, fe := range validationErrors {
			fieldErrors[toJSONFieldName(fe.Field())] = domain.GetValidationMessage(fe.Tag())
		}
		respondFieldErrors(w, fieldErrors)
		return
	}
	respondWithError(w, http.StatusBadRequest, err.Error())
}

// respondFieldErrors writes a 400 problem carrying a field -> message map
func respondFieldErrors(w http.ResponseWriter, fieldErrors map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "Certains champs sont invalides",
		Errors: fieldErrors,
	})
}

// toJSONFieldName converts a Go struct field name to camelCase JSON field name
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	if strings.HasSuffix(field, "ID") && len(field) > 2 {
		return strings.ToLower(field[:1]) + field[1:len(field)-2] + "Id"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// decodeJSON decodes the request body, writing 400 on malformed input
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseJSON decodes the request body and runs struct validation
func parseJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// respondWithError writes an RFC 7807 Problem Details error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// getErrorType returns the error type for a given HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return domain.ErrorTypeTooManyRequest
	case http.StatusBadGateway:
		return domain.ErrorTypeUpstream
	default:
		return domain.ErrorTypeInternal
	}
}

// respondServiceError maps service errors to problem responses. Unknown
// errors are logged and reported as 500 without internal detail.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	var stepErr *service.StepValidationError
	if errors.As(err, &stepErr) {
		respondFieldErrors(w, stepErr.Errors)
		return
	}
	var attemptErr *service.OTPAttemptError
	if errors.As(err, &attemptErr) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(domain.APIError{
			Type:   domain.ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: "Code de vérification incorrect",
			Errors: map[string]string{"remainingAttempts": strconv.Itoa(attemptErr.Remaining)},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrResumeCredentialsMismatch):
		respondWithError(w, http.StatusUnauthorized, service.ResumeCredentialsMessage)
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		respondWithError(w, http.StatusConflict, "Cette adresse e-mail est déjà associée à un compte actif")
	case errors.Is(err, service.ErrEmailNotVerified):
		respondWithError(w, http.StatusBadRequest, "Adresse e-mail non vérifiée")
	case errors.Is(err, service.ErrCheckoutInitFailed):
		logger.Error("Checkout initialization failed", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Impossible d'initialiser le paiement, veuillez réessayer")
	case errors.Is(err, service.ErrRemoteService):
		logger.Error("Remote service failure", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Service d'authentification indisponible, veuillez réessayer")
	case errors.Is(err, service.ErrDeliveryFailed):
		logger.Error("Email delivery failed", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Échec de l'envoi de l'e-mail, veuillez réessayer")
	case errors.Is(err, service.ErrOTPNotFound):
		respondWithError(w, http.StatusBadRequest, "Aucun code de vérification demandé pour cette adresse")
	case errors.Is(err, service.ErrOTPExpired):
		respondWithError(w, http.StatusBadRequest, "Le code de vérification a expiré")
	case errors.Is(err, service.ErrOTPLocked):
		respondWithError(w, http.StatusTooManyRequests, "Trop de tentatives, demandez un nouveau code")
	case errors.Is(err, service.ErrCheckoutNotOwned):
		respondWithError(w, http.StatusForbidden, "Cette session de paiement ne vous appartient pas")
	case errors.Is(err, service.ErrCheckoutNotPaid):
		respondWithError(w, http.StatusConflict, "Le paiement n'est pas encore confirmé")
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrSubscriptionNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoBillingAccount):
		respondWithError(w, http.StatusConflict, "Aucun compte de facturation associé")
	case errors.Is(err, service.ErrConflict):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrUnknownTemplateVariable):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request failed", zap.String("action", action), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// currentUserID returns the authenticated end user, writing 401 when absent
func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok || !userCtx.IsUser() {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return userCtx.UserID, true
}
