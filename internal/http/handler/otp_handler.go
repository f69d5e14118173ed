package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// OTPHandler serves email verification codes
type OTPHandler struct {
	otpService *service.OTPService
	logger     *zap.Logger
}

// NewOTPHandler creates a new OTPHandler instance
func NewOTPHandler(otpService *service.OTPService, logger *zap.Logger) *OTPHandler {
	return &OTPHandler{
		otpService: otpService,
		logger:     logger,
	}
}

// Generate godoc
// @Summary Send an email verification code
// @Description Replaces any previous code for the address and emails a new 6-digit code valid 10 minutes
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body domain.GenerateOTPRequest true "Email address"
// @Success 200 {object} domain.OTPResponse
// @Failure 400 {object} domain.APIError
// @Failure 429 {object} domain.APIError
// @Router /otp/generate [post]
func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateOTPRequest
	if !parseJSON(w, r, &req) {
		return
	}

	expiresAt, err := h.otpService.Generate(r.Context(), req.Email, req.Language, r.Header.Get("Accept-Language"))
	if err != nil {
		respondServiceError(w, h.logger, err, "send verification code")
		return
	}
	respondJSON(w, http.StatusOK, domain.OTPResponse{Success: true, ExpiresAt: expiresAt})
}

// Verify godoc
// @Summary Verify an email verification code
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body domain.VerifyOTPRequest true "Email and code"
// @Success 200 {object} domain.OTPResponse
// @Failure 400 {object} domain.APIError "Wrong, expired or missing code"
// @Failure 429 {object} domain.APIError "Too many attempts"
// @Router /otp/verify [post]
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !parseJSON(w, r, &req) {
		return
	}

	if err := h.otpService.Verify(r.Context(), req.Email, req.Code); err != nil {
		respondServiceError(w, h.logger, err, "verify code")
		return
	}
	respondJSON(w, http.StatusOK, domain.OTPResponse{Success: true, Verified: true})
}
