package handler

import (
	"fmt"
	"net/http"

	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

type CompanyProfileHandler struct {
	companyService *service.CompanyProfileService
	maxUploadMB    int64
	logger         *zap.Logger
}

func NewCompanyProfileHandler(companyService *service.CompanyProfileService, maxUploadMB int64, logger *zap.Logger) *CompanyProfileHandler {
	return &CompanyProfileHandler{
		companyService: companyService,
		maxUploadMB:    maxUploadMB,
		logger:         logger,
	}
}

// @Summary Get company profile
// @Tags CompanyProfile
// @Produce json
// @Success 200 {object} domain.CompanyProfileDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /company-profile [get]
func (h *CompanyProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.companyService.Get(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err, "get company profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// @Summary Upload company logo
// @Tags CompanyProfile
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Logo (png, jpeg, webp or svg)"
// @Success 200 {object} domain.CompanyProfileDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /company-profile/logo [put]
func (h *CompanyProfileHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	// Limit request size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	profile, err := h.companyService.UploadLogo(r.Context(), userID, header.Filename, contentType, file)
	if err != nil {
		respondServiceError(w, h.logger, err, "upload logo")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
