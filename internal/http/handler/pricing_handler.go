package handler

import (
	"net/http"

	"github.com/haliqo/haliqo-api/internal/service"
	"go.uber.org/zap"
)

// PricingHandler exposes the plan catalog
type PricingHandler struct {
	pricingService *service.PricingService
	logger         *zap.Logger
}

// NewPricingHandler creates a new PricingHandler instance
func NewPricingHandler(pricingService *service.PricingService, logger *zap.Logger) *PricingHandler {
	return &PricingHandler{
		pricingService: pricingService,
		logger:         logger,
	}
}

// Get godoc
// @Summary Get plan pricing
// @Description Returns the plans offered at registration with monthly and yearly amounts
// @Tags Pricing
// @Produce json
// @Success 200 {object} domain.PricingCatalog
// @Failure 500 {object} domain.APIError
// @Router /pricing [get]
func (h *PricingHandler) Get(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.pricingService.GetPricing(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load pricing")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	respondJSON(w, http.StatusOK, catalog)
}
