package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// planDisplayNames maps plan types to their marketing names
var planDisplayNames = map[string]string{
	"starter": "Starter",
	"pro":     "Pro",
}

// DefaultPricingCatalog is served when no pricing row is configured
func DefaultPricingCatalog() *domain.PricingCatalog {
	return &domain.PricingCatalog{
		Currency: "EUR",
		Plans: []domain.PlanPricing{
			{
				Type:          "starter",
				Name:          "Starter",
				MonthlyAmount: decimal.RequireFromString("29.99"),
				YearlyAmount:  decimal.RequireFromString("299.90"),
				TrialDays:     14,
				Features:      []string{"Devis et factures illimités", "Relances automatiques", "1 utilisateur"},
			},
			{
				Type:          "pro",
				Name:          "Pro",
				MonthlyAmount: decimal.RequireFromString("69.99"),
				YearlyAmount:  decimal.RequireFromString("699.90"),
				TrialDays:     14,
				Features:      []string{"Tout Starter", "Analyses avancées", "Utilisateurs illimités", "Support prioritaire"},
			},
		},
	}
}

// PricingService reads the plan catalog with an in-memory TTL cache
type PricingService struct {
	settingRepo *repository.AppSettingRepository
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	cached   *domain.PricingCatalog
	cachedAt time.Time
}

// NewPricingService creates a new PricingService instance
func NewPricingService(settingRepo *repository.AppSettingRepository, ttl time.Duration, logger *zap.Logger) *PricingService {
	return &PricingService{
		settingRepo: settingRepo,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// GetPricing returns the configured catalog, or the built-in one when absent
func (s *PricingService) GetPricing(ctx context.Context) (*domain.PricingCatalog, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		catalog := s.cached
		s.mu.Unlock()
		return catalog, nil
	}
	s.mu.Unlock()

	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = catalog
	s.cachedAt = s.now()
	s.mu.Unlock()
	return catalog, nil
}

func (s *PricingService) load(ctx context.Context) (*domain.PricingCatalog, error) {
	setting, err := s.settingRepo.Get(ctx, domain.PricingSettingKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultPricingCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}

	var catalog domain.PricingCatalog
	if err := json.Unmarshal([]byte(setting.Value), &catalog); err != nil || len(catalog.Plans) == 0 {
		s.logger.Warn("Invalid pricing setting, using built-in catalog", zap.Error(err))
		return DefaultPricingCatalog(), nil
	}
	if catalog.Currency == "" {
		catalog.Currency = "EUR"
	}
	return &catalog, nil
}

// Invalidate drops the cached catalog
func (s *PricingService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// GetPlan looks up one plan
func (s *PricingService) GetPlan(ctx context.Context, planType string) (*domain.PlanPricing, error) {
	catalog, err := s.GetPricing(ctx)
	if err != nil {
		return nil, err
	}
	plan, ok := catalog.Plan(planType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planType)
	}
	return plan, nil
}

// Amount returns the price of a plan for a billing cycle
func (s *PricingService) Amount(ctx context.Context, planType string, cycle domain.BillingCycle) (decimal.Decimal, error) {
	plan, err := s.GetPlan(ctx, planType)
	if err != nil {
		return decimal.Zero, err
	}
	return plan.Amount(cycle), nil
}

// DisplayName maps a plan type to its display name, unknown types map to themselves
func (s *PricingService) DisplayName(planType string) string {
	return DisplayPlanName(planType)
}

// DisplayPlanName is the package-level form of DisplayName
func DisplayPlanName(planType string) string {
	if name, ok := planDisplayNames[planType]; ok {
		return name
	}
	return planType
}
