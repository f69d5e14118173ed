package domain

import "github.com/shopspring/decimal"

// PricingSettingKey is the app_settings key holding the plan catalog
const PricingSettingKey = "pricing"

// PlanPricing is one purchasable plan
type PlanPricing struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	MonthlyAmount decimal.Decimal `json:"monthlyAmount"`
	YearlyAmount  decimal.Decimal `json:"yearlyAmount"`
	TrialDays     int             `json:"trialDays"`
	Features      []string        `json:"features"`
}

// Amount returns the price for the given billing cycle
func (p *PlanPricing) Amount(cycle BillingCycle) decimal.Decimal {
	if cycle == BillingCycleYearly {
		return p.YearlyAmount
	}
	return p.MonthlyAmount
}

// PricingCatalog is the set of plans offered at registration
type PricingCatalog struct {
	Currency string        `json:"currency"`
	Plans    []PlanPricing `json:"plans"`
}

// Plan looks up a plan by type
func (c *PricingCatalog) Plan(planType string) (*PlanPricing, bool) {
	for i := range c.Plans {
		if c.Plans[i].Type == planType {
			return &c.Plans[i], true
		}
	}
	return nil, false
}
