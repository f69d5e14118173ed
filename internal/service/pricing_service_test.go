package service

import (
	"context"
	"testing"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customCatalog = `{
	"currency": "EUR",
	"plans": [
		{"type": "pro", "name": "Pro+", "monthlyAmount": "79.99", "yearlyAmount": "799.90", "trialDays": 30, "features": ["Tout"]}
	]
}`

func TestPricingService_DefaultCatalog(t *testing.T) {
	env := newTestEnv(t)

	catalog, err := env.pricing.GetPricing(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EUR", catalog.Currency)
	require.Len(t, catalog.Plans, 2)

	pro, ok := catalog.Plan("pro")
	require.True(t, ok)
	assert.True(t, pro.Amount(domain.BillingCycleMonthly).Equal(decimal.RequireFromString("69.99")))
	assert.True(t, pro.Amount(domain.BillingCycleYearly).Equal(decimal.RequireFromString("699.90")))
}

func TestPricingService_StoredCatalogIsCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	env.pricing.now = func() time.Time { return now }

	require.NoError(t, env.settingRepo.Upsert(ctx, &domain.AppSetting{Key: domain.PricingSettingKey, Value: customCatalog}))

	plan, err := env.pricing.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, "Pro+", plan.Name)
	assert.Equal(t, 30, plan.TrialDays)

	_, err = env.pricing.GetPlan(ctx, "starter")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// Served from cache until the TTL elapses
	require.NoError(t, env.settingRepo.Upsert(ctx, &domain.AppSetting{
		Key:   domain.PricingSettingKey,
		Value: `{"plans":[{"type":"pro","name":"Pro 2026","monthlyAmount":"89.99","yearlyAmount":"899.90"}]}`,
	}))
	plan, err = env.pricing.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, "Pro+", plan.Name)

	now = now.Add(2 * time.Minute)
	plan, err = env.pricing.GetPlan(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, "Pro 2026", plan.Name)

	catalog, err := env.pricing.GetPricing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", catalog.Currency, "currency defaults to EUR")
}

func TestPricingService_Invalidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pricing.GetPricing(ctx)
	require.NoError(t, err)

	require.NoError(t, env.settingRepo.Upsert(ctx, &domain.AppSetting{Key: domain.PricingSettingKey, Value: customCatalog}))
	env.pricing.Invalidate()

	amount, err := env.pricing.Amount(ctx, "pro", domain.BillingCycleMonthly)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("79.99")))
}

func TestPricingService_InvalidSettingFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.settingRepo.Upsert(ctx, &domain.AppSetting{Key: domain.PricingSettingKey, Value: `{"plans": []}`}))

	catalog, err := env.pricing.GetPricing(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.Plans, 2)
}

func TestDisplayPlanName(t *testing.T) {
	assert.Equal(t, "Starter", DisplayPlanName("starter"))
	assert.Equal(t, "Pro", DisplayPlanName("pro"))
	assert.Equal(t, "custom", DisplayPlanName("custom"))
}
