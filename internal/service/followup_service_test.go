package service

import (
	"context"
	"testing"
	"time"

	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/haliqo/haliqo-api/internal/repository"
	"github.com/haliqo/haliqo-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFollowUp(t *testing.T) {
	today := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2026, 5, 10+offset, 0, 0, 0, 0, time.UTC)
		return &d
	}

	tests := []struct {
		name         string
		meta         domain.FollowUpMeta
		stage        int
		due          *time.Time
		wantType     domain.FollowUpType
		wantPriority domain.FollowUpPriority
		wantOK       bool
	}{
		{"past due is overdue and high", domain.FollowUpMeta{}, 1, day(-1), domain.FollowUpTypeOverdue, domain.FollowUpPriorityHigh, true},
		{"due today is approaching and medium", domain.FollowUpMeta{}, 1, day(0), domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityMedium, true},
		{"due in three days is medium", domain.FollowUpMeta{}, 1, day(3), domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityMedium, true},
		{"due in four days is low", domain.FollowUpMeta{}, 1, day(4), domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityLow, true},
		{"no due date is low", domain.FollowUpMeta{}, 1, nil, domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityLow, true},
		{"later stage is high", domain.FollowUpMeta{}, 2, day(10), domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityHigh, true},
		{
			"stored type wins",
			domain.FollowUpMeta{FollowUpType: domain.FollowUpTypeOverdue}, 1, day(10),
			domain.FollowUpTypeOverdue, domain.FollowUpPriorityHigh, true,
		},
		{
			"stored priority wins",
			domain.FollowUpMeta{Priority: domain.FollowUpPriorityLow}, 3, day(-5),
			domain.FollowUpTypeOverdue, domain.FollowUpPriorityLow, true,
		},
		{
			"unknown stored type is dropped",
			domain.FollowUpMeta{FollowUpType: "courtesy_call"}, 1, day(-1),
			"", "", false,
		},
		{
			"unknown stored priority is recomputed",
			domain.FollowUpMeta{Priority: "urgent"}, 1, day(2),
			domain.FollowUpTypeApproachingDeadline, domain.FollowUpPriorityMedium, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotPriority, ok := ClassifyFollowUp(tt.meta, tt.stage, tt.due, today)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantPriority, gotPriority)
		})
	}
}

func TestFollowUpService_ListInvoiceFollowUps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewFollowUpRepository(env.db)

	today := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	env.followUps.now = fixedClock(today)

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	other := testutil.CreateTestUser(t, env.db, "other@example.com")

	overdueDue := today.AddDate(0, 0, -7)
	soonDue := today.AddDate(0, 0, 2)
	overdue := testutil.CreateTestInvoice(t, env.db, user.ID, domain.InvoiceStatusOverdue, &overdueDue)
	soon := testutil.CreateTestInvoice(t, env.db, user.ID, domain.InvoiceStatusSent, &soonDue)
	paid := testutil.CreateTestInvoice(t, env.db, user.ID, domain.InvoiceStatusPaid, &overdueDue)
	foreign := testutil.CreateTestInvoice(t, env.db, other.ID, domain.InvoiceStatusOverdue, &overdueDue)

	for _, f := range []*domain.InvoiceFollowUp{
		{UserID: user.ID, InvoiceID: overdue.ID, Status: "pending", Stage: 1},
		{UserID: user.ID, InvoiceID: soon.ID, Status: "scheduled", Stage: 1},
		{UserID: user.ID, InvoiceID: paid.ID, Status: "pending", Stage: 1},
		{UserID: user.ID, InvoiceID: overdue.ID, Status: "sent", Stage: 2},
		{UserID: user.ID, InvoiceID: soon.ID, Status: "pending", Stage: 1, Meta: domain.FollowUpMeta{FollowUpType: "legacy"}},
		{UserID: other.ID, InvoiceID: foreign.ID, Status: "pending", Stage: 1},
	} {
		require.NoError(t, repo.CreateInvoiceFollowUp(ctx, f))
	}

	all, err := env.followUps.ListInvoiceFollowUps(ctx, user.ID, FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2, "paid invoices, closed follow-ups, unknown types and other users are excluded")

	byDocument := map[string]domain.FollowUpDTO{}
	for _, dto := range all {
		byDocument[dto.Number] = dto
	}
	assert.Equal(t, domain.FollowUpTypeOverdue, byDocument[overdue.InvoiceNumber].FollowUpType)
	assert.Equal(t, domain.FollowUpPriorityHigh, byDocument[overdue.InvoiceNumber].Priority)
	assert.NotEmpty(t, byDocument[overdue.InvoiceNumber].ClientName)
	assert.Equal(t, domain.FollowUpPriorityMedium, byDocument[soon.InvoiceNumber].Priority)

	filtered, err := env.followUps.ListInvoiceFollowUps(ctx, user.ID, FollowUpFilter{Type: domain.FollowUpTypeOverdue})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, overdue.ID, filtered[0].DocumentID)

	filtered, err = env.followUps.ListInvoiceFollowUps(ctx, user.ID, FollowUpFilter{Priority: domain.FollowUpPriorityLow})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestFollowUpService_ListQuoteFollowUps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewFollowUpRepository(env.db)

	today := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	env.followUps.now = fixedClock(today)

	user := testutil.CreateTestUser(t, env.db, "jean@example.com")
	validUntil := today.AddDate(0, 0, 20)
	pending := testutil.CreateTestQuote(t, env.db, user.ID, domain.QuoteStatusViewed, &validUntil)
	accepted := testutil.CreateTestQuote(t, env.db, user.ID, domain.QuoteStatusAccepted, &validUntil)

	require.NoError(t, repo.CreateQuoteFollowUp(ctx, &domain.QuoteFollowUp{UserID: user.ID, QuoteID: pending.ID, Status: "pending", Stage: 1}))
	require.NoError(t, repo.CreateQuoteFollowUp(ctx, &domain.QuoteFollowUp{UserID: user.ID, QuoteID: accepted.ID, Status: "pending", Stage: 1}))

	result, err := env.followUps.ListQuoteFollowUps(ctx, user.ID, FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, pending.QuoteNumber, result[0].Number)
	assert.Equal(t, domain.FollowUpTypeApproachingDeadline, result[0].FollowUpType)
	assert.Equal(t, domain.FollowUpPriorityLow, result[0].Priority)
	assert.Equal(t, validUntil.Format("2006-01-02"), result[0].DueDate)
}
