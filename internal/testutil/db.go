package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/haliqo/haliqo-api/internal/database"
	"github.com/haliqo/haliqo-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database migrated from the
// domain models. Each call gets its own database, closed when the test ends.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err, "Failed to open in-memory test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive and
	// serializes writes the way SQLite expects.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "Failed to migrate test database")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Logger returns a no-op logger for tests
func Logger() *zap.Logger {
	return zap.NewNop()
}

// CreateTestUser inserts a user in the pending state
func CreateTestUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                 uuid.New(),
		Email:              email,
		FirstName:          "Jean",
		LastName:           "Dupont",
		Phone:              "+33612345678",
		Country:            "FR",
		Professions:        []string{"plombier"},
		BusinessSize:       "solo",
		SelectedPlan:       "pro",
		BillingCycle:       domain.BillingCycleMonthly,
		SubscriptionStatus: domain.SubscriptionStatusPending,
		Language:           domain.DefaultLanguage,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestSubscription inserts a subscription for a user
func CreateTestSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID, status domain.SubscriptionStatus, trialEnd *time.Time) *domain.Subscription {
	t.Helper()
	sub := &domain.Subscription{
		UserID:               userID,
		PlanType:             "pro",
		PlanName:             "Pro",
		Interval:             domain.BillingCycleMonthly,
		Amount:               decimal.RequireFromString("69.99"),
		Currency:             "EUR",
		Status:               status,
		TrialEnd:             trialEnd,
		StripeSubscriptionID: "sub_" + uuid.NewString()[:8],
		StripeCustomerID:     "cus_" + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

// CreateTestInvoice inserts an invoice with the given status and due date
func CreateTestInvoice(t *testing.T, db *gorm.DB, userID uuid.UUID, status domain.InvoiceStatus, due *time.Time) *domain.Invoice {
	t.Helper()
	client := &domain.Client{UserID: userID, Name: "Client " + uuid.NewString()[:6]}
	require.NoError(t, db.Create(client).Error)

	invoice := &domain.Invoice{
		UserID:        userID,
		ClientID:      &client.ID,
		InvoiceNumber: "F-" + uuid.NewString()[:6],
		Title:         "Rénovation salle de bain",
		Status:        status,
		FinalAmount:   decimal.RequireFromString("1250.00"),
		DueDate:       due,
	}
	require.NoError(t, db.Create(invoice).Error)
	return invoice
}

// CreateTestQuote inserts a quote with the given status and validity date
func CreateTestQuote(t *testing.T, db *gorm.DB, userID uuid.UUID, status domain.QuoteStatus, validUntil *time.Time) *domain.Quote {
	t.Helper()
	quote := &domain.Quote{
		UserID:      userID,
		QuoteNumber: "D-" + uuid.NewString()[:6],
		Title:       "Pose de carrelage",
		Status:      status,
		FinalAmount: decimal.RequireFromString("840.00"),
		ValidUntil:  validUntil,
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}
