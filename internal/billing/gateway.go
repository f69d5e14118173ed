// Package billing wraps the payment provider (Stripe) behind a small,
// provider-neutral interface.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Metadata keys written on checkout sessions and subscriptions
const (
	MetaUserID       = "user_id"
	MetaPlanType     = "plan_type"
	MetaBillingCycle = "billing_cycle"
	MetaEmail        = "email"
	MetaFirstName    = "first_name"
	MetaLastName     = "last_name"
	MetaPhone        = "phone"
	MetaLanguage     = "language"
	MetaCompanyName  = "company_name"
	MetaVATNumber    = "vat_number"
	MetaAddress      = "address"
	MetaPostalCode   = "postal_code"
	MetaCity         = "city"
	MetaState        = "state"
	MetaCountry      = "country"
)

// Provider payment statuses of a checkout session
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// CheckoutStatusComplete is the session status once the customer finished checkout
const CheckoutStatusComplete = "complete"

// Provider subscription statuses
const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Webhook event types handled by the API
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventCheckoutAsyncSucceeded   = "checkout.session.async_payment_succeeded"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

var (
	// ErrInvalidSignature is returned for webhook payloads failing verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMissingUserID is returned when a checkout carries no user reference
	ErrMissingUserID = errors.New("checkout session has no user reference")
)

// CheckoutParams describes a hosted checkout for a subscription
type CheckoutParams struct {
	PriceID       string
	CustomerEmail string
	CustomerID    string
	UserID        uuid.UUID
	SuccessURL    string
	CancelURL     string
	TrialDays     int64
	Locale        string
	Metadata      map[string]string
}

// CheckoutSession is a created hosted checkout
type CheckoutSession struct {
	ID  string
	URL string
}

// CheckoutResult is the normalized outcome of a completed checkout.
// Amounts are in minor units (cents); timestamps are epoch seconds, 0 when unset.
type CheckoutResult struct {
	SessionID          string
	Status             string
	CustomerID         string
	SubscriptionID     string
	PaymentIntentID    string
	InvoiceID          string
	AmountTotal        int64
	LineItemAmount     *int64
	Currency           string
	PaymentStatus      string
	SubscriptionStatus string
	TrialStart         int64
	TrialEnd           int64
	PeriodStart        int64
	PeriodEnd          int64
	Metadata           map[string]string
}

// UserID returns the user the checkout was created for
func (r *CheckoutResult) UserID() (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Metadata[MetaUserID])
	if raw == "" {
		return uuid.Nil, ErrMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrMissingUserID, raw)
	}
	return id, nil
}

// IsSettled reports whether the provider confirmed the checkout: the session
// is complete and was either paid or needed no payment (trial). Delayed
// payment methods stay unpaid until the async success event.
func (r *CheckoutResult) IsSettled() bool {
	if r.Status != CheckoutStatusComplete {
		return false
	}
	return r.PaymentStatus == PaymentStatusPaid || r.PaymentStatus == PaymentStatusNoPaymentRequired
}

// IsTrialing reports whether the subscription started in a trial
func (r *CheckoutResult) IsTrialing() bool {
	return r.SubscriptionStatus == SubscriptionStatusTrialing ||
		(r.SubscriptionStatus == "" && r.TrialEnd > 0)
}

// Meta returns a metadata value or empty string
func (r *CheckoutResult) Meta(key string) string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata[key]
}

// SubscriptionUpdate is the payload of subscription lifecycle events
type SubscriptionUpdate struct {
	SubscriptionID    string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	TrialEnd          int64
	PeriodStart       int64
	PeriodEnd         int64
	PriceID           string
	Metadata          map[string]string
}

// Event is a verified webhook event reduced to the fields the API consumes
type Event struct {
	ID                string
	Type              string
	CheckoutSessionID string
	CustomerID        string
	Subscription      *SubscriptionUpdate
}

// Gateway is the billing provider used by checkout, completion and webhooks
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutResult(ctx context.Context, sessionID string) (*CheckoutResult, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error
	ChangePrice(ctx context.Context, subscriptionID, priceID string) error
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
