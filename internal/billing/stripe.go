package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway with the Stripe API
type StripeGateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway configures the Stripe client key and returns a gateway
func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret, logger: logger}
}

// CreateCheckoutSession creates a subscription-mode hosted checkout.
// It is called once per submit; callers must not retry.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.UserID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetaUserID: p.UserID.String()},
		},
		Metadata: p.Metadata,
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if p.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(p.TrialDays)
	}
	if p.Locale != "" {
		params.Locale = stripe.String(p.Locale)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// GetCheckoutResult fetches a session with its subscription and line items expanded
func (g *StripeGateway) GetCheckoutResult(ctx context.Context, sessionID string) (*CheckoutResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")
	params.AddExpand("line_items")

	s, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session %s: %w", sessionID, err)
	}
	return ResultFromSession(s), nil
}

// CreatePortalSession opens the customer billing portal
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	s, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe portal session: %w", err)
	}
	return s.URL, nil
}

// SetCancelAtPeriodEnd schedules or revokes cancellation at the period end
func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe update subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// ChangePrice moves the subscription's single item to a new price with proration
func (g *StripeGateway) ChangePrice(ctx context.Context, subscriptionID, priceID string) error {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := subscription.Get(subscriptionID, getParams)
	if err != nil {
		return fmt.Errorf("stripe get subscription %s: %w", subscriptionID, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("stripe subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	params.Context = ctx
	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe change price on %s: %w", subscriptionID, err)
	}
	return nil
}

// ParseWebhook verifies and decodes a webhook payload
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return ParseWebhookEvent(payload, signature, g.webhookSecret)
}

// ParseWebhookEvent verifies the Stripe-Signature header against secret and
// extracts the fields of the handled event types. Unhandled types are
// returned with only ID and Type set.
func ParseWebhookEvent(payload []byte, signature, secret string) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Data == nil {
		return event, nil
	}

	switch event.Type {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncSucceeded:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		event.CheckoutSessionID = cs.ID
		if cs.Customer != nil {
			event.CustomerID = cs.Customer.ID
		}
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		event.Subscription = subscriptionUpdate(&sub)
		event.CustomerID = event.Subscription.CustomerID
	case EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to decode invoice: %w", err)
		}
		if inv.Customer != nil {
			event.CustomerID = inv.Customer.ID
		}
	}
	return event, nil
}

// ResultFromSession normalizes an expanded checkout session
func ResultFromSession(s *stripe.CheckoutSession) *CheckoutResult {
	result := &CheckoutResult{
		SessionID:     s.ID,
		Status:        string(s.Status),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      map[string]string{},
	}
	for k, v := range s.Metadata {
		result.Metadata[k] = v
	}
	if result.Metadata[MetaUserID] == "" && s.ClientReferenceID != "" {
		result.Metadata[MetaUserID] = s.ClientReferenceID
	}
	if s.Customer != nil {
		result.CustomerID = s.Customer.ID
	}
	if s.PaymentIntent != nil {
		result.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.Invoice != nil {
		result.InvoiceID = s.Invoice.ID
	}
	if s.LineItems != nil && len(s.LineItems.Data) > 0 {
		amount := s.LineItems.Data[0].AmountTotal
		result.LineItemAmount = &amount
	}
	if s.Subscription != nil {
		update := subscriptionUpdate(s.Subscription)
		result.SubscriptionID = update.SubscriptionID
		result.SubscriptionStatus = update.Status
		result.TrialStart = s.Subscription.TrialStart
		result.TrialEnd = update.TrialEnd
		result.PeriodStart = update.PeriodStart
		result.PeriodEnd = update.PeriodEnd
		if result.CustomerID == "" {
			result.CustomerID = update.CustomerID
		}
	}
	return result
}

func subscriptionUpdate(sub *stripe.Subscription) *SubscriptionUpdate {
	update := &SubscriptionUpdate{
		SubscriptionID:    sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		TrialEnd:          sub.TrialEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		update.CustomerID = sub.Customer.ID
	}
	// Billing periods live on the subscription items
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		update.PeriodStart = item.CurrentPeriodStart
		update.PeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			update.PriceID = item.Price.ID
		}
	}
	return update
}
