package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhookEvent(t *testing.T) {
	t.Run("checkout session completed", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_1",
			"object": "event",
			"type": "checkout.session.completed",
			"data": {"object": {"id": "cs_test_123", "object": "checkout.session", "customer": "cus_1"}}
		}`)

		event, err := ParseWebhookEvent(body, header, testWebhookSecret)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
		assert.Equal(t, "cs_test_123", event.CheckoutSessionID)
		assert.Equal(t, "cus_1", event.CustomerID)
	})

	t.Run("subscription updated", func(t *testing.T) {
		body, header := signedPayload(t, `{
			"id": "evt_2",
			"object": "event",
			"type": "customer.subscription.updated",
			"data": {"object": {
				"id": "sub_1",
				"object": "subscription",
				"customer": "cus_1",
				"status": "past_due",
				"cancel_at_period_end": true,
				"items": {"object": "list", "data": [{"id": "si_1", "current_period_start": 1700000000, "current_period_end": 1702592000}]}
			}}
		}`)

		event, err := ParseWebhookEvent(body, header, testWebhookSecret)
		require.NoError(t, err)
		require.NotNil(t, event.Subscription)
		assert.Equal(t, "sub_1", event.Subscription.SubscriptionID)
		assert.Equal(t, "past_due", event.Subscription.Status)
		assert.True(t, event.Subscription.CancelAtPeriodEnd)
		assert.Equal(t, int64(1702592000), event.Subscription.PeriodEnd)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		body, _ := signedPayload(t, `{"id":"evt_3","object":"event","type":"checkout.session.completed"}`)

		_, err := ParseWebhookEvent(body, "t=1,v1=deadbeef", testWebhookSecret)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("unhandled types carry only id and type", func(t *testing.T) {
		body, header := signedPayload(t, `{"id":"evt_4","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

		event, err := ParseWebhookEvent(body, header, testWebhookSecret)
		require.NoError(t, err)
		assert.Equal(t, "charge.refunded", event.Type)
		assert.Empty(t, event.CheckoutSessionID)
		assert.Nil(t, event.Subscription)
	})
}

func TestResultFromSession(t *testing.T) {
	userID := uuid.New()

	s := &stripe.CheckoutSession{
		ID:                "cs_1",
		Status:            stripe.CheckoutSessionStatusComplete,
		AmountTotal:       6999,
		Currency:          stripe.CurrencyEUR,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: userID.String(),
		Metadata:          map[string]string{MetaPlanType: "pro"},
		Customer:          &stripe.Customer{ID: "cus_1"},
		PaymentIntent:     &stripe.PaymentIntent{ID: "pi_1"},
		LineItems: &stripe.LineItemList{
			Data: []*stripe.LineItem{{AmountTotal: 5999}},
		},
		Subscription: &stripe.Subscription{
			ID:         "sub_1",
			Status:     stripe.SubscriptionStatusTrialing,
			TrialStart: 1700000000,
			TrialEnd:   1701209600,
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{{CurrentPeriodStart: 1700000000, CurrentPeriodEnd: 1702592000}},
			},
		},
	}

	result := ResultFromSession(s)

	got, err := result.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "cus_1", result.CustomerID)
	assert.Equal(t, "pi_1", result.PaymentIntentID)
	assert.Equal(t, "sub_1", result.SubscriptionID)
	assert.Equal(t, int64(6999), result.AmountTotal)
	require.NotNil(t, result.LineItemAmount)
	assert.Equal(t, int64(5999), *result.LineItemAmount)
	assert.Equal(t, "eur", result.Currency)
	assert.Equal(t, PaymentStatusPaid, result.PaymentStatus)
	assert.Equal(t, CheckoutStatusComplete, result.Status)
	assert.True(t, result.IsSettled())
	assert.True(t, result.IsTrialing())
	assert.Equal(t, int64(1702592000), result.PeriodEnd)
	assert.Equal(t, "pro", result.Meta(MetaPlanType))
}

func TestCheckoutResult_UserID(t *testing.T) {
	_, err := (&CheckoutResult{}).UserID()
	assert.ErrorIs(t, err, ErrMissingUserID)

	_, err = (&CheckoutResult{Metadata: map[string]string{MetaUserID: "not-a-uuid"}}).UserID()
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestCheckoutResult_IsSettled(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		paymentStatus string
		want          bool
	}{
		{"paid", CheckoutStatusComplete, PaymentStatusPaid, true},
		{"trial without payment", CheckoutStatusComplete, PaymentStatusNoPaymentRequired, true},
		{"delayed payment pending", CheckoutStatusComplete, PaymentStatusUnpaid, false},
		{"open session", "open", PaymentStatusUnpaid, false},
		{"expired session", "expired", PaymentStatusPaid, false},
		{"no status", "", PaymentStatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CheckoutResult{Status: tt.status, PaymentStatus: tt.paymentStatus}
			assert.Equal(t, tt.want, r.IsSettled())
		})
	}
}

func TestParseWebhookEvent_AsyncPaymentSucceeded(t *testing.T) {
	body, header := signedPayload(t, `{
		"id": "evt_5",
		"object": "event",
		"type": "checkout.session.async_payment_succeeded",
		"data": {"object": {"id": "cs_sepa", "object": "checkout.session", "customer": "cus_2"}}
	}`)

	event, err := ParseWebhookEvent(body, header, testWebhookSecret)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutAsyncSucceeded, event.Type)
	assert.Equal(t, "cs_sepa", event.CheckoutSessionID)
}
