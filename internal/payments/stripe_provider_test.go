package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type fakeSessionAPI struct {
	params  *stripe.CheckoutSessionParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type fakeIntentAPI struct {
	intent *stripe.PaymentIntent
	err    error
}

func (f *fakeIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

type fakeRefundAPI struct {
	params *stripe.RefundParams
	err    error
}

func (f *fakeRefundAPI) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.Refund{ID: "re_1"}, nil
}

func newFakeProvider(t *testing.T, clients stripeClients) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider(StripeProviderConfig{
		Clients: &clients,
		Clock: func() time.Time {
			return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	return provider
}

func TestStripeProviderCreateCheckoutSession(t *testing.T) {
	sessions := &fakeSessionAPI{
		session: &stripe.CheckoutSession{
			ID:            "cs_test",
			URL:           "https://checkout.stripe.com/pay/cs_test",
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_test"},
			ExpiresAt:     time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC).Unix(),
		},
	}
	provider := newFakeProvider(t, stripeClients{
		sessions: sessions,
		intents:  &fakeIntentAPI{},
		refunds:  &fakeRefundAPI{},
	})

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		OrderID:    "order-1",
		Amount:     12800,
		Currency:   "USD",
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
		Items: []CheckoutLineItem{
			{Name: "Silk Blouse", ProductID: "prod-1", Size: "M", Quantity: 2, UnitAmount: 6400},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}

	if session.ID != "cs_test" || session.IntentID != "pi_test" {
		t.Fatalf("unexpected session %#v", session)
	}
	if session.ExpiresAt != time.Date(2026, 3, 4, 12, 30, 0, 0, time.UTC) {
		t.Fatalf("unexpected expiry %s", session.ExpiresAt)
	}

	params := sessions.params
	if params == nil {
		t.Fatalf("expected session params captured")
	}
	if got := params.Metadata["orderId"]; got != "order-1" {
		t.Errorf("expected orderId metadata, got %q", got)
	}
	if len(params.LineItems) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(params.LineItems))
	}
	line := params.LineItems[0]
	if line.Quantity == nil || *line.Quantity != 2 {
		t.Errorf("unexpected quantity %+v", line.Quantity)
	}
	if line.PriceData == nil || line.PriceData.Currency == nil || *line.PriceData.Currency != "usd" {
		t.Errorf("expected lowercased currency on line item")
	}
	if got := line.PriceData.ProductData.Metadata["size"]; got != "M" {
		t.Errorf("expected size metadata, got %q", got)
	}
}

func TestStripeProviderCreateCheckoutSessionFallbackLineItem(t *testing.T) {
	sessions := &fakeSessionAPI{session: &stripe.CheckoutSession{ID: "cs_min"}}
	provider := newFakeProvider(t, stripeClients{
		sessions: sessions,
		intents:  &fakeIntentAPI{},
		refunds:  &fakeRefundAPI{},
	})

	if _, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Amount:   5000,
		Currency: "EUR",
	}); err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}

	if len(sessions.params.LineItems) != 1 {
		t.Fatalf("expected fallback line item")
	}
	line := sessions.params.LineItems[0]
	if line.PriceData.UnitAmount == nil || *line.PriceData.UnitAmount != 5000 {
		t.Errorf("expected fallback amount 5000")
	}
}

func TestStripeProviderRefundLooksUpIntent(t *testing.T) {
	refunds := &fakeRefundAPI{}
	intents := &fakeIntentAPI{
		intent: &stripe.PaymentIntent{
			ID:       "pi_refund",
			Status:   stripe.PaymentIntentStatusSucceeded,
			Amount:   9900,
			Currency: "usd",
			LatestCharge: &stripe.Charge{
				Created:        time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC).Unix(),
				Amount:         9900,
				AmountRefunded: 9900,
				Refunded:       true,
				Paid:           true,
			},
		},
	}
	provider := newFakeProvider(t, stripeClients{
		sessions: &fakeSessionAPI{},
		intents:  intents,
		refunds:  refunds,
	})

	details, err := provider.Refund(context.Background(), RefundRequest{
		IntentID: "pi_refund",
		Reason:   "requested_by_customer",
	})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}

	if refunds.params == nil || refunds.params.PaymentIntent == nil || *refunds.params.PaymentIntent != "pi_refund" {
		t.Fatalf("expected refund params captured")
	}
	if refunds.params.Reason == nil || *refunds.params.Reason != string(stripe.RefundReasonRequestedByCustomer) {
		t.Errorf("expected refund reason mapped")
	}
	if details.Status != StatusRefunded {
		t.Errorf("expected refunded status, got %s", details.Status)
	}
	if details.Currency != "USD" {
		t.Errorf("expected uppercased currency, got %s", details.Currency)
	}
	if details.RefundedAt == nil {
		t.Errorf("expected refundedAt populated")
	}
}

func TestStripeProviderLookupPaymentPending(t *testing.T) {
	intents := &fakeIntentAPI{
		intent: &stripe.PaymentIntent{
			ID:       "pi_pending",
			Status:   stripe.PaymentIntentStatusRequiresAction,
			Amount:   4200,
			Currency: "gbp",
		},
	}
	provider := newFakeProvider(t, stripeClients{
		sessions: &fakeSessionAPI{},
		intents:  intents,
		refunds:  &fakeRefundAPI{},
	})

	details, err := provider.LookupPayment(context.Background(), LookupRequest{IntentID: "pi_pending"})
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if details.Status != StatusPending {
		t.Errorf("expected pending status, got %s", details.Status)
	}
	if details.Captured {
		t.Errorf("expected not captured")
	}
}
