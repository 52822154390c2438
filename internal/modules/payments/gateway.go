package payments

import (
	"context"
	"net/http"
)

// Normalized payment status. Adapters map provider-specific vocabulary onto
// it; the order engine only ever compares against StatusSucceeded.
const StatusSucceeded = "succeeded"

// Normalized webhook event types. Anything else passes through with its raw
// provider type and is logged and acknowledged by the webhook service.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type ChargeRequest struct {
	AmountCents   int64
	Currency      string
	CustomerName  string
	CustomerEmail string
	// Merchant-side reference for providers that key charges on one
	// (Paystack, OPay). Stripe ignores it and returns its own intent id.
	Reference   string
	CallbackURL string
}

type ChargeResponse struct {
	// ID is the gateway's charge/session/reference identifier. It becomes
	// the order's payment id and idempotency key.
	ID string
	// ClientAuth is what the storefront needs to finish the payment: a
	// Stripe client secret or a redirect authorization URL.
	ClientAuth string
}

type WebhookEvent struct {
	EventID    string
	Type       string
	PaymentRef string
}

type Gateway interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
	// RetrieveStatus returns StatusSucceeded or the provider's raw status.
	RetrieveStatus(ctx context.Context, paymentID string) (string, error)
	// VerifyAndParseWebhook checks the signature (when a secret is
	// configured) and normalizes the event.
	VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error)
}
