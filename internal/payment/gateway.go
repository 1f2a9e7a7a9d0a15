// Package payment adapts the external payment processor.  Components get a
// Gateway value at construction time; nothing in the process holds a global
// processor client.
package payment

import (
	"context"
	"errors"
)

// MetadataInvoiceID is the metadata key that links a payment intent, and
// every webhook event about it, back to the invoice that opened it.
const MetadataInvoiceID = "invoiceId"

// EventPaymentSucceeded is the only event kind the reconciler acts on.
const EventPaymentSucceeded = "payment_intent.succeeded"

var (
	// ErrSignature means the webhook payload was not signed with our secret,
	// was tampered with, or is outside the replay window.
	ErrSignature = errors.New("payment: webhook signature verification failed")
	// ErrPayload means the signature was fine but the body is not an event.
	ErrPayload = errors.New("payment: malformed webhook payload")
)

// IntentRequest describes the charge to open.  AmountMinor is already in the
// currency's smallest unit.
type IntentRequest struct {
	InvoiceID   uint64
	AmountMinor int64
	Currency    string
}

// Intent is the processor's answer to IntentRequest.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentIntent is the subset of a processor payment intent the reconciler reads.
type PaymentIntent struct {
	ID       string
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Event is a verified webhook event.  PaymentIntent is set only for
// payment_intent.* kinds.
type Event struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
}

// Gateway is what the services need from a processor.
type Gateway interface {
	// Provider names the processor in payment records.
	Provider() string
	// CreatePaymentIntent opens an intent with the invoice id set as
	// metadata in the same call.
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (Intent, error)
	// ParseWebhook verifies signature against the raw payload bytes, then
	// decodes the event.  It returns ErrSignature or ErrPayload.
	ParseWebhook(payload []byte, signature string) (Event, error)
}
