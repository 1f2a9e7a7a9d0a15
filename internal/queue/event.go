// Package queue defines message payloads exchanged over the message broker.
package queue

// InvoicePaidQueue is the durable queue invoice.paid events are routed to.
const InvoicePaidQueue = "invoice.paid"

// InvoicePaidEvent is published once per newly recorded payment.  Webhook
// redeliveries that hit the unique key do not publish again.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type InvoicePaidEvent struct {
	InvoiceID         uint64 `json:"invoice_id"`
	InvoiceNumber     string `json:"invoice_number"`
	UserID            uint64 `json:"user_id"`
	PaymentID         uint64 `json:"payment_id"`
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	PaidAt            string `json:"paid_at"`
}
