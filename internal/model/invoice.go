package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.  The payment webhook
// only ever moves an invoice to StatusPaid; every other transition belongs
// to the invoice CRUD endpoints.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Payable reports whether a payment intent may be opened for the status.
func (s InvoiceStatus) Payable() bool {
	return s == StatusDraft || s == StatusSent || s == StatusOverdue
}

// Invoice mirrors the columns of `invoices` the payment flow reads.
//
// Fields:
//
//	ID       – primary key identifier.
//	UserID   – owner (tenant) of the invoice.
//	Number   – human number, INV-YYYY-NNNN, unique per user.
//	Status   – see InvoiceStatus.
//	Currency – ISO 4217 code as entered (upper or lower case).
//	Subtotal – sum of line totals.
//	Tax      – always zero; the column defaults to 0 and nothing sets it.
//	Total    – Subtotal + Tax; the amount charged.
type Invoice struct {
	ID        uint64          // invoices.id
	UserID    uint64          // invoices.user_id
	Number    string          // invoices.number
	Status    InvoiceStatus   // invoices.status
	Currency  string          // invoices.currency
	Subtotal  decimal.Decimal // invoices.subtotal DECIMAL(12,2)
	Tax       decimal.Decimal // invoices.tax DECIMAL(12,2)
	Total     decimal.Decimal // invoices.total DECIMAL(12,2)
	CreatedAt time.Time       // invoices.created_at
	UpdatedAt time.Time       // invoices.updated_at
}

// Payment records one settled provider payment for an invoice.  The pair
// (Provider, ProviderPaymentID) is unique in `payments`, which is what makes
// webhook redelivery harmless.
type Payment struct {
	ID                uint64          // payments.id
	InvoiceID         uint64          // payments.invoice_id
	Provider          string          // payments.provider
	ProviderPaymentID string          // payments.provider_payment_id
	Amount            decimal.Decimal // payments.amount DECIMAL(12,2)
	Currency          string          // payments.currency (lower case, as the provider sends it)
	Status            string          // payments.status
	PaidAt            time.Time       // payments.paid_at
	CreatedAt         time.Time       // payments.created_at
}

const (
	ProviderStripe         = "stripe"
	PaymentStatusSucceeded = "succeeded"
)
