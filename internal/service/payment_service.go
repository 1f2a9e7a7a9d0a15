package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/metrics"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/payment"
	"github.com/iliyamo/invoice-api/internal/repository"
)

// InvoiceReader loads an invoice by id.
type InvoiceReader interface {
	GetByID(ctx context.Context, id uint64) (model.Invoice, error)
}

// Requester identifies who asks for a payment intent.
type Requester struct {
	UserID uint64
	Role   model.Role
}

// Intent is returned to the pay endpoint.  Amount is the invoice total in
// major units; AmountMinor is what the processor was asked to charge.
type Intent struct {
	ClientSecret string
	Amount       decimal.Decimal
	AmountMinor  int64
	Currency     string
}

// PaymentService opens processor payment intents for invoices.
type PaymentService struct {
	invoices InvoiceReader
	gateway  payment.Gateway
	log      *zap.Logger
}

func NewPaymentService(invoices InvoiceReader, gateway payment.Gateway, log *zap.Logger) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentService{invoices: invoices, gateway: gateway, log: log}
}

// CreateIntent opens an intent for the invoice's current total.  Only the
// invoice owner or an admin may ask.
func (s *PaymentService) CreateIntent(ctx context.Context, invoiceID uint64, who Requester) (Intent, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return Intent{}, apperr.NotFoundf("Invoice not found")
	}
	if err != nil {
		return Intent{}, apperr.Wrap(apperr.Internal, "load invoice", err)
	}
	if inv.UserID != who.UserID && who.Role != model.RoleAdmin {
		return Intent{}, apperr.Forbidden("Access denied")
	}
	switch inv.Status {
	case model.StatusPaid:
		return Intent{}, apperr.BadState("Invoice already paid")
	case model.StatusCancelled:
		return Intent{}, apperr.BadState("Invoice is cancelled")
	default:
		if !inv.Status.Payable() {
			return Intent{}, apperr.BadState("Invoice cannot be paid")
		}
	}

	currency := strings.ToLower(inv.Currency)
	minor, err := model.ToMinorUnits(inv.Total, currency)
	if err != nil {
		return Intent{}, apperr.BadState("Invoice total must be positive")
	}

	pi, err := s.gateway.CreatePaymentIntent(ctx, payment.IntentRequest{
		InvoiceID:   inv.ID,
		AmountMinor: minor,
		Currency:    currency,
	})
	if err != nil {
		metrics.PaymentIntents.WithLabelValues("error").Inc()
		return Intent{}, apperr.Wrap(apperr.Internal, "create payment intent", err)
	}
	metrics.PaymentIntents.WithLabelValues("ok").Inc()
	s.log.Info("payment intent created",
		zap.Uint64("invoice_id", inv.ID),
		zap.String("payment_intent", pi.ID),
		zap.Int64("amount_minor", minor),
		zap.String("currency", currency))

	return Intent{
		ClientSecret: pi.ClientSecret,
		Amount:       inv.Total,
		AmountMinor:  minor,
		Currency:     currency,
	}, nil
}
