package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/metrics"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/payment"
	"github.com/iliyamo/invoice-api/internal/queue"
	"github.com/iliyamo/invoice-api/internal/repository"
)

// Outcome says what a webhook delivery did.  Every outcome is a success as
// far as the processor is concerned.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// PaymentRecorder stores a succeeded payment and marks its invoice paid in
// one transaction.  repository.PaymentRepo implements it.
type PaymentRecorder interface {
	RecordSucceeded(ctx context.Context, p *model.Payment) (model.Invoice, error)
}

// EventPublisher announces newly paid invoices.  queue.Publisher implements it.
type EventPublisher interface {
	PublishInvoicePaid(ctx context.Context, ev queue.InvoicePaidEvent) error
}

// Reconciler applies verified payment webhooks to invoice state.
type Reconciler struct {
	gateway      payment.Gateway
	payments     PaymentRecorder
	publisher    EventPublisher
	log          *zap.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

// NewReconciler builds a reconciler.  publisher may be nil.
func NewReconciler(gateway payment.Gateway, payments PaymentRecorder, publisher EventPublisher, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		gateway:      gateway,
		payments:     payments,
		publisher:    publisher,
		log:          log,
		now:          time.Now,
		writeTimeout: 10 * time.Second,
	}
}

// Reconcile verifies payload against signature and, for a succeeded
// payment intent that names an invoice, records the payment and marks the
// invoice paid.  Delivering the same event twice leaves exactly one payment.
//
// Errors are *apperr.Error: InvalidSignature and ValidationFailed for
// deliveries that will never succeed, Internal for anything the processor
// should retry.
func (r *Reconciler) Reconcile(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	ev, err := r.gateway.ParseWebhook(payload, signature)
	switch {
	case errors.Is(err, payment.ErrSignature):
		metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		return "", apperr.Wrap(apperr.InvalidSignature, "Invalid webhook signature", err)
	case err != nil:
		metrics.WebhookEvents.WithLabelValues("malformed").Inc()
		return "", apperr.Wrap(apperr.ValidationFailed, "Malformed webhook payload", err)
	}

	log := r.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))
	if ev.Type != payment.EventPaymentSucceeded || ev.PaymentIntent == nil {
		return r.done(OutcomeIgnored), nil
	}
	pi := ev.PaymentIntent
	invoiceID, err := strconv.ParseUint(strings.TrimSpace(pi.Metadata[payment.MetadataInvoiceID]), 10, 64)
	if err != nil || invoiceID == 0 {
		log.Info("webhook ignored: no invoice id in metadata", zap.String("payment_intent", pi.ID))
		return r.done(OutcomeIgnored), nil
	}

	currency := strings.ToLower(pi.Currency)
	p := &model.Payment{
		InvoiceID:         invoiceID,
		Provider:          r.gateway.Provider(),
		ProviderPaymentID: pi.ID,
		Amount:            model.FromMinorUnits(pi.Amount, currency),
		Currency:          currency,
		Status:            model.PaymentStatusSucceeded,
		PaidAt:            r.now().UTC(),
	}

	// The transaction must finish even if the processor hangs up first.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	inv, err := r.payments.RecordSucceeded(wctx, p)
	switch {
	case errors.Is(err, repository.ErrDuplicatePayment):
		log.Info("webhook duplicate", zap.String("payment_intent", pi.ID), zap.Uint64("invoice_id", invoiceID))
		return r.done(OutcomeDuplicate), nil
	case errors.Is(err, repository.ErrNotFound):
		log.Warn("webhook ignored: unknown invoice", zap.String("payment_intent", pi.ID), zap.Uint64("invoice_id", invoiceID))
		return r.done(OutcomeIgnored), nil
	case err != nil:
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		return "", apperr.Wrap(apperr.Internal, "record payment", err)
	}

	log.Info("invoice paid",
		zap.Uint64("invoice_id", invoiceID),
		zap.Uint64("payment_id", p.ID),
		zap.String("amount", p.Amount.StringFixed(model.MinorExponent(currency))),
		zap.String("currency", currency))
	r.publish(wctx, inv, p)
	return r.done(OutcomeApplied), nil
}

func (r *Reconciler) done(o Outcome) Outcome {
	metrics.WebhookEvents.WithLabelValues(string(o)).Inc()
	return o
}

// publish is best effort: the payment is already committed and a broker
// outage must not make the processor redeliver.
func (r *Reconciler) publish(ctx context.Context, inv model.Invoice, p *model.Payment) {
	if r.publisher == nil {
		return
	}
	ev := queue.InvoicePaidEvent{
		InvoiceID:         inv.ID,
		InvoiceNumber:     inv.Number,
		UserID:            inv.UserID,
		PaymentID:         p.ID,
		Provider:          p.Provider,
		ProviderPaymentID: p.ProviderPaymentID,
		Amount:            p.Amount.StringFixed(model.MinorExponent(p.Currency)),
		Currency:          p.Currency,
		PaidAt:            p.PaidAt.Format(time.RFC3339),
	}
	if err := r.publisher.PublishInvoicePaid(ctx, ev); err != nil {
		r.log.Warn("publish invoice.paid failed", zap.Uint64("invoice_id", inv.ID), zap.Error(err))
	}
}
