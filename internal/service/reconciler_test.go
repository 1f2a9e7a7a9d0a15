package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/invoice-api/internal/apperr"
	"github.com/iliyamo/invoice-api/internal/model"
	"github.com/iliyamo/invoice-api/internal/payment"
)

func succeeded(piID string, amount int64, metadata map[string]string) payment.Event {
	return payment.Event{
		ID:   "evt_" + piID,
		Type: payment.EventPaymentSucceeded,
		PaymentIntent: &payment.PaymentIntent{
			ID:       piID,
			Amount:   amount,
			Currency: "usd",
			Metadata: metadata,
		},
	}
}

func TestReconcileMarksInvoicePaid(t *testing.T) {
	invs := newMemInvoices(invoice(42, 3, model.StatusSent, "250.00", "USD"))
	pub := &recordingPublisher{}
	gw := &fakeGateway{event: succeeded("pi_123", 25000, map[string]string{"invoiceId": "42"})}
	r := NewReconciler(gw, invs, pub, nil)

	outcome, err := r.Reconcile(context.Background(), []byte(`{}`), "t=1,v1=x")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	inv, _ := invs.GetByID(context.Background(), 42)
	assert.Equal(t, model.StatusPaid, inv.Status)

	payments := invs.paymentList()
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, uint64(42), p.InvoiceID)
	assert.Equal(t, "stripe", p.Provider)
	assert.Equal(t, "pi_123", p.ProviderPaymentID)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(250)), "amount %s", p.Amount)
	assert.Equal(t, "usd", p.Currency)
	assert.Equal(t, model.PaymentStatusSucceeded, p.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "250.00", pub.events[0].Amount)
	assert.Equal(t, uint64(3), pub.events[0].UserID)
}

func TestReconcileDuplicateDeliveryRecordsOnePayment(t *testing.T) {
	invs := newMemInvoices(invoice(42, 3, model.StatusSent, "250.00", "usd"))
	pub := &recordingPublisher{}
	gw := &fakeGateway{event: succeeded("pi_123", 25000, map[string]string{"invoiceId": "42"})}
	r := NewReconciler(gw, invs, pub, nil)

	first, err := r.Reconcile(context.Background(), nil, "sig")
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), nil, "sig")
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, first)
	assert.Equal(t, OutcomeDuplicate, second)
	assert.Len(t, invs.paymentList(), 1)
	assert.Len(t, pub.events, 1)
}

func TestReconcileIgnores(t *testing.T) {
	tests := []struct {
		name  string
		event payment.Event
	}{
		{"other event kind", payment.Event{ID: "evt_1", Type: "charge.refunded"}},
		{"failed intent", payment.Event{ID: "evt_2", Type: "payment_intent.payment_failed",
			PaymentIntent: &payment.PaymentIntent{ID: "pi_1", Metadata: map[string]string{"invoiceId": "42"}}}},
		{"no metadata", succeeded("pi_1", 100, nil)},
		{"non numeric invoice id", succeeded("pi_1", 100, map[string]string{"invoiceId": "abc"})},
		{"unknown invoice", succeeded("pi_1", 100, map[string]string{"invoiceId": "77"})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			invs := newMemInvoices(invoice(42, 3, model.StatusSent, "250.00", "usd"))
			pub := &recordingPublisher{}
			r := NewReconciler(&fakeGateway{event: tc.event}, invs, pub, nil)

			outcome, err := r.Reconcile(context.Background(), nil, "sig")
			require.NoError(t, err)
			assert.Equal(t, OutcomeIgnored, outcome)

			inv, _ := invs.GetByID(context.Background(), 42)
			assert.Equal(t, model.StatusSent, inv.Status)
			assert.Empty(t, invs.paymentList())
			assert.Empty(t, pub.events)
		})
	}
}

func TestReconcileErrors(t *testing.T) {
	tests := []struct {
		name string
		gw   *fakeGateway
		err  error
		want apperr.Kind
	}{
		{"bad signature", &fakeGateway{parseErr: payment.ErrSignature}, nil, apperr.InvalidSignature},
		{"malformed payload", &fakeGateway{parseErr: payment.ErrPayload}, nil, apperr.ValidationFailed},
		{"store failure", &fakeGateway{event: succeeded("pi_1", 100, map[string]string{"invoiceId": "42"})},
			errors.New("deadlock"), apperr.Internal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			invs := newMemInvoices(invoice(42, 3, model.StatusSent, "1.00", "usd"))
			invs.err = tc.err
			_, err := NewReconciler(tc.gw, invs, nil, nil).Reconcile(context.Background(), nil, "sig")
			assert.Equal(t, tc.want, apperr.KindOf(err))
			assert.Empty(t, invs.paymentList())
		})
	}
}

func TestReconcilePublishFailureStillSucceeds(t *testing.T) {
	invs := newMemInvoices(invoice(42, 3, model.StatusSent, "250.00", "usd"))
	pub := &recordingPublisher{err: errors.New("broker down")}
	gw := &fakeGateway{event: succeeded("pi_9", 25000, map[string]string{"invoiceId": "42"})}

	outcome, err := NewReconciler(gw, invs, pub, nil).Reconcile(context.Background(), nil, "sig")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
}
