package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/invoice-api/internal/model"
)

// PaymentRepo records settled payments.  Idempotency rests on the unique key
// (provider, provider_payment_id); no in-process locking is involved, so any
// number of API replicas can receive the same webhook.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// RecordSucceeded inserts p and marks its invoice paid in one transaction.
// It returns ErrNotFound when the invoice does not exist and
// ErrDuplicatePayment when the provider payment id was recorded before; in
// both cases nothing is written.  p.ID is populated on success and the
// invoice is returned as it was read under the row lock.
func (r *PaymentRepo) RecordSucceeded(ctx context.Context, p *model.Payment) (model.Invoice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Invoice{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	inv, err := getForUpdateTx(ctx, tx, p.InvoiceID)
	if err != nil {
		return model.Invoice{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (invoice_id, provider, provider_payment_id, amount, currency, status, paid_at)
		 VALUES (?,?,?,?,?,?,?)`,
		p.InvoiceID, p.Provider, p.ProviderPaymentID, p.Amount, p.Currency, p.Status, p.PaidAt.UTC())
	if err != nil {
		if isDuplicateKey(err) {
			return model.Invoice{}, ErrDuplicatePayment
		}
		return model.Invoice{}, err
	}
	if err := markPaidTx(ctx, tx, p.InvoiceID); err != nil {
		return model.Invoice{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Invoice{}, err
	}
	committed = true
	if id, err := res.LastInsertId(); err == nil {
		p.ID = uint64(id)
	}
	inv.Status = model.StatusPaid
	return inv, nil
}
