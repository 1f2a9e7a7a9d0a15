package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/invoice-api/internal/model"
)

// InvoiceRepo reads invoices for the payment flow.  Creating and editing
// invoices is owned by the CRUD endpoints and lives elsewhere.
type InvoiceRepo struct{ db *sql.DB }

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

const invoiceColumns = "id,user_id,number,status,currency,subtotal,tax,total,created_at,updated_at"

// GetByID returns the invoice or ErrNotFound.
func (r *InvoiceRepo) GetByID(ctx context.Context, id uint64) (model.Invoice, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id=?", id)
	return scanInvoice(row)
}

// getForUpdateTx locks the invoice row until tx ends.
func getForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id=? FOR UPDATE", id)
	return scanInvoice(row)
}

// markPaidTx sets status=paid.  Running it on an already paid invoice
// changes nothing.
func markPaidTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE invoices SET status=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		string(model.StatusPaid), id)
	return err
}

func scanInvoice(row *sql.Row) (model.Invoice, error) {
	var (
		inv    model.Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Number, &status, &inv.Currency,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Invoice{}, ErrNotFound
	}
	if err != nil {
		return model.Invoice{}, err
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}
