package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectInvoiceColumns = `
	id, invoice_number, invoice_date, due_date,
	amount_net_cents, amount_tax_cents, amount_total_cents, currency,
	vendor_name, customer_name, direction, status,
	payment_date, payment_method, document_hash, document_link,
	created_at, updated_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var directionStr, statusStr string

	var amountNet, amountTax sql.NullInt64

	var paymentMethod sql.NullString

	if err := s.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate,
		&amountNet, &amountTax, &inv.AmountTotal, &inv.Currency,
		&inv.VendorName, &inv.CustomerName, &directionStr, &statusStr,
		&inv.PaymentDate, &paymentMethod, &inv.DocumentHash, &inv.DocumentLink,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.AmountNet = amountNet.Int64
	inv.AmountTax = amountTax.Int64
	inv.Direction = invoice.Direction(directionStr)
	inv.Status = invoice.Status(statusStr)
	inv.PaymentMethod = paymentMethod.String

	return &inv, nil
}

// Upsert inserts a new invoice row, or refreshes content fields when the
// invoice_number already exists. Status and payment fields are deliberately
// excluded from the update so a re-classified document can never revive a
// paid invoice.
func (s *Store) Upsert(ctx context.Context, inv *invoice.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	query := `
		INSERT INTO invoices (
			id, invoice_number, invoice_date, due_date,
			amount_net_cents, amount_tax_cents, amount_total_cents, currency,
			vendor_name, customer_name, direction, status,
			document_hash, document_link, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (invoice_number) DO UPDATE SET
			invoice_date = EXCLUDED.invoice_date,
			due_date = EXCLUDED.due_date,
			amount_net_cents = EXCLUDED.amount_net_cents,
			amount_tax_cents = EXCLUDED.amount_tax_cents,
			amount_total_cents = EXCLUDED.amount_total_cents,
			currency = EXCLUDED.currency,
			vendor_name = EXCLUDED.vendor_name,
			customer_name = EXCLUDED.customer_name,
			document_hash = EXCLUDED.document_hash,
			document_link = EXCLUDED.document_link,
			updated_at = NOW()
		RETURNING id, status, created_at
	`

	var statusStr string

	err := s.db.QueryRowContext(ctx, query,
		inv.ID,
		inv.InvoiceNumber,
		inv.InvoiceDate,
		inv.DueDate,
		inv.AmountNet,
		inv.AmountTax,
		inv.AmountTotal,
		inv.Currency,
		inv.VendorName,
		inv.CustomerName,
		inv.Direction,
		inv.Status,
		inv.DocumentHash,
		inv.DocumentLink,
	).Scan(&inv.ID, &statusStr, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting invoice: %w", err)
	}

	inv.Status = invoice.Status(statusStr)

	return nil
}

func (s *Store) GetByNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE invoice_number = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, invoiceNumber))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) ListUnpaid(ctx context.Context, direction invoice.Direction) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE status IN ('open', 'overdue')`

	var args []any

	if direction != "" {
		query += ` AND direction = $1`

		args = append(args, direction)
	}

	query += ` ORDER BY due_date ASC NULLS LAST`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing unpaid invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

// FindCandidates returns unpaid invoices of the given direction whose total
// is within bandCents of the transaction amount, newest first. This is the
// cheap pre-filter the matcher scores against.
func (s *Store) FindCandidates(ctx context.Context, direction invoice.Direction, amountCents, bandCents int64) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE status IN ('open', 'overdue')
		AND direction = $1
		AND ABS(amount_total_cents - $2) < $3
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, direction, amountCents, bandCents)
	if err != nil {
		return nil, fmt.Errorf("finding candidate invoices: %w", err)
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = 'overdue', updated_at = NOW()
		WHERE status = 'open' AND due_date IS NOT NULL AND due_date < $1
	`

	res, err := s.db.ExecContext(ctx, query, asOf)
	if err != nil {
		return 0, fmt.Errorf("marking overdue invoices: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting overdue invoices: %w", err)
	}

	return n, nil
}

func collectInvoices(rows *sql.Rows) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invoices, nil
}
