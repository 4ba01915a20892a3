package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CommitMatch links a transaction to an invoice in one database transaction:
// append a payment_matches row, set the transaction's match fields, and mark
// the invoice paid. Both rows are locked FOR UPDATE first, so two concurrent
// matchers racing for the same invoice serialize and the loser gets
// matching.ErrInvoiceNotOpen instead of double-paying.
func (s *Store) CommitMatch(ctx context.Context, params matching.CommitParams) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning match transaction: %w", err)
	}
	defer dbTx.Rollback()

	var invoiceStatus string

	err = dbTx.QueryRowContext(ctx,
		`SELECT status FROM invoices WHERE id = $1 FOR UPDATE`,
		params.InvoiceRowID,
	).Scan(&invoiceStatus)
	if err != nil {
		return fmt.Errorf("locking invoice: %w", err)
	}

	var matchedInvoiceID uuid.NullUUID

	err = dbTx.QueryRowContext(ctx,
		`SELECT matched_invoice_id FROM bank_transactions WHERE id = $1 FOR UPDATE`,
		params.TransactionRowID,
	).Scan(&matchedInvoiceID)
	if err != nil {
		return fmt.Errorf("locking transaction: %w", err)
	}

	if invoiceStatus != "open" && invoiceStatus != "overdue" {
		// A manual re-confirmation of an existing link is fine; it only
		// appends another audit row. Anything else is a real conflict.
		rematch := params.MatchedBy == matching.MatchedByManual &&
			matchedInvoiceID.Valid && matchedInvoiceID.UUID == params.InvoiceRowID
		if !rematch {
			return matching.ErrInvoiceNotOpen
		}
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT INTO payment_matches (
			id, transaction_id, invoice_id, match_confidence, match_method,
			matched_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New(),
		params.TransactionRowID,
		params.InvoiceRowID,
		params.Confidence,
		params.Method,
		params.MatchedBy,
	)
	if err != nil {
		return fmt.Errorf("recording match: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE bank_transactions
		SET matched_invoice_id = $2, matched_at = NOW(),
			match_confidence = $3, match_method = $4
		WHERE id = $1`,
		params.TransactionRowID,
		params.InvoiceRowID,
		params.Confidence,
		params.Method,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE invoices
		SET status = 'paid', payment_date = $2,
			payment_method = 'bank_transfer', updated_at = NOW()
		WHERE id = $1`,
		params.InvoiceRowID,
		params.PaymentDate,
	)
	if err != nil {
		return fmt.Errorf("updating invoice: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing match: %w", err)
	}

	return nil
}
