package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so running it on every startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		invoice_number TEXT UNIQUE NOT NULL,
		invoice_date DATE,
		due_date DATE,
		amount_net_cents BIGINT,
		amount_tax_cents BIGINT,
		amount_total_cents BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		vendor_name TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL DEFAULT 'incoming',
		status TEXT NOT NULL DEFAULT 'open',
		payment_date DATE,
		payment_method TEXT NOT NULL DEFAULT '',
		document_hash TEXT NOT NULL DEFAULT '',
		document_link TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_due_date ON invoices (due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_direction ON invoices (direction)`,

	`CREATE TABLE IF NOT EXISTS bank_transactions (
		id UUID PRIMARY KEY,
		transaction_id TEXT UNIQUE NOT NULL,
		transaction_date DATE NOT NULL,
		value_date DATE,
		amount_cents BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		sender_name TEXT NOT NULL DEFAULT '',
		sender_iban TEXT NOT NULL DEFAULT '',
		receiver_name TEXT NOT NULL DEFAULT '',
		receiver_iban TEXT NOT NULL DEFAULT '',
		purpose TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		transaction_type TEXT NOT NULL DEFAULT '',
		matched_invoice_id UUID REFERENCES invoices (id),
		matched_at TIMESTAMPTZ,
		match_confidence DOUBLE PRECISION,
		match_method TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_date ON bank_transactions (transaction_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_amount ON bank_transactions (amount_cents)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_matched ON bank_transactions (matched_invoice_id)`,

	`CREATE TABLE IF NOT EXISTS payment_matches (
		id UUID PRIMARY KEY,
		transaction_id UUID NOT NULL REFERENCES bank_transactions (id),
		invoice_id UUID NOT NULL REFERENCES invoices (id),
		match_confidence DOUBLE PRECISION NOT NULL,
		match_method TEXT NOT NULL,
		matched_by TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'confirmed',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_matches_transaction ON payment_matches (transaction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_matches_invoice ON payment_matches (invoice_id)`,
}
