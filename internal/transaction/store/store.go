package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/transaction"
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

const selectTransactionColumns = `
	id, transaction_id, transaction_date, value_date, amount_cents, currency,
	sender_name, sender_iban, receiver_name, receiver_iban, purpose, reference,
	transaction_type, matched_invoice_id, matched_at, match_confidence,
	match_method, created_at
`

func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var confidence sql.NullFloat64

	if err := s.Scan(
		&tx.ID, &tx.TransactionID, &tx.TransactionDate, &tx.ValueDate,
		&tx.Amount, &tx.Currency,
		&tx.SenderName, &tx.SenderIBAN, &tx.ReceiverName, &tx.ReceiverIBAN,
		&tx.Purpose, &tx.Reference,
		&typeStr, &tx.MatchedInvoiceID, &tx.MatchedAt, &confidence,
		&tx.MatchMethod, &tx.CreatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.MatchConfidence = confidence.Float64

	return &tx, nil
}

// Insert stores a transaction. A conflicting transaction_id leaves the
// existing row untouched; the stored row is read back either way so the
// caller always sees the persisted identity.
func (s *Store) Insert(ctx context.Context, tx *transaction.Transaction) (bool, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	query := `
		INSERT INTO bank_transactions (
			id, transaction_id, transaction_date, value_date, amount_cents,
			currency, sender_name, sender_iban, receiver_name, receiver_iban,
			purpose, reference, transaction_type, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (transaction_id) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.TransactionID,
		tx.TransactionDate,
		tx.ValueDate,
		tx.Amount,
		tx.Currency,
		tx.SenderName,
		tx.SenderIBAN,
		tx.ReceiverName,
		tx.ReceiverIBAN,
		tx.Purpose,
		tx.Reference,
		tx.Type,
	)
	if err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}

	created := rows > 0

	stored, err := s.GetByTransactionID(ctx, tx.TransactionID)
	if err != nil {
		return false, err
	}

	*tx = *stored

	return created, nil
}

func (s *Store) GetByTransactionID(ctx context.Context, transactionID string) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM bank_transactions
		WHERE transaction_id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListUnmatched(ctx context.Context) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM bank_transactions
		WHERE matched_invoice_id IS NULL
		ORDER BY transaction_date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unmatched transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) Statistics(ctx context.Context) (transaction.Statistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(matched_invoice_id),
			COALESCE(SUM(ABS(amount_cents)) FILTER (WHERE matched_invoice_id IS NOT NULL), 0)
		FROM bank_transactions
	`

	var stats transaction.Statistics

	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalTransactions,
		&stats.MatchedCount,
		&stats.MatchedAmount,
	)
	if err != nil {
		return transaction.Statistics{}, fmt.Errorf("reading statistics: %w", err)
	}

	stats.UnmatchedCount = stats.TotalTransactions - stats.MatchedCount
	if stats.TotalTransactions > 0 {
		stats.MatchRate = float64(stats.MatchedCount) / float64(stats.TotalTransactions) * 100
	}

	return stats, nil
}
