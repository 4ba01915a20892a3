package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transaction not found")

// Type is the booking direction of a bank transaction.
type Type string

const (
	TypeCredit Type = "credit"
	TypeDebit  Type = "debit"
)

// TypeFromAmount derives the booking direction from the sign of the amount.
func TypeFromAmount(cents int64) Type {
	if cents > 0 {
		return TypeCredit
	}

	return TypeDebit
}

// Transaction is a bank statement line. TransactionID is the business key
// supplied by the bank export (or synthesized by the importer); re-importing
// the same TransactionID is a no-op.
type Transaction struct {
	ID              uuid.UUID
	TransactionID   string
	TransactionDate time.Time
	ValueDate       *time.Time
	Amount          int64 // signed cents; negative = debit
	Currency        string
	SenderName      string
	SenderIBAN      string
	ReceiverName    string
	ReceiverIBAN    string
	Purpose         string
	Reference       string
	Type            Type

	MatchedInvoiceID *uuid.UUID
	MatchedAt        *time.Time
	MatchConfidence  float64
	MatchMethod      string

	CreatedAt time.Time
}

// Matched reports whether the transaction is linked to an invoice.
func (t *Transaction) Matched() bool {
	return t.MatchedInvoiceID != nil
}

// Statistics summarizes matching progress over all imported transactions.
type Statistics struct {
	TotalTransactions int64
	MatchedCount      int64
	UnmatchedCount    int64
	MatchRate         float64 // percent
	MatchedAmount     int64   // sum of absolute matched amounts, cents
}
