package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("invoice not found")

// Direction says which way the money moves: "incoming" is a vendor invoice
// the business owes, "outgoing" is an invoice to a customer.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Status represents the payment lifecycle state of an invoice.
type Status string

const (
	StatusOpen      Status = "open"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Unpaid reports whether an invoice is still waiting for a payment.
// Overdue invoices are unpaid too; only paid and cancelled are settled.
func (s Status) Unpaid() bool {
	return s == StatusOpen || s == StatusOverdue
}

// Invoice is the record produced by the upstream document pipeline and
// mutated here only by payment matching.
type Invoice struct {
	ID            uuid.UUID
	InvoiceNumber string // business key, unique
	InvoiceDate   *time.Time
	DueDate       *time.Time
	AmountNet     int64 // cents
	AmountTax     int64 // cents
	AmountTotal   int64 // cents
	Currency      string
	VendorName    string
	CustomerName  string
	Direction     Direction
	Status        Status
	PaymentDate   *time.Time
	PaymentMethod string
	DocumentHash  string
	DocumentLink  string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
