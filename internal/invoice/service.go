package invoice

import (
	"context"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	// Upsert inserts the invoice or, when the invoice_number already
	// exists, refreshes its content fields. It never duplicates a number
	// and never touches status or payment fields on the update path.
	Upsert(ctx context.Context, inv *Invoice) error
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	ListUnpaid(ctx context.Context, direction Direction) ([]*Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type SaveParams struct {
	InvoiceNumber string
	InvoiceDate   *time.Time
	DueDate       *time.Time
	AmountNet     int64
	AmountTax     int64
	AmountTotal   int64
	Currency      string
	VendorName    string
	CustomerName  string
	Direction     Direction
	DocumentHash  string
	DocumentLink  string
}

// Save upserts an invoice keyed on its invoice number. This is the entry
// point the document-classification pipeline calls; re-saving the same
// number updates content fields instead of creating a second row.
func (s *Service) Save(ctx context.Context, params SaveParams) (*Invoice, error) {
	inv := &Invoice{
		InvoiceNumber: params.InvoiceNumber,
		InvoiceDate:   params.InvoiceDate,
		DueDate:       params.DueDate,
		AmountNet:     params.AmountNet,
		AmountTax:     params.AmountTax,
		AmountTotal:   params.AmountTotal,
		Currency:      params.Currency,
		VendorName:    params.VendorName,
		CustomerName:  params.CustomerName,
		Direction:     params.Direction,
		Status:        StatusOpen,
		DocumentHash:  params.DocumentHash,
		DocumentLink:  params.DocumentLink,
	}

	if inv.Currency == "" {
		inv.Currency = "EUR"
	}

	if inv.Direction == "" {
		inv.Direction = DirectionIncoming
	}

	if err := s.repo.Upsert(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (s *Service) GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error) {
	return s.repo.GetByNumber(ctx, invoiceNumber)
}

func (s *Service) ListUnpaid(ctx context.Context, direction Direction) ([]*Invoice, error) {
	return s.repo.ListUnpaid(ctx, direction)
}

// MarkOverdue flips open invoices whose due date has passed to overdue.
// Overdue invoices stay eligible for payment matching.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	return s.repo.MarkOverdue(ctx, asOf)
}
