package transaction

import (
	"context"
	"time"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	// Insert stores the transaction keyed on its TransactionID. When a row
	// with the same TransactionID already exists the insert is a no-op and
	// the existing row is returned with created = false.
	Insert(ctx context.Context, tx *Transaction) (created bool, err error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	ListUnmatched(ctx context.Context) ([]*Transaction, error)
	Statistics(ctx context.Context) (Statistics, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ImportParams struct {
	TransactionID   string
	TransactionDate time.Time
	ValueDate       *time.Time
	Amount          int64 // signed cents
	Currency        string
	SenderName      string
	SenderIBAN      string
	ReceiverName    string
	ReceiverIBAN    string
	Purpose         string
	Reference       string
	Type            Type
}

// Import stores a single bank transaction. The boolean result is false when
// the TransactionID was already known, which makes re-running an import safe.
func (s *Service) Import(ctx context.Context, params ImportParams) (*Transaction, bool, error) {
	tx := &Transaction{
		TransactionID:   params.TransactionID,
		TransactionDate: params.TransactionDate,
		ValueDate:       params.ValueDate,
		Amount:          params.Amount,
		Currency:        params.Currency,
		SenderName:      params.SenderName,
		SenderIBAN:      params.SenderIBAN,
		ReceiverName:    params.ReceiverName,
		ReceiverIBAN:    params.ReceiverIBAN,
		Purpose:         params.Purpose,
		Reference:       params.Reference,
		Type:            params.Type,
	}

	if tx.Currency == "" {
		tx.Currency = "EUR"
	}

	if tx.Type == "" {
		tx.Type = TypeFromAmount(tx.Amount)
	}

	created, err := s.repo.Insert(ctx, tx)
	if err != nil {
		return nil, false, err
	}

	return tx, created, nil
}

func (s *Service) GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	return s.repo.GetByTransactionID(ctx, transactionID)
}

// ListUnmatched returns transactions without an invoice link, newest first.
func (s *Service) ListUnmatched(ctx context.Context) ([]*Transaction, error) {
	return s.repo.ListUnmatched(ctx)
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	return s.repo.Statistics(ctx)
}
