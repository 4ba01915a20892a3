package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tgerdes/paymatch/internal/invoice"
	"github.com/tgerdes/paymatch/internal/transaction"
)

// ErrInvoiceNotOpen is returned when a commit finds the invoice already
// paid or cancelled, typically because a concurrent run claimed it first.
var ErrInvoiceNotOpen = errors.New("invoice is no longer open")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type InvoiceRepository interface {
	// FindCandidates returns unpaid invoices of the given direction whose
	// total lies within bandCents of amountCents, newest-created first.
	FindCandidates(ctx context.Context, direction invoice.Direction, amountCents, bandCents int64) ([]*invoice.Invoice, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error)
}

type TransactionRepository interface {
	ListUnmatched(ctx context.Context) ([]*transaction.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*transaction.Transaction, error)
}

// MatchRepository performs the commit sequence: append a match history row,
// set the transaction's match fields and flip the invoice to paid, all in
// one storage transaction.
type MatchRepository interface {
	CommitMatch(ctx context.Context, params CommitParams) error
}

type CommitParams struct {
	TransactionRowID uuid.UUID
	InvoiceRowID     uuid.UUID
	Confidence       float64
	Method           string
	MatchedBy        string
	// PaymentDate is the transaction date; it becomes the invoice's
	// payment date.
	PaymentDate time.Time
}

const (
	MatchedByAuto   = "auto"
	MatchedByManual = "manual"
)

// Config holds the matcher's thresholds. Floor is the minimum score to even
// propose a candidate; callers of AutoMatchAll pass their own (stricter)
// commit threshold per run.
type Config struct {
	Weights   Weights
	Floor     float64
	BandCents int64
}

func DefaultConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		Floor:     0.5,
		BandCents: 1_000_000,
	}
}

type Service struct {
	invoices     InvoiceRepository
	transactions TransactionRepository
	matches      MatchRepository
	cfg          Config
}

func NewService(invoices InvoiceRepository, transactions TransactionRepository, matches MatchRepository, cfg Config) *Service {
	return &Service{
		invoices:     invoices,
		transactions: transactions,
		matches:      matches,
		cfg:          cfg,
	}
}

// Candidate is a proposed invoice for a transaction.
type Candidate struct {
	Invoice    *invoice.Invoice
	Confidence float64
	Method     string
}

// FindMatchingInvoice scores all plausible open invoices against the
// transaction and returns the best one, or nil when nothing reaches the
// floor. Read-only; committing is the caller's decision.
func (s *Service) FindMatchingInvoice(ctx context.Context, tx *transaction.Transaction) (*Candidate, error) {
	// Money coming in pays our outgoing invoices; money going out pays
	// vendor invoices.
	direction := invoice.DirectionIncoming
	if tx.Amount > 0 {
		direction = invoice.DirectionOutgoing
	}

	candidates, err := s.invoices.FindCandidates(ctx, direction, abs64(tx.Amount), s.cfg.BandCents)
	if err != nil {
		return nil, fmt.Errorf("finding candidate invoices: %w", err)
	}

	var best *Candidate

	for _, inv := range candidates {
		confidence, method := Score(inv, tx, s.cfg.Weights)

		// Strictly greater keeps the newest invoice on equal scores,
		// since candidates arrive newest-first.
		if best == nil || confidence > best.Confidence {
			best = &Candidate{Invoice: inv, Confidence: confidence, Method: method}
		}
	}

	if best == nil || best.Confidence < s.cfg.Floor {
		return nil, nil
	}

	return best, nil
}

// Stats summarizes one auto-match run.
type Stats struct {
	Processed     int `json:"processed"`
	Matched       int `json:"matched"`
	Unmatched     int `json:"unmatched"`
	LowConfidence int `json:"low_confidence"`
}

// AutoMatchAll walks all unmatched transactions, newest first, and commits
// every candidate scoring at least minConfidence. Candidates between the
// floor and minConfidence are left for human review and counted separately.
// The walk checks ctx between transactions, so an interrupted run keeps all
// matches committed so far and can simply be re-invoked.
func (s *Service) AutoMatchAll(ctx context.Context, minConfidence float64) (Stats, error) {
	txs, err := s.transactions.ListUnmatched(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing unmatched transactions: %w", err)
	}

	stats := Stats{Processed: len(txs)}

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		candidate, err := s.FindMatchingInvoice(ctx, tx)
		if err != nil {
			return stats, err
		}

		if candidate == nil {
			stats.Unmatched++
			continue
		}

		if candidate.Confidence < minConfidence {
			slog.Info("match below threshold, leaving for review",
				"transaction_id", tx.TransactionID,
				"invoice_number", candidate.Invoice.InvoiceNumber,
				"confidence", candidate.Confidence,
				"min_confidence", minConfidence,
			)

			stats.LowConfidence++

			continue
		}

		err = s.matches.CommitMatch(ctx, CommitParams{
			TransactionRowID: tx.ID,
			InvoiceRowID:     candidate.Invoice.ID,
			Confidence:       candidate.Confidence,
			Method:           candidate.Method,
			MatchedBy:        MatchedByAuto,
			PaymentDate:      tx.TransactionDate,
		})
		if err != nil {
			// A concurrent run claimed the invoice between scoring and
			// commit. Report and move on; the state stays consistent.
			if errors.Is(err, ErrInvoiceNotOpen) {
				slog.Warn("invoice claimed by concurrent match",
					"transaction_id", tx.TransactionID,
					"invoice_number", candidate.Invoice.InvoiceNumber,
				)

				stats.Unmatched++

				continue
			}

			return stats, fmt.Errorf("committing match: %w", err)
		}

		slog.Info("transaction matched",
			"transaction_id", tx.TransactionID,
			"invoice_number", candidate.Invoice.InvoiceNumber,
			"confidence", candidate.Confidence,
			"method", candidate.Method,
		)

		stats.Matched++
	}

	return stats, nil
}

// ManualMatch links a transaction to an invoice by explicit operator choice.
// Human correction always wins: confidence is fixed at 1.0 and no threshold
// applies. Returns invoice.ErrNotFound or transaction.ErrNotFound when a key
// does not resolve; no state changes in that case.
func (s *Service) ManualMatch(ctx context.Context, transactionID, invoiceNumber string) error {
	inv, err := s.invoices.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return err
	}

	tx, err := s.transactions.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}

	return s.matches.CommitMatch(ctx, CommitParams{
		TransactionRowID: tx.ID,
		InvoiceRowID:     inv.ID,
		Confidence:       1.0,
		Method:           MethodManual,
		MatchedBy:        MatchedByManual,
		PaymentDate:      tx.TransactionDate,
	})
}
