package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tgerdes/paymatch/internal/invoice"
	"github.com/tgerdes/paymatch/internal/transaction"
)

func newTestService(t *testing.T) (*Service, *MockInvoiceRepository, *MockTransactionRepository, *MockMatchRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	invoices := NewMockInvoiceRepository(ctrl)
	transactions := NewMockTransactionRepository(ctrl)
	matches := NewMockMatchRepository(ctrl)

	return NewService(invoices, transactions, matches, DefaultConfig()), invoices, transactions, matches
}

func TestFindMatchingInvoice(t *testing.T) {
	txDate := date(2025, 10, 18)

	debit := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-2025-10-18--1500.00",
		TransactionDate: txDate,
		Amount:          -150000,
		SenderName:      "Acme GmbH",
		Purpose:         "Rechnung RE-2025-001",
	}

	t.Run("picks best candidate above floor", func(t *testing.T) {
		svc, invoices, _, _ := newTestService(t)

		exact := &invoice.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "RE-2025-001",
			AmountTotal:   150000,
			VendorName:    "Acme GmbH",
			Direction:     invoice.DirectionIncoming,
			Status:        invoice.StatusOpen,
		}
		nearMiss := &invoice.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "RE-2025-002",
			AmountTotal:   150050,
			Direction:     invoice.DirectionIncoming,
			Status:        invoice.StatusOpen,
		}

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return([]*invoice.Invoice{nearMiss, exact}, nil)

		candidate, err := svc.FindMatchingInvoice(context.Background(), debit)
		require.NoError(t, err)
		require.NotNil(t, candidate)

		assert.Equal(t, "RE-2025-001", candidate.Invoice.InvoiceNumber)
		assert.InDelta(t, 0.90, candidate.Confidence, 1e-9)
		assert.Equal(t, "amount_exact+invoice_number_exact+name_exact", candidate.Method)
	})

	t.Run("nothing above floor returns nil", func(t *testing.T) {
		svc, invoices, _, _ := newTestService(t)

		weak := &invoice.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "RE-2025-009",
			AmountTotal:   150050,
			Direction:     invoice.DirectionIncoming,
			Status:        invoice.StatusOpen,
		}

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return([]*invoice.Invoice{weak}, nil)

		tx := &transaction.Transaction{
			ID:              uuid.New(),
			TransactionDate: txDate,
			Amount:          -150000,
			Purpose:         "Dauerauftrag",
		}

		candidate, err := svc.FindMatchingInvoice(context.Background(), tx)
		require.NoError(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("no candidates returns nil", func(t *testing.T) {
		svc, invoices, _, _ := newTestService(t)

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return(nil, nil)

		candidate, err := svc.FindMatchingInvoice(context.Background(), debit)
		require.NoError(t, err)
		assert.Nil(t, candidate)
	})

	t.Run("credit searches outgoing invoices", func(t *testing.T) {
		svc, invoices, _, _ := newTestService(t)

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionOutgoing, int64(75050), int64(1_000_000)).
			Return(nil, nil)

		credit := &transaction.Transaction{
			ID:              uuid.New(),
			TransactionDate: txDate,
			Amount:          75050,
		}

		_, err := svc.FindMatchingInvoice(context.Background(), credit)
		require.NoError(t, err)
	})
}

func TestAutoMatchAll(t *testing.T) {
	txDate := date(2025, 10, 18)

	strongTx := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-A",
		TransactionDate: txDate,
		Amount:          -150000,
		SenderName:      "Acme GmbH",
		Purpose:         "Rechnung RE-2025-001",
	}
	weakTx := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-B",
		TransactionDate: txDate,
		Amount:          -80000,
		SenderName:      "Beispiel AG",
	}
	noiseTx := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-C",
		TransactionDate: txDate,
		Amount:          -999,
	}

	strongInv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "RE-2025-001",
		AmountTotal:   150000,
		VendorName:    "Acme GmbH",
		Direction:     invoice.DirectionIncoming,
		Status:        invoice.StatusOpen,
	}
	// Exact amount and name only: 0.40 + 0.20 = 0.60, above the floor but
	// below the 0.7 commit threshold.
	weakInv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "RE-2025-002",
		AmountTotal:   80000,
		VendorName:    "Beispiel AG",
		Direction:     invoice.DirectionIncoming,
		Status:        invoice.StatusOpen,
	}

	t.Run("splits matched, low confidence and unmatched", func(t *testing.T) {
		svc, invoices, transactions, matches := newTestService(t)

		transactions.EXPECT().
			ListUnmatched(gomock.Any()).
			Return([]*transaction.Transaction{strongTx, weakTx, noiseTx}, nil)

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return([]*invoice.Invoice{strongInv}, nil)
		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(80000), int64(1_000_000)).
			Return([]*invoice.Invoice{weakInv}, nil)
		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(999), int64(1_000_000)).
			Return(nil, nil)

		matches.EXPECT().
			CommitMatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params CommitParams) error {
				assert.Equal(t, strongTx.ID, params.TransactionRowID)
				assert.Equal(t, strongInv.ID, params.InvoiceRowID)
				assert.Equal(t, MatchedByAuto, params.MatchedBy)
				assert.InDelta(t, 0.90, params.Confidence, 1e-9)
				assert.Equal(t, txDate, params.PaymentDate)
				return nil
			})

		stats, err := svc.AutoMatchAll(context.Background(), 0.7)
		require.NoError(t, err)

		assert.Equal(t, Stats{Processed: 3, Matched: 1, Unmatched: 1, LowConfidence: 1}, stats)
	})

	t.Run("concurrent claim counts as unmatched", func(t *testing.T) {
		svc, invoices, transactions, matches := newTestService(t)

		transactions.EXPECT().
			ListUnmatched(gomock.Any()).
			Return([]*transaction.Transaction{strongTx}, nil)

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return([]*invoice.Invoice{strongInv}, nil)

		matches.EXPECT().
			CommitMatch(gomock.Any(), gomock.Any()).
			Return(ErrInvoiceNotOpen)

		stats, err := svc.AutoMatchAll(context.Background(), 0.7)
		require.NoError(t, err)

		assert.Equal(t, Stats{Processed: 1, Unmatched: 1}, stats)
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		svc, _, transactions, _ := newTestService(t)

		transactions.EXPECT().
			ListUnmatched(gomock.Any()).
			Return([]*transaction.Transaction{strongTx, weakTx}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.AutoMatchAll(ctx, 0.7)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invoice paid through matching", func(t *testing.T) {
		svc, invoices, transactions, matches := newTestService(t)

		due := date(2025, 10, 31)
		inv := &invoice.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "RE-2025-101",
			AmountTotal:   150000,
			DueDate:       &due,
			Direction:     invoice.DirectionIncoming,
			Status:        invoice.StatusOpen,
		}
		tx := &transaction.Transaction{
			ID:              uuid.New(),
			TransactionID:   "BANK-TX-001",
			TransactionDate: date(2025, 10, 18),
			Amount:          -150000,
			Purpose:         "Rechnung RE-2025-101 vom 01.10.2025",
		}

		transactions.EXPECT().
			ListUnmatched(gomock.Any()).
			Return([]*transaction.Transaction{tx}, nil)

		invoices.EXPECT().
			FindCandidates(gomock.Any(), invoice.DirectionIncoming, int64(150000), int64(1_000_000)).
			Return([]*invoice.Invoice{inv}, nil)

		matches.EXPECT().
			CommitMatch(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params CommitParams) error {
				// Amount exact, invoice number exact, transaction 13 days
				// before the due date: 0.40 + 0.30 + 0.05.
				assert.Equal(t, inv.ID, params.InvoiceRowID)
				assert.InDelta(t, 0.75, params.Confidence, 1e-9)
				assert.Equal(t, date(2025, 10, 18), params.PaymentDate)
				return nil
			})

		stats, err := svc.AutoMatchAll(context.Background(), 0.6)
		require.NoError(t, err)

		assert.Equal(t, Stats{Processed: 1, Matched: 1}, stats)
	})

	t.Run("empty backlog", func(t *testing.T) {
		svc, _, transactions, _ := newTestService(t)

		transactions.EXPECT().ListUnmatched(gomock.Any()).Return(nil, nil)

		stats, err := svc.AutoMatchAll(context.Background(), 0.7)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, stats)
	})
}

// matchLedger backs the matcher with in-memory state so a committed match
// feeds back into the next candidate query, the way the real store's status
// filter does.
type matchLedger struct {
	invoices []*invoice.Invoice
	backlog  []*transaction.Transaction
}

func (l *matchLedger) FindCandidates(_ context.Context, direction invoice.Direction, amountCents, bandCents int64) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice

	for _, inv := range l.invoices {
		if !inv.Status.Unpaid() || inv.Direction != direction {
			continue
		}

		if abs64(inv.AmountTotal-amountCents) < bandCents {
			out = append(out, inv)
		}
	}

	return out, nil
}

func (l *matchLedger) GetByNumber(_ context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	for _, inv := range l.invoices {
		if inv.InvoiceNumber == invoiceNumber {
			return inv, nil
		}
	}

	return nil, invoice.ErrNotFound
}

func (l *matchLedger) ListUnmatched(_ context.Context) ([]*transaction.Transaction, error) {
	return l.backlog, nil
}

func (l *matchLedger) GetByTransactionID(_ context.Context, transactionID string) (*transaction.Transaction, error) {
	for _, tx := range l.backlog {
		if tx.TransactionID == transactionID {
			return tx, nil
		}
	}

	return nil, transaction.ErrNotFound
}

func (l *matchLedger) CommitMatch(_ context.Context, params CommitParams) error {
	for _, inv := range l.invoices {
		if inv.ID != params.InvoiceRowID {
			continue
		}

		if !inv.Status.Unpaid() {
			return ErrInvoiceNotOpen
		}

		inv.Status = invoice.StatusPaid
		paid := params.PaymentDate
		inv.PaymentDate = &paid

		return nil
	}

	return invoice.ErrNotFound
}

func TestAutoMatchSkipsPaidInvoice(t *testing.T) {
	// Two debits fit the same invoice. The first commit flips it to paid,
	// so the second transaction must find no candidate instead of matching
	// the same invoice twice.
	inv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "RE-2025-050",
		AmountTotal:   150000,
		VendorName:    "Acme GmbH",
		Direction:     invoice.DirectionIncoming,
		Status:        invoice.StatusOpen,
	}

	first := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-2025-10-18--150000",
		TransactionDate: date(2025, 10, 18),
		Amount:          -150000,
		SenderName:      "Acme GmbH",
		Purpose:         "Rechnung RE-2025-050",
	}
	second := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-2025-10-25--150000",
		TransactionDate: date(2025, 10, 25),
		Amount:          -150000,
		SenderName:      "Acme GmbH",
		Purpose:         "Rechnung RE-2025-050",
	}

	ledger := &matchLedger{
		invoices: []*invoice.Invoice{inv},
		backlog:  []*transaction.Transaction{first, second},
	}
	svc := NewService(ledger, ledger, ledger, DefaultConfig())

	stats, err := svc.AutoMatchAll(context.Background(), 0.7)
	require.NoError(t, err)

	assert.Equal(t, Stats{Processed: 2, Matched: 1, Unmatched: 1}, stats)

	assert.Equal(t, invoice.StatusPaid, inv.Status)
	require.NotNil(t, inv.PaymentDate)
	assert.Equal(t, first.TransactionDate, *inv.PaymentDate)
}

func TestManualMatch(t *testing.T) {
	txDate := date(2025, 10, 18)

	inv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "RE-2025-001",
		AmountTotal:   150000,
		Status:        invoice.StatusOpen,
	}
	tx := &transaction.Transaction{
		ID:              uuid.New(),
		TransactionID:   "SPK-A",
		TransactionDate: txDate,
		Amount:          -150000,
	}

	t.Run("commits with full confidence", func(t *testing.T) {
		svc, invoices, transactions, matches := newTestService(t)

		invoices.EXPECT().GetByNumber(gomock.Any(), "RE-2025-001").Return(inv, nil)
		transactions.EXPECT().GetByTransactionID(gomock.Any(), "SPK-A").Return(tx, nil)

		matches.EXPECT().
			CommitMatch(gomock.Any(), CommitParams{
				TransactionRowID: tx.ID,
				InvoiceRowID:     inv.ID,
				Confidence:       1.0,
				Method:           MethodManual,
				MatchedBy:        MatchedByManual,
				PaymentDate:      txDate,
			}).
			Return(nil)

		require.NoError(t, svc.ManualMatch(context.Background(), "SPK-A", "RE-2025-001"))
	})

	t.Run("unknown invoice", func(t *testing.T) {
		svc, invoices, _, _ := newTestService(t)

		invoices.EXPECT().
			GetByNumber(gomock.Any(), "RE-9999-001").
			Return(nil, invoice.ErrNotFound)

		err := svc.ManualMatch(context.Background(), "SPK-A", "RE-9999-001")
		assert.ErrorIs(t, err, invoice.ErrNotFound)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		svc, invoices, transactions, _ := newTestService(t)

		invoices.EXPECT().GetByNumber(gomock.Any(), "RE-2025-001").Return(inv, nil)
		transactions.EXPECT().
			GetByTransactionID(gomock.Any(), "SPK-MISSING").
			Return(nil, transaction.ErrNotFound)

		err := svc.ManualMatch(context.Background(), "SPK-MISSING", "RE-2025-001")
		assert.ErrorIs(t, err, transaction.ErrNotFound)
	})

	t.Run("paid invoice conflict propagates", func(t *testing.T) {
		svc, invoices, transactions, matches := newTestService(t)

		invoices.EXPECT().GetByNumber(gomock.Any(), "RE-2025-001").Return(inv, nil)
		transactions.EXPECT().GetByTransactionID(gomock.Any(), "SPK-A").Return(tx, nil)
		matches.EXPECT().CommitMatch(gomock.Any(), gomock.Any()).Return(ErrInvoiceNotOpen)

		err := svc.ManualMatch(context.Background(), "SPK-A", "RE-2025-001")
		assert.ErrorIs(t, err, ErrInvoiceNotOpen)
	})
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2025, 10, 18, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 10, 19, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, daysBetween(a, b))
	assert.Equal(t, 1, daysBetween(b, a))
}
