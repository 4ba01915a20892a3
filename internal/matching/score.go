package matching

import (
	"strings"
	"time"

	"github.com/tgerdes/paymatch/internal/invoice"
	"github.com/tgerdes/paymatch/internal/transaction"
)

// Weights holds the contribution of each scoring signal. The defaults sum
// to 1.0; a "close" hit on a signal is worth half its weight.
type Weights struct {
	Amount        float64
	InvoiceNumber float64
	Name          float64
	Date          float64

	// AmountCloseCents is the band (exclusive) inside which a non-exact
	// amount still scores half the amount weight.
	AmountCloseCents int64
}

// DefaultWeights returns the tuning the bookkeeping workflow was calibrated
// with: 0.40 amount, 0.30 invoice number, 0.20 counterparty name, 0.10 date.
func DefaultWeights() Weights {
	return Weights{
		Amount:           0.40,
		InvoiceNumber:    0.30,
		Name:             0.20,
		Date:             0.10,
		AmountCloseCents: 100,
	}
}

// Signal names that make up the match method string.
const (
	SignalAmountExact          = "amount_exact"
	SignalAmountClose          = "amount_close"
	SignalInvoiceNumberExact   = "invoice_number_exact"
	SignalInvoiceNumberPartial = "invoice_number_partial"
	SignalNameExact            = "name_exact"
	SignalNamePartial          = "name_partial"
	SignalDateClose            = "date_close"
	SignalDateMedium           = "date_medium"

	MethodNoMatch = "no_match"
	MethodManual  = "manual"
)

// Score computes a confidence in [0, 1] that the transaction pays the
// invoice, from four independent signals. The returned method string is the
// "+"-joined list of contributing signals, kept for the audit log only.
// Pure and deterministic; missing fields contribute zero, never an error.
func Score(inv *invoice.Invoice, tx *transaction.Transaction, w Weights) (float64, string) {
	var confidence float64

	var signals []string

	// Signal 1: amount.
	diff := abs64(inv.AmountTotal - abs64(tx.Amount))

	switch {
	case diff == 0:
		confidence += w.Amount

		signals = append(signals, SignalAmountExact)
	case diff < w.AmountCloseCents:
		confidence += w.Amount / 2

		signals = append(signals, SignalAmountClose)
	}

	// Signal 2: invoice number in purpose/reference text.
	extracted := ExtractInvoiceNumber(tx.Purpose + " " + tx.Reference)
	if extracted != "" && inv.InvoiceNumber != "" {
		switch {
		case strings.EqualFold(extracted, inv.InvoiceNumber):
			confidence += w.InvoiceNumber

			signals = append(signals, SignalInvoiceNumberExact)
		case strings.Contains(inv.InvoiceNumber, extracted) || strings.Contains(extracted, inv.InvoiceNumber):
			confidence += w.InvoiceNumber / 2

			signals = append(signals, SignalInvoiceNumberPartial)
		}
	}

	// Signal 3: counterparty name.
	vendor := strings.ToLower(strings.TrimSpace(inv.VendorName))
	sender := strings.ToLower(strings.TrimSpace(tx.SenderName))

	if vendor != "" && sender != "" {
		if vendor == sender {
			confidence += w.Name

			signals = append(signals, SignalNameExact)
		} else if anyLongWordIn(vendor, sender) {
			confidence += w.Name / 2

			signals = append(signals, SignalNamePartial)
		}
	}

	// Signal 4: proximity of transaction date to the due date.
	if inv.DueDate != nil && !tx.TransactionDate.IsZero() {
		days := daysBetween(tx.TransactionDate, *inv.DueDate)

		switch {
		case days <= 7:
			confidence += w.Date

			signals = append(signals, SignalDateClose)
		case days <= 30:
			confidence += w.Date / 2

			signals = append(signals, SignalDateMedium)
		}
	}

	if len(signals) == 0 {
		return 0, MethodNoMatch
	}

	return confidence, strings.Join(signals, "+")
}

// anyLongWordIn reports whether any word of name longer than 3 bytes occurs
// in text. The length cutoff keeps short filler words ("der", "und", "co")
// from producing cheap partial hits.
func anyLongWordIn(name, text string) bool {
	for _, word := range strings.Fields(name) {
		if len(word) > 3 && strings.Contains(text, word) {
			return true
		}
	}

	return false
}

// daysBetween returns the absolute whole-day distance between two dates,
// ignoring time-of-day.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	days := int(ad.Sub(bd) / (24 * time.Hour))
	if days < 0 {
		days = -days
	}

	return days
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
