package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgerdes/paymatch/internal/transaction"
)

// fakeTransactions stores imports in memory and reports duplicates the way
// the real store does.
type fakeTransactions struct {
	seen   map[string]bool
	stored []transaction.ImportParams
	err    error
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{seen: map[string]bool{}}
}

func (f *fakeTransactions) Import(_ context.Context, params transaction.ImportParams) (*transaction.Transaction, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}

	if f.seen[params.TransactionID] {
		return &transaction.Transaction{TransactionID: params.TransactionID}, false, nil
	}

	f.seen[params.TransactionID] = true
	f.stored = append(f.stored, params)

	return &transaction.Transaction{TransactionID: params.TransactionID}, true, nil
}

const sparkasseCSV = `"Auftragskonto";"Buchungstag";"Valutadatum";"Verwendungszweck";"Beguenstigter/Zahlungspflichtiger";"Betrag";"Waehrung"
"DE123";"18.10.2025";"19.10.2025";"Rechnung RE-2025-001";"Acme GmbH";"-1.500,00";"EUR"
"DE123";"20.10.2025";"20.10.2025";"Gutschrift Kunde";"Beispiel AG";"750,50";"EUR"
`

func TestImportSparkasse(t *testing.T) {
	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatSparkasse, strings.NewReader(sparkasseCSV))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 2}, stats)
	require.Len(t, repo.stored, 2)

	first := repo.stored[0]
	assert.Equal(t, "SPK-2025-10-18--150000", first.TransactionID)
	assert.Equal(t, time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC), first.TransactionDate)
	require.NotNil(t, first.ValueDate)
	assert.Equal(t, time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC), *first.ValueDate)
	assert.Equal(t, int64(-150000), first.Amount)
	assert.Equal(t, "Acme GmbH", first.SenderName)
	assert.Equal(t, "Rechnung RE-2025-001", first.Purpose)
	assert.Equal(t, "EUR", first.Currency)

	second := repo.stored[1]
	assert.Equal(t, int64(75050), second.Amount)
}

func TestImportAutoDetects(t *testing.T) {
	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatAuto, strings.NewReader(sparkasseCSV))
	require.NoError(t, err)
	assert.Equal(t, Stats{Imported: 2}, stats)
}

func TestImportAutoUnknownHeader(t *testing.T) {
	svc := NewService(newFakeTransactions())

	// No row ever resolves date and amount columns, not even under the
	// generic fallback layout.
	_, err := svc.Import(context.Background(), FormatAuto, strings.NewReader("foo;bar\n1;2\n"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestImportAutoFallsBackToGeneric(t *testing.T) {
	// Header from a bank the detector has no tokens for. The import still
	// goes through on the generic layout instead of aborting.
	csvContent := `Datum;Empfänger;Verwendungszweck;Betrag
18.10.2025;Acme GmbH;Rechnung 123456;-1.500,00
`

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatAuto, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 1}, stats)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "CSV-1-2025-10-18", repo.stored[0].TransactionID)
	assert.Equal(t, int64(-150000), repo.stored[0].Amount)
	assert.Equal(t, "Acme GmbH", repo.stored[0].SenderName)
	assert.Equal(t, "Rechnung 123456", repo.stored[0].Purpose)
}

func TestImportSparkassePreamble(t *testing.T) {
	// Portal exports carry account metadata lines before the header row.
	csvContent := `"Umsätze Girokonto";"Kundennummer 4711"
"Zeitraum: 01.10.2025 - 31.10.2025"

` + sparkasseCSV

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatAuto, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 2}, stats)
	require.Len(t, repo.stored, 2)
	assert.Equal(t, "SPK-2025-10-18--150000", repo.stored[0].TransactionID)
}

func TestImportVolksbankVariant(t *testing.T) {
	csvContent := `Buchung;Valuta;Name;Verwendungszweck;Betrag
18.10.2025;18.10.2025;Volksbank Kunde GmbH;Rechnung 654321;-500,00
`

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatAuto, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 1}, stats)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "SPK-2025-10-18--50000", repo.stored[0].TransactionID)
	assert.Equal(t, "Volksbank Kunde GmbH", repo.stored[0].SenderName)
	assert.Equal(t, int64(-50000), repo.stored[0].Amount)
}

func TestImportGeneric(t *testing.T) {
	csvContent := `Date,Name,Description,Amount,Currency
2025-10-18,Acme GmbH,Invoice 123456,-2500.00,EUR
`

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatGeneric, strings.NewReader(csvContent))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 1}, stats)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "CSV-1-2025-10-18", repo.stored[0].TransactionID)
	assert.Equal(t, int64(-250000), repo.stored[0].Amount)
}

func TestImportReRunSkipsDuplicates(t *testing.T) {
	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatSparkasse, strings.NewReader(sparkasseCSV))
	require.NoError(t, err)
	assert.Equal(t, Stats{Imported: 2}, stats)

	stats, err = svc.Import(context.Background(), FormatSparkasse, strings.NewReader(sparkasseCSV))
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 2}, stats)

	assert.Len(t, repo.stored, 2)
}

func TestImportMalformedRows(t *testing.T) {
	csvContent := `"Auftragskonto";"Buchungstag";"Valutadatum";"Verwendungszweck";"Beguenstigter/Zahlungspflichtiger";"Betrag";"Waehrung"
"DE123";"kein datum";"";"Zweck";"Wer";"10,00";"EUR"
"DE123";"21.10.2025";"";"Kaputter Betrag";"Wer";"zehn euro";"EUR"
"DE123";"22.10.2025";"";"Alles gut";"Wer";"-99,99";"EUR"
`

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatSparkasse, strings.NewReader(csvContent))
	require.NoError(t, err)

	// Bad date drops the row; a bad amount keeps it with zero cents.
	assert.Equal(t, Stats{Imported: 2, Skipped: 1, Defaulted: 1}, stats)

	require.Len(t, repo.stored, 2)
	assert.Equal(t, int64(0), repo.stored[0].Amount)
	assert.Equal(t, int64(-9999), repo.stored[1].Amount)
}

func TestImportLatin1Content(t *testing.T) {
	// "Begünstigter" with 0xFC, as Sparkasse exports arrive.
	raw := []byte(`"Auftragskonto";"Buchungstag";"Valutadatum";"Verwendungszweck";"Beg`)
	raw = append(raw, 0xFC)
	raw = append(raw, []byte(`nstigter/Zahlungspflichtiger";"Betrag";"Waehrung"
"DE123";"18.10.2025";"";"M`)...)
	raw = append(raw, 0xFC)
	raw = append(raw, []byte(`ller";"M`)...)
	raw = append(raw, 0xFC)
	raw = append(raw, []byte(`ller GmbH";"-10,00";"EUR"
`)...)

	repo := newFakeTransactions()
	svc := NewService(repo)

	stats, err := svc.Import(context.Background(), FormatSparkasse, strings.NewReader(string(raw)))
	require.NoError(t, err)

	assert.Equal(t, Stats{Imported: 1}, stats)
	require.Len(t, repo.stored, 1)
	assert.Equal(t, "Müller GmbH", repo.stored[0].SenderName)
	assert.Equal(t, "Müller", repo.stored[0].Purpose)
}

func TestImportCancelledContext(t *testing.T) {
	repo := newFakeTransactions()
	svc := NewService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, FormatSparkasse, strings.NewReader(sparkasseCSV))
	assert.ErrorIs(t, err, context.Canceled)
}
