package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tgerdes/paymatch/internal/encoding"
	"github.com/tgerdes/paymatch/internal/transaction"
)

// ErrUnknownFormat is returned when no row of the CSV resolves the layout's
// mandatory date and amount columns. An unrecognized header alone is not
// fatal; the generic layout is tried first.
var ErrUnknownFormat = errors.New("unrecognized csv format")

// TransactionImporter stores one parsed transaction. Satisfied by
// transaction.Service.
type TransactionImporter interface {
	Import(ctx context.Context, params transaction.ImportParams) (*transaction.Transaction, bool, error)
}

type Service struct {
	transactions TransactionImporter
}

func NewService(transactions TransactionImporter) *Service {
	return &Service{transactions: transactions}
}

// Stats counts the outcome of every row in one import run. Defaulted rows
// were imported with a zero amount because theirs could not be parsed.
type Stats struct {
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
	Defaulted int `json:"defaulted"`
}

// Import reads a bank CSV export and stores every row as a transaction.
// Re-importing the same file is safe: known transaction ids are left alone
// and show up under Skipped. The reader may be in any bank charset; decoding
// runs through the UTF-8 normalizer first.
func (s *Service) Import(ctx context.Context, format Format, r io.Reader) (Stats, error) {
	utf8, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return Stats{}, fmt.Errorf("decoding csv: %w", err)
	}

	data, err := io.ReadAll(utf8)
	if err != nil {
		return Stats{}, fmt.Errorf("reading csv: %w", err)
	}

	content := string(data)

	if format == FormatAuto || format == "" {
		format = detectFromContent(content)
		if format == FormatUnknown {
			slog.Warn("csv header not recognized, trying generic layout")

			format = FormatGeneric
		}
	}

	prof, ok := profiles[format]
	if !ok {
		return Stats{}, ErrUnknownFormat
	}

	comma := prof.comma
	if format == FormatGeneric {
		comma = sniffDelimiter(content)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Bank portals put preamble lines (account owner, export range) before
	// the actual header row, so scan forward until a row resolves the
	// mandatory columns.
	var cols columns

	headerFound := false

	for !headerFound {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			continue
		}

		cols = prof.resolveColumns(row)
		headerFound = cols.date != -1 && cols.amount != -1
	}

	if !headerFound {
		return Stats{}, fmt.Errorf("%w: no header row with date/amount columns", ErrUnknownFormat)
	}

	var stats Stats

	for rowNum := 1; ; rowNum++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			stats.Errors++

			continue
		}

		params, defaulted, err := parseRow(prof, cols, row, rowNum)
		if err != nil {
			stats.Skipped++

			continue
		}

		if defaulted {
			slog.Warn("amount unparseable, defaulting to zero",
				"transaction_id", params.TransactionID,
				"row", rowNum,
			)

			stats.Defaulted++
		}

		_, created, err := s.transactions.Import(ctx, params)
		if err != nil {
			slog.Error("storing transaction failed",
				"transaction_id", params.TransactionID,
				"error", err,
			)

			stats.Errors++

			continue
		}

		if created {
			stats.Imported++
		} else {
			stats.Skipped++
		}
	}

	return stats, nil
}

// parseRow turns one CSV record into import params. An unparseable date
// makes the whole row unusable; an unparseable amount defaults to zero so
// the row is still captured for manual review.
func parseRow(prof profile, cols columns, row []string, rowNum int) (transaction.ImportParams, bool, error) {
	dateStr := cell(row, cols.date)
	if dateStr == "" {
		return transaction.ImportParams{}, false, errors.New("empty date")
	}

	txDate, err := ParseGermanDate(dateStr)
	if err != nil {
		return transaction.ImportParams{}, false, err
	}

	var valueDate *time.Time

	if v := cell(row, cols.valueDate); v != "" {
		if vd, err := ParseGermanDate(v); err == nil {
			valueDate = &vd
		}
	}

	var defaulted bool

	amount, err := ParseGermanAmount(cell(row, cols.amount))
	if err != nil {
		amount = 0
		defaulted = true
	}

	params := transaction.ImportParams{
		TransactionID:   synthesizeID(prof.idPrefix, txDate, amount, rowNum),
		TransactionDate: txDate,
		ValueDate:       valueDate,
		Amount:          amount,
		Currency:        cell(row, cols.currency),
		// The counterparty column carries whoever is on the other side of
		// the booking; the matcher scores invoice vendor names against it.
		SenderName: cell(row, cols.counterparty),
		Purpose:    cell(row, cols.purpose),
		Reference:  cell(row, cols.reference),
	}

	return params, defaulted, nil
}

// synthesizeID builds a stable transaction id for exports that carry none.
// Sparkasse rows are keyed on date and amount; generic rows fall back to
// their position in the file.
func synthesizeID(prefix string, date time.Time, amountCents int64, rowNum int) string {
	day := date.Format("2006-01-02")

	if prefix == "SPK" {
		return fmt.Sprintf("%s-%s-%d", prefix, day, amountCents)
	}

	return fmt.Sprintf("%s-%d-%s", prefix, rowNum, day)
}

// detectFromContent runs the header detector over every line, since the
// header row is not necessarily the first.
func detectFromContent(content string) Format {
	for _, line := range strings.Split(content, "\n") {
		if format := DetectFormat(line); format != FormatUnknown {
			return format
		}
	}

	return FormatUnknown
}

// sniffDelimiter picks the field separator for generic exports, which arrive
// both comma- and semicolon-separated.
func sniffDelimiter(content string) rune {
	header, _, _ := strings.Cut(content, "\n")

	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}

	return ','
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
