package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{"02.01.2006", "02.01.06", "2006-01-02"}

// ParseGermanDate parses the date formats bank exports use: German
// DD.MM.YYYY and DD.MM.YY, plus ISO YYYY-MM-DD.
func ParseGermanDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseGermanAmount parses a German-formatted amount into signed cents:
// "1.234,56" -> 123456, "-750,50" -> -75050. A plain decimal point format
// like "2500.00" is accepted as well.
func ParseGermanAmount(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.TrimSuffix(clean, "€")
	clean = strings.TrimSuffix(clean, "EUR")

	// A comma marks the German layout; dots are thousands separators then.
	// Without one the string is already machine-formatted.
	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("unrecognized amount %q", s)
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
