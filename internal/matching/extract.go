package matching

import "regexp"

// Patterns are tried in priority order; the first hit wins. The ordering
// prefers not matching over mismatching, so a phone number or date in the
// purpose line does not get mistaken for an invoice number.
var (
	// Structured own-scheme numbers like RE-2025-001.
	reStructured = regexp.MustCompile(`(?i)RE-\d{4}-\d+`)
	// Labeled numbers: "Rechnung 123456", "Invoice #12345", "RG: 2025001".
	reLabeled = regexp.MustCompile(`(?i)(?:Rechnung|Invoice|RG)\s*[#:]?\s*(\d+)`)
	// Fallback: any standalone run of 6+ digits.
	reDigitRun = regexp.MustCompile(`\b\d{6,}\b`)
)

// ExtractInvoiceNumber pulls a candidate invoice number out of free-text
// payment purpose/reference fields. Returns "" when nothing matches.
func ExtractInvoiceNumber(text string) string {
	if text == "" {
		return ""
	}

	if m := reStructured.FindString(text); m != "" {
		return m
	}

	if m := reLabeled.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	return reDigitRun.FindString(text)
}
