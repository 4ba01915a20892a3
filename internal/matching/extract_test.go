package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractInvoiceNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "structured number",
			text: "Zahlung RE-2025-001 vielen Dank",
			want: "RE-2025-001",
		},
		{
			name: "structured number lowercase",
			text: "re-2024-0042",
			want: "re-2024-0042",
		},
		{
			name: "structured beats labeled",
			text: "Rechnung 999999 RE-2025-007",
			want: "RE-2025-007",
		},
		{
			name: "german label",
			text: "Rechnung 123456",
			want: "123456",
		},
		{
			name: "english label with hash",
			text: "Invoice #12345",
			want: "12345",
		},
		{
			name: "abbreviated label with colon",
			text: "RG: 2025001",
			want: "2025001",
		},
		{
			name: "bare digit run",
			text: "Ueberweisung 20250042 Danke",
			want: "20250042",
		},
		{
			name: "short digit run ignored",
			text: "Kundennr 12345",
			want: "",
		},
		{
			name: "no number at all",
			text: "Miete September",
			want: "",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractInvoiceNumber(tt.text))
		})
	}
}
