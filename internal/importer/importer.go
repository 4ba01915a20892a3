package importer

// Format identifies a bank CSV export layout.
type Format string

const (
	// FormatAuto asks the importer to detect the layout from the header.
	FormatAuto      Format = "auto"
	FormatSparkasse Format = "sparkasse"
	FormatGeneric   Format = "generic"
	FormatUnknown   Format = "unknown"
)

func (f Format) Valid() bool {
	switch f {
	case FormatAuto, FormatSparkasse, FormatGeneric:
		return true
	}

	return false
}
