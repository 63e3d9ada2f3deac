package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatFixed renders an amount with exactly two decimals ("415.00").
// Used by the receipt raster, the PDF archive and JSON display strings.
func FormatFixed(d decimal.Decimal) string { return d.StringFixed(2) }

// FormatCompact renders two decimals but drops a trailing ".00" ("415",
// "12.50"). Used only on the narrow ESC/POS text surface.
func FormatCompact(d decimal.Decimal) string {
	return strings.TrimSuffix(d.StringFixed(2), ".00")
}
