package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TrimDecimal rounds half-up to 2 places; used for every amount written to logs or payloads.
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}

// ParseAmount parses a non-negative money string, e.g. "80" or "80.00".
func ParseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d.Round(2), true
}
