package safety

import (
	"regexp"
	"strconv"
)

// DefaultQuantityCeiling is the largest quantity accepted as a legitimate
// single-order size.
const DefaultQuantityCeiling = 60

// strengthSuffix matches a trailing dosage strength in a medicine name,
// e.g. "Pacimol 650" or "Allegra 120mg".
var strengthSuffix = regexp.MustCompile(`(?i)(\d+)\s*(mg|mcg|ml|g)?\s*$`)

// SanitizeQuantity corrects a commonly mis-extracted quantity before any
// safety check consumes it. Upstream extraction conflates dosage strengths
// with quantities ("120 mg" read as 120 units), so a quantity equal to the
// name's strength suffix, or above the ceiling, is treated as a parsing
// artifact and reset to 1. A missing or zero quantity also becomes 1.
func SanitizeQuantity(name string, quantity, ceiling int64) int64 {
	if quantity <= 0 {
		return 1
	}
	if m := strengthSuffix.FindStringSubmatch(name); m != nil {
		if strength, err := strconv.ParseInt(m[1], 10, 64); err == nil && strength == quantity {
			return 1
		}
	}
	if ceiling <= 0 {
		ceiling = DefaultQuantityCeiling
	}
	if quantity > ceiling {
		return 1
	}
	return quantity
}
