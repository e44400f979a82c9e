package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one decoded reply row: field names to values as received on the
// wire. Numeric fields hold decimal.Decimal so prices keep their exact
// decimal representation.
type Record map[string]any

// Decimal returns the named field as an exact decimal.
func (r Record) Decimal(key string) (decimal.Decimal, bool) {
	v, ok := r[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// String returns the named field as a string, or "" when absent or non-string.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Int returns the named field truncated to int64.
func (r Record) Int(key string) (int64, bool) {
	d, ok := r.Decimal(key)
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

// Has reports whether the field exists, regardless of value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}
