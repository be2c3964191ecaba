package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FieldMap is the loosely-typed row projection used by the field-filtered
// query paths. Keys are column names as compiled into the query.
type FieldMap map[string]any

// String returns the value under key rendered as a string, or "" when
// absent or nil.
func (m FieldMap) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Decimal parses the value under key as a decimal. Missing, nil or
// unparseable values contribute zero.
func (m FieldMap) Decimal(key string) decimal.Decimal {
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero
	}
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case float64:
		return decimal.NewFromFloat(n)
	case []byte:
		d, err := decimal.NewFromString(string(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// Has reports whether key is present with a non-nil value
func (m FieldMap) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}
