package paymentlog

import (
	"time"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
)

// normalizeMap converts values into JSON friendly types: decimals become
// strings and times become RFC 3339 strings. Nested maps and slices are
// converted recursively.
func normalizeMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.String()
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.String()
	case decimal.NullDecimal:
		if !val.Valid {
			return nil
		}
		return val.Decimal.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339)
	case time.Duration:
		return val.String()
	case map[string]interface{}:
		return normalizeMap(val)
	case models.JSON:
		return normalizeMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case []decimal.Decimal:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = item.String()
		}
		return out
	default:
		return v
	}
}
