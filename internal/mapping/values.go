package mapping

import (
	"fmt"
	"time"

	"github.com/planetf1/egeria-connector-xtdb/internal/models"
)

// ValueForComparison converts a typed property value into the store's
// comparable scalar form. Primitives normalise to string, int64, float64,
// bool or time.Time; enums compare by their stored ordinal. Structured,
// array and map values have no scalar form and are rejected rather than
// silently ignored.
func ValueForComparison(pv models.PropertyValue) (any, error) {
	switch pv.Category {
	case models.CategoryPrimitive:
		return normalisePrimitive(pv.Value)
	case models.CategoryEnum:
		return int64(pv.Ordinal), nil
	default:
		return nil, fmt.Errorf("value category %s: %w", pv.Category, models.ErrUnmappedConstruct)
	}
}

// normalisePrimitive widens numeric primitives so comparisons are uniform
// regardless of how the caller constructed the value.
func normalisePrimitive(v any) (any, error) {
	switch val := v.(type) {
	case string, bool, int64, float64, time.Time:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("primitive type %T: %w", v, models.ErrUnmappedConstruct)
	}
}

// StatusOrdinal returns the stored ordinal for an instance status.
func StatusOrdinal(s models.InstanceStatus) int64 {
	return int64(s)
}
