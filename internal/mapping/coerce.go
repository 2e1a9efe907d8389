package mapping

import "time"

// Coercion helpers tolerant of the two forms document values take: native Go
// values from the in-memory store, and JSON-decoded values (float64 numbers,
// RFC 3339 strings, []any slices) from the PostgreSQL store.

// AsString returns the string form of a document value, or "".
func AsString(v any) string { return asString(v) }

// AsInt64 returns the integer form of a document value, or 0.
func AsInt64(v any) int64 { return asInt64(v) }

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}
		}

		return t
	default:
		return time.Time{}
	}
}

func asStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))

		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
