package pointpack

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// timeLayouts are the string forms accepted for temporal attributes.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timeMillis converts a temporal attribute value to epoch milliseconds.
// Null values map to 0.
func timeMillis(v interface{}) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case time.Time:
		return val.UnixMilli(), nil
	case *time.Time:
		if val == nil {
			return 0, nil
		}
		return val.UnixMilli(), nil
	case string:
		if t, ok := parseTime(val); ok {
			return t.UnixMilli(), nil
		}
	default:
		// Bare numbers are taken as epoch milliseconds.
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %v (%T) is not a time", ErrInvalidValue, v, v)
}

// int32Value narrows a numeric value the way a JVM Number.intValue does:
// wider integers keep their low 32 bits, floats truncate toward zero and
// saturate, NaN becomes 0.
func int32Value(v interface{}) (int32, error) {
	switch val := v.(type) {
	case float32:
		return saturateInt32(float64(val)), nil
	case float64:
		return saturateInt32(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int32(i), nil
		}
		if f, err := val.Float64(); err == nil {
			return saturateInt32(f), nil
		}
	default:
		if i, ok := toInt64(v); ok {
			return int32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %v (%T) is not numeric", ErrInvalidValue, v, v)
}

func float32Value(v interface{}) (float32, error) {
	if f, ok := toFloat64(v); ok {
		return float32(f), nil
	}
	return 0, fmt.Errorf("%w: %v (%T) is not numeric", ErrInvalidValue, v, v)
}

func saturateInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// Type conversion helpers

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
