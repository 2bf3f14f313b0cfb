package types

import (
	"fmt"
	"reflect"
	"time"
)

// ToInt64 converts an interface{} to int64.
// Supports int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, and float64.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	default:
		return 0
	}
}

// isInteger reports whether v holds one of the Go integer kinds.
func isInteger(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// NormalizeScalar maps a column value onto a comparable canonical form.
//
// Drivers return []byte for text columns and generators mix int and int64
// freely, so two values that the database treats as equal must compare equal
// here too: integers become int64, float32 becomes float64, []byte becomes
// string and times are truncated to UTC. Anything else that is not comparable
// falls back to its %v rendering.
func NormalizeScalar(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if isInteger(v) {
		return ToInt64(v)
	}
	switch x := v.(type) {
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%v", v)
}
