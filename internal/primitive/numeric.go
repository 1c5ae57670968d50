package primitive

import (
	"fmt"
	"reflect"
)

// toFloat coerces the numeric types that survive JSON decoding and
// literal Go values into a float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// lessValue orders two loosely typed values: numbers numerically,
// everything else by string form.
func lessValue(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// equalValue compares loosely typed values, treating numeric types as
// interchangeable and falling back to deep equality.
func equalValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}
