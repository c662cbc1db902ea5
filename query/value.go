package query

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/exp/constraints"
	"golang.org/x/text/collate"
)

// Row is a single record mapping field names to values.
type Row = map[string]interface{}

type missing struct{}

// Missing is the value of an identifier that resolves to nothing. It is
// distinct from a stored nil, which is a legitimate row value.
var Missing interface{} = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v interface{}) bool {
	_, ok := v.(missing)
	return ok
}

func (missing) String() string { return "<missing>" }

// MarshalJSON encodes Missing as null.
func (missing) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// isNull reports whether v is nil or Missing.
func isNull(v interface{}) bool {
	return v == nil || IsMissing(v)
}

// Truthy reports whether a filter predicate result keeps its row.
//
// Falsy values: nil, Missing, false, numeric zero, NaN and the empty string.
// Every other value is truthy, including the string "0" and empty slices or
// maps.
func Truthy(v interface{}) bool {
	if isNull(v) {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}
	if n, ok := toFloat64(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

func widen[T constraints.Integer | constraints.Float](v T) float64 {
	return float64(v)
}

// toFloat64 converts a value to float64 if it is numeric
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return widen(val), true
	case int:
		return widen(val), true
	case int8:
		return widen(val), true
	case int16:
		return widen(val), true
	case int32:
		return widen(val), true
	case int64:
		return widen(val), true
	case uint:
		return widen(val), true
	case uint8:
		return widen(val), true
	case uint16:
		return widen(val), true
	case uint32:
		return widen(val), true
	case uint64:
		return widen(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// valueToString renders scalar values as text for pattern matching.
func valueToString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case fmt.Stringer:
		if IsMissing(v) {
			return "", false
		}
		return val.String(), true
	}
	if n, ok := toFloat64(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

// strictEqual compares primitive values without type coercion, except that
// all numeric types compare by value. Composite values are never equal.
func strictEqual(a, b interface{}) bool {
	if IsMissing(a) || IsMissing(b) {
		return IsMissing(a) && IsMissing(b)
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := toFloat64(a); ok {
		bn, ok := toFloat64(b)
		return ok && an == bn
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Struct, reflect.Array:
		if _, ok := a.(time.Time); !ok {
			return false
		}
		return a.(time.Time).Equal(b.(time.Time))
	}
	return a == b
}

// orderValues orders two values of the same kind. ok is false when the
// values are not mutually ordered (mixed types, nil, Missing, composites).
func orderValues(a, b interface{}) (int, bool) {
	if isNull(a) || isNull(b) {
		return 0, false
	}
	if an, ok := toFloat64(a); ok {
		bn, ok := toFloat64(b)
		if !ok || math.IsNaN(an) || math.IsNaN(bn) {
			return 0, false
		}
		return compareOrdered(an, bn), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return compareOrdered(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return compareOrdered(boolRank(av), boolRank(bv)), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sortCompare is the ORDER BY comparison: Missing sorts before everything,
// nil before every other value, strings use the collator and the remaining
// ordered kinds compare ordinally. Values that are not mutually ordered tie.
func sortCompare(col *collate.Collator, a, b interface{}) int {
	am, bm := IsMissing(a), IsMissing(b)
	switch {
	case am && bm:
		return 0
	case am:
		return -1
	case bm:
		return 1
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok && col != nil {
			return col.CompareString(as, bs)
		}
	}
	c, _ := orderValues(a, b)
	return c
}

// valueKey returns a type-tagged token for v such that distinct values
// produce distinct tokens and numerically equal numbers share one.
func valueKey(v interface{}) (string, error) {
	if IsMissing(v) {
		return "~", nil
	}
	if v == nil {
		return "null", nil
	}
	if n, ok := toFloat64(v); ok {
		return "n" + strconv.FormatFloat(n, 'g', -1, 64), nil
	}
	switch val := v.(type) {
	case string:
		return "s" + strconv.Quote(val), nil
	case bool:
		return "b" + strconv.FormatBool(val), nil
	case time.Time:
		return "t" + val.UTC().Format(time.RFC3339Nano), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cannot build key for %T: %w", v, err)
	}
	return fmt.Sprintf("%T%s", v, b), nil
}

// compositeKey serializes a tuple of values into one deterministic,
// injective key.
func compositeKey(values []interface{}) (string, error) {
	tokens := make([]string, len(values))
	for i, v := range values {
		token, err := valueKey(v)
		if err != nil {
			return "", err
		}
		tokens[i] = token
	}
	b, err := json.Marshal(tokens)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
