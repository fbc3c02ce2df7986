package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// Value is a sealed interface over the values a DSL payload can carry.
// Only Null, String, Int, Decimal, Bool, Array and *Document implement it.
type Value interface {
	dslValue() // Sealed - only these types implement it
}

// Null represents a JSON null.
type Null struct{}

func (Null) dslValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string value.
type String string

func (String) dslValue() {}

// Int is an integer value. Integers that fit int64 always decode to Int.
type Int int64

func (Int) dslValue() {}

// Decimal is a non-integer (or out of int64 range) number kept as exact
// decimal text, so that 0.1 stays 0.1 between parse and re-serialization.
type Decimal struct {
	decimal.Decimal
}

func (Decimal) dslValue() {}

// NewDecimal parses decimal text.
func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Decimal{d}, nil
}

// Bool is a boolean value.
type Bool bool

func (Bool) dslValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) dslValue() {}

// NumberFromText converts JSON/YAML number text into Int when it is an
// integer in int64 range, and into Decimal otherwise.
func NumberFromText(s string) (Value, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n), nil
	}
	d, err := NewDecimal(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// IsScalar reports whether v is a string, number, boolean or null.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, String, Int, Decimal, Bool:
		return true
	default:
		return false
	}
}

// IsNumber reports whether v is an Int or a Decimal.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Decimal:
		return true
	default:
		return false
	}
}

// TypeName returns a short lowercase name of v's kind, for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case Null:
		return "null"
	case String:
		return "string"
	case Int, Decimal:
		return "number"
	case Bool:
		return "boolean"
	case Array:
		return "array"
	case *Document:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asDecimal(v Value) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case Int:
		return decimal.NewFromInt(int64(val)), true
	case Decimal:
		return val.Decimal, true
	default:
		return decimal.Decimal{}, false
	}
}

// Compare orders two scalars of the same kind. Numbers compare numerically
// across Int and Decimal, strings compare bytewise. ok is false when the
// values are not mutually ordered.
func Compare(a, b Value) (cmp int, ok bool) {
	if da, okA := asDecimal(a); okA {
		db, okB := asDecimal(b)
		if !okB {
			return 0, false
		}
		return da.Cmp(db), true
	}
	sa, okA := a.(String)
	sb, okB := b.(String)
	if okA && okB {
		return strings.Compare(string(sa), string(sb)), true
	}
	return 0, false
}

// Equal reports deep equality. Numbers are equal by value, so Int(1)
// equals the Decimal 1.0.
func Equal(a, b Value) bool {
	if cmp, ok := Compare(a, b); ok {
		return cmp == 0
	}
	switch va := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		vb, ok := b.(Bool)
		return ok && va == vb
	case Array:
		vb, ok := b.(Array)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !Equal(va[i], vb[i]) {
				return false
			}
		}
		return true
	case *Document:
		vb, ok := b.(*Document)
		if !ok || va.Len() != vb.Len() {
			return false
		}
		for _, k := range va.Keys() {
			other, found := vb.Get(k)
			if !found || !Equal(va.MustGet(k), other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromNative converts a Go value into a Value. It accepts the types a
// caller of the fluent builder is likely to pass: strings, integers,
// floats, booleans, nil, decimals, json.Number, slices and string maps.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float64:
		return fromFloat(val)
	case float32:
		return fromFloat(float64(val))
	case bool:
		return Bool(val), nil
	case decimal.Decimal:
		return Decimal{val}, nil
	case json.Number:
		return NumberFromText(string(val))
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		doc := NewDocument()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)
		for _, k := range keys {
			conv, err := FromNative(val[k])
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			doc.Set(k, conv)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f)), nil
	}
	return Decimal{decimal.NewFromFloat(f)}, nil
}

// Native converts v into plain Go values suitable for encoding/json:
// string, int64, json.Number, bool, nil, []any and map[string]any.
// Decimals become json.Number so their text survives encoding.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Decimal:
		return json.Number(val.String())
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case *Document:
		out := make(map[string]any, val.Len())
		for _, k := range val.Keys() {
			out[k] = Native(val.MustGet(k))
		}
		return out
	default:
		return nil
	}
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Go's default string comparison uses UTF-8 which produces DIFFERENT order.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// MarshalValue marshals v to compact JSON, preserving document key order.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		s, err := encodeString(string(val))
		if err != nil {
			return err
		}
		buf.Write(s)
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Decimal:
		buf.WriteString(val.String())
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case *Document:
		buf.WriteByte('{')
		for i, k := range val.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := encodeString(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeValue(buf, val.MustGet(k)); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// encodeString encodes s as a JSON string without HTML escaping.
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
