package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrUnsupportedValue is returned when a Go value has no Value variant.
var ErrUnsupportedValue = errors.New("unsupported value type")

// Kind enumerates the storable value kinds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindTime
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindTime:   "time",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single field value. The set of implementations is closed:
// Null, Bool, Int, Float, String, Bytes and Time.
type Value interface {
	Kind() Kind
	// Native returns the value as a driver-bindable Go value.
	Native() any
	value()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit integer value.
type Int int64

// Float is a 64-bit floating point value.
type Float float64

// String is a text value.
type String string

// Bytes is an opaque binary value.
type Bytes []byte

// Time is a datetime value.
type Time time.Time

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Bytes) Kind() Kind  { return KindBytes }
func (Time) Kind() Kind   { return KindTime }

func (Null) Native() any     { return nil }
func (v Bool) Native() any   { return bool(v) }
func (v Int) Native() any    { return int64(v) }
func (v Float) Native() any  { return float64(v) }
func (v String) Native() any { return string(v) }
func (v Bytes) Native() any  { return []byte(v) }
func (v Time) Native() any   { return time.Time(v) }

func (Null) value()   {}
func (Bool) value()   {}
func (Int) value()    {}
func (Float) value()  {}
func (String) value() {}
func (Bytes) value()  {}
func (Time) value()   {}

// IsNull reports whether v is absent. A nil interface counts as absent.
func IsNull(v Value) bool {
	return v == nil || v.Kind() == KindNull
}

// FromAny converts a Go value produced by a driver or a decoder into a Value.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Bytes(bytes.Clone(x)), nil
	case time.Time:
		return Time(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x)), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint64:
		return fromUint(x), nil
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, x.String())
		}
		return Float(f), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// Of converts v with FromAny and panics if the type is unsupported.
// It is meant for literals in code and tests.
func Of(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic("record: " + err.Error())
	}
	return out
}

// Equal reports whether two values are equal. Int and Float compare
// numerically; a nil Value equals Null.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	case Time:
		y, ok := b.(Time)
		return ok && time.Time(x).Equal(time.Time(y))
	}
	return false
}

// Comparable reports whether a and b can be ordered against each other.
// Null is never comparable.
func Comparable(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return false
	}
	return rank(a) == rank(b)
}

// Compare orders two values. Values of different kinds order by kind rank,
// with null first, so the result is total and usable for sorting.
func Compare(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case Bool:
		y := b.(Bool)
		switch {
		case x == y:
			return 0
		case !bool(x):
			return -1
		default:
			return 1
		}
	case Int, Float:
		if xi, ok := x.(Int); ok {
			if yi, ok := b.(Int); ok {
				return cmp3(int64(xi), int64(yi))
			}
		}
		xf, _ := number(a)
		yf, _ := number(b)
		return cmp3(xf, yf)
	case String:
		return cmp3(string(x), string(b.(String)))
	case Bytes:
		return bytes.Compare(x, b.(Bytes))
	case Time:
		return time.Time(x).Compare(time.Time(b.(Time)))
	}
	return 0
}

func cmp3[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func number(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	}
	return 0, false
}

func rank(v Value) int {
	if IsNull(v) {
		return 0
	}
	switch v.Kind() {
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindBytes:
		return 4
	case KindTime:
		return 5
	}
	return 6
}

// Format renders v for logs and CLI output.
func Format(v Value) string {
	if IsNull(v) {
		return "null"
	}
	switch x := v.(type) {
	case Bool:
		return strconv.FormatBool(bool(x))
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case String:
		return string(x)
	case Bytes:
		return fmt.Sprintf("%x", []byte(x))
	case Time:
		return time.Time(x).Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v.Native())
}

func marshalValue(v Value) ([]byte, error) {
	if IsNull(v) {
		return []byte("null"), nil
	}
	switch x := v.(type) {
	case Time:
		return json.Marshal(time.Time(x).Format(time.RFC3339Nano))
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite float", ErrUnsupportedValue)
		}
	}
	return json.Marshal(v.Native())
}
