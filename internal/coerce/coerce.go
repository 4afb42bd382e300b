// Package coerce turns driver values of unknown shape into canonical values.
package coerce

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Integer
	Float
	Boolean
	String
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case String:
		return "string"
	default:
		return "null"
	}
}

// Value is a canonical cell value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// NullValue returns the SQL null.
func NullValue() Value { return Value{} }

// IntValue wraps a 64-bit integer.
func IntValue(v int64) Value { return Value{kind: Integer, i: v} }

// FloatValue wraps a 64-bit float.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{kind: Boolean, b: v} }

// StringValue wraps text.
func StringValue(v string) Value { return Value{kind: String, s: v} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the SQL null.
func (v Value) IsNull() bool { return v.kind == Null }

// Int returns the integer payload; zero unless Kind is Integer.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload; zero unless Kind is Float.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload; false unless Kind is Boolean.
func (v Value) Bool() bool { return v.b }

// Str returns the text payload; empty unless Kind is String.
func (v Value) Str() string { return v.s }

// Interface returns the Go value held by v, or nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case Integer:
		return v.i
	case Float:
		return v.f
	case Boolean:
		return v.b
	case String:
		return v.s
	default:
		return nil
	}
}

// String renders v for text output. Null renders as "NULL".
func (v Value) String() string {
	switch v.kind {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.b)
	case String:
		return v.s
	default:
		return "NULL"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Coerce decodes raw by trying, in order: 32-bit integer, text, boolean,
// 64-bit float, 64-bit integer. The first decoder that accepts raw wins.
// Anything none accepts becomes null.
func Coerce(raw any) Value {
	if valuer, ok := raw.(driver.Valuer); ok {
		inner, err := valuer.Value()
		if err != nil {
			return NullValue()
		}
		raw = inner
	}
	if raw == nil {
		return NullValue()
	}
	if n, ok := asInt32(raw); ok {
		return IntValue(int64(n))
	}
	if s, ok := asString(raw); ok {
		return StringValue(s)
	}
	if b, ok := raw.(bool); ok {
		return BoolValue(b)
	}
	if f, ok := asFloat64(raw); ok {
		return FloatValue(f)
	}
	if n, ok := asInt64(raw); ok {
		return IntValue(n)
	}
	return NullValue()
}

// CoerceRow coerces every cell of a row.
func CoerceRow(raw []any) []Value {
	out := make([]Value, len(raw))
	for i, cell := range raw {
		out[i] = Coerce(cell)
	}
	return out
}

func asInt32(raw any) (int32, bool) {
	n, ok := asInt64(raw)
	if !ok || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int32(n), true
}

func asString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		if !utf8.Valid(v) {
			return "", false
		}
		return string(v), true
	}
	return "", false
}

func asFloat64(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}
