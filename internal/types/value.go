package types

import (
	"encoding/json"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "absent"
	}
}

// Value is a feature property value: a string, a number, a boolean, or absent.
// The zero Value is absent.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// StringValue wraps a string property.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a numeric property.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a boolean property.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the property was missing or null.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Text renders the value for display. Absent values render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value for JSON and GeoJSON encoding.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Properties maps property names to values.
type Properties map[string]Value

// Get returns the named value, absent when missing.
func (p Properties) Get(key string) Value {
	if p == nil {
		return Value{}
	}
	return p[key]
}

// Has reports whether the key holds a non-absent value.
func (p Properties) Has(key string) bool {
	return !p.Get(key).IsAbsent()
}

// Map converts the properties back to a generic map.
func (p Properties) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}
