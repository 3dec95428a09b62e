// Package datatree converts between flat named parameters and the Grasshopper
// "data tree" structures exchanged with Rhino Compute.
//
// A parameter mapping is encoded into one Tree per entry, each holding a single
// branch at path {0}.  Evaluation results are decoded back into a mapping of
// names to flat value lists.  Values are carried opaquely as a tagged union of
// string, number and boolean; no type coercion happens inside this package.
package datatree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which raw representation a Value carries.
type Kind uint8

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Rhino type hints attached to encoded items.
const (
	TypeString  = "System.String"
	TypeDouble  = "System.Double"
	TypeBoolean = "System.Boolean"
)

// Value is an opaque scalar flowing through a data tree.  The zero Value is
// the empty string.
//
// A rawNumber keeps its JSON literal in str, so integers beyond 2^53 and
// values outside float64 range pass through unchanged.  num is only the
// float64 reading of that literal.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// String returns a rawString Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a rawNumber Value.  NaN and infinities have no JSON literal
// and fail to marshal.
func Number(f float64) Value { return Value{kind: KindNumber, str: formatFloat(f), num: f} }

// Int returns a rawNumber Value from an integer.
func Int(i int) Value { return Int64(int64(i)) }

// Int64 returns a rawNumber Value whose literal is exact for every int64.
func Int64(i int64) Value {
	return Value{kind: KindNumber, str: strconv.FormatInt(i, 10), num: float64(i)}
}

// NumberLiteral returns a rawNumber Value carrying lit verbatim.  lit must be
// a JSON number; its float64 reading saturates to ±Inf when out of range.
func NumberLiteral(lit string) (Value, error) {
	if !isNumberLiteral(lit) {
		return Value{}, fmt.Errorf("datatree: invalid number %q", lit)
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("datatree: invalid number %q: %w", lit, err)
	}
	return Value{kind: KindNumber, str: lit, num: f}, nil
}

// isNumberLiteral reports whether s is exactly one JSON number token.
func isNumberLiteral(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

// formatFloat renders f the way encoding/json does.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	out := strconv.FormatFloat(f, format, -1, 64)
	if format == 'e' {
		// e-09 -> e-9
		if n := len(out); n >= 4 && out[n-4] == 'e' && out[n-3] == '-' && out[n-2] == '0' {
			out = out[:n-2] + out[n-1:]
		}
	}
	return out
}

// Bool returns a rawBoolean Value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Kind reports the raw representation of v.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload when v is a rawString.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload when v is a rawNumber.  Literals
// beyond float64 precision are rounded here and only here.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Literal returns the JSON text of a rawNumber.
func (v Value) Literal() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.str, true
}

// AsBool returns the boolean payload when v is a rawBoolean.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// Interface returns the payload as a plain Go value: string, bool, or a
// json.Number holding the literal.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return json.Number(v.str)
	case KindBoolean:
		return v.b
	default:
		return v.str
	}
}

// TypeHint returns the Rhino type name matching the value's kind.
func (v Value) TypeHint() string {
	switch v.kind {
	case KindNumber:
		return TypeDouble
	case KindBoolean:
		return TypeBoolean
	default:
		return TypeString
	}
}

// Text renders the payload without JSON quoting.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		if v.str == "" {
			return strconv.FormatFloat(v.num, 'f', -1, 64)
		}
		return v.str
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

func (v Value) String() string { return v.Text() }

// MarshalJSON writes the raw JSON token for the payload.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if v.str == "" {
			return nil, fmt.Errorf("datatree: number %v is not representable in JSON", v.num)
		}
		return []byte(v.str), nil
	case KindBoolean:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON accepts any JSON token.  Objects, arrays and null are kept as
// a rawString holding the compact JSON text so consumers can decode them later.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("datatree: empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("datatree: decode string value: %w", err)
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("datatree: decode boolean value: %w", err)
		}
		*v = Bool(b)
	case '{', '[', 'n':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return fmt.Errorf("datatree: decode raw value: %w", err)
		}
		*v = String(buf.String())
	default:
		n, err := NumberLiteral(string(trimmed))
		if err != nil {
			return fmt.Errorf("datatree: decode number value: %w", err)
		}
		*v = n
	}
	return nil
}

// ValueOf converts a loosely-typed Go value, as produced by encoding/json or a
// flag parser, into a Value.  Non-scalar inputs are rejected.
func ValueOf(x interface{}) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(t), nil
	case int32:
		return Int64(int64(t)), nil
	case int64:
		return Int64(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	default:
		return Value{}, fmt.Errorf("datatree: unsupported value type %T", x)
	}
}

//Personal.AI order the ending
