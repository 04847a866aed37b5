package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the scalar held by a Value
type ValueKind string

const (
	KindBool   ValueKind = "bool"
	KindInt    ValueKind = "int"
	KindFloat  ValueKind = "float"
	KindString ValueKind = "string"
)

// Value is a typed scalar: exactly one of bool, int, float or string.
// The zero Value holds nothing and reports Kind() == "".
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
}

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsZero() bool { return v.kind == "" }

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Truthy interprets the value as an on/off state. Numbers are on when non-zero.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		switch strings.ToLower(v.s) {
		case "true", "1", "yes", "on":
			return true
		}
	}
	return false
}

// Interface returns the underlying scalar as a plain Go value
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	}
	return "<nil>"
}

type taggedValue struct {
	Type  ValueKind       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value with its kind so int and float survive a round trip
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == "" {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedValue{Type: v.kind, Value: raw})
}

// UnmarshalJSON accepts either the tagged form written by MarshalJSON or a bare
// JSON scalar. Bare numbers without a fraction or exponent become integers.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '{' {
		var t taggedValue
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		return v.decodeTagged(t)
	}
	return v.decodeScalar(data)
}

func (v *Value) decodeTagged(t taggedValue) error {
	switch t.Type {
	case KindBool:
		var b bool
		if err := json.Unmarshal(t.Value, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case KindInt:
		var i int64
		if err := json.Unmarshal(t.Value, &i); err != nil {
			return err
		}
		*v = Int(i)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(t.Value, &f); err != nil {
			return err
		}
		*v = Float(f)
	case KindString:
		var s string
		if err := json.Unmarshal(t.Value, &s); err != nil {
			return err
		}
		*v = String(s)
	default:
		return fmt.Errorf("unknown value type %q", t.Type)
	}
	return nil
}

func (v *Value) decodeScalar(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, ok := ValueOf(raw)
	if !ok {
		return fmt.Errorf("unsupported value %s", string(data))
	}
	*v = parsed
	return nil
}

// ValueOf converts a decoded JSON scalar or Go scalar into a Value
func ValueOf(raw any) (Value, bool) {
	switch x := raw.(type) {
	case bool:
		return Bool(x), true
	case string:
		return String(x), true
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := x.Int64(); err == nil {
				return Int(i), true
			}
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, false
		}
		return Float(f), true
	case int:
		return Int(int64(x)), true
	case int64:
		return Int(x), true
	case int32:
		return Int(int64(x)), true
	case float64:
		return Float(x), true
	case float32:
		return Float(float64(x)), true
	case Value:
		return x, !x.IsZero()
	}
	return Value{}, false
}
