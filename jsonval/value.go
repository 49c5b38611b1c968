// Package jsonval wraps untyped JSON documents from marketplace pages in a
// value type whose accessors never panic. Missing keys, wrong types and out
// of range indexes all yield a nil Value instead of an error.
package jsonval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ysmood/gson"
)

// Value is a node of a decoded JSON document. The zero Value is nil.
type Value struct {
	v any
}

// Nil is the empty value returned by failed lookups.
var Nil = Value{}

// New wraps an already decoded Go value (map[string]any, []any, string,
// json.Number, float64, bool or nil).
func New(v any) Value {
	if v == nil {
		return Nil
	}
	if val, isVal := v.(Value); isVal {
		return val
	}
	return Value{v: v}
}

// FromGSON adopts a value produced by rod's Eval.
func FromGSON(j gson.JSON) Value {
	if j.Nil() {
		return Nil
	}
	return New(j.Val())
}

// Parse decodes a JSON document. Numbers are kept as json.Number so large
// integer ids survive untouched.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Nil, fmt.Errorf("jsonval: decode: %w", err)
	}
	if dec.More() {
		return Nil, fmt.Errorf("jsonval: trailing data after document")
	}
	return New(v), nil
}

// ParseString is Parse for text input.
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

// Raw returns the underlying Go value.
func (v Value) Raw() any {
	return v.v
}

func (v Value) IsNil() bool { return v.Raw() == nil }

func (v Value) IsObject() bool {
	_, ok := v.Raw().(map[string]any)
	return ok
}

func (v Value) IsArray() bool {
	_, ok := v.Raw().([]any)
	return ok
}

// Get returns the member named key, or Nil if v is not an object.
func (v Value) Get(key string) Value {
	m, ok := v.Raw().(map[string]any)
	if !ok {
		return Nil
	}
	return New(m[key])
}

// Path walks nested object keys.
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
		if cur.IsNil() {
			return Nil
		}
	}
	return cur
}

// Index returns the i-th array element, or Nil.
func (v Value) Index(i int) Value {
	a, ok := v.Raw().([]any)
	if !ok || i < 0 || i >= len(a) {
		return Nil
	}
	return New(a[i])
}

// Arr returns the array elements, or nil when v is not an array.
func (v Value) Arr() []Value {
	a, ok := v.Raw().([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(a))
	for i, e := range a {
		out[i] = New(e)
	}
	return out
}

// Str returns v as a string when it is a JSON string.
func (v Value) Str() (string, bool) {
	s, ok := v.Raw().(string)
	return s, ok
}

// Num returns v as a float when it is a JSON number. Numeric strings are not
// coerced.
func (v Value) Num() (float64, bool) {
	switch n := v.Raw().(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Truthy reports whether v would count as set: not nil, not false, not an
// empty string, not zero and not an empty container.
func (v Value) Truthy() bool {
	switch x := v.Raw().(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	if f, ok := v.Num(); ok {
		return f != 0
	}
	return true
}

// Or returns v when it is truthy, else the first truthy alternative, else
// the last alternative.
func (v Value) Or(alts ...Value) Value {
	if v.Truthy() || len(alts) == 0 {
		return v
	}
	for _, a := range alts {
		if a.Truthy() {
			return a
		}
	}
	return alts[len(alts)-1]
}

// Reparse decodes v again when it holds a JSON document encoded as a
// string, as Ozon does for widget states. Other values are returned as is.
func (v Value) Reparse() (Value, error) {
	s, ok := v.Str()
	if !ok {
		return v, nil
	}
	return ParseString(strings.TrimSpace(s))
}
