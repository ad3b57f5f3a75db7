// Package payload wraps the weakly-typed JSON bodies returned by upstream
// media APIs. Every accessor is total: missing keys, wrong types and nil
// values all come back as the zero Value, so extraction code can probe
// deeply nested structures without panicking or checking at each step.
package payload

import (
	"encoding/json"
	"sort"
)

// Value is one node of a decoded JSON document: null, bool, number,
// string, array or object. The zero Value behaves as JSON null.
type Value struct {
	v any
}

// Parse decodes raw JSON into a Value.
func Parse(data []byte) (Value, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return Value{v: v}, nil
}

// From wraps an already-decoded value (as produced by encoding/json into any).
func From(v any) Value { return Value{v: v} }

// IsNil reports whether the value is JSON null or absent.
func (v Value) IsNil() bool { return v.v == nil }

// Get returns the named object member, or the zero Value when the node is
// not an object or the key is absent.
func (v Value) Get(key string) Value {
	m, ok := v.v.(map[string]any)
	if !ok {
		return Value{}
	}
	return Value{v: m[key]}
}

// First returns the first of the named members that is present and non-null.
func (v Value) First(keys ...string) Value {
	for _, key := range keys {
		if c := v.Get(key); !c.IsNil() {
			return c
		}
	}
	return Value{}
}

// Index returns the i-th array element, or the zero Value when out of range
// or the node is not an array.
func (v Value) Index(i int) Value {
	a, ok := v.v.([]any)
	if !ok || i < 0 || i >= len(a) {
		return Value{}
	}
	return Value{v: a[i]}
}

// Items returns the array elements, or nil when the node is not an array.
func (v Value) Items() []Value {
	a, ok := v.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(a))
	for i, e := range a {
		out[i] = Value{v: e}
	}
	return out
}

// Keys returns the object's keys in sorted order, or nil when the node is
// not an object. Sorting keeps traversal deterministic; upstream payloads
// carry explicit ordering lists when order matters.
func (v Value) Keys() []string {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Str returns the string value and whether the node is a string.
func (v Value) Str() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// StrOr returns the string value, or def when the node is not a string.
func (v Value) StrOr(def string) string {
	if s, ok := v.v.(string); ok {
		return s
	}
	return def
}

// Float returns the numeric value and whether the node is a number.
func (v Value) Float() (float64, bool) {
	f, ok := v.v.(float64)
	return f, ok
}

// IntOr returns the numeric value truncated to int64, or def when the node
// is not a number.
func (v Value) IntOr(def int64) int64 {
	if f, ok := v.v.(float64); ok {
		return int64(f)
	}
	return def
}

// Bool returns the boolean value and whether the node is a boolean.
func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

// Len returns the number of array elements or object members, else 0.
func (v Value) Len() int {
	switch t := v.v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	}
	return 0
}
