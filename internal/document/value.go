package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Type is the dynamic type held by a Value.
type Type int

const (
	Null Type = iota
	Bool
	Int
	Float
	String
	List
	Map
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	}
	return "unknown"
}

// Value is one node of a parsed resource tree. The zero Value is null.
// Values are never modified after construction; accessors that expose
// children hand out copies of the container.
type Value struct {
	typ Type
	b   bool
	i   int64
	f   float64
	s   string
	l   []Value
	m   map[string]Value
}

func NullValue() Value           { return Value{} }
func BoolValue(b bool) Value     { return Value{typ: Bool, b: b} }
func IntValue(i int64) Value     { return Value{typ: Int, i: i} }
func FloatValue(f float64) Value { return Value{typ: Float, f: f} }
func StringValue(s string) Value { return Value{typ: String, s: s} }

// ListValue builds a list from items.
func ListValue(items ...Value) Value {
	l := make([]Value, len(items))
	copy(l, items)
	return Value{typ: List, l: l}
}

// MapValue builds a mapping from m.
func MapValue(m map[string]Value) Value {
	c := make(map[string]Value, len(m))
	for k, v := range m {
		c[k] = v
	}
	return Value{typ: Map, m: c}
}

// FromInterface converts decoded YAML or JSON (maps, slices, scalars) into
// a Value. Unknown scalar types are kept as their string form.
func FromInterface(in any) Value {
	switch v := in.(type) {
	case nil:
		return Value{}
	case Value:
		return v
	case bool:
		return BoolValue(v)
	case int:
		return IntValue(int64(v))
	case int8:
		return IntValue(int64(v))
	case int16:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case uint:
		return IntValue(int64(v))
	case uint8:
		return IntValue(int64(v))
	case uint16:
		return IntValue(int64(v))
	case uint32:
		return IntValue(int64(v))
	case uint64:
		return IntValue(int64(v))
	case float32:
		return FloatValue(float64(v))
	case float64:
		return FloatValue(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return IntValue(i)
		}
		if f, err := v.Float64(); err == nil {
			return FloatValue(f)
		}
		return StringValue(v.String())
	case string:
		return StringValue(v)
	case time.Time:
		return StringValue(v.UTC().Format(time.RFC3339))
	case []any:
		l := make([]Value, 0, len(v))
		for _, item := range v {
			l = append(l, FromInterface(item))
		}
		return Value{typ: List, l: l}
	case []map[string]any:
		l := make([]Value, 0, len(v))
		for _, item := range v {
			l = append(l, FromInterface(item))
		}
		return Value{typ: List, l: l}
	case map[string]any:
		m := make(map[string]Value, len(v))
		for k, item := range v {
			m[k] = FromInterface(item)
		}
		return Value{typ: Map, m: m}
	case map[any]any:
		m := make(map[string]Value, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = FromInterface(item)
		}
		return Value{typ: Map, m: m}
	case map[string]string:
		m := make(map[string]Value, len(v))
		for k, item := range v {
			m[k] = StringValue(item)
		}
		return Value{typ: Map, m: m}
	}
	return StringValue(fmt.Sprint(in))
}

func (v Value) Type() Type     { return v.typ }
func (v Value) IsNull() bool   { return v.typ == Null }
func (v Value) IsMap() bool    { return v.typ == Map }
func (v Value) IsList() bool   { return v.typ == List }
func (v Value) IsScalar() bool { return v.typ != Map && v.typ != List }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.typ != String {
		return "", false
	}
	return v.s, true
}

// AsBool returns the bool held by v.
func (v Value) AsBool() (bool, bool) {
	if v.typ != Bool {
		return false, false
	}
	return v.b, true
}

// AsInt returns v as an integer. Floats with no fractional part convert.
func (v Value) AsInt() (int64, bool) {
	switch v.typ {
	case Int:
		return v.i, true
	case Float:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// AsFloat returns v as a float for either numeric type.
func (v Value) AsFloat() (float64, bool) {
	switch v.typ {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	}
	return 0, false
}

// AsList returns a copy of the items of a list.
func (v Value) AsList() ([]Value, bool) {
	if v.typ != List {
		return nil, false
	}
	out := make([]Value, len(v.l))
	copy(out, v.l)
	return out, true
}

// AsMap returns a copy of the entries of a mapping.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.typ != Map {
		return nil, false
	}
	out := make(map[string]Value, len(v.m))
	for k, item := range v.m {
		out[k] = item
	}
	return out, true
}

// Len is the number of entries of a list or mapping, zero for scalars.
func (v Value) Len() int {
	switch v.typ {
	case List:
		return len(v.l)
	case Map:
		return len(v.m)
	}
	return 0
}

// Keys returns the sorted keys of a mapping.
func (v Value) Keys() []string {
	if v.typ != Map {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the entry for key. It reports false when v is not a mapping
// or has no such key.
func (v Value) Get(key string) (Value, bool) {
	if v.typ != Map {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Lookup resolves a dot separated field path. Resolution stops with false
// as soon as a segment is missing or an intermediate value is not a
// mapping. A present null, false, zero or empty value resolves to true.
func (v Value) Lookup(path string) (Value, bool) {
	current := v
	for _, key := range SplitPath(path) {
		next, ok := current.Get(key)
		if !ok {
			return Value{}, false
		}
		current = next
	}
	return current, true
}

// Text renders a scalar the way it would appear in a manifest.
func (v Value) Text() string {
	switch v.typ {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	}
	raw, err := json.Marshal(v.Interface())
	if err != nil {
		return fmt.Sprint(v.Interface())
	}
	return string(raw)
}

// Interface converts v back into plain Go values: map[string]any, []any,
// string, int64, float64, bool or nil.
func (v Value) Interface() any {
	switch v.typ {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case List:
		out := make([]any, 0, len(v.l))
		for _, item := range v.l {
			out = append(out, item.Interface())
		}
		return out
	case Map:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.typ {
	case List:
		l := make([]Value, 0, len(v.l))
		for _, item := range v.l {
			l = append(l, item.Clone())
		}
		return Value{typ: List, l: l}
	case Map:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.Clone()
		}
		return Value{typ: Map, m: m}
	}
	return v
}

// With returns a copy of v with the value at path set, creating
// intermediate mappings as needed. v is left untouched.
func (v Value) With(path string, item Value) Value {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return item
	}
	return v.with(keys, item)
}

func (v Value) with(keys []string, item Value) Value {
	m := map[string]Value{}
	if v.typ == Map {
		m, _ = v.AsMap()
	}
	if len(keys) == 1 {
		m[keys[0]] = item
	} else {
		child, _ := v.Get(keys[0])
		m[keys[0]] = child.with(keys[1:], item)
	}
	return Value{typ: Map, m: m}
}

// Without returns a copy of v with the entry at path removed. Paths that do
// not resolve leave the copy unchanged.
func (v Value) Without(path string) Value {
	keys := SplitPath(path)
	if len(keys) == 0 || v.typ != Map {
		return v
	}
	m, _ := v.AsMap()
	if len(keys) == 1 {
		delete(m, keys[0])
		return Value{typ: Map, m: m}
	}
	child, ok := m[keys[0]]
	if !ok {
		return v
	}
	m[keys[0]] = child.Without(strings.Join(keys[1:], "."))
	return Value{typ: Map, m: m}
}

// SplitPath splits a dot separated field path, ignoring empty segments.
func SplitPath(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
