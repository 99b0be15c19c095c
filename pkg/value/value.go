// Package value implements the dynamically-typed property value used by
// command state, native widget properties, event payloads and external
// state stores.
//
// A Value is a small tagged union over string, integer, float, boolean,
// nested mapping, ordered list and an opaque toolkit handle. The zero Value
// is invalid and represents "no value".
package value

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the payload carried by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindMap
	KindList
	KindHandle
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindInt:     "int",
	KindFloat:   "float",
	KindBool:    "bool",
	KindMap:     "map",
	KindList:    "list",
	KindHandle:  "handle",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Numeric reports whether k is KindInt or KindFloat.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Value is an immutable tagged union. Map and List values are copied on
// construction and on access so callers cannot alias the internal storage.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	m    map[string]Value
	l    []Value
	h    any
}

// Str returns a string Value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint returns an integer Value for u. Values above math.MaxInt64 do not
// fit the integer payload and are stored as floats.
func Uint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map returns a mapping Value holding a copy of m.
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, m: cloneMap(m)}
}

// List returns a list Value holding a copy of l.
func List(l ...Value) Value {
	return Value{kind: KindList, l: cloneList(l)}
}

// Handle wraps an opaque toolkit handle. Handles are compared by identity
// and never serialized structurally.
func Handle(h any) Value {
	if h == nil {
		return Value{}
	}
	return Value{kind: KindHandle, h: h}
}

// Of converts a native Go value into a Value. Supported inputs are the
// primitive kinds, maps keyed by string, slices, and Value itself. nil
// yields the invalid Value. Anything else becomes a Handle.
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case *Value:
		if t == nil {
			return Value{}
		}
		return *t
	case string:
		return Str(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Uint(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Uint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case map[string]Value:
		return Map(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[k] = Of(v)
		}
		return Value{kind: KindMap, m: m}
	case map[string]string:
		m := make(map[string]Value, len(t))
		for k, v := range t {
			m[k] = Str(v)
		}
		return Value{kind: KindMap, m: m}
	case []Value:
		return List(t...)
	case []any:
		l := make([]Value, len(t))
		for i, v := range t {
			l[i] = Of(v)
		}
		return Value{kind: KindList, l: l}
	case []string:
		l := make([]Value, len(t))
		for i, v := range t {
			l[i] = Str(v)
		}
		return Value{kind: KindList, l: l}
	case []int:
		l := make([]Value, len(t))
		for i, v := range t {
			l[i] = Int(int64(v))
		}
		return Value{kind: KindList, l: l}
	}
	return Handle(x)
}

// Kind returns the discriminator of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v carries a payload.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Len returns the number of entries of a map or list, the byte length of a
// string, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.m)
	case KindList:
		return len(v.l)
	case KindString:
		return len(v.s)
	}
	return 0
}

// Field returns the entry named key of a map Value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.m[key]
	return f, ok
}

// Index returns the i-th element of a list Value.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.l) {
		return Value{}, false
	}
	return v.l[i], true
}

// Entries returns a copy of the mapping of a map Value, or nil.
func (v Value) Entries() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return cloneMap(v.m)
}

// Items returns a copy of the elements of a list Value, or nil.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return cloneList(v.l)
}

// Keys returns the sorted keys of a map Value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := slices.Collect(maps.Keys(v.m))
	sort.Strings(keys)
	return keys
}

// Raw returns the handle carried by a Handle value.
func (v Value) Raw() any {
	if v.kind != KindHandle {
		return nil
	}
	return v.h
}

// Interface converts v back to plain Go: string, int64, float64, bool,
// map[string]any, []any, the raw handle, or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, e := range v.m {
			m[k] = e.Interface()
		}
		return m
	case KindList:
		l := make([]any, len(v.l))
		for i, e := range v.l {
			l[i] = e.Interface()
		}
		return l
	case KindHandle:
		return v.h
	}
	return nil
}

// String renders v for display. Strings are returned unquoted.
func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return "<invalid>"
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v.m[k].String())
		}
		sb.WriteByte('}')
		return sb.String()
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.l {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
		sb.WriteByte(']')
		return sb.String()
	case KindHandle:
		return fmt.Sprintf("<handle %T>", v.h)
	}
	return ""
}

// Equal reports whether a and b hold the same value. Integers and floats
// compare numerically and exactly, and NaN equals NaN so that rewriting a
// NaN property is a no-op. Maps and lists compare element-wise; handles
// compare by identity.
func Equal(a, b Value) bool {
	if a.kind.Numeric() && b.kind.Numeric() {
		switch {
		case a.kind == KindInt && b.kind == KindInt:
			return a.i == b.i
		case a.kind == KindFloat && b.kind == KindFloat:
			return a.f == b.f || (math.IsNaN(a.f) && math.IsNaN(b.f))
		case a.kind == KindInt:
			return intEqualsFloat(a.i, b.f)
		default:
			return intEqualsFloat(b.i, a.f)
		}
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInvalid:
		return true
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.b == b.b
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindList:
		if len(a.l) != len(b.l) {
			return false
		}
		for i := range a.l {
			if !Equal(a.l[i], b.l[i]) {
				return false
			}
		}
		return true
	case KindHandle:
		ta, tb := reflect.TypeOf(a.h), reflect.TypeOf(b.h)
		if ta != tb || !ta.Comparable() {
			return false
		}
		return a.h == b.h
	}
	return false
}

// Equal is the method form of the package-level Equal.
func (v Value) Equal(o Value) bool { return Equal(v, o) }

// intEqualsFloat compares without rounding i through float64, which loses
// precision above 2^53.
func intEqualsFloat(i int64, f float64) bool {
	if f != math.Trunc(f) || f < minInt64Float || f >= maxInt64Float {
		return false
	}
	return int64(f) == i
}

func cloneMap(m map[string]Value) map[string]Value {
	if m == nil {
		return map[string]Value{}
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneList(l []Value) []Value {
	if l == nil {
		return []Value{}
	}
	return slices.Clone(l)
}
