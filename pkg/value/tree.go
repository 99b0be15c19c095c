package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ToTree converts v into a canonical tree built only from string, int64,
// float64, bool, map[string]any and []any. Handles degrade to their display
// string, matching what a document format can carry. The invalid value
// maps to nil.
func (v Value) ToTree() any {
	switch v.kind {
	case KindMap:
		m := make(map[string]any, len(v.m))
		for k, e := range v.m {
			m[k] = e.ToTree()
		}
		return m
	case KindList:
		l := make([]any, len(v.l))
		for i, e := range v.l {
			l[i] = e.ToTree()
		}
		return l
	case KindHandle:
		return v.String()
	}
	return v.Interface()
}

// FromTree is the inverse of ToTree. In addition to the canonical types it
// accepts json.Number and the map/slice shapes produced by TOML and YAML
// decoders (map[any]any and []map[string]any).
func FromTree(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: number %q: %w", t.String(), err)
		}
		return Float(f), nil
	case float64:
		// Documents without integer types encode whole numbers as floats.
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromTree(e)
			if err != nil {
				return Value{}, fmt.Errorf("value: key %q: %w", k, err)
			}
			m[k] = ev
		}
		return Value{kind: KindMap, m: m}, nil
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("value: non-string key %v", k)
			}
			ev, err := FromTree(e)
			if err != nil {
				return Value{}, fmt.Errorf("value: key %q: %w", ks, err)
			}
			m[ks] = ev
		}
		return Value{kind: KindMap, m: m}, nil
	case []any:
		l := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromTree(e)
			if err != nil {
				return Value{}, fmt.Errorf("value: index %d: %w", i, err)
			}
			l[i] = ev
		}
		return Value{kind: KindList, l: l}, nil
	case []map[string]any:
		l := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromTree(e)
			if err != nil {
				return Value{}, fmt.Errorf("value: index %d: %w", i, err)
			}
			l[i] = ev
		}
		return Value{kind: KindList, l: l}, nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		return Of(t), nil
	case Value:
		return t, nil
	}
	return Value{}, fmt.Errorf("value: unsupported tree node %T", x)
}

// MarshalJSON encodes v through its canonical tree.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToTree())
}

// UnmarshalJSON decodes a JSON document into v, keeping integers exact.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("value: decode: %w", err)
	}
	out, err := FromTree(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}
