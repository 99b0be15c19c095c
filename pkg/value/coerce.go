package value

import (
	"math"
	"strconv"
	"strings"
)

// ToString converts v to a string. Numbers and booleans are formatted;
// maps, lists, handles and the invalid value do not convert.
func (v Value) ToString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.s, true
	case KindInt, KindFloat, KindBool:
		return v.String(), true
	}
	return "", false
}

// Bounds of the float64 values that truncate into an int64.
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

// floatToInt truncates f toward zero. NaN, infinities and values outside
// the int64 range do not convert.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || f < minInt64Float || f >= maxInt64Float {
		return 0, false
	}
	return int64(f), true
}

// ToInt converts v to an integer. Floats are truncated toward zero,
// booleans map to 0/1 and strings are parsed as decimal numbers. Floats
// outside the int64 range do not convert.
func (v Value) ToInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		return floatToInt(v.f)
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		s := strings.TrimSpace(v.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

// ToFloat converts v to a float64.
func (v Value) ToFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// ToBool converts v to a boolean. Non-zero numbers are true. Strings accept
// true/false, 1/0, yes/no and on/off in any case; the empty string is false.
func (v Value) ToBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindFloat:
		return v.f != 0, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off", "":
			return false, true
		}
	}
	return false, false
}

// As coerces v to T, returning def when v is invalid or cannot be
// converted. Supported targets are the primitive Go kinds, Value,
// map[string]Value, []Value, map[string]any, []any, []string, and the
// dynamic type of a Handle.
func As[T any](v Value, def T) T {
	if !v.IsValid() {
		return def
	}
	var out any
	ok := false
	switch any(def).(type) {
	case Value:
		out, ok = v, true
	case string:
		out, ok = v.ToString()
	case bool:
		out, ok = v.ToBool()
	case int:
		var i int64
		if i, ok = v.ToInt(); ok {
			out = int(i)
		}
	case int32:
		var i int64
		if i, ok = v.ToInt(); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			out = int32(i)
		} else {
			ok = false
		}
	case int64:
		out, ok = v.ToInt()
	case uint:
		var i int64
		if i, ok = v.ToInt(); ok && i >= 0 {
			out = uint(i)
		} else {
			ok = false
		}
	case float64:
		out, ok = v.ToFloat()
	case float32:
		var f float64
		if f, ok = v.ToFloat(); ok {
			out = float32(f)
		}
	case map[string]Value:
		if v.kind == KindMap {
			out, ok = v.Entries(), true
		}
	case []Value:
		if v.kind == KindList {
			out, ok = v.Items(), true
		}
	case map[string]any:
		if v.kind == KindMap {
			out, ok = v.Interface(), true
		}
	case []any:
		if v.kind == KindList {
			out, ok = v.Interface(), true
		}
	case []string:
		if v.kind == KindList {
			ss := make([]string, 0, len(v.l))
			for _, e := range v.l {
				s, sok := e.ToString()
				if !sok {
					return def
				}
				ss = append(ss, s)
			}
			out, ok = ss, true
		}
	default:
		if t, tok := v.Interface().(T); tok {
			return t
		}
	}
	if !ok {
		return def
	}
	if t, tok := out.(T); tok {
		return t
	}
	return def
}
