package screentime

import (
	"encoding/json"
	"math"
)

// Args holds the primitive arguments of a call: integers (epoch
// milliseconds), strings, and string lists. Values decoded from JSON are
// accepted as well.
type Args map[string]any

// Int64 returns the integer argument name.
func (a Args) Int64(name string) (int64, bool) {
	switch v := a[name].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// String returns the string argument name.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// StringList returns the string list argument name.
func (a Args) StringList(name string) ([]string, bool) {
	switch v := a[name].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
