package state

import "strings"

// The transport layer hands us loosely typed primitives: JSON numbers arrive
// as float64, OSC-style integers as int or int64, booleans sometimes as 0/1.
// These helpers normalize them before validation.

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case int:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case int64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case float64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	}
	return false, false
}

func asStringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	case string:
		// comma separated form, e.g. "1,3,4"
		if s == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out, true
	default:
		return nil, false
	}
}

func asTimeSignature(v any) (num, den int, ok bool) {
	s, isStr := v.(string)
	if !isStr {
		return 0, 0, false
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	num = parseSmallInt(parts[0])
	den = parseSmallInt(parts[1])
	if num <= 0 || den <= 0 {
		return 0, 0, false
	}
	return num, den, true
}

func parseSmallInt(s string) int {
	n := 0
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
		if n > 512 {
			return -1
		}
	}
	return n
}
