package canon

import (
	"encoding/json"
	"strconv"
	"strings"
)

// AsRecord coerces an arbitrary decoded JSON value into a string-keyed
// map. Returns (nil, false) for anything else (arrays, scalars, nil),
// so callers can emit a CodeNonObjectEvent diagnostic without a type
// assertion panic.
func AsRecord(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsArray coerces an arbitrary decoded JSON value into a slice. Returns
// (nil, false) for anything else.
func AsArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// ReadString reads a string-typed field from a record, defaulting to ""
// when absent, null, or of a different type.
func ReadString(rec map[string]any, key string) string {
	v, ok := rec[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ReadStringPath walks a dotted path of nested records
// ("a.b.c") and reads the final string field, returning "" on any
// missing or mistyped hop.
func ReadStringPath(rec map[string]any, path string) string {
	parts := strings.Split(path, ".")
	cur := rec
	for i, p := range parts {
		if i == len(parts)-1 {
			return ReadString(cur, p)
		}
		next, ok := AsRecord(cur[p])
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

// LowerString lowercases s using simple ASCII+unicode folding, for
// case-insensitive comparisons over provider-supplied strings.
func LowerString(s string) string {
	return strings.ToLower(s)
}

// ReadInt reads a numeric field as an int, accepting JSON numbers
// (float64 after decode) or numeric strings. Returns (0, false) when
// absent or unparsable.
func ReadInt(rec map[string]any, key string) (int, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ReadFloat reads a numeric field as a float64, accepting JSON numbers
// or numeric strings. Returns (0, false) when absent or unparsable.
func ReadFloat(rec map[string]any, key string) (float64, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Decode unmarshals a single JSON line into a generic `any` tree
// (map[string]any / []any / scalars), the shape every provider parser
// operates on before dispatching by shape.
func Decode(line []byte) (any, error) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, err
	}
	return v, nil
}
