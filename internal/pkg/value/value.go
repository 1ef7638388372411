// Package value works with schema-free JSON-like trees.
//
// A tree value is one of: nil, bool, float64, string, []any or
// map[string]any, which is exactly what decoding JSON into an `any`
// produces. Normalize converts arbitrary Go values into that form.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind classifies a tree value
type Kind string

const (
	KindNull    Kind = "null"
	KindBool    Kind = "boolean"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindUnknown Kind = "unknown"
)

// KindOf returns the kind of v. Go numeric types all report KindNumber.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	}
	return KindUnknown
}

// Normalize converts v into tree form by round-tripping it through JSON.
// Values already in tree form are returned unchanged.
func Normalize(v any) (any, error) {
	if isTree(v) {
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

// NormalizeList normalizes every element of items
func NormalizeList(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		n, err := Normalize(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func isTree(v any) bool {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return true
	case []any:
		for _, e := range t {
			if !isTree(e) {
				return false
			}
		}
		return true
	case map[string]any:
		for _, e := range t {
			if !isTree(e) {
				return false
			}
		}
		return true
	}
	return false
}

// Resolve walks a dot-separated path into v. It reports false when any
// segment is missing or traverses a non-object.
func Resolve(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Flatten lists the dot paths of every leaf in obj, recursing into nested
// objects but not arrays. Paths are sorted.
func Flatten(obj map[string]any) []string {
	var paths []string
	flatten(obj, "", &paths)
	sort.Strings(paths)
	return paths
}

func flatten(obj map[string]any, prefix string, out *[]string) {
	for key, v := range obj {
		if nested, ok := v.(map[string]any); ok {
			flatten(nested, prefix+key+".", out)
			continue
		}
		*out = append(*out, prefix+key)
	}
}

// ToFloat coerces numbers and numeric strings to float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

// Text returns the textual form of v: strings as-is, numbers in shortest
// decimal form, booleans as true/false. Arrays join their elements' text
// with commas, null elements rendering empty, so ["go"] reads as "go".
// Objects render as compact JSON.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e != nil {
				parts[i] = Text(e)
			}
		}
		return strings.Join(parts, ",")
	}
	if f, ok := ToFloat(v); ok && KindOf(v) == KindNumber {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// JSON renders v as compact JSON for human-readable detail strings
func JSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
