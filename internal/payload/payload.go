// Package payload holds the primitives used to read loosely shaped backend
// JSON: dotted-path lookup, ordered alternatives and lenient coercion.
package payload

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Decode parses body keeping numbers as json.Number so large ids survive.
func Decode(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Lookup resolves a dotted path such as "scooter.id". Null values count as absent.
func Lookup(obj map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// First returns the first present value among paths, in order, together with
// the path that matched.
func First(obj map[string]interface{}, paths ...string) (interface{}, string, bool) {
	for _, p := range paths {
		if v, ok := Lookup(obj, p); ok {
			return v, p, true
		}
	}
	return nil, "", false
}

// Object asserts v is a JSON object.
func Object(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

// Array asserts v is a JSON array.
func Array(v interface{}) ([]interface{}, bool) {
	a, ok := v.([]interface{})
	return a, ok
}

// String coerces strings and numbers to a trimmed, non-empty string.
func String(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

// Float accepts JSON numbers and plain numeric strings. Formatted strings
// with units or currency are not handled here.
func Float(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int is Float rounded to the nearest integer.
func Int(v interface{}) (int, bool) {
	f, ok := Float(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}
