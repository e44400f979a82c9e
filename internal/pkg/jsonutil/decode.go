// Package jsonutil decodes JSON while keeping numeric literals as exact
// decimals. encoding/json turns every number into a float64, which silently
// rounds price fields; here numbers are re-parsed from their raw literal.
package jsonutil

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var (
	ErrInvalidJSON = errors.New("jsonutil: invalid json")
	ErrNotObject   = errors.New("jsonutil: not a json object")
	ErrNotArray    = errors.New("jsonutil: not a json array")
)

// DecodeValue parses raw into nested map[string]any / []any values with
// decimal.Decimal numbers.
func DecodeValue(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return nil, ErrInvalidJSON
	}
	return convert(gjson.Parse(raw)), nil
}

// DecodeObject parses raw and requires a top-level object.
func DecodeObject(raw string) (map[string]any, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// DecodeObjectArray parses raw and requires a top-level array of objects.
// Non-object elements are rejected as invalid.
func DecodeObjectArray(raw string) ([]map[string]any, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, ErrNotArray
		}
		out = append(out, obj)
	}
	return out, nil
}

func convert(res gjson.Result) any {
	switch res.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return res.String()
	case gjson.Number:
		if d, err := decimal.NewFromString(strings.TrimSpace(res.Raw)); err == nil {
			return d
		}
		return decimal.NewFromFloat(res.Float())
	default:
		if res.IsArray() {
			items := res.Array()
			out := make([]any, 0, len(items))
			for _, item := range items {
				out = append(out, convert(item))
			}
			return out
		}
		if res.IsObject() {
			out := make(map[string]any)
			res.ForEach(func(key, value gjson.Result) bool {
				out[key.String()] = convert(value)
				return true
			})
			return out
		}
		return nil
	}
}
