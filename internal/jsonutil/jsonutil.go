// Package jsonutil holds helpers for decoding loosely-shaped backend payloads:
// context-wrapped decoding and typed lookups on generic JSON objects.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// DecodeWithContext decodes one JSON value from r into v and wraps any error
// with the provided context message.
func DecodeWithContext(r io.Reader, v any, context string) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// UnmarshalWithContext is DecodeWithContext for an in-memory payload.
func UnmarshalWithContext(data []byte, v any, context string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// UnmarshalArrayAllowEmpty unmarshals data into a slice. A JSON null yields
// an empty, non-nil slice.
func UnmarshalArrayAllowEmpty[T any](data []byte, context string) ([]T, error) {
	var entries []T
	if err := UnmarshalWithContext(data, &entries, context); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []T{}
	}
	return entries, nil
}

// GetString returns m[key] if it is a string.
func GetString(m map[string]any, key string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}

// GetStringOr returns m[key] if it is a non-empty string, else defaultValue.
func GetStringOr(m map[string]any, key string, defaultValue string) string {
	if val, ok := m[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// GetFloat returns m[key] as a float64. See ToFloat.
func GetFloat(m map[string]any, key string) (float64, bool) {
	return ToFloat(m[key])
}

// GetInt returns m[key] as an int. See ToInt.
func GetInt(m map[string]any, key string) (int, bool) {
	return ToInt(m[key])
}

// ToFloat converts a decoded JSON value to float64. Numeric strings are
// accepted since spreadsheet-derived fields sometimes arrive quoted.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	}
	return 0, false
}

// ToInt converts a decoded JSON value to int when it is a whole number.
func ToInt(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}

// GetBool returns m[key] if it is a bool.
func GetBool(m map[string]any, key string) (bool, bool) {
	val, ok := m[key].(bool)
	return val, ok
}

// FirstKey returns the value of the first key present in m. Used where the
// backend is inconsistent about casing ("Id" vs "id").
func FirstKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ToString converts a decoded JSON value to display text. Whole numbers are
// printed without a fraction.
func ToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
