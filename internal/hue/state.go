package hue

import (
	"encoding/json"
	"math"
)

// State is a bridge-reported object such as a light's "state" or a sensor's
// "config". Fields are read through typed accessors; a field that is missing
// or has an unexpected JSON type is reported as absent.
type State map[string]any

// Has reports whether the field is present, regardless of its type.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Bool returns a boolean field.
func (s State) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}

// Float returns a numeric field.
func (s State) Float(key string) (float64, bool) {
	return toFloat(s[key])
}

// Int returns a numeric field rounded to the nearest integer.
func (s State) Int(key string) (int, bool) {
	f, ok := toFloat(s[key])
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// String returns a string field.
func (s State) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// XY returns the "xy" chromaticity pair.
func (s State) XY() (x, y float64, ok bool) {
	switch v := s["xy"].(type) {
	case []any:
		if len(v) != 2 {
			return 0, 0, false
		}
		x, okX := toFloat(v[0])
		y, okY := toFloat(v[1])
		return x, y, okX && okY
	case []float64:
		if len(v) != 2 {
			return 0, 0, false
		}
		return v[0], v[1], true
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
