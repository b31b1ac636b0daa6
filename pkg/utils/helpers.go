package utils

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Numeric converts a decoded JSON value to float64. ok is false for non-numbers.
func Numeric(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case nil, bool, string:
		return 0, false
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			return rv.Convert(reflect.TypeOf(float64(0))).Float(), true
		}
		return 0, false
	}
}

// RoundHalfUp rounds x to the nearest integer, halves going up: floor(x + 0.5)
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// IsWhole reports whether f has no fractional part
func IsWhole(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

// FormatNumber renders a number as a command-line argument: 20 -> "20", 7.5 -> "7.5"
func FormatNumber(f float64) string {
	if IsWhole(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Identifier renders a decoded JSON string or whole number as an identifier
func Identifier(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	default:
		f, ok := Numeric(v)
		if !ok || !IsWhole(f) || f < 0 {
			return "", false
		}
		return FormatNumber(f), true
	}
}
