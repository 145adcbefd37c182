package valuation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/appeal-cli/internal/format"
)

var (
	nonNumericRe   = regexp.MustCompile(`[^0-9.]`)
	leadingFloatRe = regexp.MustCompile(`^\d*(?:\.\d*)?`)
	leadingIntRe   = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// toNumber coerces a decoded JSON value to a finite number. Strings keep only
// digits and dots ("$600,000" -> 600000) and parse their leading decimal.
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := leadingFloatRe.FindString(nonNumericRe.ReplaceAllString(t, ""))
		if s == "" || s == "." {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
		if err != nil || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// numberPtr is toNumber returning nil for absent values.
func numberPtr(v any) *float64 {
	if f, ok := toNumber(v); ok {
		return &f
	}
	return nil
}

// toYear resolves a tax-history "time" or "year" value to a calendar year.
// Numbers of at least 1e11 are epoch milliseconds; 1001..9998 are literal
// years; other positive numbers of at least 1e8 are epoch seconds. Strings
// are tried as numbers, then by their leading integer, then as dates.
func toYear(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return yearFromNumber(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return yearFromNumber(f)
		}
		if m := leadingIntRe.FindString(s); m != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(m)); err == nil && n > 1000 && n < 9999 {
				return n, true
			}
		}
		if d, ok := format.ParseDate(s); ok {
			return d.Year(), true
		}
	}
	return 0, false
}

func yearFromNumber(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	var y int
	switch {
	case f >= 1e11:
		y = time.UnixMilli(int64(f)).UTC().Year()
	case f > 1000 && f < 9999:
		return int(f), true
	case f >= 1e8:
		y = time.Unix(int64(f), 0).UTC().Year()
	default:
		return 0, false
	}
	if y <= 1000 {
		return 0, false
	}
	return y, true
}

// str returns v when it is a string.
func str(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// nonBlank returns the trimmed string when v is a non-blank string.
func nonBlank(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// coalesce returns the first key of rec whose value is present and non-null.
func coalesce(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// object returns rec[key] when it is a JSON object.
func object(rec map[string]any, key string) map[string]any {
	if rec == nil {
		return nil
	}
	m, _ := rec[key].(map[string]any)
	return m
}

// maxSafeInt is the largest magnitude a float64 holds exactly (2^53).
const maxSafeInt = 1 << 53

// roundInt rounds halves toward positive infinity (-128.5 -> -128). Values
// beyond ±2^53 or non-finite ones have no exact whole-unit form and yield nil.
func roundInt(f float64) *int64 {
	r := math.Floor(f + 0.5)
	if math.IsNaN(r) || r > maxSafeInt || r < -maxSafeInt {
		return nil
	}
	return int64Ptr(int64(r))
}

func int64Ptr(v int64) *int64 { return &v }

func float64Ptr(v float64) *float64 { return &v }
