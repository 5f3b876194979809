// Package parse converts the human-readable numbers the estimate service and
// the dashboard filters use ("1.2m", "1,234,567", "--") into floats.
package parse

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const Placeholder = "--"

var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

var scales = []struct {
	suffix string
	factor float64
}{
	{"b", 1e9},
	{"m", 1e6},
	{"k", 1e3},
}

// ParseScaledNumber parses strings such as "2.3m", "1,500k" or "750".
// The numeric prefix is read the way parseFloat reads it, so trailing noise
// after the number is ignored.
func ParseScaledNumber(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" || cleaned == Placeholder {
		return 0, false
	}

	lower := strings.ToLower(cleaned)
	factor := 1.0
	for _, s := range scales {
		if strings.HasSuffix(lower, s.suffix) {
			factor = s.factor
			break
		}
	}

	prefix := numericPrefix.FindString(lower)
	if prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v * factor, true
}

// CoerceScaledNumber accepts decoded JSON values. Numbers pass through
// unchanged; strings are parsed with ParseScaledNumber.
func CoerceScaledNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return ParseScaledNumber(t)
	case json.Number:
		return ParseScaledNumber(t.String())
	default:
		return coerceNumeric(v)
	}
}

// ParseFairFight parses a fair-fight multiplier. No scale suffixes are
// accepted and the whole string must be numeric.
func ParseFairFight(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" || cleaned == Placeholder {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func CoerceFairFight(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return ParseFairFight(t)
	case json.Number:
		return ParseFairFight(t.String())
	default:
		return coerceNumeric(v)
	}
}

func coerceNumeric(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FormatScaledNumber renders v with the largest suffix whose decimal form
// parses back to exactly v. Values that do not divide cleanly fall back to a
// comma-grouped plain number.
func FormatScaledNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	for _, s := range scales {
		if math.Abs(v) < s.factor {
			continue
		}
		candidate := strconv.FormatFloat(v/s.factor, 'f', -1, 64) + s.suffix
		if back, ok := ParseScaledNumber(candidate); ok && back == v {
			return candidate
		}
	}
	plain := humanize.Commaf(v)
	if back, ok := ParseScaledNumber(plain); ok && back == v {
		return plain
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsMeaningful reports whether s carries a real value: non-empty after
// trimming and not the placeholder.
func IsMeaningful(s string) bool {
	trimmed := strings.TrimSpace(s)
	return trimmed != "" && trimmed != Placeholder
}

func IsMeaningfulNumber(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}
