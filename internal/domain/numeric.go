package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// embeddedNumberRe finds the first signed decimal inside free text,
// e.g. "40 MVA" -> "40", "aprox. -3.5" -> "-3.5".
var embeddedNumberRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// ParseNumeric converts a cell to a number. Numbers pass through unless NaN.
// Strings are trimmed, decimal separators normalized, and parsed directly; if
// that fails the first embedded signed decimal is used. ok is false when no
// number can be recovered.
func ParseNumeric(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		if math.IsNaN(float64(x)) {
			return 0, false
		}
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		return parseNumericText(x)
	default:
		return parseNumericText(toText(v))
	}
}

func parseNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = normalizeDecimal(s)

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}

	m := embeddedNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// normalizeDecimal turns comma decimals into point decimals. When both
// separators appear, the last one is the decimal separator and the other is
// dropped as a thousands separator: "1.234,56" and "1,234.56" both become
// "1234.56".
func normalizeDecimal(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastPoint := strings.LastIndex(s, ".")
	if lastComma >= 0 && lastPoint >= 0 {
		if lastComma > lastPoint {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return strings.ReplaceAll(s, ",", ".")
}
