package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// parenNoteRe matches a parenthesized note, e.g. "Zamora (ES)" -> "(ES)".
	parenNoteRe = regexp.MustCompile(`\([^)]*\)`)

	// nonAlnumRe matches runs of anything that is not an upper-case ASCII
	// letter or digit.
	nonAlnumRe = regexp.MustCompile(`[^A-Z0-9]+`)
)

// NormalizeName builds the canonical key used to match human-entered names:
// parenthesized notes removed, diacritics stripped, upper-cased, every run of
// non-alphanumeric characters collapsed to one space, trimmed.
// A nil value yields "".
func NormalizeName(v any) string {
	if v == nil {
		return ""
	}
	s := toText(v)
	s = parenNoteRe.ReplaceAllString(s, " ")
	s = strings.ToUpper(stripAccents(s))
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripAccents decomposes s and drops combining marks (São -> Sao).
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// toText renders a cell value as the text a person would have typed.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(v)
	}
}
