package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Axis tells ParseCoordinate which sign default applies.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

// SignConvention decides the sign of an unsigned longitude with no
// hemisphere letter.
type SignConvention int

const (
	// WestDefault treats unmarked positive longitudes as west (negative).
	WestDefault SignConvention = iota
	// AsWritten keeps unmarked longitudes as typed.
	AsWritten
)

// String returns the configuration spelling of c.
func (c SignConvention) String() string {
	if c == AsWritten {
		return "as-written"
	}
	return "west"
}

// ParseSignConvention maps "west" or "as-written" to a SignConvention.
func ParseSignConvention(s string) (SignConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "west":
		return WestDefault, nil
	case "as-written", "aswritten", "none":
		return AsWritten, nil
	default:
		return WestDefault, fmt.Errorf("unknown longitude sign convention %q (want west or as-written)", s)
	}
}

var (
	// dmsMarkers are the characters that disqualify a value from the plain
	// decimal path.
	dmsMarkers = "°º'’′\"”″NSEWnsew"

	glyphReplacer = strings.NewReplacer(
		"º", "°",
		"’", "'",
		"′", "'",
		"”", `"`,
		"″", `"`,
	)

	// dmsRe matches degrees, optional minutes, optional seconds and an
	// optional hemisphere letter before or after them, e.g. 41°23'45"N,
	// W 8 36 39, -8.61°.
	dmsRe = regexp.MustCompile(`(?i)([NSEW])?\s*([-+]?\d+(?:[.,]\d+)?)\s*°?\s*(\d+(?:[.,]\d+)?)?\s*'?\s*(\d+(?:[.,]\d+)?)?\s*"?\s*([NSEW])?`)
)

// ParseCoordinate converts decimal or degrees/minutes/seconds notation to
// decimal degrees. Hemisphere letters S and W give a negative result, N and E
// a positive one. Without a letter, a leading minus wins; otherwise a
// longitude follows conv. ok is false for malformed input.
func ParseCoordinate(v any, axis Axis, conv SignConvention) (float64, bool) {
	if IsNull(v) {
		return 0, false
	}
	if f, isNum := v.(float64); isNum {
		return applyDefaultSign(f, axis, conv), true
	}

	raw := strings.TrimSpace(toText(v))
	if raw == "" {
		return 0, false
	}

	if dec, ok := ParseNumeric(raw); ok && !strings.ContainsAny(raw, dmsMarkers) {
		return applyDefaultSign(dec, axis, conv), true
	}

	s := glyphReplacer.Replace(raw)
	m := dmsRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	deg := dmsComponent(m[2])
	minutes := dmsComponent(m[3])
	seconds := dmsComponent(m[4])
	hem := strings.ToUpper(m[5])
	if hem == "" {
		hem = strings.ToUpper(m[1])
	}

	val := math.Abs(deg) + minutes/60 + seconds/3600

	switch hem {
	case "S", "W":
		return -val, true
	case "N", "E":
		return val, true
	}
	if strings.HasPrefix(raw, "-") || strings.HasPrefix(m[2], "-") {
		return -val, true
	}
	return applyDefaultSign(val, axis, conv), true
}

func applyDefaultSign(v float64, axis Axis, conv SignConvention) float64 {
	if axis == Longitude && conv == WestDefault && v > 0 {
		return -v
	}
	return v
}

func dmsComponent(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}
