package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	leadingFloatRe = regexp.MustCompile(`^[+-]?(Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`)
	leadingIntRe   = regexp.MustCompile(`^[+-]?\d+`)
)

// parseLocaleFloat converts a float-shaped token ("- 1.234,56") to a number.
// Only the first thousands separator and the first decimal comma are
// replaced, after which the longest numeric prefix is taken, so
// "1.234.567,89" yields 1234.567.
func parseLocaleFloat(s string) float64 {
	s = strings.Replace(s, ".", "", 1)
	s = strings.Replace(s, ",", ".", 1)
	return leadingFloat(stripSpace(s))
}

// parseLocaleInt converts an int-shaped token ("1.234") to a number. Only
// the first thousands separator is removed; parsing stops at the next
// non-digit.
func parseLocaleInt(s string) float64 {
	s = strings.Replace(s, ".", "", 1)
	return leadingInt(stripSpace(s))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\ufeff' {
			return -1
		}
		return r
	}, s)
}

// leadingFloat returns the value of the longest decimal literal at the
// start of s, or NaN when there is none.
func leadingFloat(s string) float64 {
	m := leadingFloatRe.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// Out of range literals still yield ±Inf alongside the error.
	f, _ := strconv.ParseFloat(m, 64)
	return f
}

// leadingInt returns the base-10 integer at the start of s, or NaN.
func leadingInt(s string) float64 {
	m := leadingIntRe.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return math.NaN()
	}
	f, _ := strconv.ParseFloat(m, 64)
	return f
}

// ParseInt parses s the way the report's location numbers are read:
// leading digits only, ok=false when there are none.
func ParseInt(s string) (int, bool) {
	f := leadingInt(s)
	if math.IsNaN(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}
