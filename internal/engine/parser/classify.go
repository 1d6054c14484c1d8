package parser

import (
	"regexp"
	"strings"

	"github.com/crimson-sun/eventimx/internal/model"
)

// tokenClass is the outcome of classifying a single token. Classes are
// checked in declaration order; the first match wins.
type tokenClass int

const (
	classNoise tokenClass = iota
	classLegend
	classEventHeader
	classFloat
	classInt
	classBold
	classLabel
)

func (c tokenClass) String() string {
	switch c {
	case classNoise:
		return "noise"
	case classLegend:
		return "legend"
	case classEventHeader:
		return "event header"
	case classFloat:
		return "standalone float"
	case classInt:
		return "standalone int"
	case classBold:
		return "bold"
	default:
		return "label"
	}
}

// labelKind refines classLabel by looking at the tokens that follow.
type labelKind int

const (
	labelDiscount labelKind = iota
	labelPriceRow
	labelGroupTotal
	labelEventTotal
	labelUnclassified
	labelTrailing
)

func (k labelKind) String() string {
	switch k {
	case labelDiscount:
		return "discount category"
	case labelPriceRow:
		return "price row"
	case labelGroupTotal:
		return "group total"
	case labelEventTotal:
		return "event total"
	case labelTrailing:
		return "trailing label"
	default:
		return "unclassified label"
	}
}

const (
	legendMarker   = "Preiskategorie"
	legendEndToken = "Endpreis"
)

// The alternation binds looser than the anchors: only the first pattern is
// anchored at the start and only the last at the end, so the ones in
// between match anywhere in a token.
var noiseRe = regexp.MustCompile("^" + strings.Join([]string{
	`Allgemeiner Verkaufsbericht`,
	`Gedruckt am: .*`,
	"Veranstaltung\nVeranstaltungsstätte: Nr / Name\n.*",
	`Zeitraum: .*`,
	`inkl. Stornos`,
	`Alle Preise in EUR`,
	`VA Nr.`,
	`Datum`,
	`Gesamt`,
	`Rabatt`,
	`Einzel Endpreis`,
	`Anzahl Tickets`,
	`\d\.\d\.\d\.\d`, // export tool version
}, "|") + "$")

// jsSpace is the set of characters a \s class matches in the report's
// original tooling, wider than RE2's ASCII-only \s.
const jsSpace = `\t\n\v\f\r \x{a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	digitsRe     = regexp.MustCompile(`^\d+$`)
	headerDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2} \d{2}:\d{2}`)
	floatRe      = regexp.MustCompile(`^(- )?\d{1,3}(\.\d{3})*,\d{2}$`)
	intRe        = regexp.MustCompile(`^(- )?\d{1,3}(\.\d{3})*$`)
	rowHeaderRe  = regexp.MustCompile(`^[0-9A-Za-z_` + jsSpace + `():]+$`)
	eventTotalRe = regexp.MustCompile(`^Summe Veranstaltung`)
	eventLineRe  = regexp.MustCompile(`^(.*)\n(\d+) / (.*)\n(.*)$`)
	plainFloatRe = regexp.MustCompile(`^\d{1,3}(\.\d{3})*,\d{2}$`)
)

func isFloat(t model.Token) bool {
	return !t.Emphasized && floatRe.MatchString(t.Text)
}

func isInt(t model.Token) bool {
	return !t.Emphasized && intRe.MatchString(t.Text)
}

func isNumeric(t model.Token) bool {
	return isFloat(t) || isInt(t)
}

// isRowHeader reports whether t is plain text that opens a discount group:
// word characters, spaces, parentheses and colons, but not a bare number.
func isRowHeader(t model.Token) bool {
	if t.Emphasized {
		return false
	}
	if plainFloatRe.MatchString(t.Text) || digitsRe.MatchString(t.Text) {
		return false
	}
	return rowHeaderRe.MatchString(t.Text)
}

func (s *state) classify(i int) tokenClass {
	t := s.tokens[i]
	switch {
	case noiseRe.MatchString(t.Text):
		return classNoise
	case t.Text == legendMarker:
		return classLegend
	case s.isEventHeader(i):
		return classEventHeader
	case isFloat(t):
		return classFloat
	case isInt(t):
		return classInt
	case t.Emphasized:
		return classBold
	default:
		return classLabel
	}
}

func (s *state) isEventHeader(i int) bool {
	t := s.tokens[i]
	if !t.Emphasized || !digitsRe.MatchString(t.Text) {
		return false
	}
	next, ok := s.at(i + 1)
	return ok && headerDateRe.MatchString(next.Text)
}

func (s *state) classifyLabel(i int) labelKind {
	next, ok := s.at(i + 1)
	if !ok {
		return labelTrailing
	}
	if isRowHeader(next) {
		return labelDiscount
	}
	if after, ok := s.at(i + 2); ok && isFloat(next) && isInt(after) {
		return labelPriceRow
	}
	if isInt(next) {
		return labelGroupTotal
	}
	if eventTotalRe.MatchString(s.tokens[i].Text) {
		return labelEventTotal
	}
	return labelUnclassified
}
