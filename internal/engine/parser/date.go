package parser

import (
	"regexp"
	"strconv"
	"time"
)

var reportDateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{1,2}) (\d{1,2}):(\d{1,2})$`)

// parseReportDate reads "dd.MM.yy HH:mm". Two-digit years resolve to the
// year within 50 years of ref; day, month, hour and minute must be in range
// and the whole string must match.
func parseReportDate(s string, ref time.Time, loc *time.Location) (time.Time, bool) {
	m := reportDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n := make([]int, 5)
	for i := range n {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}
	day, month, yy, hour, minute := n[0], n[1], n[2], n[3], n[4]
	if month < 1 || month > 12 || hour > 23 || minute > 59 || day < 1 {
		return time.Time{}, false
	}
	year := resolveTwoDigitYear(yy, ref.Year())
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day {
		// time.Date normalised an overflowing day (31.02.).
		return time.Time{}, false
	}
	return t, true
}

// resolveTwoDigitYear maps yy into the century window ending 50 years
// after refYear.
func resolveTwoDigitYear(yy, refYear int) int {
	if refYear <= 50 {
		if yy == 0 {
			return 100
		}
		return yy
	}
	rangeEnd := refYear + 50
	century := rangeEnd / 100 * 100
	if yy >= rangeEnd%100 {
		return yy + century - 100
	}
	return yy + century
}
