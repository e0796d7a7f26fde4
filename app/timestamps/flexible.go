package timestamps

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	shortNumberRe  = regexp.MustCompile(`^\d{1,3}$`)
	yearOnlyRe     = regexp.MustCompile(`^(\d{4})$`)
	yearMonthRe    = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	dottedShortRe  = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{2})$`)
	dayFirstRe     = regexp.MustCompile(`^(\d{2})[/-](\d{2})[/-](\d{4})(?:\s+(\d{2}):(\d{2})(?::(\d{2}))?)?$`)
	yearFirstDayRe = regexp.MustCompile(`^(\d{4})[/-](\d{2})[/-](\d{2})$`)
)

// Layouts tried, in order, once none of the explicit shapes match.
// Zoned layouts keep their own offset; the rest are read in loc.
var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05.000 MST",
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05 MST",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
}

var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"1/2/2006", // single digit parts fall through to month first
	"1-2-2006",
	time.ANSIC,
	"Mon Jan 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
}

// ParseFlexibleDate parses a date-like string in the local timezone.
// See ParseFlexibleDateIn.
func ParseFlexibleDate(raw string) (time.Time, bool) {
	return ParseFlexibleDateIn(raw, nil)
}

// ParseFlexibleDateIn parses heterogeneous date strings into a time in loc
// (time.Local when nil). Shapes are tried in priority order:
//
//	bare 1-3 digit numbers   rejected
//	YYYY                     Jan 1
//	YYYY-MM                  day 1 of the month
//	DD.MM.YY                 YY < 30 -> 20YY, otherwise 19YY
//	DD/MM/YYYY, DD-MM-YYYY   two digit parts, optional HH:MM[:SS]
//	YYYY-MM-DD, YYYY/MM/DD
//	generic layouts
//
// Calendar-invalid values (31/02/2024) are rejected. It never panics.
func ParseFlexibleDateIn(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if shortNumberRe.MatchString(s) {
		return time.Time{}, false
	}

	if m := yearOnlyRe.FindStringSubmatch(s); m != nil {
		return buildDate(loc, m[1], "1", "1", "", "", "")
	}
	if m := yearMonthRe.FindStringSubmatch(s); m != nil {
		return buildDate(loc, m[1], m[2], "1", "", "", "")
	}
	if m := dottedShortRe.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[3])
		century := "19"
		if yy < 30 {
			century = "20"
		}
		return buildDate(loc, century+m[3], m[2], m[1], "", "", "")
	}
	if m := dayFirstRe.FindStringSubmatch(s); m != nil {
		return buildDate(loc, m[3], m[2], m[1], m[4], m[5], m[6])
	}
	if m := yearFirstDayRe.FindStringSubmatch(s); m != nil {
		return buildDate(loc, m[1], m[2], m[3], "", "", "")
	}

	// Pure digit strings past this point are IDs or amounts, never dates
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// buildDate assembles a date from string components and rejects values that
// time.Date would silently normalise (month 13, Feb 30, hour 25).
func buildDate(loc *time.Location, ys, ms, ds, hs, mins, secs string) (time.Time, bool) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return time.Time{}, false
	}
	h, mi, se := atoiOrZero(hs), atoiOrZero(mins), atoiOrZero(secs)
	if m < 1 || m > 12 || d < 1 || h > 23 || mi > 59 || se > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, h, mi, se, 0, loc)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ISODateLayout is the canonical day form used for display and comparison.
const ISODateLayout = "2006-01-02"

// ToISODateString converts any recognised date string to YYYY-MM-DD and
// returns the input unchanged when it cannot be parsed.
func ToISODateString(raw string) string {
	t, ok := ParseFlexibleDate(raw)
	if !ok {
		return raw
	}
	return t.Format(ISODateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
