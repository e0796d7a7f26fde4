package filter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"thebridge/app/timestamps"
)

var (
	boundYearRe      = regexp.MustCompile(`^\d{4}$`)
	boundYearMonthRe = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
)

// DateRange is a DateFilter range with its bounds resolved to days.
type DateRange struct {
	Start, End       time.Time
	HasStart, HasEnd bool
	IncludeEmpty     bool
	// Broken is set when a bound is present but unparseable; no non-empty
	// cell can then be confirmed in range.
	Broken bool
}

// ExpandBounds widens partial bounds to whole days. A bare year start
// becomes Jan 1 and, when end is absent, end becomes Dec 31 of that year.
// A year-month start becomes day 1 and, when end is absent, end becomes the
// last day of that month. A bare year or year-month end expands to the
// last day it covers.
func ExpandBounds(start, end string) (string, string) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case boundYearRe.MatchString(start):
		if end == "" {
			end = start
		}
		start += "-01-01"
	case boundYearMonthRe.MatchString(start):
		if end == "" {
			end = start
		}
		start += "-01"
	}
	if boundYearRe.MatchString(end) {
		end += "-12-31"
	} else if m := boundYearMonthRe.FindStringSubmatch(end); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 {
			end += "-" + strconv.Itoa(timestamps.LastDayOfMonth(y, time.Month(mo)))
		}
	}
	return start, end
}

// ResolveRange resolves dynamic bounds against env and expands partial ones.
func ResolveRange(f DateFilter, env Env) DateRange {
	r := DateRange{IncludeEmpty: f.IncludeEmpty}
	startRaw := f.Start.Resolve(env.Now, env.Location)
	endRaw := f.End.Resolve(env.Now, env.Location)
	startRaw, endRaw = ExpandBounds(startRaw, endRaw)

	if startRaw != "" {
		t, ok := timestamps.ParseFlexibleDateIn(startRaw, env.Location)
		if !ok {
			r.Broken = true
		} else {
			r.Start, r.HasStart = timestamps.StartOfDay(t), true
		}
	}
	if endRaw != "" {
		t, ok := timestamps.ParseFlexibleDateIn(endRaw, env.Location)
		if !ok {
			r.Broken = true
		} else {
			r.End, r.HasEnd = timestamps.StartOfDay(t), true
		}
	}
	return r
}

// Match applies the range to one cell. With only the empty flag set, only
// empty cells pass; with the flag and bounds, empty cells or in-range cells
// pass. Cells that do not parse as dates never pass.
func (r DateRange) Match(cell string, env Env) bool {
	v := strings.TrimSpace(cell)
	if v == "" {
		return r.IncludeEmpty
	}
	// empty flag alone admits only empty cells
	if r.Broken || (!r.HasStart && !r.HasEnd) {
		return false
	}
	t, ok := timestamps.ParseFlexibleDateIn(v, env.Location)
	if !ok {
		return false
	}
	day := timestamps.StartOfDay(t)
	if r.HasStart && day.Before(r.Start) {
		return false
	}
	if r.HasEnd && day.After(r.End) {
		return false
	}
	return true
}

// dateSet matches the exact-value mode: the raw cell or its YYYY-MM-DD
// form must be among the selected values.
type dateSet struct {
	raw        map[string]struct{}
	normalized map[string]struct{}
	wantsEmpty bool
}

func newDateSet(values []string) dateSet {
	s := dateSet{
		raw:        make(map[string]struct{}, len(values)),
		normalized: make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		if v == EmptySentinel || v == "" {
			s.wantsEmpty = true
			continue
		}
		s.raw[v] = struct{}{}
		s.normalized[timestamps.ToISODateString(v)] = struct{}{}
	}
	return s
}

func (s dateSet) match(cell string) bool {
	if strings.TrimSpace(cell) == "" {
		return s.wantsEmpty
	}
	if _, ok := s.raw[cell]; ok {
		return true
	}
	_, ok := s.normalized[timestamps.ToISODateString(strings.TrimSpace(cell))]
	return ok
}
