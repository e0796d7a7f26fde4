package timestamps

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// dynamicRe matches TODAY, TODAY+N, TODAY-N and the __TODAY__ spelling.
var dynamicRe = regexp.MustCompile(`(?i)^(?:__today__|today)\s*(?:([+-])\s*(\d+))?$`)

// DateExpr is a date bound that is either a literal date string or an offset
// from the current day. Dynamic expressions are resolved on every query run so
// that "last 7 days" windows keep rolling.
type DateExpr struct {
	Literal    string `json:"literal,omitempty" yaml:"literal,omitempty"`
	Dynamic    bool   `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	OffsetDays int    `json:"offsetDays,omitempty" yaml:"offsetDays,omitempty"`
}

// Today returns the dynamic expression TODAY+offset.
func Today(offsetDays int) DateExpr {
	return DateExpr{Dynamic: true, OffsetDays: offsetDays}
}

// Literal wraps a literal date string.
func Literal(s string) DateExpr {
	return DateExpr{Literal: strings.TrimSpace(s)}
}

// ParseDateExpr interprets s as a dynamic expression when it has the TODAY±N
// shape and as a literal otherwise.
func ParseDateExpr(s string) DateExpr {
	ss := strings.TrimSpace(s)
	m := dynamicRe.FindStringSubmatch(ss)
	if m == nil {
		return Literal(ss)
	}
	offset := 0
	if m[1] != "" && m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Literal(ss)
		}
		if m[1] == "-" {
			n = -n
		}
		offset = n
	}
	return Today(offset)
}

// IsZero reports whether the expression carries no bound at all.
func (e DateExpr) IsZero() bool {
	return !e.Dynamic && e.Literal == ""
}

// Resolve returns the bound as a string. Dynamic expressions become a
// YYYY-MM-DD day computed from now in loc.
func (e DateExpr) Resolve(now time.Time, loc *time.Location) string {
	if !e.Dynamic {
		return e.Literal
	}
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).AddDate(0, 0, e.OffsetDays).Format(ISODateLayout)
}

// String renders the canonical flat form (TODAY, TODAY+7, TODAY-3 or the literal).
func (e DateExpr) String() string {
	if !e.Dynamic {
		return e.Literal
	}
	switch {
	case e.OffsetDays > 0:
		return fmt.Sprintf("TODAY+%d", e.OffsetDays)
	case e.OffsetDays < 0:
		return fmt.Sprintf("TODAY-%d", -e.OffsetDays)
	default:
		return "TODAY"
	}
}

// Pretty renders the expression for filter chips.
func (e DateExpr) Pretty() string {
	if !e.Dynamic {
		return e.Literal
	}
	switch {
	case e.OffsetDays > 0:
		return fmt.Sprintf("Today + %d days", e.OffsetDays)
	case e.OffsetDays < 0:
		return fmt.Sprintf("Today - %d days", -e.OffsetDays)
	default:
		return "Today"
	}
}
