package filter

import "strings"

// Condition is the comparison mode of a non-date filter.
type Condition string

const (
	Contains    Condition = "contains"
	Equals      Condition = "equals"
	NotContains Condition = "not_contains"
	NotEquals   Condition = "not_equals"
)

// ParseCondition maps a stored condition string to a Condition.
// Unknown or empty input is Contains.
func ParseCondition(s string) Condition {
	switch Condition(strings.ToLower(strings.TrimSpace(s))) {
	case Equals:
		return Equals
	case NotContains:
		return NotContains
	case NotEquals:
		return NotEquals
	default:
		return Contains
	}
}

// Negated reports whether c is one of the NOT conditions.
func (c Condition) Negated() bool {
	return c == NotContains || c == NotEquals
}

// Exact reports whether c compares whole values instead of substrings.
func (c Condition) Exact() bool {
	return c == Equals || c == NotEquals
}

// Label is the prefix shown on filter chips.
func (c Condition) Label() string {
	switch c {
	case Equals:
		return "="
	case NotContains:
		return "NOT"
	case NotEquals:
		return "NOT ="
	default:
		return ""
	}
}

func (c Condition) orDefault() Condition {
	if c == "" {
		return Contains
	}
	return ParseCondition(string(c))
}
