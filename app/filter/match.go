package filter

import (
	"strings"
	"time"

	"thebridge/app/columns"
	"thebridge/app/timestamps"
)

// Env is the evaluation environment. Dynamic date bounds are resolved
// against Now in Location.
type Env struct {
	Now      time.Time
	Location *time.Location
}

// NewEnv captures the current time from clock.
func NewEnv(clock timestamps.Clock, loc *time.Location) Env {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return Env{Now: clock(), Location: loc}
}

// Predicate decides whether one cell satisfies a compiled filter.
type Predicate func(cell string) bool

// Compile prepares f for repeated evaluation against cells of a column of
// type typ. It returns ok=false when f excludes nothing, in which case the
// caller should skip it. Malformed operands never fail: they degrade to
// predicates that match nothing.
func Compile(f ColumnFilter, typ columns.ColumnType, env Env) (Predicate, bool) {
	if f == nil || f.Empty() {
		return nil, false
	}
	switch v := f.(type) {
	case DateFilter:
		if len(v.Values) > 0 {
			set := newDateSet(v.Values)
			return set.match, true
		}
		r := ResolveRange(v, env)
		return func(cell string) bool { return r.Match(cell, env) }, true
	case SetFilter:
		return compileSet(v), true
	case TextFilter:
		return compileText(v, typ), true
	}
	return nil, false
}

// Matches evaluates f against a single cell. Filters without criteria match.
func Matches(cell string, f ColumnFilter, typ columns.ColumnType, env Env) bool {
	pred, ok := Compile(f, typ, env)
	if !ok {
		return true
	}
	return pred(cell)
}

// compileSet builds the checkbox membership test. An empty cell passes only
// a positive selection containing EmptySentinel; under NOT conditions empty
// cells never pass.
func compileSet(f SetFilter) Predicate {
	cond := f.Condition.orDefault()
	members := make(map[string]struct{}, len(f.Values))
	wantsEmpty := false
	for _, v := range f.Values {
		if v == EmptySentinel {
			wantsEmpty = true
			continue
		}
		members[v] = struct{}{}
	}
	return func(cell string) bool {
		if cell == "" {
			return wantsEmpty && !cond.Negated()
		}
		_, in := members[cell]
		if cond.Negated() {
			return !in
		}
		return in
	}
}

// compileText builds the free text test. Terms are OR'd and NOT conditions
// negate the OR'd result, so "a, b" under not_contains keeps rows matching
// neither term. Empty cells never pass.
func compileText(f TextFilter, typ columns.ColumnType) Predicate {
	cond := f.Condition.orDefault()
	terms := SplitTerms(f.Operand)
	match := termMatcher(terms, typ, cond.Exact())
	return func(cell string) bool {
		if cell == "" {
			return false
		}
		if cond.Negated() {
			return !match(cell)
		}
		return match(cell)
	}
}

// termMatcher reports whether a non-empty cell matches any term.
func termMatcher(terms []string, typ columns.ColumnType, exact bool) func(string) bool {
	switch typ {
	case columns.TypeNumeric:
		nums := make([]float64, 0, len(terms))
		for _, t := range terms {
			if n, ok := columns.ParseNumber(t); ok {
				nums = append(nums, n)
			}
		}
		return func(cell string) bool {
			c, ok := columns.ParseNumber(cell)
			if !ok {
				return false
			}
			for _, n := range nums {
				if c == n {
					return true
				}
			}
			return false
		}

	case columns.TypeCategorical:
		// Categorical values are compared verbatim, in either direction.
		return func(cell string) bool {
			for _, t := range terms {
				if exact {
					if cell == t {
						return true
					}
				} else if strings.Contains(cell, t) || strings.Contains(t, cell) {
					return true
				}
			}
			return false
		}

	default:
		normalized := make([]string, len(terms))
		for i, t := range terms {
			normalized[i] = NormalizeText(t)
		}
		return func(cell string) bool {
			c := NormalizeText(cell)
			for _, t := range normalized {
				if exact {
					if c == t {
						return true
					}
				} else if strings.Contains(c, t) {
					return true
				}
			}
			return false
		}
	}
}

// TablePredicate is the header-icon filter layer test. present is false
// when the row has no cell for the column at all.
type TablePredicate func(cell string, present bool) bool

// CompileTableSet builds the header-icon layer test for a value set.
// It returns ok=false for an empty set.
func CompileTableSet(values []string) (TablePredicate, bool) {
	if len(values) == 0 {
		return nil, false
	}
	members := make(map[string]struct{}, len(values))
	wantsEmpty := false
	for _, v := range values {
		if v == EmptySentinel {
			wantsEmpty = true
		}
		members[v] = struct{}{}
	}
	return func(cell string, present bool) bool {
		if !present {
			return false
		}
		if cell == "" && wantsEmpty {
			return true
		}
		_, ok := members[cell]
		return ok
	}, true
}
