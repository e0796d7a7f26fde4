package filter

import (
	"fmt"
	"strings"

	"thebridge/app/timestamps"
)

// EmptySentinel in a value set selects empty cells.
const EmptySentinel = "__EMPTY__"

// Kind discriminates the ColumnFilter variants.
type Kind string

const (
	KindDate Kind = "date"
	KindSet  Kind = "set"
	KindText Kind = "text"
)

// ColumnFilter is the per-column predicate. It is one of DateFilter,
// SetFilter or TextFilter.
type ColumnFilter interface {
	Kind() Kind
	// Empty reports that the filter carries no criteria and excludes nothing.
	Empty() bool
	// Key is a stable textual form used for result cache keys.
	Key() string
}

// DateFilter selects rows either by an exact set of date values or by a
// range, optionally admitting empty cells. A non-empty Values wins over the
// range.
type DateFilter struct {
	Values       []string            `json:"values,omitempty"`
	Start        timestamps.DateExpr `json:"start,omitempty"`
	End          timestamps.DateExpr `json:"end,omitempty"`
	IncludeEmpty bool                `json:"includeEmpty,omitempty"`
}

func (DateFilter) Kind() Kind { return KindDate }

func (f DateFilter) Empty() bool {
	return len(f.Values) == 0 && !f.HasRange()
}

// HasRange reports whether any of start, end or the empty flag is set.
func (f DateFilter) HasRange() bool {
	return !f.Start.IsZero() || !f.End.IsZero() || f.IncludeEmpty
}

func (f DateFilter) Key() string {
	return fmt.Sprintf("date:%s:%s:%s:%t", strings.Join(f.Values, "\x1f"), f.Start.String(), f.End.String(), f.IncludeEmpty)
}

// SetFilter is a checkbox style selection of exact values.
type SetFilter struct {
	Values    []string  `json:"values"`
	Condition Condition `json:"condition,omitempty"`
}

func (SetFilter) Kind() Kind { return KindSet }

func (f SetFilter) Empty() bool { return len(f.Values) == 0 }

func (f SetFilter) Key() string {
	return fmt.Sprintf("set:%s:%s", f.Condition.orDefault(), strings.Join(f.Values, "\x1f"))
}

// TextFilter is a free text operand. Commas separate OR'd terms.
type TextFilter struct {
	Operand   string    `json:"operand"`
	Condition Condition `json:"condition,omitempty"`
}

func (TextFilter) Kind() Kind { return KindText }

func (f TextFilter) Empty() bool { return len(SplitTerms(f.Operand)) == 0 }

func (f TextFilter) Key() string {
	return fmt.Sprintf("text:%s:%s", f.Condition.orDefault(), f.Operand)
}

// ConditionOf returns the condition of f, Contains for date filters.
func ConditionOf(f ColumnFilter) Condition {
	switch v := f.(type) {
	case SetFilter:
		return v.Condition.orDefault()
	case TextFilter:
		return v.Condition.orDefault()
	}
	return Contains
}

// SplitTerms splits a comma separated operand into trimmed, non-empty terms.
func SplitTerms(s string) []string {
	parts := strings.Split(s, ",")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			terms = append(terms, p)
		}
	}
	return terms
}
