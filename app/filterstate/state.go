package filterstate

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/samber/lo"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/query"
	"thebridge/app/timestamps"
)

// FilterState is the complete, explicit filter state of one session. Every
// mutation goes through a setter that keeps the active set and the filter
// values consistent: a column is active iff it carries criteria.
type FilterState struct {
	types        map[string]columns.ColumnType
	filters      map[string]filter.ColumnFilter
	table        map[string][]string
	duplicate    *query.DuplicateFilter
	globalSearch string
	sort         *query.SortSpec
}

// New returns an empty filter state.
func New() *FilterState {
	return &FilterState{
		types:   make(map[string]columns.ColumnType),
		filters: make(map[string]filter.ColumnFilter),
		table:   make(map[string][]string),
	}
}

// Clone returns a deep copy of s.
func (s *FilterState) Clone() *FilterState {
	c := New()
	maps.Copy(c.types, s.types)
	maps.Copy(c.filters, s.filters)
	for k, v := range s.table {
		c.table[k] = slices.Clone(v)
	}
	if s.duplicate != nil {
		d := *s.duplicate
		d.Columns = slices.Clone(d.Columns)
		d.Keys = slices.Clone(d.Keys)
		c.duplicate = &d
	}
	c.globalSearch = s.globalSearch
	if s.sort != nil {
		sp := *s.sort
		c.sort = &sp
	}
	return c
}

// set stores f for column, or removes the column when f has no criteria.
func (s *FilterState) set(column string, typ columns.ColumnType, f filter.ColumnFilter) {
	if f == nil || f.Empty() {
		s.Remove(column)
		return
	}
	s.types[column] = typ
	s.filters[column] = f
}

// SetText sets a free text operand on a non-date column. An operand with no
// terms clears the filter.
func (s *FilterState) SetText(column string, typ columns.ColumnType, operand string, cond filter.Condition) {
	if typ == columns.TypeDate || !typ.Valid() {
		typ = columns.TypeText
	}
	s.set(column, typ, filter.TextFilter{Operand: strings.TrimSpace(operand), Condition: filter.ParseCondition(string(cond))})
}

// SetValues sets a checkbox selection on a non-date column. An empty
// selection clears the filter.
func (s *FilterState) SetValues(column string, typ columns.ColumnType, values []string, cond filter.Condition) {
	if typ == columns.TypeDate || !typ.Valid() {
		typ = columns.TypeCategorical
	}
	s.set(column, typ, filter.SetFilter{Values: lo.Uniq(values), Condition: filter.ParseCondition(string(cond))})
}

// SetCondition changes the condition of an existing set or text filter. It
// reports whether a filter was updated.
func (s *FilterState) SetCondition(column string, cond filter.Condition) bool {
	cond = filter.ParseCondition(string(cond))
	switch f := s.filters[column].(type) {
	case filter.SetFilter:
		f.Condition = cond
		s.filters[column] = f
	case filter.TextFilter:
		f.Condition = cond
		s.filters[column] = f
	default:
		return false
	}
	return true
}

func (s *FilterState) dateFilter(column string) filter.DateFilter {
	if df, ok := s.filters[column].(filter.DateFilter); ok {
		return df
	}
	return filter.DateFilter{}
}

// SetDateRange sets the range part of a date filter, keeping any exact
// value selection. Clearing the last criterion deactivates the column.
func (s *FilterState) SetDateRange(column string, start, end timestamps.DateExpr, includeEmpty bool) {
	df := s.dateFilter(column)
	df.Start, df.End, df.IncludeEmpty = start, end, includeEmpty
	s.set(column, columns.TypeDate, df)
}

// SetDateStart updates only the start bound.
func (s *FilterState) SetDateStart(column string, start timestamps.DateExpr) {
	df := s.dateFilter(column)
	df.Start = start
	s.set(column, columns.TypeDate, df)
}

// SetDateEnd updates only the end bound.
func (s *FilterState) SetDateEnd(column string, end timestamps.DateExpr) {
	df := s.dateFilter(column)
	df.End = end
	s.set(column, columns.TypeDate, df)
}

// SetDateEmpty toggles the empty flag.
func (s *FilterState) SetDateEmpty(column string, includeEmpty bool) {
	df := s.dateFilter(column)
	df.IncludeEmpty = includeEmpty
	s.set(column, columns.TypeDate, df)
}

// SetDateValues sets the exact date selection, keeping any range.
func (s *FilterState) SetDateValues(column string, values []string) {
	df := s.dateFilter(column)
	df.Values = lo.Uniq(values)
	s.set(column, columns.TypeDate, df)
}

// Remove clears every module-layer criterion of column.
func (s *FilterState) Remove(column string) {
	delete(s.types, column)
	delete(s.filters, column)
}

// Filter returns the filter of column, if active.
func (s *FilterState) Filter(column string) (filter.ColumnFilter, bool) {
	f, ok := s.filters[column]
	return f, ok
}

// Type returns the type column was filtered as, if active.
func (s *FilterState) Type(column string) (columns.ColumnType, bool) {
	t, ok := s.types[column]
	return t, ok
}

// ActiveColumns returns the module-layer columns in sorted order.
func (s *FilterState) ActiveColumns() []string {
	keys := lo.Keys(s.filters)
	sort.Strings(keys)
	return keys
}

// SetTableFilter sets the header-icon selection for column. An empty
// selection clears it.
func (s *FilterState) SetTableFilter(column string, values []string) {
	if len(values) == 0 {
		delete(s.table, column)
		return
	}
	s.table[column] = lo.Uniq(values)
}

// TableFilters returns a copy of the header-icon layer.
func (s *FilterState) TableFilters() map[string][]string {
	out := make(map[string][]string, len(s.table))
	for k, v := range s.table {
		out[k] = slices.Clone(v)
	}
	return out
}

// ClearTableFilters removes the whole header-icon layer.
func (s *FilterState) ClearTableFilters() {
	clear(s.table)
}

// SetDuplicate sets or, with nil or no columns, clears the duplicate filter.
func (s *FilterState) SetDuplicate(d *query.DuplicateFilter) {
	if d == nil || len(d.Columns) == 0 {
		s.duplicate = nil
		return
	}
	cp := *d
	cp.Columns = slices.Clone(d.Columns)
	cp.Keys = slices.Clone(d.Keys)
	s.duplicate = &cp
}

// Duplicate returns the duplicate filter, or nil.
func (s *FilterState) Duplicate() *query.DuplicateFilter {
	return s.duplicate
}

// SetGlobalSearch sets the comma separated global search.
func (s *FilterState) SetGlobalSearch(search string) {
	s.globalSearch = strings.TrimSpace(search)
}

// GlobalSearch returns the global search string.
func (s *FilterState) GlobalSearch() string {
	return s.globalSearch
}

// SetSort sets the sort, or clears it when spec is nil or has no column.
func (s *FilterState) SetSort(spec *query.SortSpec) {
	if spec == nil || strings.TrimSpace(spec.Column) == "" {
		s.sort = nil
		return
	}
	dir := query.SortAsc
	if spec.Descending() {
		dir = query.SortDesc
	}
	s.sort = &query.SortSpec{Column: spec.Column, Direction: dir}
}

// ToggleSort sorts by column ascending, or flips the direction when the
// state already sorts by column.
func (s *FilterState) ToggleSort(column string) {
	if s.sort != nil && s.sort.Column == column {
		if s.sort.Descending() {
			s.sort.Direction = query.SortAsc
		} else {
			s.sort.Direction = query.SortDesc
		}
		return
	}
	s.SetSort(&query.SortSpec{Column: column, Direction: query.SortAsc})
}

// Sort returns the current sort, or nil.
func (s *FilterState) Sort() *query.SortSpec {
	return s.sort
}

// Clear resets the module layer, the header-icon layer, the duplicate
// filter and the global search. The sort is kept.
func (s *FilterState) Clear() {
	clear(s.types)
	clear(s.filters)
	clear(s.table)
	s.duplicate = nil
	s.globalSearch = ""
}

// Reset clears everything including the sort, as on a new dataset load.
func (s *FilterState) Reset() {
	s.Clear()
	s.sort = nil
}

// Count is the number of active module-layer filters plus one for a
// global search.
func (s *FilterState) Count() int {
	n := len(s.filters)
	if len(filter.SplitTerms(s.globalSearch)) > 0 {
		n++
	}
	return n
}

// Prune removes every filter whose column is not in headers, from both
// layers and the sort, and returns the affected columns sorted.
func (s *FilterState) Prune(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	removed := make(map[string]struct{})
	for column := range s.filters {
		if !present[column] {
			s.Remove(column)
			removed[column] = struct{}{}
		}
	}
	for column := range s.types {
		if !present[column] {
			delete(s.types, column)
		}
	}
	for column := range s.table {
		if !present[column] {
			delete(s.table, column)
			removed[column] = struct{}{}
		}
	}
	if s.duplicate != nil && lo.SomeBy(s.duplicate.Columns, func(c string) bool { return !present[c] }) {
		for _, c := range s.duplicate.Columns {
			if !present[c] {
				removed[c] = struct{}{}
			}
		}
		s.duplicate = nil
	}
	if s.sort != nil && !sortColumnPresent(s.sort.Column, present) {
		s.sort = nil
	}
	out := lo.Keys(removed)
	sort.Strings(out)
	return out
}

// sortColumnPresent accepts "col{$.path}" references to a present column.
func sortColumnPresent(ref string, present map[string]bool) bool {
	if present[ref] {
		return true
	}
	if i := strings.Index(ref, "{"); i > 0 {
		return present[strings.TrimSpace(ref[:i])]
	}
	return false
}

// ToRequest snapshots the state as a planner request.
func (s *FilterState) ToRequest() query.Request {
	c := s.Clone()
	return query.Request{
		ActiveFilters: c.types,
		Filters:       c.filters,
		TableFilters:  c.table,
		Duplicate:     c.duplicate,
		GlobalSearch:  c.globalSearch,
		Sort:          c.sort,
	}
}
