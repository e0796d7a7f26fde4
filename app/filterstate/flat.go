package filterstate

import (
	"fmt"
	"strings"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/timestamps"
)

// Suffixes and keys of the flat filter-value form used by presets and the
// HTTP API.
const (
	StartSuffix     = "_start"
	EndSuffix       = "_end"
	EmptySuffix     = "_empty"
	ConditionSuffix = "_condition"
	GlobalSearchKey = "__globalSearch"
)

// legacyExpr renders a bound the way stored presets spell it.
func legacyExpr(e timestamps.DateExpr) string {
	if !e.Dynamic {
		return e.Literal
	}
	return strings.Replace(e.String(), "TODAY", "__TODAY__", 1)
}

// ToFlat renders the module layer and the global search as flat keys:
// col, col_start, col_end, col_empty and col_condition.
func (s *FilterState) ToFlat() map[string]any {
	flat := make(map[string]any)
	for column, f := range s.filters {
		switch v := f.(type) {
		case filter.DateFilter:
			if len(v.Values) > 0 {
				flat[column] = toAnySlice(v.Values)
			}
			if !v.Start.IsZero() {
				flat[column+StartSuffix] = legacyExpr(v.Start)
			}
			if !v.End.IsZero() {
				flat[column+EndSuffix] = legacyExpr(v.End)
			}
			if v.IncludeEmpty {
				flat[column+EmptySuffix] = true
			}
		case filter.SetFilter:
			flat[column] = toAnySlice(v.Values)
			if c := filter.ConditionOf(v); c != filter.Contains {
				flat[column+ConditionSuffix] = string(c)
			}
		case filter.TextFilter:
			flat[column] = v.Operand
			if c := filter.ConditionOf(v); c != filter.Contains {
				flat[column+ConditionSuffix] = string(c)
			}
		}
	}
	if s.globalSearch != "" {
		flat[GlobalSearchKey] = s.globalSearch
	}
	return flat
}

// ActiveTypes returns a copy of the active set: column to filter type.
func (s *FilterState) ActiveTypes() map[string]columns.ColumnType {
	out := make(map[string]columns.ColumnType, len(s.types))
	for k, v := range s.types {
		out[k] = v
	}
	return out
}

// FromFlat rebuilds a state from flat keys. types, when it names a column,
// decides its filter type; otherwise _start/_end/_empty make a date filter,
// an array a categorical one and a non-empty string a text one. Keys that
// carry no criteria are dropped.
//
// A key named in types is a column even when it ends in a flat suffix, so
// "project_end" survives next to "project".
func FromFlat(flat map[string]any, types map[string]columns.ColumnType) *FilterState {
	s := New()
	dates := make(map[string]*filter.DateFilter)
	dateOf := func(column string) *filter.DateFilter {
		if df, ok := dates[column]; ok {
			return df
		}
		df := &filter.DateFilter{}
		dates[column] = df
		return df
	}

	conditions := make(map[string]string)
	for key, raw := range flat {
		if key == GlobalSearchKey {
			if str, ok := raw.(string); ok {
				s.SetGlobalSearch(str)
			}
			continue
		}
		base, suffix := splitFlatKey(key, types)
		switch suffix {
		case ConditionSuffix:
			conditions[base] = stringOf(raw)
		case StartSuffix:
			dateOf(base).Start = timestamps.ParseDateExpr(stringOf(raw))
		case EndSuffix:
			dateOf(base).End = timestamps.ParseDateExpr(stringOf(raw))
		case EmptySuffix:
			dateOf(base).IncludeEmpty = truthy(raw)
		}
	}

	for key, raw := range flat {
		if key == GlobalSearchKey {
			continue
		}
		if _, suffix := splitFlatKey(key, types); suffix != "" {
			continue
		}
		cond := filter.ParseCondition(conditions[key])
		values, isArray := stringSlice(raw)
		typ, typed := types[key]

		if typ == columns.TypeDate || (!typed && dates[key] != nil && isArray) {
			if isArray {
				dateOf(key).Values = values
			}
			continue
		}
		if !typed || !typ.Valid() {
			typ = columns.TypeText
			if isArray {
				typ = columns.TypeCategorical
			}
		}
		if isArray {
			s.SetValues(key, typ, values, cond)
		} else if str := stringOf(raw); strings.TrimSpace(str) != "" {
			s.SetText(key, typ, str, cond)
		}
	}

	for column, df := range dates {
		s.set(column, columns.TypeDate, *df)
	}
	return s
}

// splitFlatKey returns the column and suffix of a derived key, or the key
// and "" for a plain column key. A known base type must agree with the
// suffix: range keys belong to date columns, _condition to the others.
func splitFlatKey(key string, types map[string]columns.ColumnType) (string, string) {
	if _, ok := types[key]; ok {
		return key, ""
	}
	for _, suffix := range []string{StartSuffix, EndSuffix, EmptySuffix, ConditionSuffix} {
		base, found := strings.CutSuffix(key, suffix)
		if !found || base == "" {
			continue
		}
		typ, known := types[base]
		if !known || (typ == columns.TypeDate) == (suffix != ConditionSuffix) {
			return base, suffix
		}
	}
	return key, ""
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// stringSlice accepts []string or []any with scalar elements.
func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, stringOf(e))
		}
		return out, true
	}
	return nil, false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case int:
		return fmt.Sprintf("%d", t)
	}
	return fmt.Sprintf("%v", v)
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	}
	return false
}

// Chip is one entry of the active filter summary.
type Chip struct {
	Column string `json:"column"`
	Text   string `json:"text"`
}

// Summary returns one chip per active module-layer filter, in column order.
func (s *FilterState) Summary() []Chip {
	chips := make([]Chip, 0, len(s.filters))
	for _, column := range s.ActiveColumns() {
		var text string
		switch v := s.filters[column].(type) {
		case filter.DateFilter:
			text = dateChip(column, v)
		case filter.SetFilter:
			text = conditionPrefix(v.Condition) + column + ": " + strings.Join(v.Values, ", ")
		case filter.TextFilter:
			text = conditionPrefix(v.Condition) + column + ": " + v.Operand
		}
		chips = append(chips, Chip{Column: column, Text: text})
	}
	return chips
}

func conditionPrefix(c filter.Condition) string {
	if label := filter.ParseCondition(string(c)).Label(); label != "" {
		return label + " "
	}
	return ""
}

func dateChip(column string, f filter.DateFilter) string {
	var b strings.Builder
	b.WriteString(column + ": ")
	if len(f.Values) > 0 {
		b.WriteString(strings.Join(f.Values, ", "))
		return b.String()
	}
	if f.IncludeEmpty && f.Start.IsZero() && f.End.IsZero() {
		b.WriteString("(empty)")
		return b.String()
	}
	if !f.Start.IsZero() {
		b.WriteString("from " + f.Start.Pretty())
	}
	if !f.End.IsZero() {
		if !f.Start.IsZero() {
			b.WriteString(" ")
		}
		b.WriteString("to " + f.End.Pretty())
	}
	if f.IncludeEmpty {
		b.WriteString(" (including empty)")
	}
	return b.String()
}
