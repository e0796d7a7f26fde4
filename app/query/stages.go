package query

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/fingerprint"
	"thebridge/app/timestamps"
)

// ColumnFilterStage applies one column's predicate from the filter layer
type ColumnFilterStage struct {
	column string
	typ    columns.ColumnType
	filter filter.ColumnFilter
	env    filter.Env
}

// NewColumnFilterStage creates a filter stage for one active column
func NewColumnFilterStage(column string, typ columns.ColumnType, f filter.ColumnFilter, env filter.Env) *ColumnFilterStage {
	return &ColumnFilterStage{column: column, typ: typ, filter: f, env: env}
}

// Execute keeps the rows whose cell satisfies the predicate. A column
// missing from the header excludes nothing.
func (s *ColumnFilterStage) Execute(input *StageResult) (*StageResult, error) {
	idx := input.ColumnIndex(s.column)
	pred, ok := filter.Compile(s.filter, s.typ, s.env)
	if idx < 0 || !ok {
		log.Printf("[FILTER_NOOP] column=%q present=%v criteria=%v", s.column, idx >= 0, ok)
		return input, nil
	}

	rows := make([]*Row, 0, len(input.Rows))
	for _, row := range input.Rows {
		if pred(row.Value(idx)) {
			rows = append(rows, row)
		}
	}
	return &StageResult{Header: input.Header, Rows: rows}, nil
}

// CanCache returns true if this stage can be cached
func (s *ColumnFilterStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching. Dynamic date bounds are keyed
// by the day they resolve to, so a cached window expires at midnight.
func (s *ColumnFilterStage) CacheKey() string {
	key := fmt.Sprintf("col=%s:type=%s:%s", s.column, s.typ, s.filter.Key())
	if df, ok := s.filter.(filter.DateFilter); ok && (df.Start.Dynamic || df.End.Dynamic) {
		key += ":day=" + s.env.Now.In(s.env.Location).Format(timestamps.ISODateLayout)
	}
	return key
}

// Name returns the stage name
func (s *ColumnFilterStage) Name() string {
	return "column_filter"
}

// EstimateOutputSize estimates output size
func (s *ColumnFilterStage) EstimateOutputSize() float64 {
	return 0.5
}

// TableFilterStage applies the header-icon filter layer
type TableFilterStage struct {
	filters map[string][]string
}

// NewTableFilterStage creates a stage for the header-icon layer
func NewTableFilterStage(filters map[string][]string) *TableFilterStage {
	return &TableFilterStage{filters: filters}
}

// Execute applies every non-empty value set; all must hold
func (s *TableFilterStage) Execute(input *StageResult) (*StageResult, error) {
	type compiled struct {
		idx  int
		pred filter.TablePredicate
	}
	var preds []compiled
	for _, column := range sortedKeys(s.filters) {
		pred, ok := filter.CompileTableSet(s.filters[column])
		if !ok {
			continue
		}
		idx := input.ColumnIndex(column)
		if idx < 0 {
			log.Printf("[FILTER_NOOP] table column=%q not in header", column)
			continue
		}
		preds = append(preds, compiled{idx: idx, pred: pred})
	}
	if len(preds) == 0 {
		return input, nil
	}

	rows := make([]*Row, 0, len(input.Rows))
	for _, row := range input.Rows {
		keep := true
		for _, p := range preds {
			if !p.pred(row.Value(p.idx), row.Has(p.idx)) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}
	return &StageResult{Header: input.Header, Rows: rows}, nil
}

// CanCache returns true if this stage can be cached
func (s *TableFilterStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (s *TableFilterStage) CacheKey() string {
	var b strings.Builder
	for _, column := range sortedKeys(s.filters) {
		fmt.Fprintf(&b, "%s=%s;", column, strings.Join(s.filters[column], "\x1f"))
	}
	return b.String()
}

// Name returns the stage name
func (s *TableFilterStage) Name() string {
	return "table_filter"
}

// EstimateOutputSize estimates output size
func (s *TableFilterStage) EstimateOutputSize() float64 {
	return 0.5
}

// DuplicateStage keeps only rows belonging to a selected duplicate group
type DuplicateStage struct {
	columns []string
	keys    map[string]struct{}
	keyHash string
}

// NewDuplicateStage creates a duplicate-group filter
func NewDuplicateStage(df DuplicateFilter) *DuplicateStage {
	keys := make(map[string]struct{}, len(df.Keys))
	for _, k := range df.Keys {
		keys[k] = struct{}{}
	}
	sorted := append([]string(nil), df.Keys...)
	sort.Strings(sorted)
	return &DuplicateStage{
		columns: df.Columns,
		keys:    keys,
		keyHash: fingerprint.Strings(sorted, "\n"),
	}
}

// Execute keeps rows whose joined key is selected
func (d *DuplicateStage) Execute(input *StageResult) (*StageResult, error) {
	if len(d.columns) == 0 {
		return input, nil
	}
	idxs := columnIndexes(input.Header, d.columns)
	rows := make([]*Row, 0, len(input.Rows))
	for _, row := range input.Rows {
		if _, ok := d.keys[duplicateKey(row, idxs)]; ok {
			rows = append(rows, row)
		}
	}
	return &StageResult{Header: input.Header, Rows: rows}, nil
}

// CanCache returns true if this stage can be cached
func (d *DuplicateStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (d *DuplicateStage) CacheKey() string {
	return fmt.Sprintf("cols=%s:keys=%s", strings.Join(d.columns, ","), d.keyHash)
}

// Name returns the stage name
func (d *DuplicateStage) Name() string {
	return "duplicate"
}

// EstimateOutputSize estimates output size
func (d *DuplicateStage) EstimateOutputSize() float64 {
	return 0.2
}

// FindDuplicateKeys returns, in first-appearance order, the keys over
// columns that occur on more than one row.
func FindDuplicateKeys(data *StageResult, cols []string) []string {
	if data == nil || len(cols) == 0 {
		return []string{}
	}
	idxs := columnIndexes(data.Header, cols)
	counts := make(map[string]int)
	var order []string
	for _, row := range data.Rows {
		k := duplicateKey(row, idxs)
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	keys := make([]string, 0)
	for _, k := range order {
		if counts[k] > 1 {
			keys = append(keys, k)
		}
	}
	return keys
}

// duplicateKey joins the cells at idxs with "|"; missing columns contribute "".
func duplicateKey(row *Row, idxs []int) string {
	parts := make([]string, len(idxs))
	for i, idx := range idxs {
		parts[i] = row.Value(idx)
	}
	return strings.Join(parts, "|")
}

// GlobalSearchStage keeps rows where any term occurs in any cell
type GlobalSearchStage struct {
	raw   string
	terms []string
}

// NewGlobalSearchStage splits search on commas into lowercase OR'd terms
func NewGlobalSearchStage(search string) *GlobalSearchStage {
	terms := filter.SplitTerms(search)
	for i, t := range terms {
		terms[i] = strings.ToLower(t)
	}
	return &GlobalSearchStage{raw: search, terms: terms}
}

// Execute applies the case-insensitive OR-of-terms, OR-of-fields search
func (g *GlobalSearchStage) Execute(input *StageResult) (*StageResult, error) {
	if len(g.terms) == 0 {
		return input, nil
	}
	rows := make([]*Row, 0, len(input.Rows))
	for _, row := range input.Rows {
		if g.matchRow(row) {
			rows = append(rows, row)
		}
	}
	return &StageResult{Header: input.Header, Rows: rows}, nil
}

func (g *GlobalSearchStage) matchRow(row *Row) bool {
	for _, cell := range row.Data {
		if cell == "" {
			continue
		}
		lower := strings.ToLower(cell)
		for _, term := range g.terms {
			if strings.Contains(lower, term) {
				return true
			}
		}
	}
	return false
}

// CanCache returns true if this stage can be cached
func (g *GlobalSearchStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (g *GlobalSearchStage) CacheKey() string {
	return strings.Join(g.terms, ",")
}

// Name returns the stage name
func (g *GlobalSearchStage) Name() string {
	return "global_search"
}

// EstimateOutputSize estimates output size
func (g *GlobalSearchStage) EstimateOutputSize() float64 {
	return 0.3
}

// SortStage stable-sorts rows by one or more columns
type SortStage struct {
	columnNames []string // Column names to sort by (resolved at execution time)
	descending  []bool
	location    *time.Location
}

// NewSortStage creates a new sort stage
// columnNames: list of column names to sort by, optionally with a {$.path} suffix
// descending: corresponding sort directions for each column
func NewSortStage(columnNames []string, descending []bool) *SortStage {
	return &SortStage{
		columnNames: columnNames,
		descending:  descending,
		location:    time.Local,
	}
}

// WithLocation sets the timezone used to read zone-less date cells
func (s *SortStage) WithLocation(loc *time.Location) *SortStage {
	if loc != nil {
		s.location = loc
	}
	return s
}

// sortValue is a cell pre-parsed once so the comparator stays cheap.
type sortValue struct {
	empty  bool
	lower  string
	num    float64
	isNum  bool
	date   time.Time
	isDate bool
}

func (s *SortStage) parseSortValue(raw string, ok bool) sortValue {
	v := strings.TrimSpace(raw)
	if !ok || v == "" {
		return sortValue{empty: true}
	}
	sv := sortValue{lower: strings.ToLower(v)}
	if n, isNum := columns.ParseNumber(v); isNum {
		sv.num, sv.isNum = n, true
		return sv
	}
	if t, isDate := timestamps.ParseFlexibleDateIn(v, s.location); isDate {
		sv.date, sv.isDate = t, true
	}
	return sv
}

// class ranks the kind of a non-empty value: numbers, then dates, then text.
func (v sortValue) class() int {
	switch {
	case v.isNum:
		return 0
	case v.isDate:
		return 1
	}
	return 2
}

// compareSortValues orders two non-empty values by class first and then
// within the class: numerically, chronologically or case-insensitively.
// Ranking classes keeps the order total on mixed columns.
func compareSortValues(a, b sortValue) int {
	if ca, cb := a.class(), b.class(); ca != cb {
		return ca - cb
	}
	switch {
	case a.isNum:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case a.isDate:
		return a.date.Compare(b.date)
	}
	return strings.Compare(a.lower, b.lower)
}

// CanCache returns true if this stage can be cached
func (s *SortStage) CanCache() bool {
	return true
}

// CacheKey returns a unique key for caching
func (s *SortStage) CacheKey() string {
	descStr := make([]string, len(s.descending))
	for i, d := range s.descending {
		descStr[i] = fmt.Sprintf("%t", d)
	}
	return fmt.Sprintf("cols=%s:desc=%s:tz=%s", strings.Join(s.columnNames, ","), strings.Join(descStr, ","), s.location)
}

// Name returns the stage name
func (s *SortStage) Name() string {
	return "sort"
}

// EstimateOutputSize estimates output size (sorting doesn't change row count)
func (s *SortStage) EstimateOutputSize() float64 {
	return 1.0
}

func columnIndexes(header []string, cols []string) []int {
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idxs[i] = indexOf(header, c)
	}
	return idxs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
