package query

import (
	"context"
	"reflect"
	"testing"
	"time"

	"thebridge/app/cache"
	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/timestamps"
)

// testData builds a dataset from rows aligned with header
func testData(header []string, rows ...[]string) *StageResult {
	data := &StageResult{Header: header}
	for i, r := range rows {
		data.Rows = append(data.Rows, &Row{RowIndex: i, DisplayIndex: -1, Data: r})
	}
	return data
}

func rowIndexes(result *QueryResult) []int {
	out := make([]int, len(result.Rows))
	for i, r := range result.Rows {
		out[i] = r.RowIndex
	}
	return out
}

func fixedPlanner(c *cache.Cache) *Planner {
	p := NewPlanner(c, DefaultCacheConfig())
	p.SetClock(func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) })
	p.SetLocation(time.UTC)
	return p
}

func run(t *testing.T, p *Planner, data *StageResult, req Request) *QueryResult {
	t.Helper()
	result, err := p.ApplyFilters(context.Background(), data, "", req)
	if err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	return result
}

func statusDue() *StageResult {
	return testData([]string{"status", "due"},
		[]string{"Open", "2024-01-10"},
		[]string{"Closed", ""},
	)
}

func TestScenarioNotEqualsKeepsOtherValues(t *testing.T) {
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"status": columns.TypeText},
		Filters:       map[string]filter.ColumnFilter{"status": filter.TextFilter{Operand: "Open", Condition: filter.NotEquals}},
	}
	result := run(t, fixedPlanner(nil), statusDue(), req)
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Expected only the Closed row, got %v", got)
	}
}

func TestScenarioEmptyDateFlag(t *testing.T) {
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"due": columns.TypeDate},
		Filters:       map[string]filter.ColumnFilter{"due": filter.DateFilter{IncludeEmpty: true}},
	}
	result := run(t, fixedPlanner(nil), statusDue(), req)
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Expected only the empty-due row, got %v", got)
	}
}

func TestScenarioBareYearStart(t *testing.T) {
	data := testData([]string{"d"}, []string{"2024-06-15"}, []string{"2023-12-31"})
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"d": columns.TypeDate},
		Filters:       map[string]filter.ColumnFilter{"d": filter.DateFilter{Start: timestamps.Literal("2024")}},
	}
	result := run(t, fixedPlanner(nil), data, req)
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Expected only the 2024 row, got %v", got)
	}
}

func TestScenarioGlobalSearch(t *testing.T) {
	data := testData([]string{"a", "b"},
		[]string{"Open ticket", ""},
		[]string{"Low priority", ""},
		[]string{"", "urgent fix"},
	)
	result := run(t, fixedPlanner(nil), data, Request{GlobalSearch: "open, urgent"})
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Expected rows 0 and 2, got %v", got)
	}
}

func TestGlobalSearchIsMonotonicInTerms(t *testing.T) {
	data := testData([]string{"a"}, []string{"alpha"}, []string{"beta"}, []string{"gamma"})
	p := fixedPlanner(nil)
	one := run(t, p, data, Request{GlobalSearch: "alp"})
	two := run(t, p, data, Request{GlobalSearch: "alp, GAM"})
	if one.Total != 1 || two.Total != 2 {
		t.Errorf("Expected 1 then 2 rows, got %d then %d", one.Total, two.Total)
	}
	if blank := run(t, p, data, Request{GlobalSearch: " , "}); blank.Total != 3 {
		t.Errorf("Expected blank search to keep all rows, got %d", blank.Total)
	}
}

func TestConjunctiveIndependence(t *testing.T) {
	data := testData([]string{"status", "owner"},
		[]string{"Open", "ana"},
		[]string{"Open", "bob"},
		[]string{"Closed", "ana"},
		[]string{"", "ana"},
		[]string{"Open", ""},
	)
	a := map[string]filter.ColumnFilter{"status": filter.SetFilter{Values: []string{"Open"}}}
	b := map[string]filter.ColumnFilter{"owner": filter.TextFilter{Operand: "ana"}}
	types := map[string]columns.ColumnType{"status": columns.TypeCategorical, "owner": columns.TypeText}

	p := fixedPlanner(nil)
	onlyA := run(t, p, data, Request{ActiveFilters: types, Filters: a})
	onlyB := run(t, p, data, Request{ActiveFilters: types, Filters: b})
	both := run(t, p, data, Request{ActiveFilters: types, Filters: map[string]filter.ColumnFilter{"status": a["status"], "owner": b["owner"]}})

	inB := make(map[int]bool)
	for _, idx := range rowIndexes(onlyB) {
		inB[idx] = true
	}
	var intersection []int
	for _, idx := range rowIndexes(onlyA) {
		if inB[idx] {
			intersection = append(intersection, idx)
		}
	}
	if got := rowIndexes(both); !reflect.DeepEqual(got, intersection) {
		t.Errorf("Expected intersection %v, got %v", intersection, got)
	}
}

func TestExactDateSetPrecedesRange(t *testing.T) {
	data := testData([]string{"d"}, []string{"2024-01-10"}, []string{"10/01/2024"}, []string{"2025-05-05"}, []string{""})
	types := map[string]columns.ColumnType{"d": columns.TypeDate}
	p := fixedPlanner(nil)

	exact := run(t, p, data, Request{ActiveFilters: types, Filters: map[string]filter.ColumnFilter{
		"d": filter.DateFilter{Values: []string{"2024-01-10"}},
	}})
	for _, rng := range []filter.DateFilter{
		{Values: []string{"2024-01-10"}, Start: timestamps.Literal("2025")},
		{Values: []string{"2024-01-10"}, End: timestamps.Literal("2000"), IncludeEmpty: true},
		{Values: []string{"2024-01-10"}, Start: timestamps.Today(-1)},
	} {
		both := run(t, p, data, Request{ActiveFilters: types, Filters: map[string]filter.ColumnFilter{"d": rng}})
		if !reflect.DeepEqual(rowIndexes(both), rowIndexes(exact)) {
			t.Errorf("Expected %v regardless of range %+v, got %v", rowIndexes(exact), rng, rowIndexes(both))
		}
	}
}

func TestRollingWindowResolvesAtRunTime(t *testing.T) {
	data := testData([]string{"d"}, []string{"2024-06-10"}, []string{"2024-06-01"})
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"d": columns.TypeDate},
		Filters:       map[string]filter.ColumnFilter{"d": filter.DateFilter{Start: timestamps.Today(-7)}},
	}
	p := fixedPlanner(nil)
	if got := rowIndexes(run(t, p, data, req)); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Expected row 0 on June 15, got %v", got)
	}
	p.SetClock(func() time.Time { return time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC) })
	if got := rowIndexes(run(t, p, data, req)); len(got) != 0 {
		t.Errorf("Expected no rows on June 20, got %v", got)
	}
}

func TestMissingColumnIsNoOpWithWarning(t *testing.T) {
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"gone": columns.TypeText},
		Filters:       map[string]filter.ColumnFilter{"gone": filter.TextFilter{Operand: "x"}},
		TableFilters:  map[string][]string{"also_gone": {"y"}},
		Sort:          &SortSpec{Column: "nope", Direction: SortAsc},
	}
	result := run(t, fixedPlanner(nil), statusDue(), req)
	if result.Total != 2 {
		t.Errorf("Expected 2 rows, got %d", result.Total)
	}
	if len(result.Warnings) != 3 {
		t.Fatalf("Expected 3 warnings, got %+v", result.Warnings)
	}
	if result.Warnings[0].Column != "gone" || result.Warnings[0].Layer != "filter" {
		t.Errorf("Unexpected first warning %+v", result.Warnings[0])
	}
}

func TestInertActiveEntries(t *testing.T) {
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"status": columns.TypeText, "due": columns.TypeDate},
		Filters: map[string]filter.ColumnFilter{
			"due":   filter.DateFilter{},
			"owner": filter.TextFilter{Operand: "x"},
		},
	}
	result := run(t, fixedPlanner(nil), statusDue(), req)
	if result.Total != 2 || len(result.Warnings) != 0 {
		t.Errorf("Expected inert entries to be ignored, got %d rows %+v", result.Total, result.Warnings)
	}
}

func TestTableLayerAndsWithFilterLayer(t *testing.T) {
	data := testData([]string{"status", "owner"},
		[]string{"Open", "ana"},
		[]string{"Open", ""},
		[]string{"Closed", "ana"},
		[]string{"Open"},
	)
	req := Request{
		ActiveFilters: map[string]columns.ColumnType{"status": columns.TypeCategorical},
		Filters:       map[string]filter.ColumnFilter{"status": filter.SetFilter{Values: []string{"Open"}}},
		TableFilters:  map[string][]string{"owner": {filter.EmptySentinel}},
	}
	result := run(t, fixedPlanner(nil), data, req)
	// row 3 has no owner cell at all, which the table layer rejects
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Expected row 1, got %v", got)
	}
}

func TestDuplicateFilter(t *testing.T) {
	data := testData([]string{"name", "city"},
		[]string{"ana", "x"},
		[]string{"bob", "y"},
		[]string{"ana", "x"},
		[]string{"bob", "z"},
	)
	keys := FindDuplicateKeys(data, []string{"name", "city"})
	if !reflect.DeepEqual(keys, []string{"ana|x"}) {
		t.Fatalf("Expected [ana|x], got %v", keys)
	}
	req := Request{Duplicate: &DuplicateFilter{Name: "dupes", Columns: []string{"name", "city"}, Keys: keys}}
	result := run(t, fixedPlanner(nil), data, req)
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("Expected rows 0 and 2, got %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	data := testData([]string{"k", "id"},
		[]string{"b", "1"},
		[]string{"a", "2"},
		[]string{"b", "3"},
		[]string{"", "4"},
		[]string{"a", "5"},
		[]string{"B", "6"},
	)
	tests := []struct {
		dir  SortDirection
		want []int
	}{
		{SortAsc, []int{1, 4, 0, 2, 5, 3}},
		{SortDesc, []int{0, 2, 5, 1, 4, 3}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			result := run(t, fixedPlanner(nil), data, Request{Sort: &SortSpec{Column: "k", Direction: tt.dir}})
			if got := rowIndexes(result); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			for i, row := range result.Rows {
				if row.DisplayIndex != i {
					t.Errorf("Expected display index %d, got %d", i, row.DisplayIndex)
				}
			}
		})
	}
	// the dataset itself is untouched
	if data.Rows[0].DisplayIndex != -1 {
		t.Errorf("Expected dataset rows untouched, got display index %d", data.Rows[0].DisplayIndex)
	}
}

func TestSortComparisons(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []int
	}{
		{"numeric", []string{"10", "9", "100"}, []int{1, 0, 2}},
		{"dates", []string{"10/01/2024", "2023-05-01", "2024-01-09"}, []int{1, 2, 0}},
		{"case-insensitive", []string{"beta", "Alpha", "gamma"}, []int{1, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows [][]string
			for _, v := range tt.values {
				rows = append(rows, []string{v})
			}
			result := run(t, fixedPlanner(nil), testData([]string{"v"}, rows...), Request{Sort: &SortSpec{Column: "v"}})
			if got := rowIndexes(result); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMixedSortIgnoresInputOrder(t *testing.T) {
	perms := [][]string{
		{"01/02/2025", "2024-12-31", "1x", "7", ""},
		{"2024-12-31", "1x", "", "01/02/2025", "7"},
		{"1x", "7", "01/02/2025", "", "2024-12-31"},
		{"", "1x", "2024-12-31", "7", "01/02/2025"},
	}
	for _, dir := range []SortDirection{SortAsc, SortDesc} {
		want := []string{"7", "2024-12-31", "01/02/2025", "1x", ""}
		if dir == SortDesc {
			want = []string{"1x", "01/02/2025", "2024-12-31", "7", ""}
		}
		for i, values := range perms {
			var rows [][]string
			for _, v := range values {
				rows = append(rows, []string{v})
			}
			result := run(t, fixedPlanner(nil), testData([]string{"v"}, rows...), Request{Sort: &SortSpec{Column: "v", Direction: dir}})
			var got []string
			for _, row := range result.Rows {
				got = append(got, row.Data[0])
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s permutation %d: expected %v, got %v", dir, i, want, got)
			}
		}
	}
}

func TestSortByJSONPath(t *testing.T) {
	data := testData([]string{"details"},
		[]string{`{"priority": 3}`},
		[]string{`{"priority": 1}`},
		[]string{`not json`},
		[]string{`{"priority": 2}`},
	)
	result := run(t, fixedPlanner(nil), data, Request{Sort: &SortSpec{Column: "details{$.priority}", Direction: SortAsc}})
	if got := rowIndexes(result); !reflect.DeepEqual(got, []int{1, 3, 0, 2}) {
		t.Errorf("Expected [1 3 0 2], got %v", got)
	}
}

func TestResultCache(t *testing.T) {
	c := cache.NewCache(0)
	p := fixedPlanner(c)
	req := Request{GlobalSearch: "open"}

	first, err := p.ApplyFilters(context.Background(), statusDue(), "hash1", req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ApplyFilters(context.Background(), statusDue(), "hash1", req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Expected miss then hit, got %v then %v", first.Cached, second.Cached)
	}
	if first.Total != second.Total {
		t.Errorf("Expected equal totals, got %d and %d", first.Total, second.Total)
	}

	other, _ := p.ApplyFilters(context.Background(), statusDue(), "hash1", Request{GlobalSearch: "closed"})
	if other.Cached {
		t.Error("Expected a different filter state to miss")
	}
	if n := c.InvalidateDataset("hash1"); n == 0 {
		t.Error("Expected dataset entries to be invalidated")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fixedPlanner(nil).ApplyFilters(ctx, statusDue(), "", Request{GlobalSearch: "open"})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestPackageApplyFilters(t *testing.T) {
	result := ApplyFilters(statusDue(), Request{})
	if result.Total != 2 {
		t.Errorf("Expected 2 rows, got %d", result.Total)
	}
	if page := result.Page(1, 10); len(page) != 1 || page[0].RowIndex != 1 {
		t.Errorf("Unexpected page %v", page)
	}
	if page := result.Page(5, 10); len(page) != 0 {
		t.Errorf("Expected empty page past the end, got %d rows", len(page))
	}
}
