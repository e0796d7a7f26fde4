package filter

import (
	"testing"
	"time"

	"thebridge/app/columns"
	"thebridge/app/timestamps"
)

func testEnv() Env {
	return Env{
		Now:      time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
		Location: time.UTC,
	}
}

type cellCase struct {
	cell string
	want bool
}

func checkCells(t *testing.T, f ColumnFilter, typ columns.ColumnType, cases []cellCase) {
	t.Helper()
	env := testEnv()
	pred, ok := Compile(f, typ, env)
	if !ok {
		t.Fatalf("Expected %s filter to compile", f.Kind())
	}
	for _, c := range cases {
		if got := pred(c.cell); got != c.want {
			t.Errorf("%s on %q: expected %v, got %v", f.Key(), c.cell, c.want, got)
		}
	}
}

func TestParseCondition(t *testing.T) {
	tests := map[string]Condition{
		"":             Contains,
		"contains":     Contains,
		"EQUALS":       Equals,
		" not_equals ": NotEquals,
		"not_contains": NotContains,
		"bogus":        Contains,
	}
	for in, want := range tests {
		if got := ParseCondition(in); got != want {
			t.Errorf("ParseCondition(%q) = %s, want %s", in, got, want)
		}
	}
	if NotEquals.Label() != "NOT =" || Contains.Label() != "" {
		t.Error("Unexpected condition labels")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := map[string]string{
		"  Café   Crème ": "cafe creme",
		"ÀÉÎÕÜ":           "aeiou",
		"Straße":          "strasse",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeText(in); got != want {
			t.Errorf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextFilterNotExcludesEmpty(t *testing.T) {
	for _, cond := range []Condition{NotEquals, NotContains} {
		t.Run(string(cond), func(t *testing.T) {
			checkCells(t, TextFilter{Operand: "Open", Condition: cond}, columns.TypeText, []cellCase{
				{"", false},
				{"Closed", true},
				{"Open", false},
			})
		})
	}
}

func TestTextFilterPositive(t *testing.T) {
	checkCells(t, TextFilter{Operand: "creme"}, columns.TypeText, []cellCase{
		{"Crème brûlée", true},
		{"custard", false},
		{"", false},
	})
	checkCells(t, TextFilter{Operand: "open", Condition: Equals}, columns.TypeText, []cellCase{
		{" OPEN ", true},
		{"Reopened", false},
	})
}

func TestTextFilterNotOfOr(t *testing.T) {
	f := TextFilter{Operand: "app, ban", Condition: NotContains}
	checkCells(t, f, columns.TypeText, []cellCase{
		{"apple", false},
		{"banana", false},
		{"cherry", true},
		{"", false},
	})
	f.Condition = Contains
	checkCells(t, f, columns.TypeText, []cellCase{
		{"apple", true},
		{"banana", true},
		{"cherry", false},
	})
}

func TestNumericFilter(t *testing.T) {
	checkCells(t, TextFilter{Operand: "12"}, columns.TypeNumeric, []cellCase{
		{"12.0", true},
		{"120", false},
		{"abc", false},
	})
	checkCells(t, TextFilter{Operand: "1, 3", Condition: NotEquals}, columns.TypeNumeric, []cellCase{
		{"1", false},
		{"2", true},
		{"3.0", false},
	})
	// Malformed operand matches nothing
	checkCells(t, TextFilter{Operand: "abc"}, columns.TypeNumeric, []cellCase{
		{"1", false},
	})
}

func TestCategoricalFilter(t *testing.T) {
	checkCells(t, TextFilter{Operand: "Open"}, columns.TypeCategorical, []cellCase{
		{"Open-High", true},
		{"Op", true},
		{"open", false},
	})
	checkCells(t, TextFilter{Operand: "Open, Closed", Condition: Equals}, columns.TypeCategorical, []cellCase{
		{"Open", true},
		{"Closed", true},
		{"Open-High", false},
	})
}

func TestSetFilter(t *testing.T) {
	checkCells(t, SetFilter{Values: []string{"A", EmptySentinel}}, columns.TypeCategorical, []cellCase{
		{"A", true},
		{"B", false},
		{"", true},
	})
	checkCells(t, SetFilter{Values: []string{"A", EmptySentinel}, Condition: NotEquals}, columns.TypeCategorical, []cellCase{
		{"A", false},
		{"B", true},
		{"", false},
	})
	checkCells(t, SetFilter{Values: []string{"A"}}, columns.TypeCategorical, []cellCase{
		{"", false},
	})
}

func TestDateFilterEmptyOnly(t *testing.T) {
	checkCells(t, DateFilter{IncludeEmpty: true}, columns.TypeDate, []cellCase{
		{"", true},
		{"   ", true},
		{"2024-01-10", false},
	})
}

func TestDateFilterBareYearStart(t *testing.T) {
	checkCells(t, DateFilter{Start: timestamps.Literal("2024")}, columns.TypeDate, []cellCase{
		{"2024-06-15", true},
		{"2024-01-01", true},
		{"2024-12-31", true},
		{"2023-12-31", false},
		{"2025-01-01", false},
		{"", false},
		{"not a date", false},
	})
}

func TestDateFilterRanges(t *testing.T) {
	tests := []struct {
		name   string
		filter DateFilter
		cases  []cellCase
	}{
		{
			name:   "year-month start",
			filter: DateFilter{Start: timestamps.Literal("2024-02")},
			cases:  []cellCase{{"2024-02-29", true}, {"2024-02-01", true}, {"2024-03-01", false}},
		},
		{
			name:   "explicit year end",
			filter: DateFilter{Start: timestamps.Literal("2024-03-10"), End: timestamps.Literal("2025")},
			cases:  []cellCase{{"2025-12-31", true}, {"2024-03-09", false}, {"2026-01-01", false}},
		},
		{
			name:   "end only, day granular",
			filter: DateFilter{End: timestamps.Literal("10/01/2024")},
			cases:  []cellCase{{"2024-01-10 23:59", true}, {"2024-01-11", false}, {"1999", true}},
		},
		{
			name:   "rolling window",
			filter: DateFilter{Start: timestamps.Today(-7), End: timestamps.Today(0)},
			cases:  []cellCase{{"2024-06-08", true}, {"2024-06-07", false}, {"2024-06-15 23:00", true}, {"2024-06-16", false}},
		},
		{
			name:   "empty plus range",
			filter: DateFilter{Start: timestamps.Literal("2024-01-01"), IncludeEmpty: true},
			cases:  []cellCase{{"", true}, {"2024-05-01", true}, {"2023-05-01", false}},
		},
		{
			name:   "broken bound",
			filter: DateFilter{Start: timestamps.Literal("whenever"), IncludeEmpty: true},
			cases:  []cellCase{{"2024-05-01", false}, {"", true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCells(t, tt.filter, columns.TypeDate, tt.cases)
		})
	}
}

func TestDateFilterExactSetWinsOverRange(t *testing.T) {
	exact := DateFilter{Values: []string{"2024-01-10"}}
	both := DateFilter{Values: []string{"2024-01-10"}, Start: timestamps.Literal("2030"), IncludeEmpty: true}
	cells := []cellCase{{"2024-01-10", true}, {"10/01/2024", true}, {"2030-06-01", false}, {"", false}}
	checkCells(t, exact, columns.TypeDate, cells)
	checkCells(t, both, columns.TypeDate, cells)
}

func TestExpandBounds(t *testing.T) {
	tests := []struct {
		start, end         string
		wantStart, wantEnd string
	}{
		{"2024", "", "2024-01-01", "2024-12-31"},
		{"2024-02", "", "2024-02-01", "2024-02-29"},
		{"2023-02", "", "2023-02-01", "2023-02-28"},
		{"2024", "2026", "2024-01-01", "2026-12-31"},
		{"2024-01-05", "2024-04", "2024-01-05", "2024-04-30"},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		s, e := ExpandBounds(tt.start, tt.end)
		if s != tt.wantStart || e != tt.wantEnd {
			t.Errorf("ExpandBounds(%q, %q) = %q, %q; want %q, %q", tt.start, tt.end, s, e, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestEmptyFiltersAreNoOps(t *testing.T) {
	for _, f := range []ColumnFilter{DateFilter{}, SetFilter{}, TextFilter{Operand: " , "}} {
		if _, ok := Compile(f, columns.TypeText, testEnv()); ok {
			t.Errorf("Expected %s filter without criteria to be a no-op", f.Kind())
		}
		if !Matches("", f, columns.TypeText, testEnv()) {
			t.Errorf("Expected no-op %s filter to match", f.Kind())
		}
	}
}

func TestTableSet(t *testing.T) {
	pred, ok := CompileTableSet([]string{"x", EmptySentinel})
	if !ok {
		t.Fatal("Expected table set to compile")
	}
	if pred("", false) {
		t.Error("Absent cell must fail")
	}
	if !pred("", true) {
		t.Error("Empty cell must pass with the empty sentinel")
	}
	if !pred("x", true) || pred("y", true) {
		t.Error("Unexpected membership result")
	}
	if _, ok := CompileTableSet(nil); ok {
		t.Error("Expected empty set to be a no-op")
	}
}
