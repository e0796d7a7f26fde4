package columns

import (
	"reflect"
	"testing"
)

func TestProfileTypesAreStable(t *testing.T) {
	data := makeData([]string{"due"}, []string{"2024-01-10"}, []string{"2024-02-11"})
	p := NewProfile(data, DefaultOptions())
	first := p.TypeOf("due")

	// Mutating rows after the first classification must not reclassify
	data.Rows[0].Data[0] = "not a date"
	data.Rows[1].Data[0] = "still not"
	if got := p.TypeOf("due"); got != first {
		t.Errorf("Expected stable %s, got %s", first, got)
	}
	if got := p.TypeOf("missing"); got != TypeText {
		t.Errorf("Expected text for unknown column, got %s", got)
	}
}

func TestUniqueValues(t *testing.T) {
	data := makeData([]string{"s"}, []string{"b"}, []string{"a"}, []string{""}, []string{"b"}, []string{"C"})
	p := NewProfile(data, DefaultOptions())
	want := []string{"C", "a", "b"}
	if got := p.UniqueValues("s"); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := p.UniqueValues("nope"); len(got) != 0 {
		t.Errorf("Expected no values for unknown column, got %v", got)
	}
}

func TestFrequentValues(t *testing.T) {
	var rows [][]string
	add := func(v string, n int) {
		for i := 0; i < n; i++ {
			rows = append(rows, []string{v})
		}
	}
	add("low", 2)
	add("tie-first", 6)
	add("most", 9)
	add("tie-second", 6)
	add("", 20)
	p := NewProfile(makeData([]string{"c"}, rows...), DefaultOptions())

	want := []string{"most", "tie-first", "tie-second"}
	if got := p.FrequentValues("c", 5, 10); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if got := p.FrequentValues("c", 5, 1); !reflect.DeepEqual(got, []string{"most"}) {
		t.Errorf("Expected maxItems cap, got %v", got)
	}
	// Nothing reaches the minimum: fall back to top by count
	want = []string{"most", "tie-first", "tie-second", "low"}
	if got := p.FrequentValues("c", 50, 10); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected fallback %v, got %v", want, got)
	}
}

func TestDateTree(t *testing.T) {
	data := makeData([]string{"d"},
		[]string{"2024-02-01"},
		[]string{"01/02/2024"},
		[]string{"2023-12-31"},
		[]string{"garbage"},
		[]string{"2024-01-15"},
		[]string{""},
	)
	tree := NewProfile(data, DefaultOptions()).DateTree("d")
	if len(tree) != 2 {
		t.Fatalf("Expected 2 years, got %d", len(tree))
	}
	if tree[0].Year != "2023" || tree[0].Count != 1 {
		t.Errorf("Unexpected first year %+v", tree[0])
	}
	y := tree[1]
	if y.Year != "2024" || y.Count != 3 || len(y.Months) != 2 {
		t.Fatalf("Unexpected 2024 node %+v", y)
	}
	feb := y.Months[1]
	if feb.Month != "02" || len(feb.Days) != 1 {
		t.Fatalf("Unexpected February node %+v", feb)
	}
	day := feb.Days[0]
	if day.Date != "2024-02-01" || day.Count != 2 {
		t.Errorf("Expected two values on 2024-02-01, got %+v", day)
	}
	if !reflect.DeepEqual(day.Values, []string{"2024-02-01", "01/02/2024"}) {
		t.Errorf("Expected raw values kept in order, got %v", day.Values)
	}
}
