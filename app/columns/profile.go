package columns

import (
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"thebridge/app/interfaces"
	"thebridge/app/timestamps"
)

// Profile memoizes per-column facts for one loaded dataset. A new dataset
// load must build a new Profile; nothing here is ever invalidated in place.
type Profile struct {
	data *interfaces.StageResult
	opts Options

	typesOnce sync.Once
	types     map[string]ColumnType

	mu     sync.Mutex
	unique map[string][]string
}

// NewProfile creates a profile over data.
func NewProfile(data *interfaces.StageResult, opts Options) *Profile {
	if data == nil {
		data = &interfaces.StageResult{}
	}
	return &Profile{
		data:   data,
		opts:   opts.normalized(),
		unique: make(map[string][]string),
	}
}

// Types returns the column classification, computed once per profile.
func (p *Profile) Types() map[string]ColumnType {
	p.typesOnce.Do(func() {
		p.types = DetectColumnTypes(p.data, p.opts)
	})
	return p.types
}

// TypeOf returns the detected type of column, or TypeText for unknown columns.
func (p *Profile) TypeOf(column string) ColumnType {
	if t, ok := p.Types()[column]; ok {
		return t
	}
	return TypeText
}

// UniqueValues returns the distinct non-empty values of column sorted ascending.
func (p *Profile) UniqueValues(column string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.unique[column]; ok {
		return cached
	}
	idx := p.data.ColumnIndex(column)
	if idx < 0 {
		return []string{}
	}
	values := lo.Uniq(p.nonEmpty(idx))
	sort.Strings(values)
	p.unique[column] = values
	return values
}

// FrequentValues returns up to maxItems values occurring at least minCount
// times, most frequent first (ties keep first appearance). When no value
// reaches minCount the most frequent maxItems are returned instead.
func (p *Profile) FrequentValues(column string, minCount, maxItems int) []string {
	idx := p.data.ColumnIndex(column)
	if idx < 0 || maxItems <= 0 {
		return []string{}
	}
	values := p.nonEmpty(idx)
	counts := lo.CountValues(values)
	ordered := lo.Uniq(values)
	sort.SliceStable(ordered, func(i, j int) bool {
		return counts[ordered[i]] > counts[ordered[j]]
	})

	frequent := lo.Filter(ordered, func(v string, _ int) bool {
		return counts[v] >= minCount
	})
	if len(frequent) == 0 {
		frequent = ordered
	}
	if len(frequent) > maxItems {
		frequent = frequent[:maxItems]
	}
	return frequent
}

func (p *Profile) nonEmpty(idx int) []string {
	out := make([]string, 0, len(p.data.Rows))
	for _, row := range p.data.Rows {
		v := row.Value(idx)
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DateTreeDay is one day of a date column with the raw values that fall on it.
type DateTreeDay struct {
	Day    string   `json:"day"`
	Date   string   `json:"date"` // YYYY-MM-DD
	Count  int      `json:"count"`
	Values []string `json:"values"`
}

// DateTreeMonth groups the days of one month.
type DateTreeMonth struct {
	Month string        `json:"month"`
	Count int           `json:"count"`
	Days  []DateTreeDay `json:"days"`
}

// DateTreeYear groups the months of one year.
type DateTreeYear struct {
	Year   string          `json:"year"`
	Count  int             `json:"count"`
	Months []DateTreeMonth `json:"months"`
}

// DateTree groups the parseable values of column by year, month and day,
// all ascending. Unparseable values are skipped.
func (p *Profile) DateTree(column string) []DateTreeYear {
	idx := p.data.ColumnIndex(column)
	if idx < 0 {
		return []DateTreeYear{}
	}

	type dayBucket struct {
		count  int
		values []string
	}
	byDay := make(map[string]*dayBucket)
	for _, v := range p.nonEmpty(idx) {
		t, ok := timestamps.ParseFlexibleDate(v)
		if !ok {
			continue
		}
		key := t.Format(timestamps.ISODateLayout)
		b, ok := byDay[key]
		if !ok {
			b = &dayBucket{}
			byDay[key] = b
		}
		b.count++
		if !lo.Contains(b.values, v) {
			b.values = append(b.values, v)
		}
	}

	days := lo.Keys(byDay)
	sort.Strings(days)

	var tree []DateTreeYear
	for _, day := range days {
		y, m, d := day[:4], day[5:7], day[8:10]
		if len(tree) == 0 || tree[len(tree)-1].Year != y {
			tree = append(tree, DateTreeYear{Year: y})
		}
		year := &tree[len(tree)-1]
		if len(year.Months) == 0 || year.Months[len(year.Months)-1].Month != m {
			year.Months = append(year.Months, DateTreeMonth{Month: m})
		}
		month := &year.Months[len(year.Months)-1]
		b := byDay[day]
		month.Days = append(month.Days, DateTreeDay{Day: d, Date: day, Count: b.count, Values: b.values})
		month.Count += b.count
		year.Count += b.count
	}
	if tree == nil {
		tree = []DateTreeYear{}
	}
	return tree
}
