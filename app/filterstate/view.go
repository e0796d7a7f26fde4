package filterstate

import (
	"context"
	"fmt"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/query"
)

// RowView is a result row as sent to a frontend.
type RowView struct {
	RowIndex     int      `json:"rowIndex"`
	DisplayIndex int      `json:"displayIndex"`
	Data         []string `json:"data"`
	Color        string   `json:"color,omitempty"`
}

// Page is one window of the current result.
type Page struct {
	Header   []string        `json:"header"`
	Rows     []RowView       `json:"rows"`
	Offset   int             `json:"offset"`
	Total    int64           `json:"total"`
	Cached   bool            `json:"cached"`
	Warnings []query.Warning `json:"warnings,omitempty"`
}

// NewPage slices result for rendering.
func NewPage(result *query.QueryResult, offset, limit int) *Page {
	rows := result.Page(offset, limit)
	page := &Page{
		Header:   result.Header,
		Rows:     make([]RowView, len(rows)),
		Offset:   max(offset, 0),
		Total:    result.Total,
		Cached:   result.Cached,
		Warnings: result.Warnings,
	}
	for i, r := range rows {
		page.Rows[i] = RowView{RowIndex: r.RowIndex, DisplayIndex: r.DisplayIndex, Data: r.Data, Color: r.Color}
	}
	return page
}

// Page returns a window of the last result, recomputing when there is none.
func (c *Controller) Page(ctx context.Context, offset, limit int) (*Page, error) {
	result := c.Result()
	if result == nil {
		var err error
		if result, err = c.Recompute(ctx); err != nil {
			return nil, err
		}
	}
	return NewPage(result, offset, limit), nil
}

// Snapshot is the serializable form of a FilterState. Module-layer filters
// use the flat key form.
type Snapshot struct {
	Filters      map[string]any                `json:"filters"`
	Types        map[string]columns.ColumnType `json:"types"`
	Table        map[string][]string           `json:"table,omitempty"`
	Duplicate    *query.DuplicateFilter        `json:"duplicate,omitempty"`
	GlobalSearch string                        `json:"globalSearch,omitempty"`
	Sort         *query.SortSpec               `json:"sort,omitempty"`
	Summary      []Chip                        `json:"summary,omitempty"`
	Count        int                           `json:"count"`
}

// Snapshot captures s.
func (s *FilterState) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{
		Filters:      c.ToFlat(),
		Types:        c.ActiveTypes(),
		Table:        c.table,
		Duplicate:    c.duplicate,
		GlobalSearch: c.globalSearch,
		Sort:         c.sort,
		Summary:      c.Summary(),
		Count:        c.Count(),
	}
}

// State rebuilds a FilterState. Summary and Count are ignored.
func (snap Snapshot) State() *FilterState {
	s := FromFlat(snap.Filters, snap.Types)
	for column, values := range snap.Table {
		s.SetTableFilter(column, values)
	}
	s.SetDuplicate(snap.Duplicate)
	if snap.GlobalSearch != "" {
		s.SetGlobalSearch(snap.GlobalSearch)
	}
	s.SetSort(snap.Sort)
	return s
}

// Patch kinds.
const (
	PatchText   = "text"
	PatchValues = "values"
	PatchDate   = "date"
)

// Patch is a single-column edit coming from a frontend.
type Patch struct {
	Kind         string           `json:"kind"`
	Operand      string           `json:"operand,omitempty"`
	Values       []string         `json:"values,omitempty"`
	Condition    filter.Condition `json:"condition,omitempty"`
	Start        string           `json:"start,omitempty"`
	End          string           `json:"end,omitempty"`
	IncludeEmpty bool             `json:"includeEmpty,omitempty"`
}

// ApplyPatch routes p to the matching setter.
func (c *Controller) ApplyPatch(ctx context.Context, column string, p Patch) (*query.QueryResult, error) {
	switch p.Kind {
	case PatchText:
		return c.SetText(ctx, column, p.Operand, p.Condition)
	case PatchValues:
		return c.SetValues(ctx, column, p.Values, p.Condition)
	case PatchDate:
		return c.SetDateRange(ctx, column, p.Start, p.End, p.IncludeEmpty)
	}
	return nil, fmt.Errorf("unknown filter kind %q", p.Kind)
}

// Outcome summarizes a recompute for a frontend: counts plus the state
// that produced them.
type Outcome struct {
	Total      int64           `json:"total"`
	Cached     bool            `json:"cached"`
	Superseded bool            `json:"superseded,omitempty"` // a newer recompute replaced this one
	Warnings   []query.Warning `json:"warnings,omitempty"`
	State      Snapshot        `json:"state"`
}

// SupersededOutcome reports a recompute that a newer one replaced.
func (c *Controller) SupersededOutcome() *Outcome {
	return &Outcome{Superseded: true, State: c.State().Snapshot()}
}

// Outcome pairs result with the current state.
func (c *Controller) Outcome(result *query.QueryResult) *Outcome {
	return &Outcome{
		Total:    result.Total,
		Cached:   result.Cached,
		Warnings: result.Warnings,
		State:    c.State().Snapshot(),
	}
}
