package filterstate

import (
	"context"
	"fmt"

	"thebridge/app/columns"
	"thebridge/app/dataset"
	"thebridge/app/query"
)

// IncompatibleMessage is the notice shown after n filters were pruned.
func IncompatibleMessage(n int) string {
	return fmt.Sprintf("%d filter(s) were incompatible with the new data and have been removed.", n)
}

// LoadReport describes a dataset load.
type LoadReport struct {
	Source  string                        `json:"source"`
	Kind    string                        `json:"kind"`
	Files   int                           `json:"files"`
	Rows    int                           `json:"rows"`
	Header  []string                      `json:"header"`
	Types   map[string]columns.ColumnType `json:"types"`
	Removed []string                      `json:"removed,omitempty"`
	Notice  string                        `json:"notice,omitempty"`
	Warning string                        `json:"warning,omitempty"`
	Total   int64                         `json:"total"`
}

// Open loads a dataset from p. With keepFilters the current filters survive
// where their columns still exist; otherwise the state is reset.
func (c *Controller) Open(ctx context.Context, p dataset.Provider, keepFilters bool) (*LoadReport, *query.QueryResult, error) {
	d, err := p.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		result  *query.QueryResult
		removed []string
	)
	if keepFilters && c.Data() != nil {
		result, removed, err = c.ReloadDataset(ctx, d.StageResult(), d.Hash)
	} else {
		result, err = c.LoadDataset(ctx, d.StageResult(), d.Hash)
	}
	if err != nil {
		return nil, nil, err
	}

	report := &LoadReport{
		Source:  d.Source,
		Kind:    d.Kind,
		Files:   d.Files,
		Rows:    len(d.Rows),
		Header:  d.Header,
		Types:   c.Profile().Types(),
		Removed: removed,
		Warning: d.Warning,
		Total:   result.Total,
	}
	if len(removed) > 0 {
		report.Notice = IncompatibleMessage(len(removed))
	}
	if d.Warning != "" {
		c.logf("warn", "%s", d.Warning)
	}
	c.logf("info", "Loaded %s: %d rows, %d columns", d.Source, len(d.Rows), len(d.Header))
	return report, result, nil
}
