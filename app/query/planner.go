package query

import (
	"context"
	"log"
	"slices"
	"strings"
	"time"

	"thebridge/app/cache"
	"thebridge/app/filter"
	"thebridge/app/timestamps"
)

// Planner turns a Request into a pipeline and runs it. It holds no filter
// state of its own; every run is a function of its inputs and the clock.
type Planner struct {
	cache       *cache.Cache
	cacheConfig CacheConfig
	progress    ProgressCallback
	clock       timestamps.Clock
	location    *time.Location
}

// NewPlanner creates a planner. c may be nil to disable caching.
func NewPlanner(c *cache.Cache, cacheConfig CacheConfig) *Planner {
	return &Planner{
		cache:       c,
		cacheConfig: cacheConfig,
		progress:    NoOpProgressCallback,
		clock:       time.Now,
		location:    time.Local,
	}
}

// SetClock replaces the clock used to resolve TODAY-relative bounds
func (p *Planner) SetClock(clock timestamps.Clock) {
	if clock != nil {
		p.clock = clock
	}
}

// SetLocation sets the timezone TODAY is resolved in
func (p *Planner) SetLocation(loc *time.Location) {
	if loc != nil {
		p.location = loc
	}
}

// Env returns the clock reading and timezone filters are evaluated with
func (p *Planner) Env() filter.Env {
	return filter.Env{Now: p.clock(), Location: p.location}
}

// SetProgress sets the progress callback
func (p *Planner) SetProgress(progress ProgressCallback) {
	if progress != nil {
		p.progress = progress
	}
}

// SetCacheConfig updates caching behavior
func (p *Planner) SetCacheConfig(config CacheConfig) {
	p.cacheConfig = config
}

// ApplyFilters derives the visible rows from data: column filters (AND),
// the header-icon layer, the duplicate filter, global search, then a
// stable sort. datasetHash keys the result cache; pass "" to bypass it.
// Filters that reference absent columns exclude nothing and are reported
// as warnings.
func (p *Planner) ApplyFilters(ctx context.Context, data *StageResult, datasetHash string, req Request) (*QueryResult, error) {
	if data == nil {
		data = &StageResult{}
	}
	// Snapshot the row slice so concurrent reloads cannot change it mid-run
	input := &StageResult{
		Header: slices.Clone(data.Header),
		Rows:   slices.Clone(data.Rows),
	}

	env := filter.Env{Now: p.clock(), Location: p.location}
	pipeline := p.buildPipeline(ctx, datasetHash, req, env)
	warnings := CheckColumns(input.Header, req)
	for _, w := range warnings {
		log.Printf("[FILTER_NOOP] %s column %q: %s", w.Layer, w.Column, w.Reason)
	}

	result, err := pipeline.Execute(input)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings
	log.Printf("[QUERY] %d of %d rows (cached=%v, stages=%d)", result.Total, len(input.Rows), result.Cached, len(pipeline.GetStages()))
	return result, nil
}

func (p *Planner) buildPipeline(ctx context.Context, datasetHash string, req Request, env filter.Env) *QueryPipeline {
	b := NewPipelineBuilder(ctx, datasetHash, p.cache, p.progress, p.cacheConfig)

	// Conjunctive, so order only matters for cache reuse: keep it stable
	for _, column := range sortedKeys(req.ActiveFilters) {
		f, ok := req.Filters[column]
		if !ok || f == nil || f.Empty() {
			continue
		}
		b.AddColumnFilter(NewColumnFilterStage(column, req.ActiveFilters[column], f, env))
	}
	if hasTableFilters(req.TableFilters) {
		b.AddTableFilters(req.TableFilters)
	}
	if req.Duplicate != nil && len(req.Duplicate.Columns) > 0 {
		b.AddDuplicate(*req.Duplicate)
	}
	if len(filter.SplitTerms(req.GlobalSearch)) > 0 {
		b.AddGlobalSearch(req.GlobalSearch)
	}
	if req.Sort != nil && strings.TrimSpace(req.Sort.Column) != "" {
		b.AddSort(NewSortStage([]string{req.Sort.Column}, []bool{req.Sort.Descending()}).WithLocation(env.Location))
	}
	return b.Build()
}

func hasTableFilters(m map[string][]string) bool {
	for _, v := range m {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// CheckColumns lists the filters of req that reference columns absent from
// header. It is cheap and independent of row data.
func CheckColumns(header []string, req Request) []Warning {
	var warnings []Warning
	missing := func(column string) bool { return indexOf(header, column) < 0 }

	for _, column := range sortedKeys(req.ActiveFilters) {
		f, ok := req.Filters[column]
		if !ok || f == nil || f.Empty() {
			continue
		}
		if missing(column) {
			warnings = append(warnings, Warning{Column: column, Layer: "filter", Reason: "column not present in dataset"})
		}
	}
	for _, column := range sortedKeys(req.TableFilters) {
		if len(req.TableFilters[column]) > 0 && missing(column) {
			warnings = append(warnings, Warning{Column: column, Layer: "table", Reason: "column not present in dataset"})
		}
	}
	if req.Duplicate != nil {
		for _, column := range req.Duplicate.Columns {
			if missing(column) {
				warnings = append(warnings, Warning{Column: column, Layer: "duplicate", Reason: "column not present in dataset, treated as empty"})
			}
		}
	}
	if req.Sort != nil && req.Sort.Column != "" {
		if resolveColumn(header, req.Sort.Column).index < 0 {
			warnings = append(warnings, Warning{Column: req.Sort.Column, Layer: "sort", Reason: "column not present in dataset"})
		}
	}
	return warnings
}

// ApplyFilters runs req over data without caching, resolving TODAY in the
// local timezone.
func ApplyFilters(data *StageResult, req Request) *QueryResult {
	result, err := NewPlanner(nil, CacheConfig{}).ApplyFilters(context.Background(), data, "", req)
	if err != nil {
		// only cancellation fails a run
		log.Printf("[QUERY] unexpected planner error: %v", err)
		return &QueryResult{}
	}
	return result
}
