package query

import (
	"strings"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/interfaces"
)

// Type aliases to interfaces package to avoid duplication and circular dependencies
type ProgressCallback = interfaces.ProgressCallback
type Row = interfaces.Row
type StageResult = interfaces.StageResult

// PipelineStage represents a single stage in the query pipeline
type PipelineStage interface {
	// Execute processes the input data and returns a stage result
	Execute(input *StageResult) (*StageResult, error)

	// CanCache returns true if this stage's results can be cached
	CanCache() bool

	// CacheKey returns a unique key for caching this stage's results
	CacheKey() string

	// Name returns the stage name for progress reporting
	Name() string

	// EstimateOutputSize estimates the output size relative to input (0.0-1.0+)
	EstimateOutputSize() float64
}

// Warning reports a filter that was skipped instead of failing the query.
type Warning struct {
	Column string `json:"column"`
	Layer  string `json:"layer"` // "filter", "table", "duplicate" or "sort"
	Reason string `json:"reason"`
}

// QueryResult contains the final result of pipeline execution
type QueryResult struct {
	Header   []string
	Rows     []*Row // Rows in display order, DisplayIndex assigned
	Total    int64
	Cached   bool
	Warnings []Warning
}

// Page returns rows [offset, offset+limit) of the result. A non-positive
// limit returns everything from offset.
func (r *QueryResult) Page(offset, limit int) []*Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(r.Rows) {
		return []*Row{}
	}
	end := len(r.Rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return r.Rows[offset:end]
}

// SortDirection represents sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec orders the result by one column. Column may carry a JSONPath
// suffix, e.g. "details{$.priority}".
type SortSpec struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// Descending reports whether the spec sorts high to low.
func (s SortSpec) Descending() bool {
	return strings.EqualFold(string(s.Direction), string(SortDesc))
}

// DuplicateFilter keeps only rows whose key over Columns is one of Keys.
type DuplicateFilter struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Keys    []string `json:"keys"`
}

// Request is the complete filter state the planner evaluates.
type Request struct {
	// ActiveFilters maps column to the type it had when the filter was made.
	// A column here without an entry in Filters (or the reverse) is inert.
	ActiveFilters map[string]columns.ColumnType
	Filters       map[string]filter.ColumnFilter

	// TableFilters is the independent header-icon layer: column to value set.
	TableFilters map[string][]string

	Duplicate    *DuplicateFilter
	GlobalSearch string
	Sort         *SortSpec
}

const (
	// ProgressUpdateInterval defines how often to report progress
	ProgressUpdateInterval = interfaces.ProgressUpdateInterval

	// MinRowsForProgress is the minimum rows before showing progress
	MinRowsForProgress = 5000
)

// CacheConfig controls caching behavior
type CacheConfig struct {
	EnablePipelineCache bool  // Cache full pipeline results
	EnableStageCache    bool  // Cache individual stage results
	CacheSizeLimit      int64 // Unified cache size limit
}

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfigFromSettings(true, 100)
}

// CacheConfigFromSettings creates cache config based on user settings
func CacheConfigFromSettings(enableCache bool, sizeMB int) CacheConfig {
	return CacheConfig{
		EnablePipelineCache: enableCache,
		EnableStageCache:    enableCache,
		CacheSizeLimit:      int64(sizeMB) * 1024 * 1024,
	}
}
