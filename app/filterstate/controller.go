package filterstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/histogram"
	"thebridge/app/interfaces"
	"thebridge/app/query"
	"thebridge/app/timestamps"
)

// ErrNoDataset is returned when a recompute runs before any dataset load.
var ErrNoDataset = errors.New("no dataset loaded")

// Options configures a Controller.
type Options struct {
	Detect   columns.Options
	Debounce time.Duration // window for RecomputeDebounced; 0 recomputes immediately
	Logger   interfaces.Logger
}

// Controller owns the FilterState of one session together with the loaded
// dataset and its column profile. All mutation goes through its setters,
// each of which recomputes the visible rows.
type Controller struct {
	id      string
	planner *query.Planner
	opts    Options

	mu          sync.Mutex
	state       *FilterState
	data        *interfaces.StageResult
	datasetHash string
	profile     *columns.Profile
	last        *query.QueryResult
	cancel      context.CancelFunc
	generation  uint64 // bumped by every recompute and dataset swap

	debounced  func(func())
	onResult   func(*query.QueryResult, error)
	histograms *histogram.Versioner
}

// NewController creates a controller that runs queries on planner.
func NewController(planner *query.Planner, opts Options) *Controller {
	if planner == nil {
		planner = query.NewPlanner(nil, query.CacheConfig{})
	}
	id := uuid.New().String()
	c := &Controller{
		id:         id,
		planner:    planner,
		opts:       opts,
		state:      New(),
		histograms: histogram.NewVersioner(id),
	}
	if opts.Debounce > 0 {
		c.debounced = debounce.New(opts.Debounce)
	}
	return c
}

// SessionID identifies this controller in logs and events.
func (c *Controller) SessionID() string {
	return c.id
}

// SetLogger sets the user-facing logger; nil disables it.
func (c *Controller) SetLogger(logger interfaces.Logger) {
	c.mu.Lock()
	c.opts.Logger = logger
	c.mu.Unlock()
}

// OnResult registers fn to receive the outcome of debounced recomputes.
func (c *Controller) OnResult(fn func(*query.QueryResult, error)) {
	c.mu.Lock()
	c.onResult = fn
	c.mu.Unlock()
}

// logf must not be called with mu held.
func (c *Controller) logf(level, format string, args ...any) {
	c.mu.Lock()
	logger := c.opts.Logger
	c.mu.Unlock()
	if logger != nil {
		logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// LoadDataset replaces the dataset, classifies its columns and clears the
// filter state.
func (c *Controller) LoadDataset(ctx context.Context, data *interfaces.StageResult, datasetHash string) (*query.QueryResult, error) {
	c.mu.Lock()
	c.setDataset(data, datasetHash)
	c.state.Reset()
	c.mu.Unlock()
	return c.Recompute(ctx)
}

// ReloadDataset replaces the dataset but keeps the filter state, pruning
// every filter whose column the new header lacks. It returns the pruned
// columns.
func (c *Controller) ReloadDataset(ctx context.Context, data *interfaces.StageResult, datasetHash string) (*query.QueryResult, []string, error) {
	c.mu.Lock()
	c.setDataset(data, datasetHash)
	removed := c.state.Prune(c.data.Header)
	c.mu.Unlock()
	if len(removed) > 0 {
		c.logf("warn", "%s", IncompatibleMessage(len(removed)))
	}
	result, err := c.Recompute(ctx)
	return result, removed, err
}

func (c *Controller) setDataset(data *interfaces.StageResult, datasetHash string) {
	if data == nil {
		data = &interfaces.StageResult{}
	}
	c.data = data
	c.datasetHash = datasetHash
	c.profile = columns.NewProfile(data, c.opts.Detect)
	c.last = nil
	c.generation++
}

// ValidateCompatibility prunes every filter whose column is not in headers
// and returns the pruned columns.
func (c *Controller) ValidateCompatibility(headers []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Prune(headers)
}

// Profile returns the column profile of the loaded dataset, or nil.
func (c *Controller) Profile() *columns.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Headers returns the header of the loaded dataset.
func (c *Controller) Headers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return nil
	}
	return append([]string(nil), c.data.Header...)
}

// Data returns the loaded dataset, or nil.
func (c *Controller) Data() *interfaces.StageResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// State returns a copy of the current filter state.
func (c *Controller) State() *FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Result returns the last computed result, or nil.
func (c *Controller) Result() *query.QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// columnType returns the detected type of column, text before any load.
func (c *Controller) columnType(column string) columns.ColumnType {
	if c.profile == nil {
		return columns.TypeText
	}
	return c.profile.TypeOf(column)
}

// Update applies mutate to the state and recomputes.
func (c *Controller) Update(ctx context.Context, mutate func(s *FilterState)) (*query.QueryResult, error) {
	c.mu.Lock()
	mutate(c.state)
	c.mu.Unlock()
	return c.Recompute(ctx)
}

// UpdateDebounced applies mutate now and coalesces the recompute with
// other calls inside the debounce window. The outcome goes to OnResult.
func (c *Controller) UpdateDebounced(mutate func(s *FilterState)) {
	c.mu.Lock()
	mutate(c.state)
	c.mu.Unlock()
	c.RecomputeDebounced()
}

// ReplaceState swaps in state wholesale, as when applying a preset.
func (c *Controller) ReplaceState(ctx context.Context, state *FilterState) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) {
		sort := s.sort
		*s = *state.Clone()
		if s.sort == nil {
			s.sort = sort
		}
	})
}

// SetText sets a free text filter on column using its detected type.
func (c *Controller) SetText(ctx context.Context, column, operand string, cond filter.Condition) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) {
		s.SetText(column, c.columnType(column), operand, cond)
	})
}

// SetValues sets a checkbox selection on column. Date columns get an exact
// date selection.
func (c *Controller) SetValues(ctx context.Context, column string, values []string, cond filter.Condition) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) {
		if typ := c.columnType(column); typ == columns.TypeDate {
			s.SetDateValues(column, values)
		} else {
			s.SetValues(column, typ, values, cond)
		}
	})
}

// SetCondition changes the condition of column's filter.
func (c *Controller) SetCondition(ctx context.Context, column string, cond filter.Condition) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) {
		s.SetCondition(column, cond)
	})
}

// SetDateRange sets a date range on column. Bounds accept the TODAY±N form.
func (c *Controller) SetDateRange(ctx context.Context, column, start, end string, includeEmpty bool) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) {
		s.SetDateRange(column, timestamps.ParseDateExpr(start), timestamps.ParseDateExpr(end), includeEmpty)
	})
}

// RemoveFilter clears column's module-layer filter.
func (c *Controller) RemoveFilter(ctx context.Context, column string) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.Remove(column) })
}

// ClearFilters clears all filters but keeps the sort.
func (c *Controller) ClearFilters(ctx context.Context) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.Clear() })
}

// SetTableFilter sets the header-icon selection of column.
func (c *Controller) SetTableFilter(ctx context.Context, column string, values []string) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.SetTableFilter(column, values) })
}

// SetDuplicate sets the duplicate filter over cols to the keys that occur
// more than once in the loaded dataset. Empty cols clears it.
func (c *Controller) SetDuplicate(ctx context.Context, name string, cols []string) (*query.QueryResult, error) {
	c.mu.Lock()
	data := c.data
	c.mu.Unlock()
	var d *query.DuplicateFilter
	if len(cols) > 0 {
		d = &query.DuplicateFilter{Name: name, Columns: cols, Keys: query.FindDuplicateKeys(data, cols)}
	}
	return c.Update(ctx, func(s *FilterState) { s.SetDuplicate(d) })
}

// SetGlobalSearch sets the global search and recomputes after the
// debounce window.
func (c *Controller) SetGlobalSearch(search string) {
	c.UpdateDebounced(func(s *FilterState) { s.SetGlobalSearch(search) })
}

// SetGlobalSearchNow sets the global search and recomputes immediately.
func (c *Controller) SetGlobalSearchNow(ctx context.Context, search string) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.SetGlobalSearch(search) })
}

// ToggleSort sorts by column, flipping direction on repeat.
func (c *Controller) ToggleSort(ctx context.Context, column string) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.ToggleSort(column) })
}

// ClearSort restores dataset order.
func (c *Controller) ClearSort(ctx context.Context) (*query.QueryResult, error) {
	return c.Update(ctx, func(s *FilterState) { s.SetSort(nil) })
}

// Recompute runs the planner over the loaded dataset and the current
// state. A recompute started while another is running cancels the older
// one, and only the newest run may publish its result.
func (c *Controller) Recompute(ctx context.Context) (*query.QueryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.data == nil {
		c.mu.Unlock()
		return nil, ErrNoDataset
	}
	if c.cancel != nil {
		c.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.generation++
	gen := c.generation
	data, hash, req := c.data, c.datasetHash, c.state.ToRequest()
	c.mu.Unlock()
	defer cancel()

	result, err := c.planner.ApplyFilters(runCtx, data, hash, req)
	if err == nil {
		// the pipeline only checks between stages
		err = runCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logf("debug", "[QUERY_CANCEL] superseded recompute in session %s", c.id)
		}
		return nil, err
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logf("debug", "[QUERY_CANCEL] stale recompute in session %s", c.id)
		return nil, context.Canceled
	}
	c.last = result
	c.mu.Unlock()

	for _, w := range result.Warnings {
		c.logf("warn", "Filter on %q ignored: %s", w.Column, w.Reason)
	}
	return result, nil
}

// RecomputeDebounced schedules a recompute and delivers it to OnResult.
func (c *Controller) RecomputeDebounced() {
	run := func() {
		result, err := c.Recompute(context.Background())
		c.mu.Lock()
		fn := c.onResult
		c.mu.Unlock()
		if fn != nil {
			fn(result, err)
		}
	}
	if c.debounced == nil {
		run()
		return
	}
	c.debounced(run)
}
