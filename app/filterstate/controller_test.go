package filterstate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/interfaces"
	"thebridge/app/query"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Log(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+message)
}

func ticketData() *interfaces.StageResult {
	data := &interfaces.StageResult{Header: []string{"status", "due", "owner"}}
	for i := 0; i < 40; i++ {
		status := "Open"
		if i%2 == 1 {
			status = "Closed"
		}
		due := ""
		if i%4 != 3 {
			due = fmt.Sprintf("2024-01-%02d", i%28+1)
		}
		data.Rows = append(data.Rows, &interfaces.Row{
			RowIndex:     i,
			DisplayIndex: -1,
			Data:         []string{status, due, fmt.Sprintf("user%d", i%3)},
		})
	}
	return data
}

func newTestController(t *testing.T) (*Controller, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	c := NewController(nil, Options{Logger: logger, Detect: columns.Options{CategoricalThreshold: 10}})
	if _, err := c.LoadDataset(context.Background(), ticketData(), "h1"); err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	return c, logger
}

func TestRecomputeWithoutDataset(t *testing.T) {
	c := NewController(nil, Options{})
	if _, err := c.Recompute(context.Background()); !errors.Is(err, ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset, got %v", err)
	}
	if c.SessionID() == "" {
		t.Error("Expected a session id")
	}
}

func TestControllerUsesDetectedTypes(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	result, err := c.SetValues(ctx, "status", []string{"Open"}, filter.Contains)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 20 {
		t.Errorf("Expected 20 rows, got %d", result.Total)
	}
	if typ, _ := c.State().Type("status"); typ != columns.TypeCategorical {
		t.Errorf("Expected categorical status, got %q", typ)
	}

	// due is a date column: a value selection becomes an exact date set
	result, err = c.SetValues(ctx, "due", []string{"2024-01-01"}, filter.Contains)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := c.State().Filter("due")
	if _, ok := f.(filter.DateFilter); !ok {
		t.Fatalf("Expected a date filter, got %T", f)
	}
	for _, row := range result.Rows {
		if row.Data[0] != "Open" || row.Data[1] != "2024-01-01" {
			t.Errorf("Unexpected row %v", row.Data)
		}
	}

	if _, err := c.ClearFilters(ctx); err != nil {
		t.Fatal(err)
	}
	result, err = c.SetDateRange(ctx, "due", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 10 {
		t.Errorf("Expected 10 empty-due rows, got %d", result.Total)
	}
	if c.Result() != result {
		t.Error("Expected the last result to be retained")
	}
}

func TestControllerSortAndDuplicates(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	result, err := c.ToggleSort(ctx, "owner")
	if err != nil {
		t.Fatal(err)
	}
	if result.Rows[0].Data[2] != "user0" || result.Rows[0].RowIndex != 0 {
		t.Errorf("Expected first user0 row first, got %+v", result.Rows[0])
	}
	result, _ = c.ToggleSort(ctx, "owner")
	if result.Rows[0].Data[2] != "user2" {
		t.Errorf("Expected user2 first when descending, got %v", result.Rows[0].Data)
	}
	result, _ = c.ClearSort(ctx)
	if result.Rows[0].RowIndex != 0 || result.Rows[1].RowIndex != 1 {
		t.Error("Expected dataset order after ClearSort")
	}

	result, err = c.SetDuplicate(ctx, "status-owner", []string{"status", "owner"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 40 {
		t.Errorf("Expected every row to be part of a duplicate group, got %d", result.Total)
	}
	if d := c.State().Duplicate(); d == nil || len(d.Keys) != 6 {
		t.Errorf("Expected 6 duplicate keys, got %+v", d)
	}
}

func TestReloadPrunesIncompatibleFilters(t *testing.T) {
	c, logger := newTestController(t)
	ctx := context.Background()
	if _, err := c.SetText(ctx, "owner", "user1", filter.Equals); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SetTableFilter(ctx, "status", []string{"Open"}); err != nil {
		t.Fatal(err)
	}

	next := &interfaces.StageResult{Header: []string{"status"}, Rows: []*interfaces.Row{
		{RowIndex: 0, Data: []string{"Open"}},
		{RowIndex: 1, Data: []string{"Closed"}},
	}}
	result, removed, err := c.ReloadDataset(ctx, next, "h2")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(removed, []string{"owner"}) {
		t.Errorf("Expected [owner] removed, got %v", removed)
	}
	if result.Total != 1 {
		t.Errorf("Expected the table filter to survive, got %d rows", result.Total)
	}
	if len(logger.lines) == 0 {
		t.Error("Expected an incompatibility log line")
	}
}

func TestReplaceStateKeepsSort(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()
	c.ToggleSort(ctx, "owner")

	preset := New()
	preset.SetText("owner", "text", "user2", filter.Equals)
	result, err := c.ReplaceState(ctx, preset)
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 13 {
		t.Errorf("Expected 13 rows, got %d", result.Total)
	}
	if s := c.State().Sort(); s == nil || s.Column != "owner" {
		t.Errorf("Expected sort kept, got %+v", s)
	}
}

func TestDebouncedGlobalSearch(t *testing.T) {
	c := NewController(nil, Options{Debounce: 20 * time.Millisecond})
	if _, err := c.LoadDataset(context.Background(), ticketData(), ""); err != nil {
		t.Fatal(err)
	}
	results := make(chan *query.QueryResult, 4)
	c.OnResult(func(r *query.QueryResult, err error) {
		if err == nil {
			results <- r
		}
	})

	c.SetGlobalSearch("user")
	c.SetGlobalSearch("user1")
	c.SetGlobalSearch("user2, user1")

	select {
	case r := <-results:
		if r.Total != 26 {
			t.Errorf("Expected 26 rows, got %d", r.Total)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a debounced result")
	}
	select {
	case r := <-results:
		t.Errorf("Expected a single coalesced recompute, got another with %d rows", r.Total)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHistogramFollowsDateRange(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	resp, err := c.Histogram(ctx, "due", 100)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Dated != 30 || resp.Undated != 10 {
		t.Errorf("Expected 30 dated and 10 undated rows, got %d and %d", resp.Dated, resp.Undated)
	}

	if _, err := c.SetDateRange(ctx, "due", "2024-01-05", "2024-01-10", false); err != nil {
		t.Fatal(err)
	}
	resp, err = c.Histogram(ctx, "due", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Buckets) != 6 || resp.BucketSeconds != 24*60*60 {
		t.Errorf("Expected 6 daily buckets, got %d of %ds", len(resp.Buckets), resp.BucketSeconds)
	}
	if resp.Version != c.SessionID()+":2" {
		t.Errorf("Expected the second version, got %s", resp.Version)
	}
}

func TestSupersededRecomputeDoesNotPublish(t *testing.T) {
	var armed, paused atomic.Bool
	entered := make(chan struct{})
	release := make(chan struct{})

	planner := query.NewPlanner(nil, query.CacheConfig{})
	planner.SetProgress(func(stage string, current, total int64, message string) {
		if armed.Load() && strings.Contains(message, "completed") && paused.CompareAndSwap(false, true) {
			close(entered)
			<-release
		}
	})
	c := NewController(planner, Options{Detect: columns.Options{CategoricalThreshold: 10}})
	ctx := context.Background()
	if _, err := c.LoadDataset(ctx, ticketData(), "h1"); err != nil {
		t.Fatal(err)
	}
	armed.Store(true)

	older := make(chan error, 1)
	go func() {
		_, err := c.SetText(ctx, "status", "Open", filter.Equals)
		older <- err
	}()
	<-entered

	newer, err := c.SetText(ctx, "status", "Closed", filter.Equals)
	if err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-older; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected the older run to report cancellation, got %v", err)
	}

	if c.Result() != newer {
		t.Fatal("Expected the newer result to stay published")
	}
	for _, row := range c.Result().Rows {
		if row.Data[0] != "Closed" {
			t.Fatalf("Expected only Closed rows, got %v", row.Data)
		}
	}
}
