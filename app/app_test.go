package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/filterstate"
	"thebridge/app/interfaces"
	"thebridge/app/presets"
	"thebridge/app/settings"
)

type recordedEvent struct {
	name string
	data any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) emit(_ context.Context, event string, data ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var payload any
	if len(data) > 0 {
		payload = data[0]
	}
	r.events = append(r.events, recordedEvent{name: event, data: payload})
}

func (r *eventRecorder) named(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestApp(t *testing.T) (*App, *eventRecorder, string) {
	t.Helper()
	dir := t.TempDir()
	s := settings.Defaults()
	s.CategoricalThreshold = 1
	s.DebounceMs = 0
	s.PresetsFile = filepath.Join(dir, "presets.yml")

	a := NewAppWithSettings(s)
	rec := &eventRecorder{}
	a.emit = rec.emit
	a.Startup(context.Background())
	return a, rec, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndFilter(t *testing.T) {
	a, rec, dir := newTestApp(t)
	path := writeFile(t, dir, "tickets.csv", "status,owner,due\nOpen,ana,2024-01-02\nClosed,bob,2024-02-03\nOpen,cy,\n")

	report, err := a.LoadFile(path, interfaces.FileOptions{}, false)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if report.Rows != 3 || report.Total != 3 {
		t.Errorf("Expected 3 rows, got %d (total %d)", report.Rows, report.Total)
	}
	if len(rec.named(EventDataset)) != 1 {
		t.Error("Expected a dataset:loaded event")
	}

	types, err := a.GetColumnTypes()
	if err != nil {
		t.Fatal(err)
	}
	if types["status"] != columns.TypeCategorical || types["due"] != columns.TypeDate {
		t.Errorf("Unexpected column types %v", types)
	}

	out, err := a.SetFilter("status", filterstate.Patch{Kind: filterstate.PatchValues, Values: []string{"Open"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 {
		t.Errorf("Expected 2 rows, got %d", out.Total)
	}
	if out.State.Count != 1 {
		t.Errorf("Expected 1 active filter, got %d", out.State.Count)
	}

	out, err = a.SetFilter("due", filterstate.Patch{Kind: filterstate.PatchDate, IncludeEmpty: true})
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 {
		t.Errorf("Expected 1 row, got %d", out.Total)
	}

	page, err := a.GetRows(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Rows) != 1 || page.Rows[0].Data[1] != "cy" {
		t.Errorf("Expected the cy row, got %+v", page.Rows)
	}

	out, err = a.SetCondition("status", string(filter.NotEquals))
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 0 {
		t.Errorf("Expected 0 rows, got %d", out.Total)
	}

	if out, err = a.ClearFilters(); err != nil || out.Total != 3 {
		t.Errorf("Expected 3 rows after clearing, got %+v %v", out, err)
	}
}

func TestColumnQueriesBeforeLoad(t *testing.T) {
	a, _, _ := newTestApp(t)
	if _, err := a.GetUniqueValues("x"); !errors.Is(err, filterstate.ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset, got %v", err)
	}
	if _, err := a.GetRows(0, 10); !errors.Is(err, filterstate.ErrNoDataset) {
		t.Errorf("Expected ErrNoDataset, got %v", err)
	}
}

func TestReloadNotifiesIncompatibleFilters(t *testing.T) {
	a, rec, dir := newTestApp(t)
	first := writeFile(t, dir, "a.csv", "status,owner\nOpen,ana\nClosed,bob\nOpen,cy\n")
	second := writeFile(t, dir, "b.csv", "status,region\nOpen,eu\nOpen,us\nClosed,eu\n")

	if _, err := a.LoadFile(first, interfaces.FileOptions{}, false); err != nil {
		t.Fatal(err)
	}
	a.SetFilter("owner", filterstate.Patch{Kind: filterstate.PatchText, Operand: "ana"})
	a.SetFilter("status", filterstate.Patch{Kind: filterstate.PatchValues, Values: []string{"Open"}})

	report, err := a.LoadFile(second, interfaces.FileOptions{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.Notice != filterstate.IncompatibleMessage(1) {
		t.Errorf("Unexpected notice %q", report.Notice)
	}
	if report.Total != 2 {
		t.Errorf("Expected the status filter to survive, got %d rows", report.Total)
	}
	if len(rec.named(EventIncompatible)) != 1 {
		t.Error("Expected a filters:incompatible event")
	}
}

func TestPresetRoundTripAndRejection(t *testing.T) {
	a, rec, dir := newTestApp(t)
	first := writeFile(t, dir, "a.csv", "status,owner\nOpen,ana\nClosed,bob\nOpen,cy\n")
	second := writeFile(t, dir, "b.csv", "owner,status\nana,Open\n")

	if _, err := a.LoadFile(first, interfaces.FileOptions{}, false); err != nil {
		t.Fatal(err)
	}
	a.SetFilter("status", filterstate.Patch{Kind: filterstate.PatchValues, Values: []string{"Closed"}})
	if _, err := a.SavePreset("closed", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := a.SaveQuickFilter("quick-closed", presets.QuickOptions{}); err != nil {
		t.Fatal(err)
	}
	a.ClearFilters()

	out, err := a.ApplyPreset("closed")
	if err != nil {
		t.Fatal(err)
	}
	if out.Total != 1 {
		t.Errorf("Expected 1 row, got %d", out.Total)
	}
	quick, _ := a.ListQuickFilters(presets.DefaultHubType)
	if len(quick) != 1 {
		t.Errorf("Expected 1 quick filter, got %d", len(quick))
	}

	// same columns in another order
	if _, err := a.LoadFile(second, interfaces.FileOptions{}, false); err != nil {
		t.Fatal(err)
	}
	_, err = a.ApplyPreset("closed")
	var mismatch *presets.HeaderMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected a header mismatch, got %v", err)
	}
	if len(rec.named(EventPresetRejected)) != 1 {
		t.Error("Expected a preset:rejected event")
	}
	if a.GetFilterState().Count != 0 {
		t.Error("Expected the rejected preset to leave the filters untouched")
	}

	if err := a.DeletePreset("closed"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.ApplyPreset("closed"); !errors.Is(err, presets.ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound, got %v", err)
	}
}

func TestCacheSize(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.settings.CacheSizeLimitMB = 5
	a.UpdateCacheSize()
	if got := a.GetCacheStats().MaxSize; got != 5*1024*1024 {
		t.Errorf("Expected 5 MB limit, got %d", got)
	}
}

func TestGetSavedWindowSize(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.settings.WindowWidth, a.settings.WindowHeight = 100, 900
	w, h, err := a.GetSavedWindowSize()
	if err != nil {
		t.Fatal(err)
	}
	if w != 1024 || h != 900 {
		t.Errorf("Expected 1024x900, got %dx%d", w, h)
	}
	if err := a.SaveWindowSize(10, 10); err == nil {
		t.Error("Expected an error for a tiny window")
	}
}

func TestSupersededQueryIsNotAFailure(t *testing.T) {
	a, rec, _ := newTestApp(t)

	out, err := a.outcome(nil, fmt.Errorf("stage filter failed: %w", context.Canceled))
	if err != nil {
		t.Fatalf("Expected no error for a superseded run, got %v", err)
	}
	if out == nil || !out.Superseded {
		t.Fatalf("Expected a superseded outcome, got %+v", out)
	}
	a.publishResult(nil, context.Canceled)

	for _, e := range rec.named(EventLog) {
		if e.data.(map[string]any)["level"] == "error" {
			t.Errorf("Expected no error log, got %v", e.data)
		}
	}
	if n := len(rec.named(EventResult)); n != 0 {
		t.Errorf("Expected no result event, got %d", n)
	}
}
