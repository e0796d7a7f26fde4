package presets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"thebridge/app/columns"
	"thebridge/app/filter"
	"thebridge/app/filterstate"
	"thebridge/app/timestamps"
)

func sampleState() *filterstate.FilterState {
	s := filterstate.New()
	s.SetText("owner", columns.TypeText, "ana", filter.NotEquals)
	s.SetValues("status", columns.TypeCategorical, []string{"Open", filter.EmptySentinel}, filter.Contains)
	s.SetDateRange("due", timestamps.Today(-7), timestamps.DateExpr{}, true)
	s.SetDateValues("seen", []string{"2024-01-10"})
	s.SetGlobalSearch("urgent, fix")
	return s
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yml")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, path
}

func TestSaveAndApplySurvivesReopen(t *testing.T) {
	s, path := openStore(t)
	headers := []string{"owner", "status", "due", "seen"}
	state := sampleState()

	p, err := s.Save("mine", state, headers, "Critical")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if p.ID == "" || p.HeaderHash != HeaderHash(headers) {
		t.Errorf("Unexpected preset %+v", p)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Apply("mine", headers)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got.ToRequest(), state.ToRequest()) {
		t.Errorf("Expected applied state to match\n got %+v\nwant %+v", got.ToRequest(), state.ToRequest())
	}
	if list := reopened.List(); len(list) != 1 || list[0].LinkedUrgencyCard != "Critical" {
		t.Errorf("Unexpected list %+v", list)
	}
}

func TestApplyRejectsHeaderMismatch(t *testing.T) {
	s, _ := openStore(t)
	headers := []string{"a", "b"}
	if _, err := s.Save("p", sampleState(), headers, ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		headers []string
	}{
		{"reordered", []string{"b", "a"}},
		{"extra column", []string{"a", "b", "c"}},
		{"renamed", []string{"a", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := s.Apply("p", tt.headers)
			if state != nil {
				t.Error("Expected no state on mismatch")
			}
			if !errors.Is(err, ErrHeaderMismatch) {
				t.Fatalf("Expected ErrHeaderMismatch, got %v", err)
			}
			var mismatch *HeaderMismatchError
			if !errors.As(err, &mismatch) || mismatch.Name != "p" {
				t.Errorf("Expected HeaderMismatchError for p, got %v", err)
			}
		})
	}
}

func TestNotFoundAndDelete(t *testing.T) {
	s, _ := openStore(t)
	if _, err := s.Apply("nope", nil); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound, got %v", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrPresetNotFound) {
		t.Errorf("Expected ErrPresetNotFound on delete, got %v", err)
	}
	if _, err := s.Save("b", nil, nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("a", nil, nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("b", sampleState(), nil, ""); err != nil {
		t.Fatal(err)
	}
	list := s.List()
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "b" {
		t.Fatalf("Expected [a b], got %+v", list)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if len(s.List()) != 1 {
		t.Errorf("Expected 1 preset after delete, got %d", len(s.List()))
	}
	if _, err := s.Save("  ", nil, nil, ""); err == nil {
		t.Error("Expected blank name to be rejected")
	}
}

func TestQuickFilters(t *testing.T) {
	s, path := openStore(t)
	headers := []string{"status"}
	state := filterstate.New()
	state.SetValues("status", columns.TypeCategorical, []string{"Open"}, filter.Contains)

	p, err := s.SaveQuick("open", state, headers, QuickOptions{Container: "c1", ContainerTitle: " Tickets "})
	if err != nil {
		t.Fatal(err)
	}
	if p.HubType != DefaultHubType || p.ContainerTitle != "Tickets" {
		t.Errorf("Unexpected quick filter %+v", p)
	}
	if _, err := s.SaveQuick("dq", state, headers, QuickOptions{HubType: "dq"}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.ListQuick("ops"); len(got) != 1 || got[0].Name != "open" {
		t.Errorf("Expected only the ops filter, got %+v", got)
	}
	if got := reopened.ListQuick(""); len(got) != 2 {
		t.Errorf("Expected 2 quick filters, got %d", len(got))
	}
	applied, err := reopened.ApplyQuick("open", headers)
	if err != nil {
		t.Fatal(err)
	}
	if typ, _ := applied.Type("status"); typ != columns.TypeCategorical {
		t.Errorf("Expected categorical status, got %q", typ)
	}
	if err := reopened.DeleteQuick("dq"); err != nil {
		t.Fatal(err)
	}
	if len(reopened.ListQuick("")) != 1 {
		t.Error("Expected dq removed")
	}
}

func TestNewStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yml")
	if err := writeFile(path, "presets: [unclosed\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path); err == nil {
		t.Error("Expected parse error")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestSuffixNamedColumnsSurviveReopen(t *testing.T) {
	s, path := openStore(t)
	headers := []string{"project", "project_end", "audit_condition"}
	state := filterstate.New()
	state.SetText("project_end", columns.TypeText, "Q3", filter.NotContains)
	state.SetDateRange("project", timestamps.Literal("2024"), timestamps.DateExpr{}, false)
	state.SetValues("audit_condition", columns.TypeCategorical, []string{"ok"}, filter.Contains)

	if _, err := s.Save("suffixes", state, headers, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Apply("suffixes", headers)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !reflect.DeepEqual(got.Summary(), state.Summary()) {
		t.Errorf("Expected summary %+v, got %+v", state.Summary(), got.Summary())
	}
	if !reflect.DeepEqual(got.ToRequest(), state.ToRequest()) {
		t.Errorf("Expected applied state to match\n got %+v\nwant %+v", got.ToRequest(), state.ToRequest())
	}
}
