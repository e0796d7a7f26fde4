package fileloader

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadDirectoryNoHeaderRow(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "test.csv", []byte("data1,data2,data3\nrow2_1,row2_2,row2_3\n"))

	options := FileOptions{
		NoHeaderRow: true,
		IsDirectory: true,
		FilePattern: "*.csv",
	}
	r, err := Load(context.Background(), tmpDir, options)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expectedHeaders := []string{"Unnamed_A", "Unnamed_B", "Unnamed_C"}
	if !reflect.DeepEqual(r.Data.Header, expectedHeaders) {
		t.Errorf("Expected headers %v, got %v", expectedHeaders, r.Data.Header)
	}
	if len(r.Data.Rows) != 2 || r.Data.Rows[0].Data[0] != "data1" {
		t.Errorf("Expected the first line as data, got %v", cells(t, r))
	}
}

func TestLoadDirectoryUnionHeader(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, tmpDir, "a.csv", []byte("id,status\n1,Open\n"))
	writeTestFile(t, tmpDir, "nested/b.csv", []byte("id,owner\n2,ana\n"))
	writeTestFile(t, tmpDir, "nested/skip.txt", []byte("ignored\n"))

	r, err := Load(context.Background(), tmpDir, FileOptions{
		IsDirectory:         true,
		FilePattern:         "**/*.csv",
		IncludeSourceColumn: true,
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Files != 2 {
		t.Errorf("Expected 2 files, got %d", r.Files)
	}
	wantHeader := []string{"id", "status", "owner", SourceColumn}
	if !reflect.DeepEqual(r.Data.Header, wantHeader) {
		t.Errorf("Expected header %v, got %v", wantHeader, r.Data.Header)
	}
	want := [][]string{
		{"1", "Open", "", "a.csv"},
		{"2", "", "ana", "nested/b.csv"},
	}
	if got := cells(t, r); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected rows %v, got %v", want, got)
	}
}

func TestDiscoverFiles(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"c.csv", "a.csv", "b.csv", "sub/d.csv"} {
		writeTestFile(t, tmpDir, name, []byte("x\n1\n"))
	}

	info, err := DiscoverFiles(tmpDir, DirectoryDiscoveryOptions{Pattern: "*.csv", ExcludePatterns: []string{"b.*"}})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range info.Files {
		names = append(names, filepath.Base(f))
	}
	if !reflect.DeepEqual(names, []string{"a.csv", "c.csv"}) {
		t.Errorf("Expected [a.csv c.csv], got %v", names)
	}

	if _, err := DiscoverFiles(tmpDir, DirectoryDiscoveryOptions{}); err == nil {
		t.Error("Expected an error without a pattern")
	}
	if _, err := DiscoverFiles(tmpDir, DirectoryDiscoveryOptions{Pattern: "*.json"}); err == nil {
		t.Error("Expected an error when nothing matches")
	}

	r, err := LoadWithLimits(context.Background(), tmpDir, FileOptions{IsDirectory: true, FilePattern: "**/*.csv"}, Limits{MaxDirectoryFiles: 2})
	if err != nil {
		t.Fatal(err)
	}
	if r.Files != 2 || !strings.Contains(r.Warning, "2 of 4") {
		t.Errorf("Expected a truncation warning, got %d files, %q", r.Files, r.Warning)
	}
}
