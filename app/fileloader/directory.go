package fileloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DirectoryInfo contains metadata about a discovered directory
type DirectoryInfo struct {
	RootPath   string   // Absolute path to directory
	Files      []string // Discovered file paths (absolute, sorted)
	TotalFiles int      // Files matched before MaxFiles was applied
	TotalSize  int64    // Total size in bytes of Files
}

// Truncated reports whether MaxFiles cut the match list.
func (d *DirectoryInfo) Truncated() bool {
	return d.TotalFiles > len(d.Files)
}

// DirectoryDiscoveryOptions controls file discovery behavior
type DirectoryDiscoveryOptions struct {
	Pattern         string   // Glob pattern filter (e.g., "**/*.csv", "*.json.gz")
	ExcludePatterns []string // Base name patterns to exclude
	MaxFiles        int      // Maximum files to include (0 = unlimited)
}

// IsDirectory checks if the path is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// DiscoverFiles finds the files under dirPath matching the doublestar
// pattern. Matches are sorted so a directory always loads in the same order.
func DiscoverFiles(dirPath string, options DirectoryDiscoveryOptions) (*DirectoryInfo, error) {
	if options.Pattern == "" {
		return nil, fmt.Errorf("file pattern is required (e.g., *.json.gz, **/*.csv)")
	}
	if !doublestar.ValidatePattern(options.Pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", options.Pattern)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(absPath), options.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("pattern matching failed: %w", err)
	}
	sort.Strings(matches)

	info := &DirectoryInfo{RootPath: absPath}
	for _, match := range matches {
		if excluded(match, options.ExcludePatterns) {
			continue
		}
		info.TotalFiles++
		if options.MaxFiles > 0 && len(info.Files) >= options.MaxFiles {
			continue
		}
		full := filepath.Join(absPath, filepath.FromSlash(match))
		st, err := os.Stat(full)
		if err != nil {
			continue
		}
		info.Files = append(info.Files, full)
		info.TotalSize += st.Size()
	}

	if len(info.Files) == 0 {
		return nil, fmt.Errorf("no files matching %q in %s", options.Pattern, absPath)
	}
	return info, nil
}

func excluded(match string, patterns []string) bool {
	base := filepath.Base(match)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// loadDirectory reads every discovered file and merges them under the union
// of their headers, ordered by first appearance. Cells a file lacks are
// empty. With IncludeSourceColumn the path relative to the root is appended.
func loadDirectory(ctx context.Context, info *DirectoryInfo, options FileOptions) (*table, []string, error) {
	fileOptions := options
	fileOptions.IsDirectory = false

	headerIndex := make(map[string]int)
	var header []string
	var merged [][]string
	var sources []string
	var warnings []string

	for _, path := range info.Files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		t, _, warning, err := loadFile(path, fileOptions)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if warning != "" {
			warnings = append(warnings, filepath.Base(path)+": "+warning)
		}

		mapping := make([]int, len(t.header))
		for i, col := range t.header {
			idx, ok := headerIndex[col]
			if !ok {
				idx = len(header)
				headerIndex[col] = idx
				header = append(header, col)
			}
			mapping[i] = idx
		}

		rel, err := filepath.Rel(info.RootPath, path)
		if err != nil {
			rel = path
		}
		for _, rec := range t.rows {
			row := make([]string, len(header))
			for i, v := range rec {
				if i < len(mapping) {
					row[mapping[i]] = v
				}
			}
			merged = append(merged, row)
			sources = append(sources, filepath.ToSlash(rel))
		}
	}

	if options.IncludeSourceColumn {
		header = append(header, SourceColumn)
		last := len(header) - 1
		for i, row := range merged {
			full := make([]string, len(header))
			copy(full, row)
			full[last] = sources[i]
			merged[i] = full
		}
	}
	return &table{header: NormalizeHeaders(header), rows: merged}, warnings, nil
}
