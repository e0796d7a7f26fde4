package app

import (
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"thebridge/app/columns"
	"thebridge/app/dataset"
	"thebridge/app/fileloader"
	"thebridge/app/filterstate"
	"thebridge/app/histogram"
	"thebridge/app/interfaces"
	"thebridge/app/plugin"
)

// OpenFileDialog opens a file selection dialog and returns the selected path
func (a *App) OpenFileDialog() (string, error) {
	return runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open dataset",
		Filters: []runtime.FileFilter{
			{DisplayName: "Data files", Pattern: "*.csv;*.tsv;*.txt;*.xlsx;*.xlsm;*.json;*.ndjson;*.jsonl;*.gz;*.bz2;*.xz;*.lz4"},
			{DisplayName: "All files", Pattern: "*"},
		},
	})
}

// OpenDirectoryDialog opens a directory selection dialog and returns the selected path
func (a *App) OpenDirectoryDialog() (string, error) {
	return runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open directory as dataset",
	})
}

// ListSheets returns the worksheet names of an Excel file.
func (a *App) ListSheets(path string) ([]string, error) {
	_, compression := fileloader.DetectFileTypeAndCompression(path)
	data, err := fileloader.DecompressFile(path, compression)
	if err != nil {
		return nil, err
	}
	return fileloader.ListSheets(data.Data)
}

// LoadFile loads a file or directory. keepFilters carries the current
// filters over to the new data where their columns still exist.
func (a *App) LoadFile(path string, options interfaces.FileOptions, keepFilters bool) (*filterstate.LoadReport, error) {
	limits := fileloader.Limits{MaxDirectoryFiles: a.settings.MaxDirectoryFiles}
	p, err := dataset.ForPath(path, options, limits, a.plugins)
	if err != nil {
		return nil, err
	}
	return a.open(p, keepFilters)
}

// ListPlugins returns the registered external loaders.
func (a *App) ListPlugins() []*plugin.Info {
	return a.plugins.List()
}

// ValidatePlugin checks a plugin directory before it is added to settings.
func (a *App) ValidatePlugin(path string) (*plugin.Manifest, error) {
	return plugin.Validate(path)
}

// LoadPostgres loads the result of a table or query.
func (a *App) LoadPostgres(cfg dataset.PostgresConfig, keepFilters bool) (*filterstate.LoadReport, error) {
	return a.open(dataset.NewPostgresProvider(cfg), keepFilters)
}

func (a *App) open(p dataset.Provider, keepFilters bool) (*filterstate.LoadReport, error) {
	report, _, err := a.controller.Open(a.callCtx(), p, keepFilters)
	if err != nil {
		a.Log("error", fmt.Sprintf("Failed to load %s: %v", p.Describe(), err))
		return nil, err
	}
	if report.Notice != "" {
		a.publish(EventIncompatible, map[string]any{
			"message": report.Notice,
			"removed": report.Removed,
		})
	}
	a.publish(EventDataset, report)
	return report, nil
}

// GetColumnTypes returns the detected type of every column.
func (a *App) GetColumnTypes() (map[string]columns.ColumnType, error) {
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}
	return profile.Types(), nil
}

// GetUniqueValues returns the sorted distinct non-empty values of column.
func (a *App) GetUniqueValues(column string) ([]string, error) {
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}
	return profile.UniqueValues(column), nil
}

// GetFrequentValues returns up to maxItems values of column seen at least
// minCount times, most frequent first.
func (a *App) GetFrequentValues(column string, minCount, maxItems int) ([]string, error) {
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}
	return profile.FrequentValues(column, minCount, maxItems), nil
}

// GetDateTree returns the year/month/day tree of a date column.
func (a *App) GetDateTree(column string) ([]columns.DateTreeYear, error) {
	profile, err := a.profile()
	if err != nil {
		return nil, err
	}
	return profile.DateTree(column), nil
}

func (a *App) profile() (*columns.Profile, error) {
	profile := a.controller.Profile()
	if profile == nil {
		return nil, filterstate.ErrNoDataset
	}
	return profile, nil
}

// GetDateHistogram buckets the visible rows by the dates in column.
func (a *App) GetDateHistogram(column string, maxBuckets int) (*histogram.Response, error) {
	return a.controller.Histogram(a.callCtx(), column, maxBuckets)
}
