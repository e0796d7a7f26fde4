package fileloader

import (
	"errors"

	"thebridge/app/interfaces"
)

// Package fileloader reads tabular files (CSV/TSV, XLSX, JSON, NDJSON),
// optionally compressed, into a header plus rows of strings.

// ErrUnsupportedFile is returned for files no reader can handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

// FileType represents the type of data file being processed
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeTSV
	FileTypeXLSX
	FileTypeJSON
	FileTypeNDJSON
)

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeCSV:
		return "CSV"
	case FileTypeTSV:
		return "TSV"
	case FileTypeXLSX:
		return "XLSX"
	case FileTypeJSON:
		return "JSON"
	case FileTypeNDJSON:
		return "NDJSON"
	default:
		return "Unknown"
	}
}

// FileOptions is an alias to the shared type.
type FileOptions = interfaces.FileOptions

// DefaultFileOptions returns the default parsing options
func DefaultFileOptions() FileOptions {
	return FileOptions{}
}

// SourceColumn is appended to directory loads when IncludeSourceColumn is set.
const SourceColumn = "__source_file__"

// Result is a loaded file.
type Result struct {
	Data        *interfaces.StageResult
	FileType    FileType
	Compression CompressionType
	Files       int    // number of files merged, 1 for a single file
	Warning     string // non-empty when decompression stopped early
}

// table is a parsed file before it becomes rows.
type table struct {
	header []string
	rows   [][]string
}

// toStageResult aligns every record to the header and numbers the rows.
func (t *table) toStageResult() *interfaces.StageResult {
	out := &interfaces.StageResult{
		Header: t.header,
		Rows:   make([]*interfaces.Row, 0, len(t.rows)),
	}
	for i, rec := range t.rows {
		data := make([]string, len(t.header))
		copy(data, rec)
		out.Rows = append(out.Rows, &interfaces.Row{RowIndex: i, DisplayIndex: -1, Data: data})
	}
	return out
}
