package interfaces

// FileOptions contains the options that define how a dataset file is read.
// Two loads of the same file with different options produce different datasets.
type FileOptions struct {
	JPath       string `json:"jpath,omitempty" yaml:"jpath,omitempty"`             // JSONPath selecting the row array in JSON input
	NoHeaderRow bool   `json:"noHeaderRow,omitempty" yaml:"noHeaderRow,omitempty"` // First row is data, headers are generated
	Sheet       string `json:"sheet,omitempty" yaml:"sheet,omitempty"`             // XLSX sheet name (first sheet when empty)
	Delimiter   string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`     // CSV delimiter override (sniffed when empty)
	PluginID    string `json:"pluginId,omitempty" yaml:"pluginId,omitempty"`       // Force a specific external loader

	// Directory loading options
	IsDirectory         bool   `json:"isDirectory,omitempty" yaml:"isDirectory,omitempty"`
	FilePattern         string `json:"filePattern,omitempty" yaml:"filePattern,omitempty"`
	IncludeSourceColumn bool   `json:"includeSourceColumn,omitempty" yaml:"includeSourceColumn,omitempty"`
}

// Key returns a unique string key for this options combination.
func (fo FileOptions) Key() string {
	noHeaderStr := "false"
	if fo.NoHeaderRow {
		noHeaderStr = "true"
	}
	dirStr := "file"
	if fo.IsDirectory {
		dirStr = "dir"
		if fo.FilePattern != "" {
			dirStr += ":" + fo.FilePattern
		}
		if fo.IncludeSourceColumn {
			dirStr += ":src"
		}
	}
	key := fo.JPath + "::" + noHeaderStr + "::" + fo.Sheet + "::" + fo.Delimiter + "::" + dirStr
	if fo.PluginID != "" {
		key += "::plugin:" + fo.PluginID
	}
	return key
}

// ProgressCallback provides real-time feedback during query execution
type ProgressCallback func(stage string, current, total int64, message string)

// Logger receives user-facing log lines (forwarded to the frontend console)
type Logger interface {
	Log(level, message string)
}

// Row is a single record of the dataset. Data is aligned with the dataset
// header; a missing or null cell is stored as "".
type Row struct {
	RowIndex     int      // 0-based position in the original dataset
	DisplayIndex int      // 0-based position in the result set, -1 until assigned
	Data         []string // Cell values aligned with the header
	Color        string   // UI-only row colour, never read by the engine
}

// Value returns the cell at idx, or "" when idx is outside the row.
func (r *Row) Value(idx int) string {
	if r == nil || idx < 0 || idx >= len(r.Data) {
		return ""
	}
	return r.Data[idx]
}

// Has reports whether the row carries a cell at idx at all.
func (r *Row) Has(idx int) bool {
	return r != nil && idx >= 0 && idx < len(r.Data)
}

// StageResult represents the output of a pipeline stage with metadata
type StageResult struct {
	Header []string // Dataset header
	Rows   []*Row
}

// ColumnIndex returns the position of column in the header, or -1.
func (s *StageResult) ColumnIndex(column string) int {
	for i, h := range s.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// Constants for query processing
const (
	// ProgressUpdateInterval defines how often to report progress
	ProgressUpdateInterval = 1000
)
