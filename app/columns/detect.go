package columns

import (
	"log"
	"math"
	"strconv"
	"strings"

	"thebridge/app/interfaces"
	"thebridge/app/timestamps"
)

// ColumnType classifies a column for filtering.
type ColumnType string

const (
	TypeDate        ColumnType = "date"
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeText        ColumnType = "text"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeDate, TypeNumeric, TypeCategorical, TypeText:
		return true
	}
	return false
}

// Options tunes detection.
type Options struct {
	SampleSize           int     // non-empty values inspected per column
	Majority             float64 // fraction of samples that must parse (strictly more than)
	CategoricalThreshold int     // categorical once one value repeats more than this
}

// DefaultOptions returns the built-in detection defaults.
func DefaultOptions() Options {
	return Options{
		SampleSize:           100,
		Majority:             0.5,
		CategoricalThreshold: 30,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SampleSize <= 0 {
		o.SampleSize = d.SampleSize
	}
	if o.Majority <= 0 || o.Majority > 1 {
		o.Majority = d.Majority
	}
	if o.CategoricalThreshold <= 0 {
		o.CategoricalThreshold = d.CategoricalThreshold
	}
	return o
}

// DetectColumnTypes classifies every header column. An empty dataset yields
// an empty map. The result depends only on the data.
func DetectColumnTypes(data *interfaces.StageResult, opts Options) map[string]ColumnType {
	types := make(map[string]ColumnType)
	if data == nil || len(data.Rows) == 0 {
		return types
	}
	opts = opts.normalized()
	for idx, column := range data.Header {
		types[column] = detectColumn(data.Rows, idx, opts)
	}
	log.Printf("[DETECT] Classified %d columns over %d rows", len(types), len(data.Rows))
	return types
}

func detectColumn(rows []*interfaces.Row, idx int, opts Options) ColumnType {
	sample := make([]string, 0, opts.SampleSize)
	for _, row := range rows {
		v := strings.TrimSpace(row.Value(idx))
		if v == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) >= opts.SampleSize {
			break
		}
	}
	// no evidence
	if len(sample) == 0 {
		return TypeText
	}

	dates, numbers := 0, 0
	for _, v := range sample {
		if _, ok := timestamps.ParseFlexibleDate(v); ok {
			dates++
		}
		if _, ok := ParseNumber(v); ok {
			numbers++
		}
	}
	n := float64(len(sample))
	if float64(dates)/n > opts.Majority {
		return TypeDate
	}
	if float64(numbers)/n > opts.Majority {
		return TypeNumeric
	}
	if IsCategorical(rows, idx, opts.CategoricalThreshold) {
		return TypeCategorical
	}
	return TypeText
}

// IsCategorical reports whether any single non-empty value of the column
// repeats more than threshold times.
func IsCategorical(rows []*interfaces.Row, idx int, threshold int) bool {
	counts := make(map[string]int)
	for _, row := range rows {
		v := row.Value(idx)
		if strings.TrimSpace(v) == "" {
			continue
		}
		counts[v]++
		if counts[v] > threshold {
			return true
		}
	}
	return false
}

// ParseNumber parses a trimmed decimal number. NaN and Inf spellings are rejected.
func ParseNumber(s string) (float64, bool) {
	ss := strings.TrimSpace(s)
	if ss == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(ss, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
