// Package dataset is the boundary between data sources and the filter
// engine. A Provider produces a Dataset; the engine only ever reads it.
package dataset

import (
	"context"
	"encoding/hex"
	"errors"

	"thebridge/app/fingerprint"
	"thebridge/app/interfaces"
)

// ErrEmptyDataset is returned when a source yields no columns.
var ErrEmptyDataset = errors.New("dataset has no columns")

// Dataset is one loaded table. Rows are never mutated after load.
type Dataset struct {
	Header  []string
	Rows    []*interfaces.Row
	Hash    string // content hash, keys the query cache
	Source  string // path, directory or "postgres:<table>"
	Kind    string // CSV, XLSX, JSON, ..., or Postgres
	Files   int
	Warning string
}

// StageResult exposes the dataset as planner input.
func (d *Dataset) StageResult() *interfaces.StageResult {
	return &interfaces.StageResult{Header: d.Header, Rows: d.Rows}
}

// Provider loads a dataset.
type Provider interface {
	Load(ctx context.Context) (*Dataset, error)
	Describe() string
}

// HashContent hashes header and cells. Cell boundaries are delimited so
// that ["ab", "c"] and ["a", "bc"] differ.
func HashContent(header []string, rows []*interfaces.Row) (string, error) {
	h, err := fingerprint.New()
	if err != nil {
		return "", err
	}
	writeRecord := func(rec []string) {
		for _, cell := range rec {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	writeRecord(header)
	for _, row := range rows {
		writeRecord(row.Data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func validate(d *Dataset) error {
	if len(d.Header) == 0 {
		return ErrEmptyDataset
	}
	return nil
}
