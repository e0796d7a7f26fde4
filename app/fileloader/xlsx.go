package fileloader

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads one sheet of a workbook: options.Sheet when set, the first
// sheet otherwise.
func readXLSX(data []byte, options FileOptions) (*table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	sheetName := sheets[0]
	if options.Sheet != "" {
		if !slices.Contains(sheets, options.Sheet) {
			return nil, fmt.Errorf("sheet %q not found, available: %v", options.Sheet, sheets)
		}
		sheetName = options.Sheet
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	// GetRows drops trailing empty rows but keeps interior ones
	return recordsToTable(rows, width, options)
}

// ListSheets returns the sheet names of the workbook in data.
func ListSheets(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
