package fileloader

import (
	"fmt"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// valueToString converts a value to a string representation.
// Objects and arrays are JSON-stringified, null becomes the empty string.
func valueToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}, []interface{}:
		jsonBytes, err := oj.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(jsonBytes)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ApplyJSONPath applies a JSONPath expression to parsed JSON and builds a
// table from the first result, which must be:
//   - an array of objects: the union of keys, sorted, becomes the header
//   - an array of arrays: the first array is the header row unless
//     options.NoHeaderRow is set
func ApplyJSONPath(data interface{}, expression string, options FileOptions) (*table, error) {
	if expression == "" {
		return nil, fmt.Errorf("JSONPath expression is empty")
	}

	x, err := jp.ParseString(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath expression: %w", err)
	}

	results := x.Get(data)
	if len(results) == 0 {
		return nil, fmt.Errorf("JSONPath expression returned no results")
	}

	arr, ok := results[0].([]interface{})
	if !ok {
		if obj, isMap := results[0].(map[string]interface{}); isMap {
			keys := make([]string, 0, len(obj))
			for key := range obj {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("JSONPath expression must return an array, got an object with keys %v", keys)
		}
		return nil, fmt.Errorf("JSONPath expression must return an array, got %T", results[0])
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("JSONPath expression returned empty array")
	}

	switch arr[0].(type) {
	case map[string]interface{}:
		return objectsToTable(arr), nil
	case []interface{}:
		var records [][]string
		width := 0
		for _, item := range arr {
			itemArr, ok := item.([]interface{})
			if !ok {
				continue
			}
			row := make([]string, len(itemArr))
			for i, val := range itemArr {
				row[i] = valueToString(val)
			}
			width = max(width, len(row))
			records = append(records, row)
		}
		return recordsToTable(records, width, options)
	}
	return nil, fmt.Errorf("JSONPath expression must return an array of objects or an array of arrays")
}

// objectsToTable collects headers and rows in a single pass, then sorts the
// headers for a stable column order. Non-object items are skipped.
func objectsToTable(arr []interface{}) *table {
	headerIndex := make(map[string]int)
	headers := make([]string, 0)
	dataRows := make([][]string, 0, len(arr))

	for _, item := range arr {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for key := range itemMap {
			if _, seen := headerIndex[key]; !seen {
				headerIndex[key] = len(headers)
				headers = append(headers, key)
			}
		}
		row := make([]string, len(headers))
		for key, value := range itemMap {
			row[headerIndex[key]] = valueToString(value)
		}
		dataRows = append(dataRows, row)
	}

	sortedHeaders, sortedRows := sortHeadersAndRemapRows(headers, dataRows)
	return &table{header: NormalizeHeaders(sortedHeaders), rows: sortedRows}
}

// sortHeadersAndRemapRows sorts headers alphabetically and remaps all row data
// to match the new header order. Rows shorter than headers (built before a
// later key appeared) are padded.
func sortHeadersAndRemapRows(headers []string, rows [][]string) ([]string, [][]string) {
	if len(headers) == 0 {
		return headers, rows
	}

	sortedHeaders := make([]string, len(headers))
	copy(sortedHeaders, headers)
	sort.Strings(sortedHeaders)

	newHeaderIndex := make(map[string]int, len(sortedHeaders))
	for i, h := range sortedHeaders {
		newHeaderIndex[h] = i
	}
	oldToNew := make([]int, len(headers))
	for oldIdx, h := range headers {
		oldToNew[oldIdx] = newHeaderIndex[h]
	}

	remappedRows := make([][]string, len(rows))
	for i, row := range rows {
		newRow := make([]string, len(sortedHeaders))
		for oldIdx, value := range row {
			newRow[oldToNew[oldIdx]] = value
		}
		remappedRows[i] = newRow
	}

	return sortedHeaders, remappedRows
}
