package fileloader

import (
	"strconv"
	"strings"
)

// excelColumnName converts a 0-based index to Excel-style column name.
// Examples: 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA
func excelColumnName(index int) string {
	result := ""
	index++

	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}

	return result
}

// NormalizeHeaders is applied by every reader so that column references are
// unambiguous:
//   - surrounding whitespace is trimmed
//   - empty headers become Unnamed_A, Unnamed_B, ..., Unnamed_AA, ...
//   - repeated headers get a numeric suffix: id, id_2, id_3
//
// Example:
//
//	Input:  ["name", "", "id", "  ", "id"]
//	Output: ["name", "Unnamed_A", "id", "Unnamed_B", "id_2"]
func NormalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	seen := make(map[string]int, len(header))
	emptyCount := 0

	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed_" + excelColumnName(emptyCount)
			emptyCount++
		}
		if seen[h] > 0 {
			base := h
			for n := seen[base] + 1; ; n++ {
				h = base + "_" + strconv.Itoa(n)
				if seen[h] == 0 {
					seen[base] = n
					break
				}
			}
		}
		seen[h]++
		normalized[i] = h
	}

	return normalized
}

// syntheticHeader names columns when a file has no header row.
func syntheticHeader(width int) []string {
	return NormalizeHeaders(make([]string, width))
}
