package fileloader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Delimiters tried, in preference order, when none is configured.
var sniffDelimiters = []rune{',', ';', '\t', '|'}

// sniffLines is how many leading lines the delimiter sniffer inspects.
const sniffLines = 10

// SniffDelimiter picks the delimiter that splits the leading lines of data
// most consistently: the candidate with the highest minimum per-line count
// wins. Quoted sections are ignored. Comma is returned when nothing matches.
func SniffDelimiter(data []byte) rune {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() && len(lines) < sniffLines {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := ',', 0
	for _, d := range sniffDelimiters {
		score := -1
		for _, line := range lines {
			n := countUnquoted(line, d)
			if score < 0 || n < score {
				score = n
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func countUnquoted(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// delimiterFor resolves the configured delimiter, sniffing when unset.
func delimiterFor(data []byte, fileType FileType, options FileOptions) (rune, error) {
	switch options.Delimiter {
	case "":
		if fileType == FileTypeTSV {
			return '\t', nil
		}
		return SniffDelimiter(data), nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(options.Delimiter)
	if size != len(options.Delimiter) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", options.Delimiter)
	}
	return r, nil
}

// readCSV parses delimited data. The first record is the header unless
// options.NoHeaderRow is set. Ragged records are kept; short ones are
// padded and long ones truncated when rows are built.
func readCSV(data []byte, fileType FileType, options FileOptions) (*table, error) {
	delimiter, err := delimiterFor(data, fileType, options)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	// Allow variable number of fields per record to handle corrupted CSV files
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	var records [][]string
	width := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && rec != nil {
				// keep what was parsed and move on
			} else {
				return nil, fmt.Errorf("failed to read CSV: %w", err)
			}
		}
		if len(rec) > width {
			width = len(rec)
		}
		records = append(records, rec)
	}
	return recordsToTable(records, width, options)
}

// recordsToTable splits raw records into header and rows.
func recordsToTable(records [][]string, width int, options FileOptions) (*table, error) {
	if len(records) == 0 {
		if options.NoHeaderRow {
			return &table{}, nil
		}
		return nil, fmt.Errorf("no header row found")
	}
	if options.NoHeaderRow {
		return &table{header: syntheticHeader(width), rows: records}, nil
	}
	header := records[0]
	if len(header) < width {
		header = append(header, make([]string, width-len(header))...)
	}
	return &table{header: NormalizeHeaders(header), rows: records[1:]}, nil
}
