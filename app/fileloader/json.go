package fileloader

import (
	"fmt"

	"github.com/ohler55/ojg/oj"
)

// readJSON parses a JSON document or an NDJSON stream and selects the row
// array with options.JPath ("$" when empty). A document whose root is a
// single object becomes a one-row table.
func readJSON(data []byte, fileType FileType, options FileOptions) (*table, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data is empty")
	}

	var (
		root any
		err  error
	)
	if fileType == FileTypeNDJSON {
		root, err = parseDocuments(data)
	} else if root, err = oj.Parse(data); err != nil {
		// concatenated documents in a .json file read like NDJSON
		if docs, streamErr := parseDocuments(data); streamErr == nil {
			root, err = docs, nil
		} else {
			err = fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	expression := options.JPath
	if expression == "" {
		expression = "$"
		if obj, ok := root.(map[string]any); ok {
			root = []any{obj}
		}
	}
	return ApplyJSONPath(root, expression, options)
}

// parseDocuments reads a sequence of whitespace separated JSON values. A
// value may span several lines.
func parseDocuments(data []byte) ([]any, error) {
	var docs []any
	collect := func(v any) { docs = append(docs, v) }
	if _, err := oj.Parse(data, collect); err != nil {
		return nil, fmt.Errorf("failed to parse JSON at document %d: %w", len(docs)+1, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("data is empty")
	}
	return docs, nil
}
