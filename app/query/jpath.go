package query

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// resolvedColumn holds information about a column with optional JPath expression
type resolvedColumn struct {
	name      string
	index     int    // Column index in the header, -1 when absent
	jpathExpr string // JPath expression to apply, empty if none
	path      jp.Expr
}

// parseColumnJPath parses a column name that may contain a JPath expression.
// Example: "details{$.priority}" -> "details", "$.priority", true
func parseColumnJPath(colName string) (string, string, bool) {
	openBrace := strings.Index(colName, "{")
	if openBrace == -1 {
		return colName, "", false
	}
	closeBrace := strings.LastIndex(colName, "}")
	if closeBrace == -1 || closeBrace <= openBrace {
		return colName, "", false
	}

	columnName := strings.TrimSpace(colName[:openBrace])
	jpathExpr := strings.TrimSpace(colName[openBrace+1 : closeBrace])
	if columnName == "" || jpathExpr == "" {
		return colName, "", false
	}
	return columnName, jpathExpr, true
}

// resolveColumn maps a column reference to its header index. An exact header
// match wins over the JPath form so headers containing braces keep working.
func resolveColumn(header []string, ref string) resolvedColumn {
	rc := resolvedColumn{name: ref, index: indexOf(header, ref)}
	if rc.index >= 0 {
		return rc
	}
	name, expr, ok := parseColumnJPath(ref)
	if !ok {
		return rc
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return rc
	}
	rc.index = indexOf(header, name)
	rc.jpathExpr = expr
	rc.path = path
	return rc
}

// value returns the cell addressed by rc, evaluating the JPath if any.
func (rc resolvedColumn) value(row *Row) (string, bool) {
	cell := row.Value(rc.index)
	if rc.path == nil {
		return cell, true
	}
	return evaluateColumnJPath(cell, rc.path)
}

// evaluateColumnJPath extracts a value from JSON content using a JPath expression
func evaluateColumnJPath(jsonValue string, path jp.Expr) (string, bool) {
	if strings.TrimSpace(jsonValue) == "" {
		return "", false
	}
	data, err := oj.ParseString(jsonValue)
	if err != nil {
		return "", false
	}
	results := path.Get(data)
	if len(results) == 0 {
		return "", false
	}

	switch v := results[0].(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	case bool:
		return fmt.Sprintf("%t", v), true
	case nil:
		return "", true
	case map[string]any, []any:
		return oj.JSON(v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func indexOf(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}
