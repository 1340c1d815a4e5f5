package database

import (
	"encoding/json"

	"github.com/erimeilis/store-sub004/pkg/query"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// Dialect abstracts the few places MySQL and SQLite disagree about JSON
// blobs and locking. Everything else goes through the shared query builder.
type Dialect interface {
	Name() string

	// JSONFilter builds the predicate matching one data key against a raw
	// filter value. Values that parse as numbers or booleans match both the
	// unquoted and the quoted stored representation; anything else is an
	// exact, case-sensitive string match. Paths are bound as parameters.
	JSONFilter(key, raw string) (string, []interface{})

	// JSONTextExpr is the expression reading a data key as text. It carries
	// exactly one placeholder, the JSON path.
	JSONTextExpr() string

	// ForUpdate is the row lock suffix, empty when the dialect has none
	ForUpdate() string
}

// MySQLDialect targets MySQL and TiDB
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return DriverMySQL }

func (MySQLDialect) JSONFilter(key, raw string) (string, []interface{}) {
	path := query.JSONPath(key)
	quoted, _ := json.Marshal(raw)

	_, isNum := utils.ParseNumber(raw)
	_, isBool := utils.IsStrictBool(raw)
	if isNum || isBool {
		// CAST turns the raw text into a JSON number or boolean; the second
		// branch catches values stored as quoted strings.
		return "(JSON_EXTRACT(`data`, ?) = CAST(? AS JSON) OR JSON_EXTRACT(`data`, ?) = CAST(? AS JSON))",
			[]interface{}{path, raw, path, string(quoted)}
	}

	// JSON string comparison is case-sensitive regardless of column collation
	return "JSON_EXTRACT(`data`, ?) = CAST(? AS JSON)",
		[]interface{}{path, string(quoted)}
}

func (MySQLDialect) JSONTextExpr() string {
	return "JSON_UNQUOTE(JSON_EXTRACT(`data`, ?))"
}

func (MySQLDialect) ForUpdate() string { return " FOR UPDATE" }

// SQLiteDialect targets SQLite for development and tests
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return DriverSQLite }

func (SQLiteDialect) JSONFilter(key, raw string) (string, []interface{}) {
	path := query.JSONPath(key)

	if f, ok := utils.ParseNumber(raw); ok {
		// json_extract collapses JSON numbers to SQL numbers, so a typed
		// parameter matches unquoted storage and the raw text matches quoted
		return "(json_extract(`data`, ?) = ? OR json_extract(`data`, ?) = ?)",
			[]interface{}{path, f, path, raw}
	}

	if _, ok := utils.IsStrictBool(raw); ok {
		// json_extract turns both true and 1 into 1; json_type keeps JSON
		// booleans apart from integers
		return "(json_type(`data`, ?) = ? OR json_extract(`data`, ?) = ?)",
			[]interface{}{path, raw, path, raw}
	}

	return "json_extract(`data`, ?) = ?",
		[]interface{}{path, raw}
}

func (SQLiteDialect) JSONTextExpr() string {
	return "CAST(json_extract(`data`, ?) AS TEXT)"
}

func (SQLiteDialect) ForUpdate() string { return "" }
