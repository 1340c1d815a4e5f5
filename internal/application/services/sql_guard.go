package services

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/test_driver" // Using test_driver for ValueExpr

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
)

// SQLGuard parses console SQL and enforces the read-only contract:
// exactly one statement, SELECT only, system tables from the allow-list,
// and a hard row cap.
type SQLGuard struct {
	parser  *parser.Parser
	allowed map[string]bool
}

// NewSQLGuard creates a guard over the console table allow-list
func NewSQLGuard() *SQLGuard {
	allowed := make(map[string]bool)
	for _, name := range constants.SQLConsoleTables() {
		allowed[strings.ToLower(name)] = true
	}
	return &SQLGuard{
		parser:  parser.New(),
		allowed: allowed,
	}
}

// Guard validates the SQL and returns the statement to execute, with the
// row cap already applied.
func (g *SQLGuard) Guard(sql string) (string, error) {
	stmtNodes, _, err := g.parser.Parse(sql, "", "")
	if err != nil {
		return "", errors.NewValidationError("sql", fmt.Sprintf("SQL parse error: %v", err))
	}

	if len(stmtNodes) != 1 {
		return "", errors.NewValidationError("sql", "Only single SQL statements are allowed")
	}

	stmt := stmtNodes[0]

	selectStmt, ok := stmt.(*ast.SelectStmt)
	if !ok {
		return "", errors.NewValidationError("sql", "Only SELECT statements are allowed")
	}

	visitor := &allowlistVisitor{allowed: g.allowed}
	stmt.Accept(visitor)
	if visitor.err != nil {
		return "", visitor.err
	}

	// Cap rows after the visitor pass to avoid modifying the AST while visiting it
	capRowLimit(selectStmt)

	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := stmt.Restore(restoreCtx); err != nil {
		return "", errors.NewInternalError("SQL restore failed", err)
	}

	return sb.String(), nil
}

// capRowLimit injects LIMIT when absent and clamps an explicit LIMIT above the cap
func capRowLimit(stmt *ast.SelectStmt) {
	capExpr := &test_driver.ValueExpr{}
	capExpr.SetInt64(constants.SQLConsoleRowLimit)

	if stmt.Limit == nil {
		stmt.Limit = &ast.Limit{Count: capExpr}
		return
	}

	if ve, ok := stmt.Limit.Count.(*test_driver.ValueExpr); ok {
		switch ve.Kind() {
		case test_driver.KindInt64:
			if ve.GetInt64() <= constants.SQLConsoleRowLimit {
				return
			}
		case test_driver.KindUint64:
			if ve.GetUint64() <= constants.SQLConsoleRowLimit {
				return
			}
		}
	}
	stmt.Limit.Count = capExpr
}

type allowlistVisitor struct {
	allowed map[string]bool
	err     error
}

func (v *allowlistVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if v.err != nil {
		return in, true
	}

	if t, ok := in.(*ast.TableName); ok {
		if t.Schema.O != "" {
			v.err = errors.NewPermissionError("read", fmt.Sprintf("schema '%s'", t.Schema.O))
			return in, true
		}
		name := t.Name.O
		if name != "" && !v.allowed[strings.ToLower(name)] {
			v.err = errors.NewPermissionError("read", fmt.Sprintf("table '%s'", name))
			return in, true
		}
	}
	return in, false
}

func (v *allowlistVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}
