package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/columntypes"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/rules"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// ValidationService checks row data against the owning table's declared
// columns and active rules before anything is written. It never mutates the
// data it receives; callers store the returned copy.
type ValidationService struct {
	rowRepo  *persistence.RowRepository
	ruleRepo *persistence.RuleRepository
	engine   *rules.Engine
	registry *columntypes.Registry
}

// NewValidationService creates a new ValidationService
func NewValidationService(rowRepo *persistence.RowRepository, ruleRepo *persistence.RuleRepository, engine *rules.Engine) *ValidationService {
	return &ValidationService{
		rowRepo:  rowRepo,
		ruleRepo: ruleRepo,
		engine:   engine,
		registry: columntypes.GetRegistry(),
	}
}

// ValidateRow runs the full validation pipeline over one row's data: defaults
// for missing required columns, required checks, type provider checks,
// duplicate checks and table rules. Data is the complete row (updates merge
// into the stored data before calling here). excludeRowID keeps a row from
// colliding with itself on duplicate checks; empty on create.
//
// The returned copy carries applied defaults and normalized values.
func (s *ValidationService) ValidateRow(ctx context.Context, tx *sql.Tx, table *models.Table, data models.RowData, excludeRowID string) (models.RowData, error) {
	out := data.Clone()

	for i := range table.Columns {
		col := &table.Columns[i]

		if missing(out, col.Name) && col.DefaultValue != nil {
			out[col.Name] = coerceDefault(col.Type, *col.DefaultValue)
		}

		if col.Required && missing(out, col.Name) {
			return nil, errors.NewValidationError(col.Name, fmt.Sprintf("Column '%s' is required", col.Name))
		}

		value, present := out[col.Name]
		if !present || value == nil {
			continue
		}

		if provider, ok := s.registry.Get(string(col.Type)); ok {
			if err := provider.Validate(value); err != nil {
				return nil, errors.NewValidationError(col.Name, err.Error())
			}
			normalized, err := provider.Normalize(value)
			if err != nil {
				return nil, errors.NewValidationError(col.Name, err.Error())
			}
			out[col.Name] = normalized
			value = normalized
		}

		if !col.AllowDuplicates {
			raw := valueLiteral(value)
			exists, err := s.rowRepo.ExistsByColumnValue(ctx, tx, table.ID, col.Name, raw, excludeRowID)
			if err != nil {
				return nil, errors.NewInternalError("duplicate check failed", err)
			}
			if exists {
				return nil, errors.NewConflictError("row", col.Name, raw)
			}
		}
	}

	if err := s.checkRules(ctx, table.ID, out); err != nil {
		return nil, err
	}

	return out, nil
}

// checkRules evaluates every active rule of the table against the row data.
// An expression that fails to evaluate rejects the row the same way a false
// result does; a broken rule must never wave writes through.
func (s *ValidationService) checkRules(ctx context.Context, tableID string, data models.RowData) error {
	tableRules, err := s.ruleRepo.ListActiveByTable(ctx, tableID)
	if err != nil {
		return errors.NewInternalError("failed to load table rules", err)
	}

	for _, rule := range tableRules {
		ok, err := s.engine.EvaluateBool(rule.Expression, map[string]interface{}(data))
		if err != nil {
			return errors.NewValidationError(rule.Name, fmt.Sprintf("rule evaluation failed: %v", err))
		}
		if !ok {
			msg := rule.ErrorMessage
			if msg == "" {
				msg = fmt.Sprintf("Rule '%s' failed", rule.Name)
			}
			return errors.NewValidationError(rule.Name, msg)
		}
	}
	return nil
}

// CheckExpression verifies a rule expression compiles before it is saved
func (s *ValidationService) CheckExpression(expression string) error {
	if err := s.engine.Check(expression); err != nil {
		return errors.NewValidationError("expression", fmt.Sprintf("invalid expression: %v", err))
	}
	return nil
}

func missing(data models.RowData, key string) bool {
	v, ok := data[key]
	if !ok || v == nil {
		return true
	}
	if s, isStr := v.(string); isStr && s == "" {
		return true
	}
	return false
}

// coerceDefault turns a stored default literal into the natural JSON value
// for the column type. Unparseable defaults fall back to the literal text.
func coerceDefault(colType constants.ColumnType, literal string) interface{} {
	switch colType {
	case constants.ColumnTypeNumber, constants.ColumnTypeInteger, constants.ColumnTypeDecimal:
		if f, ok := utils.ParseNumber(literal); ok {
			return f
		}
	case constants.ColumnTypeBoolean:
		if b, ok := utils.IsStrictBool(literal); ok {
			return b
		}
	}
	return literal
}

// valueLiteral renders a stored value the way the filter layer parses raw
// input, so a duplicate probe matches both quoted and unquoted storage.
func valueLiteral(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
