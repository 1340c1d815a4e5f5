package persistence

import (
	"context"
	"database/sql"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// RuleRepository handles database operations for table validation rules
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository creates a new RuleRepository
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *RuleRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

var ruleFields = []string{"id", "table_id", "name", "expression", "error_message", "active", "created_at", "updated_at"}

// Create stores a new rule
func (r *RuleRepository) Create(ctx context.Context, rule *models.TableRule) error {
	q := query.Insert(constants.TableRules, map[string]interface{}{
		"id":            rule.ID,
		"table_id":      rule.TableID,
		"name":          rule.Name,
		"expression":    rule.Expression,
		"error_message": rule.ErrorMessage,
		"active":        rule.Active,
		"created_at":    rule.CreatedAt,
		"updated_at":    rule.UpdatedAt,
	}).Build()

	_, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// GetByID loads one rule, nil when absent
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.TableRule, error) {
	q := query.From(constants.TableRules).
		Select(ruleFields).
		Where("`id` = ?", id).
		Limit(1).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return rules[0], nil
}

// ListByTable returns every rule of a table in creation order
func (r *RuleRepository) ListByTable(ctx context.Context, tableID string) ([]*models.TableRule, error) {
	q := query.From(constants.TableRules).
		Select(ruleFields).
		Where("`table_id` = ?", tableID).
		OrderBy("created_at", "asc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

// ListActiveByTable returns only the rules that currently apply to writes
func (r *RuleRepository) ListActiveByTable(ctx context.Context, tableID string) ([]*models.TableRule, error) {
	q := query.From(constants.TableRules).
		Select(ruleFields).
		Where("`table_id` = ?", tableID).
		Where("`active` = ?", true).
		OrderBy("created_at", "asc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

// Update applies field changes to a rule
func (r *RuleRepository) Update(ctx context.Context, id string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	q := query.Update(constants.TableRules).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one rule
func (r *RuleRepository) Delete(ctx context.Context, id string) (int64, error) {
	q := query.Delete(constants.TableRules).
		Where("`id` = ?", id).
		Build()

	res, err := r.db.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByTable removes every rule of a table, used by table deletion
func (r *RuleRepository) DeleteByTable(ctx context.Context, tx *sql.Tx, tableID string) (int64, error) {
	q := query.Delete(constants.TableRules).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRules(rows *sql.Rows) ([]*models.TableRule, error) {
	defer rows.Close()

	out := make([]*models.TableRule, 0)
	for rows.Next() {
		var (
			rule                 models.TableRule
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&rule.ID, &rule.TableID, &rule.Name, &rule.Expression,
			&rule.ErrorMessage, &rule.Active, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		rule.CreatedAt = asTime(createdAt)
		rule.UpdatedAt = asTime(updatedAt)

		out = append(out, &rule)
	}
	return out, rows.Err()
}
