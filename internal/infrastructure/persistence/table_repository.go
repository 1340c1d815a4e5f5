package persistence

import (
	"context"
	"database/sql"
	"strings"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// TableRepository persists table metadata and column declarations.
type TableRepository struct {
	db *sql.DB
}

// NewTableRepository creates a new TableRepository
func NewTableRepository(db *sql.DB) *TableRepository {
	return &TableRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *TableRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

var tableFields = []string{
	"id", "name", "description", "owner_id", "visibility", "table_type",
	"rental_period", "product_id_column", "created_at", "updated_at",
}

// Create inserts a table row
func (r *TableRepository) Create(ctx context.Context, tx *sql.Tx, table *models.Table) error {
	q := query.Insert(constants.TableUserTables, map[string]interface{}{
		"id":                table.ID,
		"name":              table.Name,
		"description":       nullableString(table.Description),
		"owner_id":          table.OwnerID,
		"visibility":        string(table.Visibility),
		"table_type":        string(table.Type),
		"rental_period":     nullableInt(table.RentalPeriod),
		"product_id_column": nullableString(table.ProductIDColumn),
		"created_at":        table.CreatedAt,
		"updated_at":        table.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// GetByID loads a table with its columns in declared order.
// Returns nil when the table does not exist.
func (r *TableRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Table, error) {
	q := query.From(constants.TableUserTables).
		Select(tableFields).
		Where("`id` = ?", id).
		Limit(1).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	tables, err := scanTables(rows)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, nil
	}

	table := tables[0]
	columns, err := r.GetColumns(ctx, tx, table.ID)
	if err != nil {
		return nil, err
	}
	table.Columns = columns
	return table, nil
}

// List returns all tables, newest first, without columns
func (r *TableRepository) List(ctx context.Context) ([]*models.Table, error) {
	q := query.From(constants.TableUserTables).
		Select(tableFields).
		OrderBy("created_at", "desc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanTables(rows)
}

// ListByOwner returns the tables owned by one user
func (r *TableRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Table, error) {
	q := query.From(constants.TableUserTables).
		Select(tableFields).
		Where("`owner_id` = ?", ownerID).
		OrderBy("created_at", "desc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanTables(rows)
}

// ListPublic returns sale and rent tables visible outside their owner
func (r *TableRepository) ListPublic(ctx context.Context) ([]*models.Table, error) {
	q := query.From(constants.TableUserTables).
		Select(tableFields).
		Where("`visibility` IN (?, ?)", string(constants.VisibilityPublic), string(constants.VisibilityShared)).
		Where("`table_type` IN (?, ?)", string(constants.TableTypeSale), string(constants.TableTypeRent)).
		OrderBy("name", "asc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanTables(rows)
}

// ListByIDs returns the named tables, input order not preserved
func (r *TableRepository) ListByIDs(ctx context.Context, ids []string) ([]*models.Table, error) {
	if len(ids) == 0 {
		return []*models.Table{}, nil
	}

	q := query.From(constants.TableUserTables).
		Select(tableFields).
		WhereIn("id", ids).
		OrderBy("name", "asc").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanTables(rows)
}

// Update patches table metadata fields
func (r *TableRepository) Update(ctx context.Context, tx *sql.Tx, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	q := query.Update(constants.TableUserTables).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// Delete removes the table row. Rows, columns and rules cascade in the
// owning transaction, driven by the schema service.
func (r *TableRepository) Delete(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	q := query.Delete(constants.TableUserTables).
		Where("`id` = ?", id).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SearchByColumns returns ids of tables declaring every named column,
// matched case-insensitively.
func (r *TableRepository) SearchByColumns(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return []string{}, nil
	}

	lowered := make([]interface{}, 0, len(names)+1)
	placeholders := make([]string, 0, len(names))
	for _, n := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(n)))
		placeholders = append(placeholders, "?")
	}
	lowered = append(lowered, len(names))

	sqlText := "SELECT `table_id` FROM `" + constants.TableColumns + "`" +
		" WHERE LOWER(`name`) IN (" + strings.Join(placeholders, ", ") + ")" +
		" GROUP BY `table_id` HAVING COUNT(DISTINCT LOWER(`name`)) = ?"

	rows, err := r.db.QueryContext(ctx, sqlText, lowered...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return query.ScanStrings(rows)
}

var columnFields = []string{
	"id", "table_id", "name", "column_type", "required", "allow_duplicates",
	"default_value", "position", "created_at", "updated_at",
}

// CreateColumn inserts a column declaration
func (r *TableRepository) CreateColumn(ctx context.Context, tx *sql.Tx, col *models.Column) error {
	q := query.Insert(constants.TableColumns, map[string]interface{}{
		"id":               col.ID,
		"table_id":         col.TableID,
		"name":             col.Name,
		"column_type":      string(col.Type),
		"required":         col.Required,
		"allow_duplicates": col.AllowDuplicates,
		"default_value":    nullableString(col.DefaultValue),
		"position":         col.Position,
		"created_at":       col.CreatedAt,
		"updated_at":       col.UpdatedAt,
	}).Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// GetColumns returns a table's columns in declared order
func (r *TableRepository) GetColumns(ctx context.Context, tx *sql.Tx, tableID string) ([]models.Column, error) {
	q := query.From(constants.TableColumns).
		Select(columnFields).
		Where("`table_id` = ?", tableID).
		OrderBy("position", "asc").
		OrderBy("id", "asc").
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanColumns(rows)
}

// GetColumnByName finds a column case-insensitively, nil when absent
func (r *TableRepository) GetColumnByName(ctx context.Context, tx *sql.Tx, tableID, name string) (*models.Column, error) {
	q := query.From(constants.TableColumns).
		Select(columnFields).
		Where("`table_id` = ?", tableID).
		Where("LOWER(`name`) = ?", strings.ToLower(strings.TrimSpace(name))).
		Limit(1).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	columns, err := scanColumns(rows)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}
	return &columns[0], nil
}

// UpdateColumn patches a column declaration
func (r *TableRepository) UpdateColumn(ctx context.Context, tx *sql.Tx, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	q := query.Update(constants.TableColumns).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// DeleteColumn removes a column declaration
func (r *TableRepository) DeleteColumn(ctx context.Context, tx *sql.Tx, id string) error {
	q := query.Delete(constants.TableColumns).
		Where("`id` = ?", id).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// DeleteColumnsByTable removes all column declarations of a table
func (r *TableRepository) DeleteColumnsByTable(ctx context.Context, tx *sql.Tx, tableID string) error {
	q := query.Delete(constants.TableColumns).
		Where("`table_id` = ?", tableID).
		Build()

	_, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// NextPosition returns the position for a column appended to the table
func (r *TableRepository) NextPosition(ctx context.Context, tx *sql.Tx, tableID string) (int, error) {
	sqlText := "SELECT COALESCE(MAX(`position`), -1) + 1 FROM `" + constants.TableColumns + "` WHERE `table_id` = ?"

	var next int
	if err := r.GetExecutor(tx).QueryRowContext(ctx, sqlText, tableID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func scanTables(rows *sql.Rows) ([]*models.Table, error) {
	defer rows.Close()

	out := make([]*models.Table, 0)
	for rows.Next() {
		var (
			t                    models.Table
			description          sql.NullString
			visibility           string
			tableType            string
			rentalPeriod         sql.NullInt64
			productIDColumn      sql.NullString
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&t.ID, &t.Name, &description, &t.OwnerID, &visibility,
			&tableType, &rentalPeriod, &productIDColumn, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		t.Description = stringPtr(description)
		t.Visibility = constants.Visibility(visibility)
		t.Type = constants.TableType(tableType)
		if rentalPeriod.Valid {
			period := int(rentalPeriod.Int64)
			t.RentalPeriod = &period
		}
		t.ProductIDColumn = stringPtr(productIDColumn)
		t.CreatedAt = asTime(createdAt)
		t.UpdatedAt = asTime(updatedAt)

		out = append(out, &t)
	}
	return out, rows.Err()
}

func scanColumns(rows *sql.Rows) ([]models.Column, error) {
	defer rows.Close()

	out := make([]models.Column, 0)
	for rows.Next() {
		var (
			c                    models.Column
			columnType           string
			defaultValue         sql.NullString
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &columnType, &c.Required,
			&c.AllowDuplicates, &defaultValue, &c.Position, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		c.Type = constants.ColumnType(columnType)
		c.DefaultValue = stringPtr(defaultValue)
		c.CreatedAt = asTime(createdAt)
		c.UpdatedAt = asTime(updatedAt)

		out = append(out, c)
	}
	return out, rows.Err()
}
