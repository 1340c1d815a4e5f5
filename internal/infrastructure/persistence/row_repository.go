package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// RowRepository handles CRUD against the row store. User-defined columns
// live inside the data blob and are reached through the dialect's JSON
// predicates; only system columns are physical.
type RowRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRowRepository creates a new RowRepository
func NewRowRepository(db *sql.DB, dialect database.Dialect) *RowRepository {
	return &RowRepository{db: db, dialect: dialect}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *RowRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

var rowFields = []string{"id", "table_id", "data", "created_by", "created_at", "updated_at"}

// applyFilters adds one predicate per filter, AND-combined. Keys are applied
// in sorted order so generated SQL is stable.
func (r *RowRepository) applyFilters(b *query.Builder, filters map[string]string) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		frag, params := r.dialect.JSONFilter(k, filters[k])
		b.WhereRaw(frag, params)
	}
}

// applyFiltersCI adds one case-insensitive text predicate per filter, the
// matching mode of the public record queries.
func (r *RowRepository) applyFiltersCI(b *query.Builder, filters map[string]string) {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expr := r.dialect.JSONTextExpr()
	for _, k := range keys {
		b.WhereRaw("LOWER("+expr+") = LOWER(?)", []interface{}{query.JSONPath(k), filters[k]})
	}
}

// Count returns how many rows of the table match the filters
func (r *RowRepository) Count(ctx context.Context, tableID string, filters map[string]string) (int, error) {
	b := query.From(constants.TableData).
		AddSelectRaw("COUNT(*)").
		Where("`table_id` = ?", tableID)
	r.applyFilters(b, filters)
	q := b.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// FindPage returns one page ordered by a system column. Sorting by data
// columns happens in memory at the service layer, not here.
func (r *RowRepository) FindPage(ctx context.Context, tableID string, filters map[string]string,
	sortColumn, dir string, limit, offset int) ([]*models.Row, error) {

	if !constants.IsSystemColumn(sortColumn) {
		return nil, fmt.Errorf("cannot push sort by '%s' to SQL", sortColumn)
	}

	b := query.From(constants.TableData).
		Select(rowFields).
		Where("`table_id` = ?", tableID)
	r.applyFilters(b, filters)
	b.OrderBy(sortColumn, dir)
	if sortColumn != constants.ColumnID {
		b.OrderBy("id", "asc")
	}
	b.Limit(limit).Offset(offset)
	q := b.Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRowRecords(rows)
}

// FindAll returns every matching row, insertion-ordered. Used when a data
// column sort needs the whole filtered set in memory and when a transaction
// rewrites rows wholesale.
func (r *RowRepository) FindAll(ctx context.Context, tx *sql.Tx, tableID string, filters map[string]string) ([]*models.Row, error) {
	b := query.From(constants.TableData).
		Select(rowFields).
		Where("`table_id` = ?", tableID)
	r.applyFilters(b, filters)
	b.OrderBy("created_at", "asc").
		OrderBy("id", "asc")
	q := b.Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRowRecords(rows)
}

// FindByID loads one row, nil when absent
func (r *RowRepository) FindByID(ctx context.Context, tx *sql.Tx, tableID, rowID string) (*models.Row, error) {
	q := query.From(constants.TableData).
		Select(rowFields).
		Where("`id` = ?", rowID).
		Where("`table_id` = ?", tableID).
		Limit(1).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	records, err := scanRowRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// GetLock loads one row and locks it for the transaction (SELECT ... FOR
// UPDATE where the dialect supports it).
func (r *RowRepository) GetLock(ctx context.Context, tx *sql.Tx, tableID, rowID string) (*models.Row, error) {
	// Must be in a transaction for locking to work effectively
	if tx == nil {
		return nil, fmt.Errorf("transaction required for locking row %s", rowID)
	}

	q := query.From(constants.TableData).
		Select(rowFields).
		Where("`id` = ?", rowID).
		Where("`table_id` = ?", tableID).
		Limit(1).
		Build()
	q.SQL += r.dialect.ForUpdate()

	rows, err := tx.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	records, err := scanRowRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Insert stores a new row
func (r *RowRepository) Insert(ctx context.Context, tx *sql.Tx, row *models.Row) error {
	blob, err := models.EncodeRowData(row.Data)
	if err != nil {
		return err
	}

	q := query.Insert(constants.TableData, map[string]interface{}{
		"id":         row.ID,
		"table_id":   row.TableID,
		"data":       blob,
		"created_by": row.CreatedBy,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}).Build()

	_, err = r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// BulkInsert stores rows in multi-row batches to keep statements bounded
func (r *RowRepository) BulkInsert(ctx context.Context, tx *sql.Tx, records []*models.Row, batchSize int) error {
	if len(records) == 0 {
		return nil
	}

	if batchSize <= 0 {
		batchSize = constants.BulkInsertBatchSize
	}

	exec := r.GetExecutor(tx)

	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		placeholders := make([]string, 0, len(batch))
		params := make([]interface{}, 0, len(batch)*len(rowFields))
		for _, row := range batch {
			blob, err := models.EncodeRowData(row.Data)
			if err != nil {
				return err
			}
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
			params = append(params, row.ID, row.TableID, blob, row.CreatedBy, row.CreatedAt, row.UpdatedAt)
		}

		sqlText := fmt.Sprintf("INSERT INTO `%s` (`id`, `table_id`, `data`, `created_by`, `created_at`, `updated_at`) VALUES %s",
			constants.TableData, strings.Join(placeholders, ", "))

		if _, err := exec.ExecContext(ctx, sqlText, params...); err != nil {
			return err
		}
	}

	return nil
}

// UpdateData replaces a row's data blob
func (r *RowRepository) UpdateData(ctx context.Context, tx *sql.Tx, tableID, rowID string,
	data models.RowData, updatedAt time.Time) (int64, error) {

	blob, err := models.EncodeRowData(data)
	if err != nil {
		return 0, err
	}

	q := query.Update(constants.TableData).
		Set(map[string]interface{}{"data": blob, "updated_at": updatedAt}).
		Where("`id` = ?", rowID).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateDataGuarded replaces a row's data blob only while the guard key
// still holds the previously read value. Zero affected rows means the row
// changed underneath the caller.
func (r *RowRepository) UpdateDataGuarded(ctx context.Context, tx *sql.Tx, tableID, rowID string,
	data models.RowData, guardKey, guardRaw string, updatedAt time.Time) (int64, error) {

	blob, err := models.EncodeRowData(data)
	if err != nil {
		return 0, err
	}

	frag, guardParams := r.dialect.JSONFilter(guardKey, guardRaw)

	q := query.Update(constants.TableData).
		Set(map[string]interface{}{"data": blob, "updated_at": updatedAt}).
		Where("`id` = ?", rowID).
		Where("`table_id` = ?", tableID).
		WhereRaw(frag, guardParams).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one row
func (r *RowRepository) Delete(ctx context.Context, tx *sql.Tx, tableID, rowID string) (int64, error) {
	q := query.Delete(constants.TableData).
		Where("`id` = ?", rowID).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMany removes a set of rows of one table
func (r *RowRepository) DeleteMany(ctx context.Context, tx *sql.Tx, tableID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := query.Delete(constants.TableData).
		Where("`table_id` = ?", tableID).
		WhereIn("id", ids).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByTable removes every row of a table, used by table deletion
func (r *RowRepository) DeleteByTable(ctx context.Context, tx *sql.Tx, tableID string) (int64, error) {
	q := query.Delete(constants.TableData).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExistsByColumnValue reports whether any row of the table already holds
// the value under the key. Used for duplicate checks; excludeRowID skips
// the row being updated.
func (r *RowRepository) ExistsByColumnValue(ctx context.Context, tx *sql.Tx, tableID, key, raw, excludeRowID string) (bool, error) {
	frag, params := r.dialect.JSONFilter(key, raw)

	b := query.From(constants.TableData).
		Select([]string{"id"}).
		Where("`table_id` = ?", tableID).
		WhereRaw(frag, params)
	if excludeRowID != "" {
		b.Where("`id` != ?", excludeRowID)
	}
	b.Limit(1)
	q := b.Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	return rows.Next(), nil
}

// DistinctValues scans the named tables once and returns the deduplicated
// values of one column as text, capped at limit. Several table ids union
// naturally through the shared DISTINCT. ci switches the filters from exact
// to case-insensitive text matching.
func (r *RowRepository) DistinctValues(ctx context.Context, tableIDs []string, column string,
	filters map[string]string, ci bool, limit int) ([]string, error) {

	if len(tableIDs) == 0 {
		return []string{}, nil
	}
	if limit <= 0 || limit > constants.DistinctValuesLimit {
		limit = constants.DistinctValuesLimit
	}

	expr := r.dialect.JSONTextExpr()
	path := query.JSONPath(column)

	idPlaceholders := strings.TrimSuffix(strings.Repeat("?, ", len(tableIDs)), ", ")

	var sb strings.Builder
	params := make([]interface{}, 0, len(tableIDs)+len(filters)*2+2)

	sb.WriteString("SELECT DISTINCT " + expr)
	params = append(params, path)
	sb.WriteString(" FROM `" + constants.TableData + "`")
	sb.WriteString(" WHERE `table_id` IN (" + idPlaceholders + ")")
	for _, id := range tableIDs {
		params = append(params, id)
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if ci {
			sb.WriteString(" AND LOWER(" + expr + ") = LOWER(?)")
			params = append(params, query.JSONPath(k), filters[k])
			continue
		}
		frag, fragParams := r.dialect.JSONFilter(k, filters[k])
		sb.WriteString(" AND " + frag)
		params = append(params, fragParams...)
	}

	sb.WriteString(" AND " + expr + " IS NOT NULL")
	params = append(params, path)
	sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	rows, err := r.db.QueryContext(ctx, sb.String(), params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return query.ScanStrings(rows)
}

// FindAcrossTables pages rows of several tables as one stream, most
// recently updated first
func (r *RowRepository) FindAcrossTables(ctx context.Context, tableIDs []string, filters map[string]string,
	limit, offset int) ([]*models.Row, error) {

	if len(tableIDs) == 0 {
		return []*models.Row{}, nil
	}

	b := query.From(constants.TableData).
		Select(rowFields).
		WhereIn("table_id", tableIDs)
	r.applyFiltersCI(b, filters)
	b.OrderBy("updated_at", "desc").
		OrderBy("id", "asc").
		Limit(limit).
		Offset(offset)
	q := b.Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRowRecords(rows)
}

// CountAcrossTables counts what FindAcrossTables would return unpaginated
func (r *RowRepository) CountAcrossTables(ctx context.Context, tableIDs []string, filters map[string]string) (int, error) {
	if len(tableIDs) == 0 {
		return 0, nil
	}

	b := query.From(constants.TableData).
		AddSelectRaw("COUNT(*)").
		WhereIn("table_id", tableIDs)
	r.applyFiltersCI(b, filters)
	q := b.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountByTables returns row counts per table in one scan
func (r *RowRepository) CountByTables(ctx context.Context, tableIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(tableIDs))
	if len(tableIDs) == 0 {
		return counts, nil
	}

	q := query.From(constants.TableData).
		AddSelectRaw("`table_id`").
		AddSelectRaw("COUNT(*)", "cnt").
		WhereIn("table_id", tableIDs).
		GroupBy("table_id").
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var cnt int
		if err := rows.Scan(&id, &cnt); err != nil {
			return nil, err
		}
		counts[id] = cnt
	}
	return counts, rows.Err()
}

func scanRowRecords(rows *sql.Rows) ([]*models.Row, error) {
	defer rows.Close()

	out := make([]*models.Row, 0)
	for rows.Next() {
		var (
			row                  models.Row
			blob                 string
			createdBy            sql.NullString
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&row.ID, &row.TableID, &blob, &createdBy, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		row.Data = models.DecodeRowData(blob)
		if createdBy.Valid {
			row.CreatedBy = createdBy.String
		}
		row.CreatedAt = asTime(createdAt)
		row.UpdatedAt = asTime(updatedAt)

		out = append(out, &row)
	}
	return out, rows.Err()
}
