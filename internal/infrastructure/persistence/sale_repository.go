package persistence

import (
	"context"
	"database/sql"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// SaleRepository handles database operations for purchase records
type SaleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new SaleRepository
func NewSaleRepository(db *sql.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *SaleRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

// SaleFilter narrows sale listings. Empty fields match everything.
type SaleFilter struct {
	TableID    string
	CustomerID string
	Status     string
}

var saleFields = []string{
	"id", "sale_number", "table_id", "item_id", "item_data", "customer_id",
	"quantity", "unit_price", "total_amount", "status", "payment_method", "notes",
	"created_at", "updated_at",
}

// Create stores a new sale record
func (r *SaleRepository) Create(ctx context.Context, tx *sql.Tx, sale *models.Sale) error {
	blob, err := models.EncodeRowData(sale.ItemData)
	if err != nil {
		return err
	}

	q := query.Insert(constants.TableSales, map[string]interface{}{
		"id":             sale.ID,
		"sale_number":    sale.SaleNumber,
		"table_id":       sale.TableID,
		"item_id":        sale.ItemID,
		"item_data":      blob,
		"customer_id":    sale.CustomerID,
		"quantity":       sale.Quantity,
		"unit_price":     sale.UnitPrice,
		"total_amount":   sale.TotalAmount,
		"status":         string(sale.Status),
		"payment_method": nullableString(sale.PaymentMethod),
		"notes":          nullableString(sale.Notes),
		"created_at":     sale.CreatedAt,
		"updated_at":     sale.UpdatedAt,
	}).Build()

	_, err = r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// GetByID loads one sale, nil when absent
func (r *SaleRepository) GetByID(ctx context.Context, id string) (*models.Sale, error) {
	q := query.From(constants.TableSales).
		Select(saleFields).
		Where("`id` = ?", id).
		Limit(1).
		Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	sales, err := scanSales(rows)
	if err != nil {
		return nil, err
	}
	if len(sales) == 0 {
		return nil, nil
	}
	return sales[0], nil
}

// List returns sales matching the filter, newest first
func (r *SaleRepository) List(ctx context.Context, f SaleFilter, limit, offset int) ([]*models.Sale, error) {
	b := query.From(constants.TableSales).Select(saleFields)
	applySaleFilter(b, f)
	b.OrderBy("created_at", "desc").
		OrderBy("id", "asc").
		Limit(limit).
		Offset(offset)
	q := b.Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanSales(rows)
}

// Count returns how many sales match the filter
func (r *SaleRepository) Count(ctx context.Context, f SaleFilter) (int, error) {
	b := query.From(constants.TableSales).AddSelectRaw("COUNT(*)")
	applySaleFilter(b, f)
	q := b.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Update applies field changes to a sale record
func (r *SaleRepository) Update(ctx context.Context, tx *sql.Tx, id string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	q := query.Update(constants.TableSales).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one sale record
func (r *SaleRepository) Delete(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	q := query.Delete(constants.TableSales).
		Where("`id` = ?", id).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByTable removes the sale history of a table, used by table deletion
func (r *SaleRepository) DeleteByTable(ctx context.Context, tx *sql.Tx, tableID string) (int64, error) {
	q := query.Delete(constants.TableSales).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func applySaleFilter(b *query.Builder, f SaleFilter) {
	if f.TableID != "" {
		b.Where("`table_id` = ?", f.TableID)
	}
	if f.CustomerID != "" {
		b.Where("`customer_id` = ?", f.CustomerID)
	}
	if f.Status != "" {
		b.Where("`status` = ?", f.Status)
	}
}

func scanSales(rows *sql.Rows) ([]*models.Sale, error) {
	defer rows.Close()

	out := make([]*models.Sale, 0)
	for rows.Next() {
		var (
			s                    models.Sale
			blob                 string
			status               string
			payment, notes       sql.NullString
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&s.ID, &s.SaleNumber, &s.TableID, &s.ItemID, &blob, &s.CustomerID,
			&s.Quantity, &s.UnitPrice, &s.TotalAmount, &status, &payment, &notes,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}

		s.ItemData = models.DecodeRowData(blob)
		s.Status = constants.SaleStatus(status)
		s.PaymentMethod = stringPtr(payment)
		s.Notes = stringPtr(notes)
		s.CreatedAt = asTime(createdAt)
		s.UpdatedAt = asTime(updatedAt)

		out = append(out, &s)
	}
	return out, rows.Err()
}
