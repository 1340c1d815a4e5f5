package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// RentalRepository handles database operations for rental records
type RentalRepository struct {
	db *sql.DB
}

// NewRentalRepository creates a new RentalRepository
func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

// GetExecutor returns the transaction if present, or the DB connection
func (r *RentalRepository) GetExecutor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

// RentalFilter narrows rental listings. Empty fields match everything.
type RentalFilter struct {
	TableID    string
	CustomerID string
	Status     string
}

// ActiveRental pairs a live rental with its table's rental period so the
// caller can compute overdue status.
type ActiveRental struct {
	models.Rental
	RentalPeriod int
}

var rentalFields = []string{
	"id", "rental_number", "table_id", "item_id", "item_data", "customer_id",
	"status", "notes", "rented_at", "released_at", "created_at", "updated_at",
}

// Create stores a new rental record
func (r *RentalRepository) Create(ctx context.Context, tx *sql.Tx, rental *models.Rental) error {
	blob, err := models.EncodeRowData(rental.ItemData)
	if err != nil {
		return err
	}

	q := query.Insert(constants.TableRentals, map[string]interface{}{
		"id":            rental.ID,
		"rental_number": rental.RentalNumber,
		"table_id":      rental.TableID,
		"item_id":       rental.ItemID,
		"item_data":     blob,
		"customer_id":   rental.CustomerID,
		"status":        string(rental.Status),
		"notes":         nullableString(rental.Notes),
		"rented_at":     rental.RentedAt,
		"released_at":   nullableTime(rental.ReleasedAt),
		"created_at":    rental.CreatedAt,
		"updated_at":    rental.UpdatedAt,
	}).Build()

	_, err = r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	return err
}

// GetByID loads one rental, nil when absent
func (r *RentalRepository) GetByID(ctx context.Context, tx *sql.Tx, id string) (*models.Rental, error) {
	q := query.From(constants.TableRentals).
		Select(rentalFields).
		Where("`id` = ?", id).
		Limit(1).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	rentals, err := scanRentals(rows)
	if err != nil {
		return nil, err
	}
	if len(rentals) == 0 {
		return nil, nil
	}
	return rentals[0], nil
}

// FindActiveByItem returns the live rental of an item, nil when the item
// is not currently rented. Callers lock the item row first, so reading
// inside the same transaction sees a consistent state.
func (r *RentalRepository) FindActiveByItem(ctx context.Context, tx *sql.Tx, tableID, itemID string) (*models.Rental, error) {
	q := query.From(constants.TableRentals).
		Select(rentalFields).
		Where("`table_id` = ?", tableID).
		Where("`item_id` = ?", itemID).
		Where("`status` = ?", string(constants.RentalStatusActive)).
		Limit(1).
		Build()

	rows, err := r.GetExecutor(tx).QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	rentals, err := scanRentals(rows)
	if err != nil {
		return nil, err
	}
	if len(rentals) == 0 {
		return nil, nil
	}
	return rentals[0], nil
}

// List returns rentals matching the filter, newest first
func (r *RentalRepository) List(ctx context.Context, f RentalFilter, limit, offset int) ([]*models.Rental, error) {
	b := query.From(constants.TableRentals).Select(rentalFields)
	applyRentalFilter(b, f)
	b.OrderBy("created_at", "desc").
		OrderBy("id", "asc").
		Limit(limit).
		Offset(offset)
	q := b.Build()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	return scanRentals(rows)
}

// Count returns how many rentals match the filter
func (r *RentalRepository) Count(ctx context.Context, f RentalFilter) (int, error) {
	b := query.From(constants.TableRentals).AddSelectRaw("COUNT(*)")
	applyRentalFilter(b, f)
	q := b.Build()

	var count int
	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListActiveWithPeriod returns active rentals of rent tables that declare a
// rental period. Overdue filtering happens at the caller with the period.
func (r *RentalRepository) ListActiveWithPeriod(ctx context.Context) ([]*ActiveRental, error) {
	sqlText := fmt.Sprintf(`
		SELECT r.id, r.rental_number, r.table_id, r.item_id, r.item_data, r.customer_id,
		       r.status, r.notes, r.rented_at, r.released_at, r.created_at, r.updated_at,
		       t.rental_period
		FROM %s r
		INNER JOIN %s t ON t.id = r.table_id
		WHERE r.status = ? AND t.rental_period IS NOT NULL AND t.rental_period > 0`,
		constants.TableRentals, constants.TableUserTables)

	rows, err := r.db.QueryContext(ctx, sqlText, string(constants.RentalStatusActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*ActiveRental, 0)
	for rows.Next() {
		var (
			ar                   ActiveRental
			blob, status         string
			notes                sql.NullString
			releasedAt           interface{}
			rentedAt             interface{}
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&ar.ID, &ar.RentalNumber, &ar.TableID, &ar.ItemID, &blob, &ar.CustomerID,
			&status, &notes, &rentedAt, &releasedAt, &createdAt, &updatedAt,
			&ar.RentalPeriod); err != nil {
			return nil, err
		}

		ar.ItemData = models.DecodeRowData(blob)
		ar.Status = constants.RentalStatus(status)
		ar.Notes = stringPtr(notes)
		ar.RentedAt = asTime(rentedAt)
		if t := asTime(releasedAt); !t.IsZero() {
			ar.ReleasedAt = &t
		}
		ar.CreatedAt = asTime(createdAt)
		ar.UpdatedAt = asTime(updatedAt)

		out = append(out, &ar)
	}
	return out, rows.Err()
}

// Update applies field changes to a rental record
func (r *RentalRepository) Update(ctx context.Context, tx *sql.Tx, id string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	q := query.Update(constants.TableRentals).
		Set(fields).
		Where("`id` = ?", id).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateIfStatus applies field changes only while the rental still has the
// given status. A zero affected count means another writer got there first.
func (r *RentalRepository) UpdateIfStatus(ctx context.Context, tx *sql.Tx, id string, status constants.RentalStatus, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}

	q := query.Update(constants.TableRentals).
		Set(fields).
		Where("`id` = ?", id).
		Where("`status` = ?", string(status)).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one rental record
func (r *RentalRepository) Delete(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	q := query.Delete(constants.TableRentals).
		Where("`id` = ?", id).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByTable removes the rental history of a table, used by table deletion
func (r *RentalRepository) DeleteByTable(ctx context.Context, tx *sql.Tx, tableID string) (int64, error) {
	q := query.Delete(constants.TableRentals).
		Where("`table_id` = ?", tableID).
		Build()

	res, err := r.GetExecutor(tx).ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func applyRentalFilter(b *query.Builder, f RentalFilter) {
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

func scanRentals(rows *sql.Rows) ([]*models.Rental, error) {
	defer rows.Close()

	out := make([]*models.Rental, 0)
	for rows.Next() {
		var (
			rental               models.Rental
			blob, status         string
			notes                sql.NullString
			rentedAt, releasedAt interface{}
			createdAt, updatedAt interface{}
		)
		if err := rows.Scan(&rental.ID, &rental.RentalNumber, &rental.TableID, &rental.ItemID, &blob,
			&rental.CustomerID, &status, &notes, &rentedAt, &releasedAt,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}

		rental.ItemData = models.DecodeRowData(blob)
		rental.Status = constants.RentalStatus(status)
		rental.Notes = stringPtr(notes)
		rental.RentedAt = asTime(rentedAt)
		if t := asTime(releasedAt); !t.IsZero() {
			rental.ReleasedAt = &t
		}
		rental.CreatedAt = asTime(createdAt)
		rental.UpdatedAt = asTime(updatedAt)

		out = append(out, &rental)
	}
	return out, rows.Err()
}
