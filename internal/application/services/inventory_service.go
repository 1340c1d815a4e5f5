package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// inventoryRetries bounds deadlock retries on purchase/rent/release. The
// rent and release paths lock the item row and the rental record in
// opposite directions under load, so deadlocks are expected, not a bug.
const inventoryRetries = 3

// InventoryService runs the stock mutations of sale and rent tables. It is
// the only writer of the qty, used and available fields; everything here
// happens inside one transaction per operation, with the item row locked
// and the decrement guarded by the previously read value.
type InventoryService struct {
	rowRepo      *persistence.RowRepository
	saleRepo     *persistence.SaleRepository
	rentalRepo   *persistence.RentalRepository
	sequenceRepo *persistence.SequenceRepository
	schema       *SchemaService
	txManager    *persistence.TransactionManager
	cache        *cache.RowCache
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	rowRepo *persistence.RowRepository,
	saleRepo *persistence.SaleRepository,
	rentalRepo *persistence.RentalRepository,
	sequenceRepo *persistence.SequenceRepository,
	schema *SchemaService,
	txManager *persistence.TransactionManager,
	rowCache *cache.RowCache,
) *InventoryService {
	return &InventoryService{
		rowRepo:      rowRepo,
		saleRepo:     saleRepo,
		rentalRepo:   rentalRepo,
		sequenceRepo: sequenceRepo,
		schema:       schema,
		txManager:    txManager,
		cache:        rowCache,
	}
}

// Purchase buys a quantity of one sale item. Stock check, decrement, sale
// number allocation and the sale record land in a single commit; the
// decrement is additionally guarded by the qty value read under lock, so a
// concurrent purchase can never double-spend the same stock.
func (s *InventoryService) Purchase(ctx context.Context, req models.PurchaseRequest) (*models.Sale, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	table, err := s.schema.RequireTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if table.Type != constants.TableTypeSale {
		return nil, errors.NewNotSaleTableError(table.ID, string(table.Type))
	}

	var sale *models.Sale
	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		item, err := s.rowRepo.GetLock(ctx, tx, req.TableID, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errors.NewNotFoundError("item", req.ItemID)
		}

		qty, _ := item.Data.GetNumber(constants.ColumnQty)
		if qty < float64(quantity) {
			return errors.NewInsufficientStockError(req.ItemID, float64(quantity), qty)
		}
		unitPrice, _ := item.Data.GetNumber(constants.ColumnPrice)

		snapshot := item.Data.Clone()

		newData := item.Data.Clone()
		newData[constants.ColumnQty] = qty - float64(quantity)

		now := time.Now()
		guard := valueLiteral(qty)
		affected, err := s.rowRepo.UpdateDataGuarded(ctx, tx, req.TableID, req.ItemID, newData, constants.ColumnQty, guard, now)
		if err != nil {
			return err
		}
		if affected != 1 {
			return errors.NewStaleItemError(req.ItemID)
		}

		seq, err := s.sequenceRepo.Next(ctx, tx, constants.SequenceScopeSale, now.Year())
		if err != nil {
			return err
		}

		sale = &models.Sale{
			ID:            utils.GenerateID(),
			SaleNumber:    formatSerial(constants.SalePrefix, now.Year(), seq),
			TableID:       req.TableID,
			ItemID:        req.ItemID,
			ItemData:      snapshot,
			CustomerID:    req.CustomerID,
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			TotalAmount:   unitPrice * float64(quantity),
			Status:        constants.SaleStatusCompleted,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.saleRepo.Create(ctx, tx, sale)
	}, inventoryRetries)
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(req.TableID, req.ItemID)
	log.Printf("✅ Sale %s: %d x item %s for customer %s (total %.2f)",
		sale.SaleNumber, sale.Quantity, sale.ItemID, sale.CustomerID, sale.TotalAmount)
	return sale, nil
}

// Rent checks out one rent item. A used item can never be rented again; an
// unavailable item is currently out. The availability flip is guarded the
// same way a purchase decrement is.
func (s *InventoryService) Rent(ctx context.Context, req models.RentRequest) (*models.Rental, error) {
	table, err := s.schema.RequireTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if table.Type != constants.TableTypeRent {
		return nil, errors.NewNotRentTableError(table.ID, string(table.Type))
	}

	var rental *models.Rental
	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		item, err := s.rowRepo.GetLock(ctx, tx, req.TableID, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return errors.NewNotFoundError("item", req.ItemID)
		}

		if item.Data.GetBool(constants.ColumnUsed) {
			return errors.NewItemUsedError(req.ItemID)
		}
		if !item.Data.GetBool(constants.ColumnAvailable) {
			return errors.NewAlreadyRentedError(req.ItemID)
		}

		snapshot := item.Data.Clone()

		newData := item.Data.Clone()
		newData[constants.ColumnAvailable] = false

		now := time.Now()
		guard := valueLiteral(item.Data.Get(constants.ColumnAvailable))
		affected, err := s.rowRepo.UpdateDataGuarded(ctx, tx, req.TableID, req.ItemID, newData, constants.ColumnAvailable, guard, now)
		if err != nil {
			return err
		}
		if affected != 1 {
			return errors.NewStaleItemError(req.ItemID)
		}

		seq, err := s.sequenceRepo.Next(ctx, tx, constants.SequenceScopeRent, now.Year())
		if err != nil {
			return err
		}

		rental = &models.Rental{
			ID:           utils.GenerateID(),
			RentalNumber: formatSerial(constants.RentPrefix, now.Year(), seq),
			TableID:      req.TableID,
			ItemID:       req.ItemID,
			ItemData:     snapshot,
			CustomerID:   req.CustomerID,
			Status:       constants.RentalStatusActive,
			Notes:        req.Notes,
			RentedAt:     now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.rentalRepo.Create(ctx, tx, rental)
	}, inventoryRetries)
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(req.TableID, req.ItemID)
	log.Printf("✅ Rental %s: item %s to customer %s", rental.RentalNumber, rental.ItemID, rental.CustomerID)
	return rental, nil
}

// Release ends a rental, addressed by rental id or by the rented item. The
// rental flips to released exactly once; the item becomes used for good,
// and available stays false. Releasing anything but an active rental fails.
func (s *InventoryService) Release(ctx context.Context, req models.ReleaseRequest) (*models.Rental, error) {
	if req.RentalID == "" && (req.TableID == "" || req.ItemID == "") {
		return nil, errors.NewValidationError("rentalId", "Provide rentalId or both tableId and itemId")
	}

	var released *models.Rental
	err := s.txManager.WithRetry(func(tx *sql.Tx) error {
		var rental *models.Rental
		var item *models.Row
		var err error

		if req.RentalID != "" {
			rental, err = s.rentalRepo.GetByID(ctx, tx, req.RentalID)
			if err != nil {
				return err
			}
			if rental == nil {
				return errors.NewNotFoundError("rental", req.RentalID)
			}
			// The item row may be gone if rows were deleted after renting;
			// the rental record still gets closed.
			item, err = s.rowRepo.GetLock(ctx, tx, rental.TableID, rental.ItemID)
			if err != nil {
				return err
			}
		} else {
			item, err = s.rowRepo.GetLock(ctx, tx, req.TableID, req.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return errors.NewNotFoundError("item", req.ItemID)
			}
			rental, err = s.rentalRepo.FindActiveByItem(ctx, tx, req.TableID, req.ItemID)
			if err != nil {
				return err
			}
			if rental == nil {
				return errors.NewNotFoundError("active rental", req.ItemID)
			}
		}

		if rental.Status != constants.RentalStatusActive {
			return errors.NewRentalNotActiveError(rental.ID, string(rental.Status))
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status":      string(constants.RentalStatusReleased),
			"released_at": now,
			"updated_at":  now,
		}
		if req.Notes != nil {
			fields["notes"] = *req.Notes
		}

		affected, err := s.rentalRepo.UpdateIfStatus(ctx, tx, rental.ID, constants.RentalStatusActive, fields)
		if err != nil {
			return err
		}
		if affected == 0 {
			status := string(constants.RentalStatusReleased)
			if fresh, err := s.rentalRepo.GetByID(ctx, tx, rental.ID); err == nil && fresh != nil {
				status = string(fresh.Status)
			}
			return errors.NewRentalNotActiveError(rental.ID, status)
		}

		if item != nil {
			newData := item.Data.Clone()
			newData[constants.ColumnUsed] = true
			if _, err := s.rowRepo.UpdateData(ctx, tx, rental.TableID, rental.ItemID, newData, now); err != nil {
				return err
			}
		}

		out := *rental
		out.Status = constants.RentalStatusReleased
		out.ReleasedAt = &now
		out.UpdatedAt = now
		if req.Notes != nil {
			out.Notes = req.Notes
		}
		released = &out
		return nil
	}, inventoryRetries)
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(released.TableID, released.ItemID)
	log.Printf("✅ Released rental %s: item %s marked used", released.RentalNumber, released.ItemID)
	return released, nil
}

// CheckAvailability answers whether an item can be bought or rented right
// now. Reads are authoritative, never cached.
func (s *InventoryService) CheckAvailability(ctx context.Context, tableID, itemID string, requested float64) (*models.Availability, error) {
	if requested <= 0 {
		requested = 1
	}

	table, err := s.schema.RequireTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	item, err := s.rowRepo.FindByID(ctx, nil, tableID, itemID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load item", err)
	}
	if item == nil {
		return nil, errors.NewNotFoundError("item", itemID)
	}

	switch table.Type {
	case constants.TableTypeSale:
		qty, _ := item.Data.GetNumber(constants.ColumnQty)
		out := &models.Availability{Available: qty >= requested, Quantity: &qty}
		if !out.Available {
			out.Reason = fmt.Sprintf("insufficient stock: requested %g, available %g", requested, qty)
		}
		return out, nil
	case constants.TableTypeRent:
		if item.Data.GetBool(constants.ColumnUsed) {
			return &models.Availability{Available: false, Reason: "item has already been used"}, nil
		}
		if !item.Data.GetBool(constants.ColumnAvailable) {
			return &models.Availability{Available: false, Reason: "item is currently rented"}, nil
		}
		return &models.Availability{Available: true}, nil
	}
	return nil, errors.NewValidationError("tableId", fmt.Sprintf("table '%s' is not an inventory table", tableID))
}

// GetSale loads one sale record
func (s *InventoryService) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load sale", err)
	}
	if sale == nil {
		return nil, errors.NewNotFoundError("sale", id)
	}
	return sale, nil
}

// ListSales pages through sale records, newest first
func (s *InventoryService) ListSales(ctx context.Context, f persistence.SaleFilter, page, limit int) ([]*models.Sale, models.PageInfo, error) {
	opts := models.ListOptions{Page: page, Limit: limit}.Normalize()

	total, err := s.saleRepo.Count(ctx, f)
	if err != nil {
		return nil, models.PageInfo{}, errors.NewInternalError("failed to count sales", err)
	}
	sales, err := s.saleRepo.List(ctx, f, opts.Limit, opts.Offset())
	if err != nil {
		return nil, models.PageInfo{}, errors.NewInternalError("failed to list sales", err)
	}
	return sales, models.NewPageInfo(total, opts.Page, opts.Limit), nil
}

// UpdateSale applies an admin mutation to a sale record. Only status,
// payment method and notes are mutable; the snapshot and amounts are not.
func (s *InventoryService) UpdateSale(ctx context.Context, id string, req models.UpdateSaleRequest) (*models.Sale, error) {
	if _, err := s.GetSale(ctx, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Status != nil {
		if !constants.IsValidSaleStatus(*req.Status) {
			return nil, errors.NewValidationError("status", fmt.Sprintf("Unknown sale status '%s'", *req.Status))
		}
		fields["status"] = *req.Status
	}
	if req.PaymentMethod != nil {
		fields["payment_method"] = *req.PaymentMethod
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if _, err := s.saleRepo.Update(ctx, nil, id, fields); err != nil {
			return nil, errors.NewInternalError("failed to update sale", err)
		}
	}
	return s.GetSale(ctx, id)
}

// ListOverdue reports the active rentals that have outstayed their table's
// rental period. An empty tableID scans every rent table.
func (s *InventoryService) ListOverdue(ctx context.Context, tableID string) ([]models.OverdueRental, error) {
	active, err := s.rentalRepo.ListActiveWithPeriod(ctx)
	if err != nil {
		return nil, errors.NewInternalError("failed to list active rentals", err)
	}

	now := time.Now()
	out := make([]models.OverdueRental, 0)
	for _, r := range active {
		if tableID != "" && r.TableID != tableID {
			continue
		}
		over := r.OverdueBy(r.RentalPeriod, now)
		if over <= 0 {
			continue
		}
		out = append(out, models.OverdueRental{
			Rental:       r.Rental,
			RentalPeriod: r.RentalPeriod,
			OverdueDays:  int(math.Ceil(over.Hours() / 24)),
		})
	}
	return out, nil
}

// GetRental loads one rental record
func (s *InventoryService) GetRental(ctx context.Context, id string) (*models.Rental, error) {
	rental, err := s.rentalRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load rental", err)
	}
	if rental == nil {
		return nil, errors.NewNotFoundError("rental", id)
	}
	return rental, nil
}

// ListRentals pages through rental records, newest first
func (s *InventoryService) ListRentals(ctx context.Context, f persistence.RentalFilter, page, limit int) ([]*models.Rental, models.PageInfo, error) {
	opts := models.ListOptions{Page: page, Limit: limit}.Normalize()

	total, err := s.rentalRepo.Count(ctx, f)
	if err != nil {
		return nil, models.PageInfo{}, errors.NewInternalError("failed to count rentals", err)
	}
	rentals, err := s.rentalRepo.List(ctx, f, opts.Limit, opts.Offset())
	if err != nil {
		return nil, models.PageInfo{}, errors.NewInternalError("failed to list rentals", err)
	}
	return rentals, models.NewPageInfo(total, opts.Page, opts.Limit), nil
}

// UpdateRental applies an admin mutation to a rental record. Status changes
// here move between the bookkeeping states; the item row is not touched,
// that is what Release is for.
func (s *InventoryService) UpdateRental(ctx context.Context, id string, req models.UpdateRentalRequest) (*models.Rental, error) {
	if _, err := s.GetRental(ctx, id); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Status != nil {
		if !constants.IsValidRentalStatus(*req.Status) {
			return nil, errors.NewValidationError("status", fmt.Sprintf("Unknown rental status '%s'", *req.Status))
		}
		fields["status"] = *req.Status
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if _, err := s.rentalRepo.Update(ctx, nil, id, fields); err != nil {
			return nil, errors.NewInternalError("failed to update rental", err)
		}
	}
	return s.GetRental(ctx, id)
}

// formatSerial renders SALE-2026-042 style transaction numbers
func formatSerial(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, constants.SequencePadWidth, seq)
}
