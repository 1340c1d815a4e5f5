package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// RowService reads and writes the rows of user tables. Sorting runs in two
// tiers: system columns push ORDER BY and pagination into SQL, data columns
// load the filtered set and sort in memory, since a JSON key has no index to
// lean on. The memory tier is O(matching rows) and intended for the table
// sizes this platform serves.
type RowService struct {
	rowRepo    *persistence.RowRepository
	schema     *SchemaService
	validation *ValidationService
	txManager  *persistence.TransactionManager
	cache      *cache.RowCache
}

// NewRowService creates a new RowService
func NewRowService(
	rowRepo *persistence.RowRepository,
	schema *SchemaService,
	validation *ValidationService,
	txManager *persistence.TransactionManager,
	rowCache *cache.RowCache,
) *RowService {
	return &RowService{
		rowRepo:    rowRepo,
		schema:     schema,
		validation: validation,
		txManager:  txManager,
		cache:      rowCache,
	}
}

// List returns one page of rows plus pagination info. Filters match data
// keys exactly; unknown filter keys simply match nothing. The sort column
// must be a system column or a declared column of the table.
func (s *RowService) List(ctx context.Context, tableID string, opts models.ListOptions, user *models.UserContext) ([]*models.Row, models.PageInfo, error) {
	table, err := s.schema.RequireReadable(ctx, tableID, user)
	if err != nil {
		return nil, models.PageInfo{}, err
	}

	if opts.Sort == "" {
		opts.Sort = constants.ColumnCreatedAt
		if opts.Dir == "" {
			opts.Dir = "desc"
		}
	}
	opts = opts.Normalize()

	if constants.IsSystemColumn(opts.Sort) {
		total, err := s.countRows(ctx, tableID, opts.Filters)
		if err != nil {
			return nil, models.PageInfo{}, errors.NewInternalError("failed to count rows", err)
		}
		rows, err := s.rowRepo.FindPage(ctx, tableID, opts.Filters, opts.Sort, opts.Dir, opts.Limit, opts.Offset())
		if err != nil {
			return nil, models.PageInfo{}, errors.NewInternalError("failed to list rows", err)
		}
		return rows, models.NewPageInfo(total, opts.Page, opts.Limit), nil
	}

	if !table.HasColumn(opts.Sort) {
		return nil, models.PageInfo{}, errors.NewValidationError("sort", fmt.Sprintf("Unknown sort column '%s'", opts.Sort))
	}

	all, err := s.rowRepo.FindAll(ctx, nil, tableID, opts.Filters)
	if err != nil {
		return nil, models.PageInfo{}, errors.NewInternalError("failed to list rows", err)
	}
	if len(opts.Filters) == 0 {
		s.cache.SetRowCount(tableID, len(all))
	}

	sortRowsByDataKey(all, opts.Sort, opts.Dir)
	page := paginateRows(all, opts.Offset(), opts.Limit)
	return page, models.NewPageInfo(len(all), opts.Page, opts.Limit), nil
}

// Get loads one row, read-through the item cache
func (s *RowService) Get(ctx context.Context, tableID, rowID string, user *models.UserContext) (*models.Row, error) {
	if _, err := s.schema.RequireReadable(ctx, tableID, user); err != nil {
		return nil, err
	}

	if row, ok := s.cache.GetItem(tableID, rowID); ok {
		return row, nil
	}

	row, err := s.rowRepo.FindByID(ctx, nil, tableID, rowID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load row", err)
	}
	if row == nil {
		return nil, errors.NewNotFoundError("row", rowID)
	}
	s.cache.SetItem(row)
	return row, nil
}

// Create validates and stores one new row
func (s *RowService) Create(ctx context.Context, tableID string, data models.RowData, user *models.UserContext) (*models.Row, error) {
	table, err := s.requireRowWrite(ctx, tableID, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	row := &models.Row{
		ID:        utils.GenerateID(),
		TableID:   tableID,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		validated, err := s.validation.ValidateRow(ctx, tx, table, data, "")
		if err != nil {
			return err
		}
		row.Data = validated
		return s.rowRepo.Insert(ctx, tx, row)
	})
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(tableID)
	return row, nil
}

// CreateMany validates and bulk-inserts a batch of rows in one transaction.
// Duplicate checks also watch for collisions inside the batch itself, which
// the storage probe alone would miss.
func (s *RowService) CreateMany(ctx context.Context, tableID string, items []models.RowData, user *models.UserContext) ([]*models.Row, error) {
	table, err := s.requireRowWrite(ctx, tableID, user)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []*models.Row{}, nil
	}

	uniqueCols := make([]string, 0)
	for _, col := range table.Columns {
		if !col.AllowDuplicates {
			uniqueCols = append(uniqueCols, col.Name)
		}
	}
	seen := make(map[string]map[string]bool, len(uniqueCols))
	for _, name := range uniqueCols {
		seen[name] = make(map[string]bool)
	}

	now := time.Now()
	rows := make([]*models.Row, 0, len(items))

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		for i, data := range items {
			validated, err := s.validation.ValidateRow(ctx, tx, table, data, "")
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			for _, name := range uniqueCols {
				v, ok := validated[name]
				if !ok || v == nil {
					continue
				}
				literal := valueLiteral(v)
				if seen[name][literal] {
					return errors.NewConflictError("row", name, literal)
				}
				seen[name][literal] = true
			}
			rows = append(rows, &models.Row{
				ID:        utils.GenerateID(),
				TableID:   tableID,
				Data:      validated,
				CreatedBy: user.ID,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		return s.rowRepo.BulkInsert(ctx, tx, rows, constants.BulkInsertBatchSize)
	})
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(tableID)
	log.Printf("📝 Bulk inserted %d rows into table %s", len(rows), tableID)
	return rows, nil
}

// Update merges the given keys into the stored row and validates the result.
// A key set to null removes it. Stock fields of sale and rent tables belong
// to the inventory engine and are rejected here.
func (s *RowService) Update(ctx context.Context, tableID, rowID string, updates models.RowData, user *models.UserContext) (*models.Row, error) {
	table, err := s.requireRowWrite(ctx, tableID, user)
	if err != nil {
		return nil, err
	}

	for key := range updates {
		if isStockColumn(table.Type, key) {
			return nil, errors.NewValidationError(key, fmt.Sprintf("Column '%s' is managed by the inventory engine", key))
		}
	}

	var updated *models.Row
	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		existing, err := s.rowRepo.GetLock(ctx, tx, tableID, rowID)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.NewNotFoundError("row", rowID)
		}

		merged := existing.Data.Clone()
		for k, v := range updates {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}

		validated, err := s.validation.ValidateRow(ctx, tx, table, merged, rowID)
		if err != nil {
			return err
		}

		now := time.Now()
		if _, err := s.rowRepo.UpdateData(ctx, tx, tableID, rowID, validated, now); err != nil {
			return err
		}
		updated = &models.Row{
			ID:        existing.ID,
			TableID:   existing.TableID,
			Data:      validated,
			CreatedBy: existing.CreatedBy,
			CreatedAt: existing.CreatedAt,
			UpdatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.RowChanged(tableID, rowID)
	return updated, nil
}

// Delete removes one row
func (s *RowService) Delete(ctx context.Context, tableID, rowID string, user *models.UserContext) error {
	if _, err := s.requireRowWrite(ctx, tableID, user); err != nil {
		return err
	}

	affected, err := s.rowRepo.Delete(ctx, nil, tableID, rowID)
	if err != nil {
		return errors.NewInternalError("failed to delete row", err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("row", rowID)
	}

	s.cache.RowChanged(tableID, rowID)
	return nil
}

// MassDelete removes a set of rows by id. An empty set deletes nothing and
// is not an error. Returns how many rows actually went away.
func (s *RowService) MassDelete(ctx context.Context, tableID string, ids []string, user *models.UserContext) (int64, error) {
	if _, err := s.requireRowWrite(ctx, tableID, user); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	affected, err := s.rowRepo.DeleteMany(ctx, nil, tableID, ids)
	if err != nil {
		return 0, errors.NewInternalError("failed to delete rows", err)
	}

	s.cache.RowChanged(tableID, ids...)
	log.Printf("🗑️ Mass deleted %d/%d rows from table %s", affected, len(ids), tableID)
	return affected, nil
}

// Values returns the distinct values of one declared column, sorted
func (s *RowService) Values(ctx context.Context, tableID, column string, filters map[string]string, user *models.UserContext) ([]string, error) {
	table, err := s.schema.RequireReadable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}
	if !table.HasColumn(column) {
		return nil, errors.NewNotFoundError("column", column)
	}

	values, err := s.rowRepo.DistinctValues(ctx, []string{tableID}, column, filters, false, 0)
	if err != nil {
		return nil, errors.NewInternalError("failed to collect values", err)
	}
	sort.Strings(values)
	return values, nil
}

func (s *RowService) requireRowWrite(ctx context.Context, tableID string, user *models.UserContext) (*models.Table, error) {
	table, err := s.schema.RequireReadable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}
	if !CanWriteRows(table, user) {
		return nil, errors.NewPermissionError("write", "row")
	}
	return table, nil
}

// countRows reads the row count through the cache when unfiltered
func (s *RowService) countRows(ctx context.Context, tableID string, filters map[string]string) (int, error) {
	if len(filters) == 0 {
		if n, ok := s.cache.GetRowCount(tableID); ok {
			return n, nil
		}
	}
	n, err := s.rowRepo.Count(ctx, tableID, filters)
	if err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		s.cache.SetRowCount(tableID, n)
	}
	return n, nil
}

// isStockColumn reports whether a data key is a stock field the inventory
// engine owns. Price and fee stay freely editable; quantities and rental
// state do not.
func isStockColumn(t constants.TableType, key string) bool {
	switch t {
	case constants.TableTypeSale:
		return strings.EqualFold(key, constants.ColumnQty)
	case constants.TableTypeRent:
		return strings.EqualFold(key, constants.ColumnUsed) || strings.EqualFold(key, constants.ColumnAvailable)
	}
	return false
}

// sortRowsByDataKey orders rows by one data key. Values compare numerically
// when both sides parse as numbers, lexicographically otherwise. Rows missing
// the key sort lowest, so they lead ascending and trail descending; the sort
// is stable either way.
func sortRowsByDataKey(rows []*models.Row, key, dir string) {
	desc := dir == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRowValues(rows[i].Data[key], rows[j].Data[key])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareRowValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aok := utils.ToFloat64(a)
	bf, bok := utils.ToFloat64(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(valueLiteral(a), valueLiteral(b))
}

func paginateRows(rows []*models.Row, offset, limit int) []*models.Row {
	if offset >= len(rows) {
		return []*models.Row{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
