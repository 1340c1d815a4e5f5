package services

import (
	"context"
	"sort"
	"strings"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// PublicService is the read surface served to API token holders plus the
// buy/rent/release passthrough. It only ever sees sale and rent tables;
// everything else stays invisible to tokens.
type PublicService struct {
	tableRepo *persistence.TableRepository
	rowRepo   *persistence.RowRepository
	access    *AccessService
	inventory *InventoryService
	cache     *cache.RowCache
}

// NewPublicService creates a new PublicService
func NewPublicService(
	tableRepo *persistence.TableRepository,
	rowRepo *persistence.RowRepository,
	access *AccessService,
	inventory *InventoryService,
	rowCache *cache.RowCache,
) *PublicService {
	return &PublicService{
		tableRepo: tableRepo,
		rowRepo:   rowRepo,
		access:    access,
		inventory: inventory,
		cache:     rowCache,
	}
}

// Tables lists every table the token can reach, with row counts, sorted by
// name. Counts go through the row-count cache family.
func (s *PublicService) Tables(ctx context.Context, token *models.APIToken) (*models.PublicTables, error) {
	tables, err := s.access.AccessibleTables(ctx, token)
	if err != nil {
		return nil, err
	}

	cards, err := s.tableCards(ctx, tables)
	if err != nil {
		return nil, err
	}
	return &models.PublicTables{Tables: cards, Count: len(cards)}, nil
}

// Search returns the accessible tables that declare every one of the named
// columns, compared case-insensitively.
func (s *PublicService) Search(ctx context.Context, token *models.APIToken, columns []string) (*models.PublicSearch, error) {
	cleaned := make([]string, 0, len(columns))
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.NewValidationError("columns", "columns parameter is required")
	}

	tables, err := s.access.AccessibleTables(ctx, token)
	if err != nil {
		return nil, err
	}

	matchingIDs, err := s.tableRepo.SearchByColumns(ctx, cleaned)
	if err != nil {
		return nil, errors.NewInternalError("failed to search columns", err)
	}
	matching := make(map[string]bool, len(matchingIDs))
	for _, id := range matchingIDs {
		matching[id] = true
	}

	hits := make([]*models.Table, 0, len(tables))
	for _, t := range tables {
		if matching[t.ID] {
			hits = append(hits, t)
		}
	}

	cards, err := s.tableCards(ctx, hits)
	if err != nil {
		return nil, err
	}
	return &models.PublicSearch{Tables: cards, Count: len(cards), SearchedColumns: cleaned}, nil
}

// Items returns a table's rows, newest first. Flat mode merges the data
// keys to the top level; nested mode keeps them under "data".
func (s *PublicService) Items(ctx context.Context, token *models.APIToken, tableID string, flat bool) (*models.PublicItems, error) {
	table, err := s.requireAccessible(ctx, token, tableID)
	if err != nil {
		return nil, err
	}
	if table.Type != constants.TableTypeSale && table.Type != constants.TableTypeRent {
		return nil, errors.NewPermissionError("list", "items of a non-inventory table")
	}

	rows, err := s.rowRepo.FindPage(ctx, tableID, nil, constants.ColumnCreatedAt, "desc", constants.DistinctValuesLimit, 0)
	if err != nil {
		return nil, errors.NewInternalError("failed to load items", err)
	}

	items := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if flat {
			items = append(items, row.Flatten(table.Name, string(table.Type)))
			continue
		}
		items = append(items, map[string]interface{}{
			"id":        row.ID,
			"data":      row.Data,
			"createdAt": row.CreatedAt,
			"updatedAt": row.UpdatedAt,
		})
	}

	return &models.PublicItems{
		Items:     items,
		TableID:   table.ID,
		TableName: table.Name,
		TableType: string(table.Type),
		Count:     len(items),
	}, nil
}

// Item returns one row in the flattened shape
func (s *PublicService) Item(ctx context.Context, token *models.APIToken, tableID, itemID string) (map[string]interface{}, error) {
	table, err := s.requireAccessible(ctx, token, tableID)
	if err != nil {
		return nil, err
	}

	row, err := s.rowRepo.FindByID(ctx, nil, tableID, itemID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load item", err)
	}
	if row == nil {
		return nil, errors.NewNotFoundError("item", itemID)
	}
	return row.Flatten(table.Name, string(table.Type)), nil
}

// Availability probes whether an item can be bought or rented right now
func (s *PublicService) Availability(ctx context.Context, token *models.APIToken, tableID, itemID string, quantity float64) (*models.PublicAvailability, error) {
	if _, err := s.requireAccessible(ctx, token, tableID); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		quantity = 1
	}

	avail, err := s.inventory.CheckAvailability(ctx, tableID, itemID, quantity)
	if err != nil {
		return nil, err
	}

	out := &models.PublicAvailability{Available: avail.Available, RequestedQty: quantity}
	switch {
	case avail.Quantity != nil:
		out.AvailableQty = *avail.Quantity
	case avail.Available:
		out.AvailableQty = 1
	}
	return out, nil
}

// Records pages flattened rows across every accessible table, filtered by
// case-insensitive column equality and ordered by most recent update. An
// optional column list projects the output down to the named data keys.
func (s *PublicService) Records(ctx context.Context, token *models.APIToken, where map[string]string,
	columns []string, limit, offset int) (*models.PublicRecords, error) {

	if limit <= 0 {
		limit = constants.PublicRecordsDefaultLimit
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	tables, err := s.access.AccessibleTables(ctx, token)
	if err != nil {
		return nil, err
	}

	out := &models.PublicRecords{
		Records:    []map[string]interface{}{},
		Pagination: models.PublicPagination{Page: offset/limit + 1, Limit: limit},
	}
	if len(where) > 0 {
		out.Filters = where
	}
	if len(tables) == 0 {
		return out, nil
	}

	tableIDs := make([]string, len(tables))
	byID := make(map[string]*models.Table, len(tables))
	for i, t := range tables {
		tableIDs[i] = t.ID
		byID[t.ID] = t
	}

	total, err := s.rowRepo.CountAcrossTables(ctx, tableIDs, where)
	if err != nil {
		return nil, errors.NewInternalError("failed to count records", err)
	}
	rows, err := s.rowRepo.FindAcrossTables(ctx, tableIDs, where, limit, offset)
	if err != nil {
		return nil, errors.NewInternalError("failed to load records", err)
	}

	for _, row := range rows {
		table := byID[row.TableID]
		record := row.Flatten(table.Name, string(table.Type))
		if len(columns) > 0 {
			record = projectRecord(record, columns)
		}
		out.Records = append(out.Records, record)
	}

	out.Count = len(out.Records)
	out.Total = total
	out.Pagination.Total = total
	out.Pagination.HasMore = offset+limit < total
	return out, nil
}

// Values lists the distinct values of one column across every accessible
// table that declares it. TablesSampled names the tables that contributed.
func (s *PublicService) Values(ctx context.Context, token *models.APIToken, column string, where map[string]string) (*models.PublicValues, error) {
	tables, err := s.access.AccessibleTables(ctx, token)
	if err != nil {
		return nil, err
	}

	out := &models.PublicValues{Column: column, Values: []string{}, TablesSampled: []string{}}
	if len(where) > 0 {
		out.Filters = where
	}
	if len(tables) == 0 {
		return out, nil
	}

	holderIDs, err := s.tableRepo.SearchByColumns(ctx, []string{column})
	if err != nil {
		return nil, errors.NewInternalError("failed to resolve column", err)
	}
	holders := make(map[string]bool, len(holderIDs))
	for _, id := range holderIDs {
		holders[id] = true
	}

	sampled := make([]string, 0, len(tables))
	sampledNames := make([]string, 0, len(tables))
	for _, t := range tables {
		if holders[t.ID] {
			sampled = append(sampled, t.ID)
			sampledNames = append(sampledNames, t.Name)
		}
	}
	if len(sampled) == 0 {
		return out, nil
	}

	values, err := s.rowRepo.DistinctValues(ctx, sampled, column, where, true, 0)
	if err != nil {
		return nil, errors.NewInternalError("failed to load values", err)
	}
	sort.Strings(values)

	out.Values = values
	out.Count = len(values)
	out.TablesSampled = sampledNames
	return out, nil
}

// Purchase checks token access, then hands off to the inventory engine
func (s *PublicService) Purchase(ctx context.Context, token *models.APIToken, req models.PurchaseRequest) (*models.Sale, error) {
	if _, err := s.requireAccessible(ctx, token, req.TableID); err != nil {
		return nil, err
	}
	return s.inventory.Purchase(ctx, req)
}

// Rent checks token access, then hands off to the inventory engine
func (s *PublicService) Rent(ctx context.Context, token *models.APIToken, req models.RentRequest) (*models.Rental, error) {
	if _, err := s.requireAccessible(ctx, token, req.TableID); err != nil {
		return nil, err
	}
	return s.inventory.Rent(ctx, req)
}

// Release checks token access when the item is named directly; a release by
// rental id resolves the table through the rental record first.
func (s *PublicService) Release(ctx context.Context, token *models.APIToken, req models.ReleaseRequest) (*models.Rental, error) {
	if req.RentalID != "" {
		rental, err := s.inventory.GetRental(ctx, req.RentalID)
		if err != nil {
			return nil, err
		}
		if _, err := s.requireAccessible(ctx, token, rental.TableID); err != nil {
			return nil, err
		}
	} else if req.TableID != "" {
		if _, err := s.requireAccessible(ctx, token, req.TableID); err != nil {
			return nil, err
		}
	}
	return s.inventory.Release(ctx, req)
}

// requireAccessible loads a table and enforces the token's reach on it
func (s *PublicService) requireAccessible(ctx context.Context, token *models.APIToken, tableID string) (*models.Table, error) {
	table, err := s.tableRepo.GetByID(ctx, nil, tableID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load table", err)
	}
	if table == nil {
		return nil, errors.NewNotFoundError("table", tableID)
	}

	allowed, err := s.access.CanAccess(ctx, token, table.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errors.NewPermissionError("access", "this table")
	}
	return table, nil
}

// projectRecord strips a flattened record down to the requested columns.
// Identity keys always survive so records stay addressable.
func projectRecord(record map[string]interface{}, columns []string) map[string]interface{} {
	keep := map[string]bool{"id": true, "tableId": true, "tableName": true, "tableType": true}
	for _, c := range columns {
		if c = strings.TrimSpace(c); c != "" {
			keep[c] = true
		}
	}

	out := make(map[string]interface{}, len(keep))
	for k, v := range record {
		if keep[k] {
			out[k] = v
		}
	}
	return out
}

// tableCards builds the public table listing, reading row counts through
// the cache and back-filling misses in one batched count.
func (s *PublicService) tableCards(ctx context.Context, tables []*models.Table) ([]models.PublicTable, error) {
	counts := make(map[string]int, len(tables))
	misses := make([]string, 0, len(tables))
	for _, t := range tables {
		if n, ok := s.cache.GetRowCount(t.ID); ok {
			counts[t.ID] = n
		} else {
			misses = append(misses, t.ID)
		}
	}

	if len(misses) > 0 {
		fresh, err := s.rowRepo.CountByTables(ctx, misses)
		if err != nil {
			return nil, errors.NewInternalError("failed to count rows", err)
		}
		for _, id := range misses {
			counts[id] = fresh[id]
			s.cache.SetRowCount(id, fresh[id])
		}
	}

	cards := make([]models.PublicTable, 0, len(tables))
	for _, t := range tables {
		cards = append(cards, models.PublicTable{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			TableType:   string(t.Type),
			RowCount:    counts[t.ID],
		})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Name < cards[j].Name })
	return cards, nil
}
