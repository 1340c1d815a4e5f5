package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/matching"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// requiredColumnsFor lists the columns a table type demands, in declared
// order. The matcher and the conversion both walk this order, which is what
// keeps mapping suggestions deterministic.
func requiredColumnsFor(t constants.TableType) []models.RequiredColumn {
	switch t {
	case constants.TableTypeSale:
		return []models.RequiredColumn{
			{Name: constants.ColumnPrice, Type: constants.ColumnTypeNumber, Required: true},
			{Name: constants.ColumnQty, Type: constants.ColumnTypeNumber, Required: true},
		}
	case constants.TableTypeRent:
		return []models.RequiredColumn{
			{Name: constants.ColumnPrice, Type: constants.ColumnTypeNumber, Required: true},
			{Name: constants.ColumnFee, Type: constants.ColumnTypeNumber, Required: true},
			{Name: constants.ColumnUsed, Type: constants.ColumnTypeBoolean, Required: true},
			{Name: constants.ColumnAvailable, Type: constants.ColumnTypeBoolean, Required: true},
		}
	}
	return nil
}

// requiredColumnDefault gives the default value a provisioned required
// column starts with. Fresh rent items are available and unused.
func requiredColumnDefault(name string) *string {
	switch name {
	case constants.ColumnUsed:
		v := "false"
		return &v
	case constants.ColumnAvailable:
		v := "true"
		return &v
	}
	return nil
}

// ConversionService changes a table's type. The interesting part is column
// reconciliation: the target type demands columns the table may already
// have under slightly different names, and renaming them instead of
// creating duplicates is what keeps existing row data usable.
type ConversionService struct {
	tableRepo *persistence.TableRepository
	rowRepo   *persistence.RowRepository
	schema    *SchemaService
	txManager *persistence.TransactionManager
	cache     *cache.RowCache
}

// NewConversionService creates a new ConversionService
func NewConversionService(
	tableRepo *persistence.TableRepository,
	rowRepo *persistence.RowRepository,
	schema *SchemaService,
	txManager *persistence.TransactionManager,
	rowCache *cache.RowCache,
) *ConversionService {
	return &ConversionService{
		tableRepo: tableRepo,
		rowRepo:   rowRepo,
		schema:    schema,
		txManager: txManager,
		cache:     rowCache,
	}
}

// Preview computes the mapping plan for a type change without applying
// anything. Each required column gets either its best-scoring unclaimed
// existing column or a create-new suggestion.
func (s *ConversionService) Preview(ctx context.Context, tableID, targetType string, user *models.UserContext) (*models.ConversionPreview, error) {
	table, err := s.schema.RequireManageable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}
	target, err := parseTargetType(table, targetType)
	if err != nil {
		return nil, err
	}

	required := requiredColumnsFor(target)
	names := make([]string, len(required))
	for i, rc := range required {
		names[i] = rc.Name
	}
	existing := table.ColumnNames()

	matches := matching.MatchColumns(names, existing)
	mappings := make([]models.ColumnMapping, 0, len(matches))
	allMapped := true
	for _, m := range matches {
		cm := models.ColumnMapping{Target: m.Required, Confidence: m.Confidence}
		if m.Existing != "" {
			src := m.Existing
			cm.Source = &src
		} else {
			allMapped = false
		}
		mappings = append(mappings, cm)
	}

	return &models.ConversionPreview{
		TableID:         table.ID,
		CurrentType:     table.Type,
		TargetType:      target,
		RequiredColumns: required,
		ExistingColumns: existing,
		Mappings:        mappings,
		AllMapped:       allMapped,
	}, nil
}

// Apply performs the type change in one transaction: matched columns are
// renamed (row data keys migrated along), missing ones created, then the
// type flips. Because the flip commits together with the column work, there
// is no moment where the protection rules and the data disagree.
//
// A nil Mappings means "use the automatic suggestions". A non-nil map is
// taken literally: required columns absent from it are created fresh.
func (s *ConversionService) Apply(ctx context.Context, tableID string, req models.ApplyConversionRequest, user *models.UserContext) (*models.ConversionResult, error) {
	table, err := s.schema.RequireManageable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}
	target, err := parseTargetType(table, req.TargetType)
	if err != nil {
		return nil, err
	}
	if target == constants.TableTypeRent && req.RentalPeriod != nil && *req.RentalPeriod <= 0 {
		return nil, errors.NewValidationError("rental_period", "Rental period must be a positive number of days")
	}

	required := requiredColumnsFor(target)
	plan, err := s.buildPlan(table, required, req.Mappings)
	if err != nil {
		return nil, err
	}

	result := &models.ConversionResult{
		TableID:  table.ID,
		FromType: table.Type,
		ToType:   target,
		Renamed:  []models.RenamedColumn{},
		Created:  []string{},
		Modified: []string{},
	}

	now := time.Now()
	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		for _, rc := range required {
			source := plan[rc.Name]
			if source == nil {
				position, err := s.tableRepo.NextPosition(ctx, tx, table.ID)
				if err != nil {
					return err
				}
				col := &models.Column{
					ID:              utils.GenerateID(),
					TableID:         table.ID,
					Name:            rc.Name,
					Type:            rc.Type,
					Required:        rc.Required,
					AllowDuplicates: true,
					DefaultValue:    requiredColumnDefault(rc.Name),
					Position:        position,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				if err := s.tableRepo.CreateColumn(ctx, tx, col); err != nil {
					return err
				}
				result.Created = append(result.Created, rc.Name)
				continue
			}

			fields := make(map[string]interface{})
			if source.Name != rc.Name {
				fields["name"] = rc.Name
			}
			if source.Type != rc.Type {
				fields["column_type"] = string(rc.Type)
			}
			if rc.Required && !source.Required {
				fields["required"] = true
			}
			if len(fields) == 0 {
				continue
			}
			fields["updated_at"] = now
			if err := s.tableRepo.UpdateColumn(ctx, tx, source.ID, fields); err != nil {
				return err
			}
			if source.Name != rc.Name {
				if err := s.schema.migrateRowKeys(ctx, tx, table.ID, source.Name, rc.Name); err != nil {
					return err
				}
				result.Renamed = append(result.Renamed, models.RenamedColumn{From: source.Name, To: rc.Name})
			}
			if _, typeChanged := fields["column_type"]; typeChanged {
				result.Modified = append(result.Modified, rc.Name)
			} else if _, reqChanged := fields["required"]; reqChanged {
				result.Modified = append(result.Modified, rc.Name)
			}
		}

		tableFields := map[string]interface{}{
			"table_type": string(target),
			"updated_at": now,
		}
		if target == constants.TableTypeRent {
			if req.RentalPeriod != nil {
				tableFields["rental_period"] = *req.RentalPeriod
			}
		} else {
			tableFields["rental_period"] = nil
		}
		return s.tableRepo.Update(ctx, tx, table.ID, tableFields)
	})
	if err != nil {
		return nil, err
	}

	s.cache.TableChanged(table.ID)
	log.Printf("🔧 Converted table %s: %s -> %s (%d renamed, %d created, %d modified)",
		table.ID, result.FromType, result.ToType,
		len(result.Renamed), len(result.Created), len(result.Modified))
	return result, nil
}

// buildPlan resolves each required column to the existing column that will
// become it, or nil for create-new. Explicit mappings are validated; the
// automatic path trusts the matcher, which never claims a column twice.
func (s *ConversionService) buildPlan(table *models.Table, required []models.RequiredColumn, explicit map[string]string) (map[string]*models.Column, error) {
	plan := make(map[string]*models.Column, len(required))
	claimed := make(map[string]bool)

	requiredNames := make(map[string]bool, len(required))
	names := make([]string, len(required))
	for i, rc := range required {
		requiredNames[rc.Name] = true
		names[i] = rc.Name
	}

	if explicit != nil {
		for target, source := range explicit {
			if !requiredNames[target] {
				return nil, errors.NewValidationError("mappings", fmt.Sprintf("Column '%s' is not required by the target type", target))
			}
			col := table.FindColumn(source)
			if col == nil {
				return nil, errors.NewValidationError("mappings", fmt.Sprintf("Column '%s' does not exist", source))
			}
			key := strings.ToLower(col.Name)
			if claimed[key] {
				return nil, errors.NewValidationError("mappings", fmt.Sprintf("Column '%s' is mapped more than once", col.Name))
			}
			claimed[key] = true
			plan[target] = col
		}
	} else {
		for _, m := range matching.MatchColumns(names, table.ColumnNames()) {
			if m.Existing == "" {
				continue
			}
			col := table.FindColumn(m.Existing)
			plan[m.Required] = col
			claimed[strings.ToLower(col.Name)] = true
		}
	}

	// A required column slated for creation must not collide with an
	// unclaimed existing column of the same name; adopt that column instead.
	for _, rc := range required {
		if plan[rc.Name] != nil {
			continue
		}
		if col := table.FindColumn(rc.Name); col != nil {
			key := strings.ToLower(col.Name)
			if claimed[key] {
				return nil, errors.NewConflictError("column", "name", rc.Name)
			}
			claimed[key] = true
			plan[rc.Name] = col
		}
	}
	return plan, nil
}

func parseTargetType(table *models.Table, raw string) (constants.TableType, error) {
	target := constants.TableType(strings.ToLower(strings.TrimSpace(raw)))
	if !constants.IsValidTableType(string(target)) {
		return "", errors.NewValidationError("target_type", fmt.Sprintf("Unknown table type '%s'", raw))
	}
	if target == table.Type {
		return "", errors.NewValidationError("target_type", fmt.Sprintf("Table already has type '%s'", target))
	}
	return target, nil
}
