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
	"github.com/erimeilis/store-sub004/pkg/columntypes"
	"github.com/erimeilis/store-sub004/pkg/constants"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/rules"
	"github.com/erimeilis/store-sub004/pkg/utils"
)

// SchemaService owns table metadata: the tables themselves, their declared
// columns and their validation rules. Row content is RowService territory.
type SchemaService struct {
	tableRepo  *persistence.TableRepository
	rowRepo    *persistence.RowRepository
	saleRepo   *persistence.SaleRepository
	rentalRepo *persistence.RentalRepository
	ruleRepo   *persistence.RuleRepository
	txManager  *persistence.TransactionManager
	cache      *cache.RowCache
	engine     *rules.Engine
	registry   *columntypes.Registry
}

// NewSchemaService creates a new SchemaService
func NewSchemaService(
	tableRepo *persistence.TableRepository,
	rowRepo *persistence.RowRepository,
	saleRepo *persistence.SaleRepository,
	rentalRepo *persistence.RentalRepository,
	ruleRepo *persistence.RuleRepository,
	txManager *persistence.TransactionManager,
	rowCache *cache.RowCache,
	engine *rules.Engine,
) *SchemaService {
	return &SchemaService{
		tableRepo:  tableRepo,
		rowRepo:    rowRepo,
		saleRepo:   saleRepo,
		rentalRepo: rentalRepo,
		ruleRepo:   ruleRepo,
		txManager:  txManager,
		cache:      rowCache,
		engine:     engine,
		registry:   columntypes.GetRegistry(),
	}
}

// RequireTable loads a table with its columns or fails with NotFound
func (s *SchemaService) RequireTable(ctx context.Context, tableID string) (*models.Table, error) {
	table, err := s.tableRepo.GetByID(ctx, nil, tableID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load table", err)
	}
	if table == nil {
		return nil, errors.NewNotFoundError("table", tableID)
	}
	return table, nil
}

// RequireReadable loads a table and checks the caller may see it
func (s *SchemaService) RequireReadable(ctx context.Context, tableID string, user *models.UserContext) (*models.Table, error) {
	table, err := s.RequireTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if !CanReadTable(table, user) {
		return nil, errors.NewPermissionError("read", "table")
	}
	return table, nil
}

// RequireManageable loads a table and checks the caller may change it
func (s *SchemaService) RequireManageable(ctx context.Context, tableID string, user *models.UserContext) (*models.Table, error) {
	table, err := s.RequireTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if !CanManageTable(table, user) {
		return nil, errors.NewPermissionError("manage", "table")
	}
	return table, nil
}

// CreateTable creates a table with its initial columns. Sale and rent tables
// get their reserved inventory columns provisioned up front; declaring one of
// those names in the request is a conflict.
func (s *SchemaService) CreateTable(ctx context.Context, req models.CreateTableRequest, user *models.UserContext) (*models.Table, error) {
	if user == nil {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "Table name is required")
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = string(constants.VisibilityPrivate)
	}
	if !constants.IsValidVisibility(visibility) {
		return nil, errors.NewValidationError("visibility", fmt.Sprintf("Unknown visibility '%s'", visibility))
	}

	tableType := req.Type
	if tableType == "" {
		tableType = string(constants.TableTypeDefault)
	}
	if !constants.IsValidTableType(tableType) {
		return nil, errors.NewValidationError("type", fmt.Sprintf("Unknown table type '%s'", tableType))
	}
	if req.RentalPeriod != nil && *req.RentalPeriod <= 0 {
		return nil, errors.NewValidationError("rental_period", "Rental period must be a positive number of days")
	}

	now := time.Now()
	table := &models.Table{
		ID:          utils.GenerateID(),
		Name:        name,
		Description: req.Description,
		OwnerID:     user.ID,
		Visibility:  constants.Visibility(visibility),
		Type:        constants.TableType(tableType),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if table.Type == constants.TableTypeRent {
		table.RentalPeriod = req.RentalPeriod
	}

	err := s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.tableRepo.Create(ctx, tx, table); err != nil {
			return err
		}

		position := 0
		seen := make(map[string]bool)
		for _, rc := range requiredColumnsFor(table.Type) {
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
			seen[strings.ToLower(rc.Name)] = true
			position++
		}

		for _, cr := range req.Columns {
			colName := strings.TrimSpace(cr.Name)
			if err := validateColumnName(colName); err != nil {
				return err
			}
			if seen[strings.ToLower(colName)] {
				return errors.NewConflictError("column", "name", colName)
			}
			if _, ok := s.registry.Get(cr.Type); !ok {
				return errors.NewValidationError("type", fmt.Sprintf("Unknown column type '%s'", cr.Type))
			}
			col := &models.Column{
				ID:              utils.GenerateID(),
				TableID:         table.ID,
				Name:            colName,
				Type:            constants.ColumnType(cr.Type),
				Required:        cr.Required,
				AllowDuplicates: allowDuplicatesOrDefault(cr.AllowDuplicates),
				DefaultValue:    cr.DefaultValue,
				Position:        position,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.tableRepo.CreateColumn(ctx, tx, col); err != nil {
				return err
			}
			seen[strings.ToLower(colName)] = true
			position++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📝 Created table '%s' (%s/%s, id=%s)", table.Name, table.Type, table.Visibility, table.ID)
	return s.RequireTable(ctx, table.ID)
}

// GetTable returns a table the caller may read
func (s *SchemaService) GetTable(ctx context.Context, tableID string, user *models.UserContext) (*models.Table, error) {
	return s.RequireReadable(ctx, tableID, user)
}

// ListTables returns every table the caller may see. Admins see everything;
// everyone else sees their own tables plus public and shared ones.
func (s *SchemaService) ListTables(ctx context.Context, user *models.UserContext) ([]*models.Table, error) {
	if user == nil {
		return nil, errors.NewUnauthorizedError("authentication required")
	}
	if user.IsAdmin {
		return s.tableRepo.List(ctx)
	}

	own, err := s.tableRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	visible, err := s.tableRepo.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(own))
	out := make([]*models.Table, 0, len(own)+len(visible))
	for _, t := range own {
		seen[t.ID] = true
		out = append(out, t)
	}
	for _, t := range visible {
		if !seen[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

// UpdateTable changes table metadata. The table type is deliberately not
// updatable here; conversions go through the ConversionService so the
// protected column set always matches the type.
func (s *SchemaService) UpdateTable(ctx context.Context, tableID string, req models.UpdateTableRequest, user *models.UserContext) (*models.Table, error) {
	table, err := s.RequireManageable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.NewValidationError("name", "Table name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Visibility != nil {
		if !constants.IsValidVisibility(*req.Visibility) {
			return nil, errors.NewValidationError("visibility", fmt.Sprintf("Unknown visibility '%s'", *req.Visibility))
		}
		fields["visibility"] = *req.Visibility
	}
	if req.RentalPeriod != nil {
		if table.Type != constants.TableTypeRent {
			return nil, errors.NewValidationError("rental_period", "Only rent tables have a rental period")
		}
		if *req.RentalPeriod <= 0 {
			return nil, errors.NewValidationError("rental_period", "Rental period must be a positive number of days")
		}
		fields["rental_period"] = *req.RentalPeriod
	}
	if req.ProductIDColumn != nil {
		if *req.ProductIDColumn != "" && !table.HasColumn(*req.ProductIDColumn) {
			return nil, errors.NewValidationError("product_id_column", fmt.Sprintf("Column '%s' does not exist", *req.ProductIDColumn))
		}
		fields["product_id_column"] = *req.ProductIDColumn
	}

	if len(fields) == 0 {
		return table, nil
	}
	fields["updated_at"] = time.Now()

	if err := s.tableRepo.Update(ctx, nil, tableID, fields); err != nil {
		return nil, errors.NewInternalError("failed to update table", err)
	}
	return s.RequireTable(ctx, tableID)
}

// DeleteTable removes a table and everything hanging off it: rows, columns,
// rules, sales and rentals, all in one transaction.
func (s *SchemaService) DeleteTable(ctx context.Context, tableID string, user *models.UserContext) error {
	table, err := s.RequireManageable(ctx, tableID, user)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if _, err := s.ruleRepo.DeleteByTable(ctx, tx, tableID); err != nil {
			return err
		}
		if _, err := s.saleRepo.DeleteByTable(ctx, tx, tableID); err != nil {
			return err
		}
		if _, err := s.rentalRepo.DeleteByTable(ctx, tx, tableID); err != nil {
			return err
		}
		if _, err := s.rowRepo.DeleteByTable(ctx, tx, tableID); err != nil {
			return err
		}
		if err := s.tableRepo.DeleteColumnsByTable(ctx, tx, tableID); err != nil {
			return err
		}
		if _, err := s.tableRepo.Delete(ctx, tx, tableID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return errors.NewInternalError("failed to delete table", err)
	}

	s.cache.TableChanged(tableID)
	log.Printf("🗑️ Deleted table '%s' (%s) with all rows and records", table.Name, tableID)
	return nil
}

// AddColumn declares a new column on a table
func (s *SchemaService) AddColumn(ctx context.Context, tableID string, req models.CreateColumnRequest, user *models.UserContext) (*models.Column, error) {
	table, err := s.RequireManageable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}

	colName := strings.TrimSpace(req.Name)
	if err := validateColumnName(colName); err != nil {
		return nil, err
	}
	if table.HasColumn(colName) {
		return nil, errors.NewConflictError("column", "name", colName)
	}
	if _, ok := s.registry.Get(req.Type); !ok {
		return nil, errors.NewValidationError("type", fmt.Sprintf("Unknown column type '%s'", req.Type))
	}

	position, err := s.tableRepo.NextPosition(ctx, nil, tableID)
	if err != nil {
		return nil, errors.NewInternalError("failed to compute column position", err)
	}

	now := time.Now()
	col := &models.Column{
		ID:              utils.GenerateID(),
		TableID:         tableID,
		Name:            colName,
		Type:            constants.ColumnType(req.Type),
		Required:        req.Required,
		AllowDuplicates: allowDuplicatesOrDefault(req.AllowDuplicates),
		DefaultValue:    req.DefaultValue,
		Position:        position,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.tableRepo.CreateColumn(ctx, nil, col); err != nil {
		return nil, errors.NewInternalError("failed to create column", err)
	}
	return col, nil
}

// UpdateColumn changes a column. A rename rewrites the key inside every
// stored row of the table in the same transaction, so data and metadata
// never drift apart. Protected inventory columns cannot be renamed.
func (s *SchemaService) UpdateColumn(ctx context.Context, tableID, columnID string, req models.UpdateColumnRequest, user *models.UserContext) (*models.Column, error) {
	table, err := s.RequireManageable(ctx, tableID, user)
	if err != nil {
		return nil, err
	}

	col := findColumnByID(table, columnID)
	if col == nil {
		return nil, errors.NewNotFoundError("column", columnID)
	}

	fields := make(map[string]interface{})
	renameFrom, renameTo := "", ""

	if req.Name != nil {
		newName := strings.TrimSpace(*req.Name)
		if newName != col.Name {
			if constants.IsProtectedColumn(table.Type, col.Name) {
				return nil, errors.NewValidationError("name", fmt.Sprintf("Column '%s' is reserved by %s tables and cannot be renamed", col.Name, table.Type))
			}
			if err := validateColumnName(newName); err != nil {
				return nil, err
			}
			if existing := table.FindColumn(newName); existing != nil && existing.ID != col.ID {
				return nil, errors.NewConflictError("column", "name", newName)
			}
			fields["name"] = newName
			renameFrom, renameTo = col.Name, newName
		}
	}
	if req.Type != nil && constants.ColumnType(*req.Type) != col.Type {
		if constants.IsProtectedColumn(table.Type, col.Name) {
			return nil, errors.NewValidationError("type", fmt.Sprintf("Column '%s' is reserved by %s tables and cannot change type", col.Name, table.Type))
		}
		if _, ok := s.registry.Get(*req.Type); !ok {
			return nil, errors.NewValidationError("type", fmt.Sprintf("Unknown column type '%s'", *req.Type))
		}
		fields["column_type"] = *req.Type
	}
	if req.Required != nil {
		fields["required"] = *req.Required
	}
	if req.AllowDuplicates != nil {
		fields["allow_duplicates"] = *req.AllowDuplicates
	}
	if req.DefaultValue != nil {
		fields["default_value"] = *req.DefaultValue
	}

	if len(fields) == 0 {
		return col, nil
	}
	fields["updated_at"] = time.Now()

	err = s.txManager.WithTransaction(func(tx *sql.Tx) error {
		if err := s.tableRepo.UpdateColumn(ctx, tx, columnID, fields); err != nil {
			return err
		}
		if renameFrom != "" {
			if err := s.migrateRowKeys(ctx, tx, tableID, renameFrom, renameTo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to update column", err)
	}

	if renameFrom != "" {
		s.cache.TableChanged(tableID)
		log.Printf("📝 Renamed column '%s' to '%s' on table %s", renameFrom, renameTo, tableID)
	}

	updated, err := s.RequireTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if fresh := findColumnByID(updated, columnID); fresh != nil {
		return fresh, nil
	}
	return nil, errors.NewNotFoundError("column", columnID)
}

// DeleteColumn drops a column declaration. Stored rows keep the old key in
// their data blob; without a declaration it is simply no longer validated or
// surfaced as schema. Protected inventory columns cannot be deleted.
func (s *SchemaService) DeleteColumn(ctx context.Context, tableID, columnID string, user *models.UserContext) error {
	table, err := s.RequireManageable(ctx, tableID, user)
	if err != nil {
		return err
	}

	col := findColumnByID(table, columnID)
	if col == nil {
		return errors.NewNotFoundError("column", columnID)
	}
	if constants.IsProtectedColumn(table.Type, col.Name) {
		return errors.NewValidationError("name", fmt.Sprintf("Column '%s' is reserved by %s tables and cannot be deleted", col.Name, table.Type))
	}

	if err := s.tableRepo.DeleteColumn(ctx, nil, columnID); err != nil {
		return errors.NewInternalError("failed to delete column", err)
	}
	return nil
}

// migrateRowKeys moves one data key to a new name across every row of a
// table. Timestamps are preserved so a rename never looks like an edit.
func (s *SchemaService) migrateRowKeys(ctx context.Context, tx *sql.Tx, tableID, from, to string) error {
	rows, err := s.rowRepo.FindAll(ctx, tx, tableID, nil)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if !row.Data.Has(from) {
			continue
		}
		data := row.Data.Clone()
		data[to] = data[from]
		delete(data, from)
		if _, err := s.rowRepo.UpdateData(ctx, tx, tableID, row.ID, data, row.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRule adds a validation rule to a table. The expression must compile.
func (s *SchemaService) CreateRule(ctx context.Context, tableID string, req models.CreateRuleRequest, user *models.UserContext) (*models.TableRule, error) {
	if _, err := s.RequireManageable(ctx, tableID, user); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewValidationError("name", "Rule name is required")
	}
	if err := s.engine.Check(req.Expression); err != nil {
		return nil, errors.NewValidationError("expression", fmt.Sprintf("invalid expression: %v", err))
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	now := time.Now()
	rule := &models.TableRule{
		ID:           utils.GenerateID(),
		TableID:      tableID,
		Name:         name,
		Expression:   req.Expression,
		ErrorMessage: req.ErrorMessage,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, errors.NewInternalError("failed to create rule", err)
	}
	return rule, nil
}

// ListRules returns all rules of a table, active or not
func (s *SchemaService) ListRules(ctx context.Context, tableID string, user *models.UserContext) ([]*models.TableRule, error) {
	if _, err := s.RequireReadable(ctx, tableID, user); err != nil {
		return nil, err
	}
	return s.ruleRepo.ListByTable(ctx, tableID)
}

// UpdateRule changes a validation rule
func (s *SchemaService) UpdateRule(ctx context.Context, tableID, ruleID string, req models.UpdateRuleRequest, user *models.UserContext) (*models.TableRule, error) {
	if _, err := s.RequireManageable(ctx, tableID, user); err != nil {
		return nil, err
	}
	rule, err := s.requireRule(ctx, tableID, ruleID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.NewValidationError("name", "Rule name cannot be empty")
		}
		fields["name"] = name
	}
	if req.Expression != nil {
		if err := s.engine.Check(*req.Expression); err != nil {
			return nil, errors.NewValidationError("expression", fmt.Sprintf("invalid expression: %v", err))
		}
		fields["expression"] = *req.Expression
	}
	if req.ErrorMessage != nil {
		fields["error_message"] = *req.ErrorMessage
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if len(fields) == 0 {
		return rule, nil
	}
	fields["updated_at"] = time.Now()

	if _, err := s.ruleRepo.Update(ctx, ruleID, fields); err != nil {
		return nil, errors.NewInternalError("failed to update rule", err)
	}
	s.engine.InvalidateCache()
	return s.requireRule(ctx, tableID, ruleID)
}

// DeleteRule removes a validation rule
func (s *SchemaService) DeleteRule(ctx context.Context, tableID, ruleID string, user *models.UserContext) error {
	if _, err := s.RequireManageable(ctx, tableID, user); err != nil {
		return err
	}
	if _, err := s.requireRule(ctx, tableID, ruleID); err != nil {
		return err
	}
	if _, err := s.ruleRepo.Delete(ctx, ruleID); err != nil {
		return errors.NewInternalError("failed to delete rule", err)
	}
	s.engine.InvalidateCache()
	return nil
}

func (s *SchemaService) requireRule(ctx context.Context, tableID, ruleID string) (*models.TableRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load rule", err)
	}
	if rule == nil || rule.TableID != tableID {
		return nil, errors.NewNotFoundError("rule", ruleID)
	}
	return rule, nil
}

// CanManageTable reports whether the user may change a table's schema or rows
func CanManageTable(table *models.Table, user *models.UserContext) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || table.OwnerID == user.ID
}

// CanReadTable reports whether the user may see a table at all. Public and
// shared tables are readable by every authenticated user.
func CanReadTable(table *models.Table, user *models.UserContext) bool {
	if table.Visibility != constants.VisibilityPrivate {
		return user != nil
	}
	return CanManageTable(table, user)
}

// CanWriteRows reports whether the user may create, edit or delete rows.
// Shared visibility opens row writes to every authenticated user; public
// only opens reads.
func CanWriteRows(table *models.Table, user *models.UserContext) bool {
	if CanManageTable(table, user) {
		return true
	}
	return table.Visibility == constants.VisibilityShared && user != nil
}

func findColumnByID(table *models.Table, columnID string) *models.Column {
	for i := range table.Columns {
		if table.Columns[i].ID == columnID {
			return &table.Columns[i]
		}
	}
	return nil
}

func validateColumnName(name string) error {
	if name == "" {
		return errors.NewValidationError("name", "Column name is required")
	}
	for _, sc := range constants.SystemColumns() {
		if strings.EqualFold(sc, name) {
			return errors.NewValidationError("name", fmt.Sprintf("Column name '%s' is reserved", name))
		}
	}
	return nil
}

func allowDuplicatesOrDefault(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
