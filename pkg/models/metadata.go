package models

import (
	"strings"
	"time"

	"github.com/erimeilis/store-sub004/pkg/constants"
)

// Table represents a user-defined table
type Table struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     *string              `json:"description,omitempty"`
	OwnerID         string               `json:"owner_id"`
	Visibility      constants.Visibility `json:"visibility"`
	Type            constants.TableType  `json:"type"`
	RentalPeriod    *int                 `json:"rental_period,omitempty"` // days, rent tables only
	ProductIDColumn *string              `json:"product_id_column,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Columns         []Column             `json:"columns,omitempty"`
	RowCount        *int                 `json:"row_count,omitempty"`
}

// HasColumn checks for a column by name, case-insensitive like all column
// name comparisons.
func (t *Table) HasColumn(name string) bool {
	return t.FindColumn(name) != nil
}

// FindColumn returns the column with the given name or nil
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in position order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column represents one declared column of a user table
type Column struct {
	ID              string               `json:"id"`
	TableID         string               `json:"table_id"`
	Name            string               `json:"name"`
	Type            constants.ColumnType `json:"type"`
	Required        bool                 `json:"required"`
	AllowDuplicates bool                 `json:"allow_duplicates"`
	DefaultValue    *string              `json:"default_value,omitempty"`
	Position        int                  `json:"position"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// TableRule is a validation expression evaluated against row data on every
// create and update of the owning table.
type TableRule struct {
	ID           string    `json:"id"`
	TableID      string    `json:"table_id"`
	Name         string    `json:"name"`
	Expression   string    `json:"expression"`
	ErrorMessage string    `json:"error_message"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateTableRequest creates a table, optionally with initial columns
type CreateTableRequest struct {
	Name         string                `json:"name" binding:"required"`
	Description  *string               `json:"description,omitempty"`
	Visibility   string                `json:"visibility,omitempty"` // default private
	Type         string                `json:"type,omitempty"`       // default "default"
	RentalPeriod *int                  `json:"rental_period,omitempty"`
	Columns      []CreateColumnRequest `json:"columns,omitempty"`
}

// UpdateTableRequest updates table metadata. Nil fields are left unchanged.
type UpdateTableRequest struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	Visibility      *string `json:"visibility,omitempty"`
	RentalPeriod    *int    `json:"rental_period,omitempty"`
	ProductIDColumn *string `json:"product_id_column,omitempty"`
}

// CreateColumnRequest declares a new column
type CreateColumnRequest struct {
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Required        bool    `json:"required,omitempty"`
	AllowDuplicates *bool   `json:"allow_duplicates,omitempty"` // default true
	DefaultValue    *string `json:"default_value,omitempty"`
}

// UpdateColumnRequest changes a column. Renames ripple into stored rows.
type UpdateColumnRequest struct {
	Name            *string `json:"name,omitempty"`
	Type            *string `json:"type,omitempty"`
	Required        *bool   `json:"required,omitempty"`
	AllowDuplicates *bool   `json:"allow_duplicates,omitempty"`
	DefaultValue    *string `json:"default_value,omitempty"`
}

// CreateRuleRequest declares a table validation rule
type CreateRuleRequest struct {
	Name         string `json:"name" binding:"required"`
	Expression   string `json:"expression" binding:"required"`
	ErrorMessage string `json:"error_message,omitempty"`
	Active       *bool  `json:"active,omitempty"` // default true
}

// UpdateRuleRequest changes a table validation rule. Nil fields are left
// unchanged.
type UpdateRuleRequest struct {
	Name         *string `json:"name,omitempty"`
	Expression   *string `json:"expression,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}
