package constants

import "strings"

// TableType represents the behavior family of a user table
type TableType string

const (
	TableTypeDefault TableType = "default"
	TableTypeSale    TableType = "sale"
	TableTypeRent    TableType = "rent"
)

// GetAllTableTypes returns all valid table types as a slice of strings
func GetAllTableTypes() []string {
	return []string{
		string(TableTypeDefault),
		string(TableTypeSale),
		string(TableTypeRent),
	}
}

// IsValidTableType checks if a string is a known table type
func IsValidTableType(s string) bool {
	switch TableType(s) {
	case TableTypeDefault, TableTypeSale, TableTypeRent:
		return true
	}
	return false
}

// Visibility represents who can see a user table
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
	VisibilityShared  Visibility = "shared"
)

// IsValidVisibility checks if a string is a known visibility
func IsValidVisibility(s string) bool {
	switch Visibility(s) {
	case VisibilityPrivate, VisibilityPublic, VisibilityShared:
		return true
	}
	return false
}

// ColumnType represents the declared type of a user-defined column
type ColumnType string

const (
	ColumnTypeText     ColumnType = "text"
	ColumnTypeTextArea ColumnType = "textarea"
	ColumnTypeNumber   ColumnType = "number"
	ColumnTypeInteger  ColumnType = "integer"
	ColumnTypeDecimal  ColumnType = "decimal"
	ColumnTypeBoolean  ColumnType = "boolean"
	ColumnTypeDate     ColumnType = "date"
	ColumnTypeDateTime ColumnType = "datetime"
	ColumnTypeTime     ColumnType = "time"
	ColumnTypeSelect   ColumnType = "select"
	ColumnTypeEmail    ColumnType = "email"
	ColumnTypeURL      ColumnType = "url"
)

// GetAllColumnTypes returns all valid column types as a slice of strings
func GetAllColumnTypes() []string {
	return []string{
		string(ColumnTypeText),
		string(ColumnTypeTextArea),
		string(ColumnTypeNumber),
		string(ColumnTypeInteger),
		string(ColumnTypeDecimal),
		string(ColumnTypeBoolean),
		string(ColumnTypeDate),
		string(ColumnTypeDateTime),
		string(ColumnTypeTime),
		string(ColumnTypeSelect),
		string(ColumnTypeEmail),
		string(ColumnTypeURL),
	}
}

// SaleStatus represents the lifecycle state of a sale record
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// IsValidSaleStatus checks if a string is a known sale status
func IsValidSaleStatus(s string) bool {
	switch SaleStatus(s) {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusCancelled, SaleStatusRefunded:
		return true
	}
	return false
}

// RentalStatus represents the lifecycle state of a rental record
type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusReleased  RentalStatus = "released"
	RentalStatusCancelled RentalStatus = "cancelled"
)

// IsValidRentalStatus checks if a string is a known rental status
func IsValidRentalStatus(s string) bool {
	switch RentalStatus(s) {
	case RentalStatusActive, RentalStatusReleased, RentalStatusCancelled:
		return true
	}
	return false
}

// Names of the inventory columns reserved on sale and rent tables
const (
	ColumnPrice     = "price"
	ColumnQty       = "qty"
	ColumnFee       = "fee"
	ColumnUsed      = "used"
	ColumnAvailable = "available"
)

// ProtectedColumns returns the inventory columns a table type reserves,
// in declared order. Default tables reserve nothing.
func ProtectedColumns(t TableType) []string {
	switch t {
	case TableTypeSale:
		return []string{ColumnPrice, ColumnQty}
	case TableTypeRent:
		return []string{ColumnPrice, ColumnFee, ColumnUsed, ColumnAvailable}
	}
	return nil
}

// IsProtectedColumn checks if a column name is reserved by the table type.
// Matching is case-insensitive like all column name comparisons.
func IsProtectedColumn(t TableType, name string) bool {
	for _, pc := range ProtectedColumns(t) {
		if strings.EqualFold(pc, name) {
			return true
		}
	}
	return false
}
