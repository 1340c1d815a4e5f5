package constants

// System table names. Everything else lives as JSON rows inside TableData.
const (
	TableUserTables = "user_tables"
	TableColumns    = "table_columns"
	TableData       = "table_data"
	TableSales      = "sales"
	TableRentals    = "rentals"
	TableAPITokens  = "api_tokens"
	TableSequences  = "sequence_counters"
	TableRules      = "table_rules"
)

// Physical columns of the row store. User-defined columns are keys inside the
// data blob, never physical columns.
const (
	ColumnID        = "id"
	ColumnTableID   = "table_id"
	ColumnCreatedBy = "created_by"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// SystemColumns returns the physical columns every stored row carries.
func SystemColumns() []string {
	return []string{
		ColumnID,
		ColumnTableID,
		ColumnCreatedBy,
		ColumnCreatedAt,
		ColumnUpdatedAt,
	}
}

// IsSystemColumn checks if a column name refers to a physical row-store column
// rather than a key inside the data blob.
func IsSystemColumn(name string) bool {
	for _, sc := range SystemColumns() {
		if sc == name {
			return true
		}
	}
	return false
}

// SQLConsoleTables returns the tables the admin SQL console may read.
// Token storage is deliberately absent.
func SQLConsoleTables() []string {
	return []string{
		TableUserTables,
		TableColumns,
		TableData,
		TableSales,
		TableRentals,
	}
}
