package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
)

// InitializeSchema creates the system tables. Every statement is idempotent,
// so running it against an existing database is a no-op.
func InitializeSchema(db *database.Connection) error {
	log.Println("🔧 Initializing system schema...")

	var statements []string
	switch db.Dialect().Name() {
	case database.DriverMySQL:
		statements = mysqlDDL
	case database.DriverSQLite:
		statements = sqliteDDL
	default:
		return fmt.Errorf("no DDL for driver '%s'", db.Dialect().Name())
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}

	log.Printf("✅ System schema ready (%d statements)", len(statements))
	return nil
}

// MySQL keeps indexes inline because CREATE INDEX IF NOT EXISTS does not
// exist there. SQLite is the opposite: no inline INDEX clause, but the
// standalone form is idempotent.
var mysqlDDL = []string{
	`CREATE TABLE IF NOT EXISTS user_tables (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		owner_id VARCHAR(64) NOT NULL,
		visibility VARCHAR(16) NOT NULL DEFAULT 'private',
		table_type VARCHAR(16) NOT NULL DEFAULT 'default',
		rental_period INT,
		product_id_column VARCHAR(255),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_user_tables_owner (owner_id),
		INDEX idx_user_tables_visibility (visibility)
	)`,
	`CREATE TABLE IF NOT EXISTS table_columns (
		id VARCHAR(64) PRIMARY KEY,
		table_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		column_type VARCHAR(32) NOT NULL,
		required BOOLEAN NOT NULL DEFAULT FALSE,
		allow_duplicates BOOLEAN NOT NULL DEFAULT TRUE,
		default_value TEXT,
		position INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_table_columns_table (table_id)
	)`,
	`CREATE TABLE IF NOT EXISTS table_data (
		id VARCHAR(64) PRIMARY KEY,
		table_id VARCHAR(64) NOT NULL,
		data JSON NOT NULL,
		created_by VARCHAR(64),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_table_data_table (table_id),
		INDEX idx_table_data_updated (table_id, updated_at)
	)`,
	`CREATE TABLE IF NOT EXISTS table_rules (
		id VARCHAR(64) PRIMARY KEY,
		table_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		expression TEXT NOT NULL,
		error_message TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_table_rules_table (table_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id VARCHAR(64) PRIMARY KEY,
		sale_number VARCHAR(32) NOT NULL UNIQUE,
		table_id VARCHAR(64) NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		item_data JSON,
		customer_id VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		unit_price DOUBLE NOT NULL,
		total_amount DOUBLE NOT NULL,
		status VARCHAR(16) NOT NULL,
		payment_method VARCHAR(64),
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_sales_table (table_id),
		INDEX idx_sales_customer (customer_id),
		INDEX idx_sales_status (status)
	)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id VARCHAR(64) PRIMARY KEY,
		rental_number VARCHAR(32) NOT NULL UNIQUE,
		table_id VARCHAR(64) NOT NULL,
		item_id VARCHAR(64) NOT NULL,
		item_data JSON,
		customer_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		notes TEXT,
		rented_at DATETIME NOT NULL,
		released_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_rentals_table (table_id),
		INDEX idx_rentals_item (item_id, status),
		INDEX idx_rentals_customer (customer_id),
		INDEX idx_rentals_status (status)
	)`,
	"CREATE TABLE IF NOT EXISTS sequence_counters (\n\t\t`scope` VARCHAR(16) NOT NULL,\n\t\t`year` INT NOT NULL,\n\t\t`current_seq` INT NOT NULL DEFAULT 0,\n\t\tPRIMARY KEY (`scope`, `year`)\n\t)",
	`CREATE TABLE IF NOT EXISTS api_tokens (
		id VARCHAR(64) PRIMARY KEY,
		token VARCHAR(64) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		table_access TEXT,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS user_tables (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		owner_id TEXT NOT NULL,
		visibility TEXT NOT NULL DEFAULT 'private',
		table_type TEXT NOT NULL DEFAULT 'default',
		rental_period INTEGER,
		product_id_column TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_tables_owner ON user_tables (owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_tables_visibility ON user_tables (visibility)`,
	`CREATE TABLE IF NOT EXISTS table_columns (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		name TEXT NOT NULL,
		column_type TEXT NOT NULL,
		required BOOLEAN NOT NULL DEFAULT 0,
		allow_duplicates BOOLEAN NOT NULL DEFAULT 1,
		default_value TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_table_columns_table ON table_columns (table_id)`,
	`CREATE TABLE IF NOT EXISTS table_data (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		data TEXT NOT NULL,
		created_by TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_table_data_table ON table_data (table_id)`,
	`CREATE INDEX IF NOT EXISTS idx_table_data_updated ON table_data (table_id, updated_at)`,
	`CREATE TABLE IF NOT EXISTS table_rules (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		name TEXT NOT NULL,
		expression TEXT NOT NULL,
		error_message TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_table_rules_table ON table_rules (table_id)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		sale_number TEXT NOT NULL UNIQUE,
		table_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_data TEXT,
		customer_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		total_amount REAL NOT NULL,
		status TEXT NOT NULL,
		payment_method TEXT,
		notes TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_table ON sales (table_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales (status)`,
	`CREATE TABLE IF NOT EXISTS rentals (
		id TEXT PRIMARY KEY,
		rental_number TEXT NOT NULL UNIQUE,
		table_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		item_data TEXT,
		customer_id TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		rented_at DATETIME NOT NULL,
		released_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rentals_table ON rentals (table_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rentals_item ON rentals (item_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_rentals_customer ON rentals (customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rentals_status ON rentals (status)`,
	"CREATE TABLE IF NOT EXISTS sequence_counters (\n\t\t`scope` TEXT NOT NULL,\n\t\t`year` INTEGER NOT NULL,\n\t\t`current_seq` INTEGER NOT NULL DEFAULT 0,\n\t\tPRIMARY KEY (`scope`, `year`)\n\t)",
	`CREATE TABLE IF NOT EXISTS api_tokens (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		table_access TEXT,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
}
