package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Supported drivers. MySQL (or TiDB speaking the MySQL protocol) runs
// production; SQLite serves development and tests.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Connection represents the row store database connection
// Note: sql.DB is already thread-safe and manages its own connection pool.
// We do NOT wrap it with additional mutexes as that causes deadlocks under
// high concurrency (writers waiting for connections block readers).
type Connection struct {
	db      *sql.DB
	dialect Dialect
}

var (
	instance *Connection
	once     sync.Once
	initErr  error
	tlsOnce  sync.Once // Ensure TLS config is registered only once
)

// GetInstance returns the singleton connection configured from the environment
func GetInstance() (*Connection, error) {
	once.Do(func() {
		instance, initErr = newConnection()
	})
	return instance, initErr
}

// newConnection creates a connection from environment configuration
func newConnection() (*Connection, error) {
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = DriverMySQL
	}

	switch driver {
	case DriverMySQL:
		return Open(DriverMySQL, mysqlDSNFromEnv())
	case DriverSQLite:
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "store.db"
		}
		return Open(DriverSQLite, path)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER '%s'", driver)
}

func mysqlDSNFromEnv() string {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	database := os.Getenv("DB_NAME")

	if port == "" {
		port = "4000"
	}

	if database == "" {
		database = "store"
	}

	// Determine TLS configuration based on host
	tlsParam := ""
	if host != "" && host != "127.0.0.1" && host != "localhost" {
		// Remote host (e.g., TiDB Cloud) - register TLS config with ServerName
		// Use sync.Once to prevent panic on duplicate registration (e.g., in tests)
		tlsOnce.Do(func() {
			if err := mysql.RegisterTLSConfig("remote", &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: host, // Required for TLS verification
			}); err != nil {
				// Just log as we can't return error from sync.Once
				log.Printf("Failed to register TLS config: %v\n", err)
			}
		})
		tlsParam = "&tls=remote"
	}
	// For localhost, no TLS is used

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local%s",
		user, password, host, port, database, tlsParam)
}

// Open creates a connection for the given driver and DSN. Tests use this
// directly with an in-memory SQLite path.
func Open(driver, dsn string) (*Connection, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var dialect Dialect
	switch driver {
	case DriverMySQL:
		dialect = MySQLDialect{}

		// Configure connection pool
		// IMPORTANT: MaxIdleConns must equal MaxOpenConns to prevent port exhaustion.
		// If MaxIdleConns < MaxOpenConns, connections are closed/reopened frequently,
		// which exhausts ephemeral ports under high concurrency.
		db.SetMaxOpenConns(100)
		db.SetMaxIdleConns(100) // Match MaxOpenConns to keep connections alive

		// Connection lifecycle settings for auto-reconnection
		// MaxLifetime ensures connections are recycled before they become stale
		db.SetConnMaxLifetime(5 * time.Minute)
		// MaxIdleTime closes idle connections that haven't been used recently
		db.SetConnMaxIdleTime(3 * time.Minute)

	case DriverSQLite:
		dialect = SQLiteDialect{}

		// One connection only: SQLite serializes writers anyway, and with
		// :memory: every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)

	default:
		db.Close()
		return nil, fmt.Errorf("unknown driver '%s'", driver)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db, dialect: dialect}, nil
}

// Dialect returns the SQL dialect of this connection
func (c *Connection) Dialect() Dialect {
	return c.dialect
}

// Query executes a SELECT query and returns rows
// sql.DB handles connection pooling and concurrency internally
func (c *Connection) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.Query(query, args...)
}

// QueryContext executes a SELECT query with context
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a SELECT query that returns at most one row
func (c *Connection) QueryRow(query string, args ...interface{}) *sql.Row {
	return c.db.QueryRow(query, args...)
}

// QueryRowContext executes a SELECT query with context that returns at most one row
func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// Exec executes an INSERT, UPDATE, or DELETE query
func (c *Connection) Exec(query string, args ...interface{}) (sql.Result, error) {
	return c.db.Exec(query, args...)
}

// ExecContext executes an INSERT, UPDATE, or DELETE query with context
func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// Begin starts a new transaction
func (c *Connection) Begin() (*sql.Tx, error) {
	return c.db.Begin()
}

// BeginTx starts a new transaction with context
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, opts)
}

// DB returns the underlying *sql.DB connection
// This is useful for operations that need direct access to sql.DB
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}
