package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erimeilis/store-sub004/internal/bootstrap"
	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// newTestManager wires the full service stack over an in-memory SQLite
// database with the system schema applied.
func newTestManager(t *testing.T) (*ServiceManager, *database.Connection) {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, bootstrap.InitializeSchema(db))

	sm, err := NewServiceManager(db, "")
	require.NoError(t, err)
	return sm, db
}

func testOwner() *models.UserContext {
	return &models.UserContext{ID: "user-1", Name: "Owner"}
}

func testAdmin() *models.UserContext {
	return &models.UserContext{ID: "admin-1", Name: "Admin", IsAdmin: true}
}

// newSaleTable creates a public sale table. The price and qty columns come
// with the table type.
func newSaleTable(t *testing.T, sm *ServiceManager, name string) *models.Table {
	t.Helper()
	table, err := sm.Schema.CreateTable(context.Background(), models.CreateTableRequest{
		Name:       name,
		Type:       "sale",
		Visibility: "public",
		Columns: []models.CreateColumnRequest{
			{Name: "title", Type: "text"},
		},
	}, testOwner())
	require.NoError(t, err)
	return table
}

// newRentTable creates a public rent table with the given rental period
func newRentTable(t *testing.T, sm *ServiceManager, name string, periodDays int) *models.Table {
	t.Helper()
	table, err := sm.Schema.CreateTable(context.Background(), models.CreateTableRequest{
		Name:         name,
		Type:         "rent",
		Visibility:   "public",
		RentalPeriod: &periodDays,
	}, testOwner())
	require.NoError(t, err)
	return table
}

func seedRow(t *testing.T, sm *ServiceManager, tableID string, data models.RowData) *models.Row {
	t.Helper()
	row, err := sm.Rows.Create(context.Background(), tableID, data, testOwner())
	require.NoError(t, err)
	return row
}
