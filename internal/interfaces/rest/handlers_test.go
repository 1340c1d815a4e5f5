package rest_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/internal/bootstrap"
	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// newTestStack wires the full service stack over an in-memory SQLite
// database, same as the service tests do.
func newTestStack(t *testing.T) *services.ServiceManager {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, bootstrap.InitializeSchema(db))

	sm, err := services.NewServiceManager(db, "")
	require.NoError(t, err)
	return sm
}

func ownerUser() *models.UserContext {
	return &models.UserContext{ID: "user-1", Name: "Owner"}
}

// newRequestContext builds a gin test context with an optional JSON body.
// Middleware does not run; tests set context keys themselves.
func newRequestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == "" {
		c.Request = httptest.NewRequest(method, target, nil)
	} else {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, w
}

// seedPublicSale creates a public sale table holding one stocked item
func seedPublicSale(t *testing.T, sm *services.ServiceManager) (*models.Table, *models.Row) {
	t.Helper()
	ctx := context.Background()

	table, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "gear", Type: "sale", Visibility: "public",
		Columns: []models.CreateColumnRequest{{Name: "title", Type: "text"}},
	}, ownerUser())
	require.NoError(t, err)

	row, err := sm.Rows.Create(ctx, table.ID, models.RowData{
		"title": "Lamp", "price": float64(10), "qty": float64(5),
	}, ownerUser())
	require.NoError(t, err)
	return table, row
}

func mintToken(t *testing.T, sm *services.ServiceManager, req models.CreateTokenRequest) *models.APIToken {
	t.Helper()
	token, _, err := sm.Access.CreateToken(context.Background(), req)
	require.NoError(t, err)
	return token
}
