package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// unrestrictedToken mints a token that reaches every public table
func unrestrictedToken(t *testing.T, sm *ServiceManager) *models.APIToken {
	t.Helper()
	token, _, err := sm.Access.CreateToken(context.Background(), models.CreateTokenRequest{Name: "test"})
	require.NoError(t, err)
	return token
}

func TestPublicTablesListsCardsWithRowCounts(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "a-gear")
	seedRow(t, sm, gear.ID, models.RowData{"price": float64(1), "qty": float64(1)})
	seedRow(t, sm, gear.ID, models.RowData{"price": float64(2), "qty": float64(1)})
	tools := newRentTable(t, sm, "b-tools", 7)
	seedRow(t, sm, tools.ID, models.RowData{"price": float64(3), "fee": float64(1)})

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Tables(ctx, token)
	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	assert.Equal(t, "a-gear", out.Tables[0].Name)
	assert.Equal(t, 2, out.Tables[0].RowCount)
	assert.Equal(t, "sale", out.Tables[0].TableType)
	assert.Equal(t, "b-tools", out.Tables[1].Name)
	assert.Equal(t, 1, out.Tables[1].RowCount)

	// A row write drops the cached count
	seedRow(t, sm, gear.ID, models.RowData{"price": float64(4), "qty": float64(1)})
	out, err = sm.Public.Tables(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Tables[0].RowCount)
}

func TestPublicSearchByColumns(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear") // price, qty, title
	tools := newRentTable(t, sm, "tools", 7)
	_, err := sm.Schema.AddColumn(ctx, tools.ID, models.CreateColumnRequest{
		Name: "serial", Type: "text",
	}, testOwner())
	require.NoError(t, err)

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Search(ctx, token, []string{"title"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, gear.ID, out.Tables[0].ID)
	assert.Equal(t, []string{"title"}, out.SearchedColumns)

	// Both table families declare price
	out, err = sm.Public.Search(ctx, token, []string{"price"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)

	// Every named column must be present
	out, err = sm.Public.Search(ctx, token, []string{"price", "serial"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, tools.ID, out.Tables[0].ID)

	_, err = sm.Public.Search(ctx, token, []string{"  "})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPublicItemsFlatAndNested(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	seedRow(t, sm, gear.ID, models.RowData{"title": "Drill", "price": float64(10), "qty": float64(1)})
	seedRow(t, sm, gear.ID, models.RowData{"title": "Saw", "price": float64(20), "qty": float64(2)})

	token := unrestrictedToken(t, sm)

	flat, err := sm.Public.Items(ctx, token, gear.ID, true)
	require.NoError(t, err)
	assert.Equal(t, gear.ID, flat.TableID)
	assert.Equal(t, "gear", flat.TableName)
	assert.Equal(t, "sale", flat.TableType)
	require.Equal(t, 2, flat.Count)
	for _, item := range flat.Items {
		assert.Contains(t, item, "id")
		assert.Contains(t, item, "title")
		assert.Equal(t, gear.ID, item["tableId"])
		assert.NotContains(t, item, "data")
	}

	nested, err := sm.Public.Items(ctx, token, gear.ID, false)
	require.NoError(t, err)
	require.Equal(t, 2, nested.Count)
	for _, item := range nested.Items {
		assert.Contains(t, item, "id")
		assert.Contains(t, item, "data")
		assert.NotContains(t, item, "title")
	}
}

func TestPublicItemsRejectsNonInventoryTable(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	plain, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "notes", Visibility: "public",
	}, testOwner())
	require.NoError(t, err)

	token := unrestrictedToken(t, sm)

	_, err = sm.Public.Items(ctx, token, plain.ID, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	listed, _, err := sm.Access.CreateToken(ctx, models.CreateTokenRequest{
		Name: "scoped", TableAccess: []string{plain.ID},
	})
	require.NoError(t, err)

	_, err = sm.Public.Items(ctx, listed, plain.ID, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestPublicItemFlattens(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	row := seedRow(t, sm, gear.ID, models.RowData{"title": "Drill", "price": float64(10), "qty": float64(1)})

	token := unrestrictedToken(t, sm)

	item, err := sm.Public.Item(ctx, token, gear.ID, row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.ID, item["id"])
	assert.Equal(t, "Drill", item["title"])
	assert.Equal(t, "gear", item["tableName"])
	assert.Equal(t, "sale", item["tableType"])

	_, err = sm.Public.Item(ctx, token, gear.ID, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPublicAvailability(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	item := seedRow(t, sm, gear.ID, models.RowData{"price": float64(10), "qty": float64(5)})
	tools := newRentTable(t, sm, "tools", 7)
	unit := seedRow(t, sm, tools.ID, models.RowData{"price": float64(10), "fee": float64(1)})

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Availability(ctx, token, gear.ID, item.ID, 3)
	require.NoError(t, err)
	assert.True(t, out.Available)
	assert.Equal(t, 5.0, out.AvailableQty)
	assert.Equal(t, 3.0, out.RequestedQty)

	out, err = sm.Public.Availability(ctx, token, gear.ID, item.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.RequestedQty)

	// Rent tables have no quantity notion; availability counts as one
	out, err = sm.Public.Availability(ctx, token, tools.ID, unit.ID, 1)
	require.NoError(t, err)
	assert.True(t, out.Available)
	assert.Equal(t, 1.0, out.AvailableQty)
}

func TestPublicRecordsPaginationAndFilters(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	colors := []string{"red", "red", "blue", "green", "blue"}
	for i, color := range colors {
		seedRow(t, sm, gear.ID, models.RowData{
			"title": color,
			"price": float64(i + 1),
			"qty":   float64(1),
		})
	}

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Records(ctx, token, nil, nil, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 5, out.Total)
	assert.Equal(t, 5, out.Pagination.Total)
	assert.Equal(t, 2, out.Pagination.Page)
	assert.Equal(t, 2, out.Pagination.Limit)
	assert.True(t, out.Pagination.HasMore)

	out, err = sm.Public.Records(ctx, token, nil, nil, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
	assert.False(t, out.Pagination.HasMore)

	where := map[string]string{"title": "red"}
	out, err = sm.Public.Records(ctx, token, where, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, where, out.Filters)
	for _, rec := range out.Records {
		assert.Equal(t, "red", rec["title"])
	}
}

func TestPublicRecordsColumnProjection(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	seedRow(t, sm, gear.ID, models.RowData{"title": "Drill", "price": float64(10), "qty": float64(1)})

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Records(ctx, token, nil, []string{"title"}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)

	rec := out.Records[0]
	assert.Equal(t, "Drill", rec["title"])
	// Identity keys survive projection, everything else is stripped
	assert.Contains(t, rec, "id")
	assert.Contains(t, rec, "tableId")
	assert.Contains(t, rec, "tableName")
	assert.Contains(t, rec, "tableType")
	assert.NotContains(t, rec, "price")
	assert.NotContains(t, rec, "createdAt")
}

func TestPublicRecordsHonorTokenScope(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	first := newSaleTable(t, sm, "first")
	second := newSaleTable(t, sm, "second")
	seedRow(t, sm, first.ID, models.RowData{"price": float64(1), "qty": float64(1)})
	seedRow(t, sm, second.ID, models.RowData{"price": float64(2), "qty": float64(1)})

	scoped, _, err := sm.Access.CreateToken(ctx, models.CreateTokenRequest{
		Name: "scoped", TableAccess: []string{first.ID},
	})
	require.NoError(t, err)

	out, err := sm.Public.Records(ctx, scoped, nil, nil, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, first.ID, out.Records[0]["tableId"])
}

func TestPublicValuesAcrossTables(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	first := newSaleTable(t, sm, "first")
	second := newSaleTable(t, sm, "second")
	seedRow(t, sm, first.ID, models.RowData{"title": "red", "price": float64(1), "qty": float64(1)})
	seedRow(t, sm, first.ID, models.RowData{"title": "blue", "price": float64(2), "qty": float64(1)})
	seedRow(t, sm, second.ID, models.RowData{"title": "red", "price": float64(3), "qty": float64(1)})
	seedRow(t, sm, second.ID, models.RowData{"title": "green", "price": float64(4), "qty": float64(1)})

	token := unrestrictedToken(t, sm)

	out, err := sm.Public.Values(ctx, token, "title", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "green", "red"}, out.Values)
	assert.Equal(t, 3, out.Count)
	assert.ElementsMatch(t, []string{"first", "second"}, out.TablesSampled)

	// A column nobody declares samples nothing
	out, err = sm.Public.Values(ctx, token, "ghost", nil)
	require.NoError(t, err)
	assert.Empty(t, out.Values)
	assert.Empty(t, out.TablesSampled)
}

func TestPublicAccessOrdering(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	first := newSaleTable(t, sm, "first")
	second := newSaleTable(t, sm, "second")

	scoped, _, err := sm.Access.CreateToken(ctx, models.CreateTokenRequest{
		Name: "scoped", TableAccess: []string{first.ID},
	})
	require.NoError(t, err)

	// Unknown tables answer 404 even to tokens that could not reach them
	_, err = sm.Public.Items(ctx, scoped, "no-such-table", false)
	assert.True(t, apperrors.IsNotFound(err))

	// Known but out-of-scope tables answer 403
	_, err = sm.Public.Items(ctx, scoped, second.ID, false)
	assert.True(t, apperrors.IsPermission(err))
}

func TestPublicPurchaseAndRentLifecycle(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	gear := newSaleTable(t, sm, "gear")
	item := seedRow(t, sm, gear.ID, models.RowData{"price": float64(10), "qty": float64(5)})
	tools := newRentTable(t, sm, "tools", 7)
	unit := seedRow(t, sm, tools.ID, models.RowData{"price": float64(100), "fee": float64(10)})

	token := unrestrictedToken(t, sm)

	sale, err := sm.Public.Purchase(ctx, token, models.PurchaseRequest{
		TableID: gear.ID, ItemID: item.ID, CustomerID: "cust-1", Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, sale.TotalAmount)

	rental, err := sm.Public.Rent(ctx, token, models.RentRequest{
		TableID: tools.ID, ItemID: unit.ID, CustomerID: "cust-1",
	})
	require.NoError(t, err)

	released, err := sm.Public.Release(ctx, token, models.ReleaseRequest{RentalID: rental.ID})
	require.NoError(t, err)
	assert.NotNil(t, released.ReleasedAt)

	// A token without reach cannot buy
	scoped, _, err := sm.Access.CreateToken(ctx, models.CreateTokenRequest{
		Name: "scoped", TableAccess: []string{tools.ID},
	})
	require.NoError(t, err)

	_, err = sm.Public.Purchase(ctx, scoped, models.PurchaseRequest{
		TableID: gear.ID, ItemID: item.ID, CustomerID: "cust-2", Quantity: 1,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}
