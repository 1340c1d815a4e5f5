package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	apperrors "github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
)

func strptr(s string) *string { return &s }

func TestCreateTableSeedsInventoryColumns(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sale, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "shop", Type: "sale", Visibility: "public",
		Columns: []models.CreateColumnRequest{{Name: "title", Type: "text"}},
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "qty", "title"}, sale.ColumnNames())
	assert.True(t, sale.Columns[0].Required)
	assert.True(t, sale.Columns[1].Required)
	assert.True(t, sale.Columns[0].AllowDuplicates)

	rent, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "fleet", Type: "rent",
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "fee", "used", "available"}, rent.ColumnNames())

	used := rent.FindColumn("used")
	require.NotNil(t, used)
	require.NotNil(t, used.DefaultValue)
	assert.Equal(t, "false", *used.DefaultValue)

	available := rent.FindColumn("available")
	require.NotNil(t, available)
	require.NotNil(t, available.DefaultValue)
	assert.Equal(t, "true", *available.DefaultValue)

	// Plain tables reserve nothing
	plain, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{Name: "notes"}, testOwner())
	require.NoError(t, err)
	assert.Empty(t, plain.Columns)
	assert.Equal(t, "private", string(plain.Visibility))
	assert.Equal(t, "default", string(plain.Type))
}

func TestCreateTableValidation(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	period := -3
	cases := map[string]models.CreateTableRequest{
		"empty name":      {Name: "   "},
		"bad visibility":  {Name: "x", Visibility: "everyone"},
		"bad type":        {Name: "x", Type: "warehouse"},
		"bad period":      {Name: "x", Type: "rent", RentalPeriod: &period},
		"system column":   {Name: "x", Columns: []models.CreateColumnRequest{{Name: "id", Type: "text"}}},
		"bad column type": {Name: "x", Columns: []models.CreateColumnRequest{{Name: "c", Type: "hologram"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sm.Schema.CreateTable(ctx, req, testOwner())
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}

	// Declaring a reserved inventory column collides with the provisioned one
	_, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "x", Type: "sale",
		Columns: []models.CreateColumnRequest{{Name: "Qty", Type: "number"}},
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, err = sm.Schema.CreateTable(ctx, models.CreateTableRequest{Name: "x"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))

	// A rental period on a non-rent table is dropped, not stored
	seven := 7
	plain, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{
		Name: "plain", RentalPeriod: &seven,
	}, testOwner())
	require.NoError(t, err)
	assert.Nil(t, plain.RentalPeriod)
}

func TestListTablesVisibility(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()
	stranger := &models.UserContext{ID: "user-2", Name: "Stranger"}

	_, err := sm.Schema.CreateTable(ctx, models.CreateTableRequest{Name: "mine"}, testOwner())
	require.NoError(t, err)
	_, err = sm.Schema.CreateTable(ctx, models.CreateTableRequest{Name: "pub", Visibility: "public"}, testOwner())
	require.NoError(t, err)
	_, err = sm.Schema.CreateTable(ctx, models.CreateTableRequest{Name: "theirs"}, stranger)
	require.NoError(t, err)

	names := func(tables []*models.Table) []string {
		out := make([]string, len(tables))
		for i, tb := range tables {
			out[i] = tb.Name
		}
		return out
	}

	own, err := sm.Schema.ListTables(ctx, testOwner())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine", "pub"}, names(own))

	theirs, err := sm.Schema.ListTables(ctx, stranger)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"theirs", "pub"}, names(theirs))

	all, err := sm.Schema.ListTables(ctx, testAdmin())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine", "pub", "theirs"}, names(all))

	_, err = sm.Schema.ListTables(ctx, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestUpdateTableMetadata(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newSaleTable(t, sm, "gear")

	updated, err := sm.Schema.UpdateTable(ctx, table.ID, models.UpdateTableRequest{
		Name:            strptr("equipment"),
		Description:     strptr("field gear"),
		Visibility:      strptr("shared"),
		ProductIDColumn: strptr("title"),
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, "equipment", updated.Name)
	assert.Equal(t, "shared", string(updated.Visibility))
	require.NotNil(t, updated.ProductIDColumn)
	assert.Equal(t, "title", *updated.ProductIDColumn)

	_, err = sm.Schema.UpdateTable(ctx, table.ID, models.UpdateTableRequest{
		ProductIDColumn: strptr("ghost"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// Rental periods belong to rent tables only
	thirty := 30
	_, err = sm.Schema.UpdateTable(ctx, table.ID, models.UpdateTableRequest{RentalPeriod: &thirty}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	rent := newRentTable(t, sm, "vans", 7)
	bad := 0
	_, err = sm.Schema.UpdateTable(ctx, rent.ID, models.UpdateTableRequest{RentalPeriod: &bad}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	longer, err := sm.Schema.UpdateTable(ctx, rent.ID, models.UpdateTableRequest{RentalPeriod: &thirty}, testOwner())
	require.NoError(t, err)
	require.NotNil(t, longer.RentalPeriod)
	assert.Equal(t, 30, *longer.RentalPeriod)

	stranger := &models.UserContext{ID: "user-2", Name: "Stranger"}
	_, err = sm.Schema.UpdateTable(ctx, table.ID, models.UpdateTableRequest{Name: strptr("stolen")}, stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestRenameColumnMigratesRowKeys(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "posts", models.CreateColumnRequest{Name: "title", Type: "text"})
	withKey := seedRow(t, sm, table.ID, models.RowData{"title": "hello"})
	withoutKey := seedRow(t, sm, table.ID, models.RowData{})

	col := table.FindColumn("title")
	require.NotNil(t, col)

	renamed, err := sm.Schema.UpdateColumn(ctx, table.ID, col.ID, models.UpdateColumnRequest{
		Name: strptr("headline"),
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, "headline", renamed.Name)

	migrated, err := sm.Rows.Get(ctx, table.ID, withKey.ID, testOwner())
	require.NoError(t, err)
	assert.Equal(t, "hello", migrated.Data.GetString("headline"))
	assert.False(t, migrated.Data.Has("title"))

	untouched, err := sm.Rows.Get(ctx, table.ID, withoutKey.ID, testOwner())
	require.NoError(t, err)
	assert.False(t, untouched.Data.Has("headline"))
	assert.False(t, untouched.Data.Has("title"))
}

func TestRenameColumnConflicts(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "posts",
		models.CreateColumnRequest{Name: "title", Type: "text"},
		models.CreateColumnRequest{Name: "body", Type: "text"},
	)
	body := table.FindColumn("body")
	require.NotNil(t, body)

	// Column names are case-insensitive, so Title collides with title
	_, err := sm.Schema.UpdateColumn(ctx, table.ID, body.ID, models.UpdateColumnRequest{
		Name: strptr("Title"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, err = sm.Schema.UpdateColumn(ctx, table.ID, body.ID, models.UpdateColumnRequest{
		Name: strptr("created_at"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestProtectedColumnsAreImmutable(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newSaleTable(t, sm, "gear")
	seedRow(t, sm, table.ID, models.RowData{"title": "Tent", "price": float64(50), "qty": float64(2)})

	price := table.FindColumn("price")
	qty := table.FindColumn("qty")
	title := table.FindColumn("title")
	require.NotNil(t, price)
	require.NotNil(t, qty)
	require.NotNil(t, title)

	_, err := sm.Schema.UpdateColumn(ctx, table.ID, price.ID, models.UpdateColumnRequest{
		Name: strptr("cost"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = sm.Schema.UpdateColumn(ctx, table.ID, qty.ID, models.UpdateColumnRequest{
		Type: strptr("text"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = sm.Schema.DeleteColumn(ctx, table.ID, qty.ID, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	// User columns drop freely; stored rows keep the orphaned key
	require.NoError(t, sm.Schema.DeleteColumn(ctx, table.ID, title.ID, testOwner()))

	reloaded, err := sm.Schema.GetTable(ctx, table.ID, testOwner())
	require.NoError(t, err)
	assert.False(t, reloaded.HasColumn("title"))

	rows, _, err := sm.Rows.List(ctx, table.ID, models.ListOptions{}, testOwner())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Tent", rows[0].Data.GetString("title"))
}

func TestAddColumnAppendsAfterExisting(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newSaleTable(t, sm, "gear")

	notes, err := sm.Schema.AddColumn(ctx, table.ID, models.CreateColumnRequest{
		Name: "notes", Type: "text",
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, 3, notes.Position)

	_, err = sm.Schema.AddColumn(ctx, table.ID, models.CreateColumnRequest{
		Name: "Title", Type: "text",
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, err = sm.Schema.AddColumn(ctx, table.ID, models.CreateColumnRequest{
		Name: "shape", Type: "pyramid",
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	stranger := &models.UserContext{ID: "user-2", Name: "Stranger"}
	_, err = sm.Schema.AddColumn(ctx, table.ID, models.CreateColumnRequest{
		Name: "sneaky", Type: "text",
	}, stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))
}

func TestDeleteTableCascades(t *testing.T) {
	sm, db := newTestManager(t)
	ctx := context.Background()

	table := newSaleTable(t, sm, "gear")
	item := seedRow(t, sm, table.ID, models.RowData{"title": "Lamp", "price": float64(10), "qty": float64(5)})

	_, err := sm.Inventory.Purchase(ctx, models.PurchaseRequest{
		TableID: table.ID, ItemID: item.ID, CustomerID: "cust-1", Quantity: 1,
	})
	require.NoError(t, err)

	_, err = sm.Schema.CreateRule(ctx, table.ID, models.CreateRuleRequest{
		Name: "positive price", Expression: "price > 0",
	}, testOwner())
	require.NoError(t, err)

	stranger := &models.UserContext{ID: "user-2", Name: "Stranger"}
	err = sm.Schema.DeleteTable(ctx, table.ID, stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	require.NoError(t, sm.Schema.DeleteTable(ctx, table.ID, testOwner()))

	_, err = sm.Schema.GetTable(ctx, table.ID, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	for _, tbl := range []string{"table_data", "table_columns", "table_rules", "sales"} {
		var n int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tbl+" WHERE table_id = ?", table.ID).Scan(&n)
		require.NoError(t, err)
		assert.Zero(t, n, tbl)
	}

	sales, _, err := sm.Inventory.ListSales(ctx, persistence.SaleFilter{TableID: table.ID}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestRuleLifecycle(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newSaleTable(t, sm, "gear")

	_, err := sm.Schema.CreateRule(ctx, table.ID, models.CreateRuleRequest{
		Name: "broken", Expression: "price >",
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = sm.Schema.CreateRule(ctx, table.ID, models.CreateRuleRequest{
		Name: "  ", Expression: "price > 0",
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	rule, err := sm.Schema.CreateRule(ctx, table.ID, models.CreateRuleRequest{
		Name: "positive price", Expression: "price > 0", ErrorMessage: "Price must be positive",
	}, testOwner())
	require.NoError(t, err)
	assert.True(t, rule.Active)

	rules, err := sm.Schema.ListRules(ctx, table.ID, testOwner())
	require.NoError(t, err)
	require.Len(t, rules, 1)

	// Active rules block violating rows
	_, err = sm.Rows.Create(ctx, table.ID, models.RowData{
		"title": "Junk", "price": float64(-5), "qty": float64(1),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = sm.Schema.UpdateRule(ctx, table.ID, rule.ID, models.UpdateRuleRequest{
		Expression: strptr("(price > 0"),
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	inactive := false
	updated, err := sm.Schema.UpdateRule(ctx, table.ID, rule.ID, models.UpdateRuleRequest{
		Active: &inactive,
	}, testOwner())
	require.NoError(t, err)
	assert.False(t, updated.Active)

	// Deactivated rules stop applying
	_, err = sm.Rows.Create(ctx, table.ID, models.RowData{
		"title": "Junk", "price": float64(-5), "qty": float64(1),
	}, testOwner())
	require.NoError(t, err)

	otherTable := newSaleTable(t, sm, "other")
	_, err = sm.Schema.UpdateRule(ctx, otherTable.ID, rule.ID, models.UpdateRuleRequest{Active: &inactive}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, sm.Schema.DeleteRule(ctx, table.ID, rule.ID, testOwner()))
	err = sm.Schema.DeleteRule(ctx, table.ID, rule.ID, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	rules, err = sm.Schema.ListRules(ctx, table.ID, testOwner())
	require.NoError(t, err)
	assert.Empty(t, rules)
}
