package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erimeilis/store-sub004/pkg/constants"
	apperrors "github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/matching"
	"github.com/erimeilis/store-sub004/pkg/models"
)

// newDefaultTable creates a private default table with the given columns
func newDefaultTable(t *testing.T, sm *ServiceManager, name string, cols ...models.CreateColumnRequest) *models.Table {
	t.Helper()
	table, err := sm.Schema.CreateTable(context.Background(), models.CreateTableRequest{
		Name:    name,
		Columns: cols,
	}, testOwner())
	require.NoError(t, err)
	return table
}

func TestPreviewSuggestsMappings(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "products",
		models.CreateColumnRequest{Name: "Price", Type: "number"},
		models.CreateColumnRequest{Name: "Quantity", Type: "number"},
	)

	preview, err := sm.Conversion.Preview(ctx, table.ID, "sale", testOwner())
	require.NoError(t, err)

	assert.Equal(t, constants.TableTypeDefault, preview.CurrentType)
	assert.Equal(t, constants.TableTypeSale, preview.TargetType)
	assert.Equal(t, []string{"Price", "Quantity"}, preview.ExistingColumns)
	require.Len(t, preview.Mappings, 2)

	// "Price" matches case-insensitively; nothing fits "qty"
	assert.Equal(t, "price", preview.Mappings[0].Target)
	require.NotNil(t, preview.Mappings[0].Source)
	assert.Equal(t, "Price", *preview.Mappings[0].Source)
	assert.Equal(t, matching.ConfidenceExact, preview.Mappings[0].Confidence)

	assert.Equal(t, "qty", preview.Mappings[1].Target)
	assert.Nil(t, preview.Mappings[1].Source)
	assert.Zero(t, preview.Mappings[1].Confidence)

	assert.False(t, preview.AllMapped)
}

func TestPreviewLayeredMatching(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "fleet",
		models.CreateColumnRequest{Name: "Price", Type: "number"},
		models.CreateColumnRequest{Name: "Available?", Type: "boolean"},
	)

	preview, err := sm.Conversion.Preview(ctx, table.ID, "rent", testOwner())
	require.NoError(t, err)
	require.Len(t, preview.Mappings, 4)

	byTarget := make(map[string]models.ColumnMapping)
	for _, m := range preview.Mappings {
		byTarget[m.Target] = m
	}

	require.NotNil(t, byTarget["price"].Source)
	assert.Equal(t, matching.ConfidenceExact, byTarget["price"].Confidence)

	// "Available?" only survives the letters-only layer
	require.NotNil(t, byTarget["available"].Source)
	assert.Equal(t, "Available?", *byTarget["available"].Source)
	assert.Equal(t, matching.ConfidenceLetters, byTarget["available"].Confidence)

	assert.Nil(t, byTarget["fee"].Source)
	assert.Nil(t, byTarget["used"].Source)
	assert.False(t, preview.AllMapped)
}

func TestPreviewRejectsSameAndUnknownType(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "plain")

	_, err := sm.Conversion.Preview(ctx, table.ID, "default", testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = sm.Conversion.Preview(ctx, table.ID, "warehouse", testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestPreviewRequiresManageAccess(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "plain")
	stranger := &models.UserContext{ID: "user-2", Name: "Stranger"}

	_, err := sm.Conversion.Preview(ctx, table.ID, "sale", stranger)
	require.Error(t, err)
	assert.True(t, apperrors.IsPermission(err))

	// Admins manage any table
	_, err = sm.Conversion.Preview(ctx, table.ID, "sale", testAdmin())
	assert.NoError(t, err)
}

func TestApplyAutomaticMappings(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "products",
		models.CreateColumnRequest{Name: "Price", Type: "number"},
		models.CreateColumnRequest{Name: "title", Type: "text"},
	)
	row := seedRow(t, sm, table.ID, models.RowData{"Price": float64(100), "title": "Drill"})

	result, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType: "sale",
	}, testOwner())
	require.NoError(t, err)

	assert.Equal(t, constants.TableTypeDefault, result.FromType)
	assert.Equal(t, constants.TableTypeSale, result.ToType)
	assert.Equal(t, []models.RenamedColumn{{From: "Price", To: "price"}}, result.Renamed)
	assert.Equal(t, []string{"qty"}, result.Created)
	assert.Equal(t, []string{"price"}, result.Modified)

	fresh, err := sm.Schema.GetTable(ctx, table.ID, testOwner())
	require.NoError(t, err)
	assert.Equal(t, constants.TableTypeSale, fresh.Type)
	price := fresh.FindColumn("price")
	require.NotNil(t, price)
	assert.Equal(t, "price", price.Name)
	assert.True(t, price.Required)
	assert.NotNil(t, fresh.FindColumn("qty"))

	// Stored rows follow the rename
	got, err := sm.Rows.Get(ctx, table.ID, row.ID, testOwner())
	require.NoError(t, err)
	v, ok := got.Data.GetNumber("price")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
	assert.False(t, got.Data.Has("Price"))
	assert.Equal(t, "Drill", got.Data.GetString("title"))
}

func TestApplyExplicitMappings(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "stock",
		models.CreateColumnRequest{Name: "cost", Type: "number"},
	)
	row := seedRow(t, sm, table.ID, models.RowData{"cost": float64(7)})

	result, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType: "sale",
		Mappings:   map[string]string{"price": "cost"},
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, []models.RenamedColumn{{From: "cost", To: "price"}}, result.Renamed)
	assert.Equal(t, []string{"qty"}, result.Created)

	got, err := sm.Rows.Get(ctx, table.ID, row.ID, testOwner())
	require.NoError(t, err)
	v, ok := got.Data.GetNumber("price")
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestApplyExplicitMappingValidation(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		mappings map[string]string
	}{
		{"target not required", map[string]string{"fee": "cost"}},
		{"source missing", map[string]string{"price": "ghost"}},
		{"source claimed twice", map[string]string{"price": "cost", "qty": "cost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := newDefaultTable(t, sm, "stock-"+tc.name,
				models.CreateColumnRequest{Name: "cost", Type: "number"},
			)
			_, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
				TargetType: "sale",
				Mappings:   tc.mappings,
			}, testOwner())
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestApplyAdoptsUnclaimedNameCollision(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	// "fee" is not in the explicit mappings but a column of that name
	// already exists; it is adopted instead of duplicated.
	table := newDefaultTable(t, sm, "rentables",
		models.CreateColumnRequest{Name: "cost", Type: "number"},
		models.CreateColumnRequest{Name: "fee", Type: "number"},
	)

	result, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType: "rent",
		Mappings:   map[string]string{"price": "cost"},
	}, testOwner())
	require.NoError(t, err)

	assert.Equal(t, []models.RenamedColumn{{From: "cost", To: "price"}}, result.Renamed)
	assert.Equal(t, []string{"used", "available"}, result.Created)
	assert.Equal(t, []string{"price", "fee"}, result.Modified)
}

func TestApplyRejectsClaimedNameCollision(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	// Mapping "fee" onto price leaves the required fee column colliding
	// with an already claimed name.
	table := newDefaultTable(t, sm, "rentables",
		models.CreateColumnRequest{Name: "fee", Type: "number"},
	)

	_, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType: "rent",
		Mappings:   map[string]string{"price": "fee"},
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestApplyToRentProvisionsInventoryColumns(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "bikes")
	period := 14

	result, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType:   "rent",
		RentalPeriod: &period,
	}, testOwner())
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "fee", "used", "available"}, result.Created)

	fresh, err := sm.Schema.GetTable(ctx, table.ID, testOwner())
	require.NoError(t, err)
	assert.Equal(t, constants.TableTypeRent, fresh.Type)
	require.NotNil(t, fresh.RentalPeriod)
	assert.Equal(t, 14, *fresh.RentalPeriod)

	used := fresh.FindColumn("used")
	require.NotNil(t, used)
	require.NotNil(t, used.DefaultValue)
	assert.Equal(t, "false", *used.DefaultValue)
	available := fresh.FindColumn("available")
	require.NotNil(t, available)
	require.NotNil(t, available.DefaultValue)
	assert.Equal(t, "true", *available.DefaultValue)

	// The converted table behaves like any rent table
	item := seedRow(t, sm, table.ID, models.RowData{"price": float64(20), "fee": float64(2)})
	assert.False(t, item.Data.GetBool("used"))
	assert.True(t, item.Data.GetBool("available"))

	_, err = sm.Inventory.Rent(ctx, models.RentRequest{
		TableID: table.ID, ItemID: item.ID, CustomerID: "c1",
	})
	assert.NoError(t, err)
}

func TestApplyRejectsNonPositiveRentalPeriod(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newDefaultTable(t, sm, "bikes")
	period := -1

	_, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType:   "rent",
		RentalPeriod: &period,
	}, testOwner())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestApplyLeavingRentClearsPeriod(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	table := newRentTable(t, sm, "tools", 7)

	result, err := sm.Conversion.Apply(ctx, table.ID, models.ApplyConversionRequest{
		TargetType: "default",
	}, testOwner())
	require.NoError(t, err)
	assert.Empty(t, result.Renamed)
	assert.Empty(t, result.Created)

	fresh, err := sm.Schema.GetTable(ctx, table.ID, testOwner())
	require.NoError(t, err)
	assert.Equal(t, constants.TableTypeDefault, fresh.Type)
	assert.Nil(t, fresh.RentalPeriod)

	// Columns survive the conversion, only the type protection goes away
	assert.NotNil(t, fresh.FindColumn("fee"))
}
