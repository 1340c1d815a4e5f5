package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRowRepoMock(t *testing.T) (*RowRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	repo := NewRowRepository(db, database.MySQLDialect{})
	return repo, mock, func() { db.Close() }
}

func TestRowRepository_CountAppliesFiltersInKeyOrder(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	// Keys apply sorted (name before price) regardless of map iteration
	query := "SELECT COUNT(*) FROM `table_data` WHERE `table_id` = ?" +
		" AND JSON_EXTRACT(`data`, ?) = CAST(? AS JSON)" +
		" AND (JSON_EXTRACT(`data`, ?) = CAST(? AS JSON) OR JSON_EXTRACT(`data`, ?) = CAST(? AS JSON))"

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("tbl-1", `$."name"`, `"Widget"`, `$."price"`, "10", `$."price"`, `"10"`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(3))

	count, err := repo.Count(context.Background(), "tbl-1", map[string]string{
		"price": "10",
		"name":  "Widget",
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_FindPageOrdersBySystemColumn(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "SELECT `table_data`.`id`, `table_data`.`table_id`, `table_data`.`data`, `table_data`.`created_by`, `table_data`.`created_at`, `table_data`.`updated_at`" +
		" FROM `table_data` WHERE `table_id` = ?" +
		" ORDER BY `table_data`.`created_at` DESC, `table_data`.`id` ASC LIMIT 2 OFFSET 4"

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "table_id", "data", "created_by", "created_at", "updated_at"}).
		AddRow("row-1", "tbl-1", `{"name":"A"}`, "user-1", now, now).
		AddRow("row-2", "tbl-1", `{"name":"B"}`, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("tbl-1").
		WillReturnRows(rows)

	got, err := repo.FindPage(context.Background(), "tbl-1", nil, "created_at", "desc", 2, 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "row-1", got[0].ID)
	assert.Equal(t, "A", got[0].Data["name"])
	assert.Equal(t, "user-1", got[0].CreatedBy)
	assert.Equal(t, "", got[1].CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_FindPageRejectsDataColumnSort(t *testing.T) {
	repo, _, closeDB := newRowRepoMock(t)
	defer closeDB()

	_, err := repo.FindPage(context.Background(), "tbl-1", nil, "price", "asc", 10, 0)
	assert.Error(t, err)
}

func TestRowRepository_UpdateDataGuarded(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "UPDATE `table_data` SET `data` = ?, `updated_at` = ? WHERE `id` = ? AND `table_id` = ?" +
		" AND (JSON_EXTRACT(`data`, ?) = CAST(? AS JSON) OR JSON_EXTRACT(`data`, ?) = CAST(? AS JSON))"

	now := time.Now()
	data := models.RowData{"qty": float64(2)}
	blob, err := models.EncodeRowData(data)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(blob, now, "row-1", "tbl-1", `$."qty"`, "3", `$."qty"`, `"3"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateDataGuarded(context.Background(), nil, "tbl-1", "row-1", data, "qty", "3", now)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Guard mismatch: someone changed qty since it was read
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(blob, now, "row-1", "tbl-1", `$."qty"`, "3", `$."qty"`, `"3"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = repo.UpdateDataGuarded(context.Background(), nil, "tbl-1", "row-1", data, "qty", "3", now)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_DeleteMany(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "DELETE FROM `table_data` WHERE `table_id` = ? AND `id` IN (?, ?)"

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("tbl-1", "row-1", "row-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.DeleteMany(context.Background(), nil, "tbl-1", []string{"row-1", "row-2"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// Empty id set never touches the database
	affected, err = repo.DeleteMany(context.Background(), nil, "tbl-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_ExistsByColumnValue(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "SELECT `table_data`.`id` FROM `table_data` WHERE `table_id` = ?" +
		" AND JSON_EXTRACT(`data`, ?) = CAST(? AS JSON) AND `id` != ? LIMIT 1"

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("tbl-1", `$."sku"`, `"X-100"`, "row-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("row-1"))

	exists, err := repo.ExistsByColumnValue(context.Background(), nil, "tbl-1", "sku", "X-100", "row-9")
	assert.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("tbl-1", `$."sku"`, `"X-100"`, "row-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	exists, err = repo.ExistsByColumnValue(context.Background(), nil, "tbl-1", "sku", "X-100", "row-9")
	assert.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_DistinctValues(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "SELECT DISTINCT JSON_UNQUOTE(JSON_EXTRACT(`data`, ?)) FROM `table_data`" +
		" WHERE `table_id` IN (?, ?)" +
		" AND JSON_UNQUOTE(JSON_EXTRACT(`data`, ?)) IS NOT NULL LIMIT 100"

	rows := sqlmock.NewRows([]string{"value"}).
		AddRow("Berlin").
		AddRow("Lisbon").
		AddRow(nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(`$."city"`, "tbl-1", "tbl-2", `$."city"`).
		WillReturnRows(rows)

	values, err := repo.DistinctValues(context.Background(), []string{"tbl-1", "tbl-2"}, "city", nil, false, 100)
	assert.NoError(t, err)
	assert.Equal(t, []string{"Berlin", "Lisbon"}, values)

	// No tables means no query at all
	values, err = repo.DistinctValues(context.Background(), nil, "city", nil, false, 100)
	assert.NoError(t, err)
	assert.Empty(t, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_BulkInsertBatches(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	now := time.Now()
	records := []*models.Row{
		{ID: "row-1", TableID: "tbl-1", Data: models.RowData{"n": float64(1)}, CreatedAt: now, UpdatedAt: now},
		{ID: "row-2", TableID: "tbl-1", Data: models.RowData{"n": float64(2)}, CreatedAt: now, UpdatedAt: now},
		{ID: "row-3", TableID: "tbl-1", Data: models.RowData{"n": float64(3)}, CreatedAt: now, UpdatedAt: now},
	}

	two := "INSERT INTO `table_data` (`id`, `table_id`, `data`, `created_by`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?, ?, ?), (?, ?, ?, ?, ?, ?)"
	one := "INSERT INTO `table_data` (`id`, `table_id`, `data`, `created_by`, `created_at`, `updated_at`) VALUES (?, ?, ?, ?, ?, ?)"

	mock.ExpectExec(regexp.QuoteMeta(two)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(one)).WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.BulkInsert(context.Background(), nil, records, 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowRepository_GetLockRequiresTransaction(t *testing.T) {
	repo, _, closeDB := newRowRepoMock(t)
	defer closeDB()

	_, err := repo.GetLock(context.Background(), nil, "tbl-1", "row-1")
	assert.Error(t, err)
}

func TestRowRepository_GetLockAppendsForUpdate(t *testing.T) {
	repo, mock, closeDB := newRowRepoMock(t)
	defer closeDB()

	query := "SELECT `table_data`.`id`, `table_data`.`table_id`, `table_data`.`data`, `table_data`.`created_by`, `table_data`.`created_at`, `table_data`.`updated_at`" +
		" FROM `table_data` WHERE `id` = ? AND `table_id` = ? LIMIT 1 FOR UPDATE"

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("row-1", "tbl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_id", "data", "created_by", "created_at", "updated_at"}).
			AddRow("row-1", "tbl-1", `{"qty":5}`, nil, now, now))
	mock.ExpectRollback()

	tx, err := repo.db.Begin()
	require.NoError(t, err)

	row, err := repo.GetLock(context.Background(), tx, "tbl-1", "row-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, float64(5), row.Data["qty"])

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
