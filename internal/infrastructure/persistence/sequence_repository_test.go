package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceRepository_NextExistingCounter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSequenceRepository(db)

	update := "UPDATE `sequence_counters` SET `current_seq` = `current_seq` + 1 WHERE `scope` = ? AND `year` = ?"
	sel := "SELECT `current_seq` FROM `sequence_counters` WHERE `scope` = ? AND `year` = ?"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(update)).
		WithArgs("sale", 2026).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(sel)).
		WithArgs("sale", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"current_seq"}).AddRow(7))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	seq, err := repo.Next(context.Background(), tx, "sale", 2026)
	assert.NoError(t, err)
	assert.Equal(t, 7, seq)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepository_NextFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSequenceRepository(db)

	update := "UPDATE `sequence_counters` SET `current_seq` = `current_seq` + 1 WHERE `scope` = ? AND `year` = ?"
	insert := "INSERT INTO `sequence_counters` (`scope`, `year`, `current_seq`) VALUES (?, ?, 1)"
	sel := "SELECT `current_seq` FROM `sequence_counters` WHERE `scope` = ? AND `year` = ?"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(update)).
		WithArgs("rent", 2026).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insert)).
		WithArgs("rent", 2026).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(sel)).
		WithArgs("rent", 2026).
		WillReturnRows(sqlmock.NewRows([]string{"current_seq"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	seq, err := repo.Next(context.Background(), tx, "rent", 2026)
	assert.NoError(t, err)
	assert.Equal(t, 1, seq)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepository_NextRequiresTransaction(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSequenceRepository(db)

	_, err = repo.Next(context.Background(), nil, "sale", 2026)
	assert.Error(t, err)
}
