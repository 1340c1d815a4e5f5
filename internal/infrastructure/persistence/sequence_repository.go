package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erimeilis/store-sub004/pkg/constants"
)

// SequenceRepository allocates monotonic per-scope, per-year serial numbers.
// Allocation must run inside the caller's transaction so an aborted purchase
// or rental rolls its number back with it.
type SequenceRepository struct {
	db *sql.DB
}

// NewSequenceRepository creates a new SequenceRepository
func NewSequenceRepository(db *sql.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for (scope, year), creating it at
// 1 on first use. The UPDATE takes a row lock, so concurrent transactions
// on the same counter serialize; first-use races surface as duplicate-key
// errors which the caller's retry wrapper absorbs.
func (r *SequenceRepository) Next(ctx context.Context, tx *sql.Tx, scope string, year int) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction required for sequence allocation")
	}

	updateSQL := fmt.Sprintf("UPDATE `%s` SET `current_seq` = `current_seq` + 1 WHERE `scope` = ? AND `year` = ?",
		constants.TableSequences)
	res, err := tx.ExecContext(ctx, updateSQL, scope, year)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if affected == 0 {
		insertSQL := fmt.Sprintf("INSERT INTO `%s` (`scope`, `year`, `current_seq`) VALUES (?, ?, 1)",
			constants.TableSequences)
		if _, err := tx.ExecContext(ctx, insertSQL, scope, year); err != nil {
			return 0, err
		}
	}

	selectSQL := fmt.Sprintf("SELECT `current_seq` FROM `%s` WHERE `scope` = ? AND `year` = ?",
		constants.TableSequences)
	var seq int
	if err := tx.QueryRowContext(ctx, selectSQL, scope, year).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// Current reads a counter without bumping it. Zero when never used.
func (r *SequenceRepository) Current(ctx context.Context, scope string, year int) (int, error) {
	selectSQL := fmt.Sprintf("SELECT `current_seq` FROM `%s` WHERE `scope` = ? AND `year` = ?",
		constants.TableSequences)

	var seq int
	err := r.db.QueryRowContext(ctx, selectSQL, scope, year).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq, nil
}
