package services

import (
	"context"

	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/pkg/errors"
	"github.com/erimeilis/store-sub004/pkg/models"
	"github.com/erimeilis/store-sub004/pkg/query"
)

// ConsoleService runs admin console queries after the guard approves them
type ConsoleService struct {
	db    *database.Connection
	guard *SQLGuard
}

// NewConsoleService creates a new ConsoleService
func NewConsoleService(db *database.Connection, guard *SQLGuard) *ConsoleService {
	return &ConsoleService{db: db, guard: guard}
}

// Execute validates the statement and runs it, returning rows as generic maps
func (s *ConsoleService) Execute(ctx context.Context, sql string) (*models.ConsoleResult, error) {
	safeSQL, err := s.guard.Guard(sql)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, safeSQL)
	if err != nil {
		return nil, errors.NewInternalError("console query failed", err)
	}
	defer rows.Close()

	records, err := query.ScanRowsToMaps(rows)
	if err != nil {
		return nil, errors.NewInternalError("console scan failed", err)
	}

	return &models.ConsoleResult{
		SQL:   safeSQL,
		Rows:  records,
		Count: len(records),
	}, nil
}
