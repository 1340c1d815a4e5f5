package services

import (
	"time"

	"github.com/erimeilis/store-sub004/internal/infrastructure/cache"
	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
	"github.com/erimeilis/store-sub004/pkg/rules"
)

// Cache entries live long enough to absorb read bursts; semantic
// invalidation handles correctness, so the TTL is only a memory bound.
const (
	cacheTTL           = 5 * time.Minute
	cachePurgeInterval = 10 * time.Minute
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	TxManager *persistence.TransactionManager
	Cache     *cache.RowCache // Exposed for internal use

	Schema     *SchemaService
	Validation *ValidationService
	Rows       *RowService
	Inventory  *InventoryService
	Conversion *ConversionService
	Access     *AccessService
	Public     *PublicService
	Console    *ConsoleService
	Sweeper    *SweeperService
}

// NewServiceManager creates a new service manager with all dependencies
// wired. sweepSchedule is a five-field cron expression; empty means the
// default hourly sweep.
func NewServiceManager(db *database.Connection, sweepSchedule string) (*ServiceManager, error) {
	sm := &ServiceManager{
		db: db,
	}

	// Repositories share the one connection
	tableRepo := persistence.NewTableRepository(db.DB())
	rowRepo := persistence.NewRowRepository(db.DB(), db.Dialect())
	saleRepo := persistence.NewSaleRepository(db.DB())
	rentalRepo := persistence.NewRentalRepository(db.DB())
	sequenceRepo := persistence.NewSequenceRepository(db.DB())
	ruleRepo := persistence.NewRuleRepository(db.DB())
	tokenRepo := persistence.NewTokenRepository(db.DB())

	// Initialize services in dependency order
	sm.TxManager = persistence.NewTransactionManager(db)
	sm.Cache = cache.NewRowCache(cache.NewMemory(cacheTTL, cachePurgeInterval), 0)

	engine := rules.NewEngine()
	sm.Validation = NewValidationService(rowRepo, ruleRepo, engine)
	sm.Schema = NewSchemaService(tableRepo, rowRepo, saleRepo, rentalRepo, ruleRepo, sm.TxManager, sm.Cache, engine)
	sm.Rows = NewRowService(rowRepo, sm.Schema, sm.Validation, sm.TxManager, sm.Cache)
	sm.Inventory = NewInventoryService(rowRepo, saleRepo, rentalRepo, sequenceRepo, sm.Schema, sm.TxManager, sm.Cache)
	sm.Conversion = NewConversionService(tableRepo, rowRepo, sm.Schema, sm.TxManager, sm.Cache)
	sm.Access = NewAccessService(tokenRepo, tableRepo, sm.Cache)
	sm.Public = NewPublicService(tableRepo, rowRepo, sm.Access, sm.Inventory, sm.Cache)
	sm.Console = NewConsoleService(db, NewSQLGuard())

	sweeper, err := NewSweeperService(sm.Inventory, tokenRepo, sweepSchedule)
	if err != nil {
		return nil, err
	}
	sm.Sweeper = sweeper

	return sm, nil
}

// StartSweeper starts the background sweep loop. Call this during server
// startup; the loop runs on its own goroutine.
func (sm *ServiceManager) StartSweeper() {
	if sm.Sweeper != nil {
		go sm.Sweeper.Start()
	}
}

// StopSweeper stops the sweep loop and waits for an in-flight sweep to
// finish. Call this during server shutdown.
func (sm *ServiceManager) StopSweeper() {
	if sm.Sweeper != nil {
		sm.Sweeper.Stop()
	}
}
