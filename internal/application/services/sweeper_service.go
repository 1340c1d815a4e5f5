package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erimeilis/store-sub004/internal/infrastructure/persistence"
)

// DefaultSweepSchedule runs the sweep at the top of every hour
const DefaultSweepSchedule = "0 * * * *"

// SweeperService is the background maintenance loop: it reports rentals
// that outstayed their rental period and clears expired API tokens. It
// never mutates rental state; overdue handling stays a human decision.
type SweeperService struct {
	inventory *InventoryService
	tokenRepo *persistence.TokenRepository
	schedule  cron.Schedule
	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	stopped   bool // Prevents double-close of stopChan
}

// NewSweeperService creates a sweeper on the given five-field cron spec.
// An empty spec falls back to hourly.
func NewSweeperService(inventory *InventoryService, tokenRepo *persistence.TokenRepository, spec string) (*SweeperService, error) {
	if spec == "" {
		spec = DefaultSweepSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	return &SweeperService{
		inventory: inventory,
		tokenRepo: tokenRepo,
		schedule:  schedule,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start runs the sweep loop until Stop. Blocks, so run it in a goroutine.
func (s *SweeperService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Println("⏰ Sweeper starting...")

	for {
		timer := time.NewTimer(time.Until(s.schedule.Next(time.Now())))
		select {
		case <-timer.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Sweep(context.Background())
			}()
		case <-s.stopChan:
			timer.Stop()
			s.wg.Wait()
			log.Println("⏰ Sweeper stopped")
			return
		}
	}
}

// Stop gracefully stops the sweeper
func (s *SweeperService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
}

// Sweep runs one maintenance pass. Safe to call directly, the loop and
// tests both do.
func (s *SweeperService) Sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🔥 Panic in sweep: %v", r)
		}
	}()

	overdue, err := s.inventory.ListOverdue(ctx, "")
	if err != nil {
		log.Printf("⚠️ Sweep: overdue scan failed: %v", err)
	} else {
		for _, r := range overdue {
			log.Printf("⚠️ Rental %s overdue by %d day(s): item %s, customer %s",
				r.RentalNumber, r.OverdueDays, r.ItemID, r.CustomerID)
		}
	}

	removed, err := s.tokenRepo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("⚠️ Sweep: token cleanup failed: %v", err)
	} else if removed > 0 {
		log.Printf("🗑️ Sweep: removed %d expired token(s)", removed)
	}
}
