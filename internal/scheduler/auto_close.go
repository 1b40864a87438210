package scheduler

import (
	"context"
	"time"

	finalize "auction-service/internal/finalizeService"
	"auction-service/internal/repository"
	"auction-service/utils"
)

// DefaultInterval is the sweep cadence when none is configured.
const DefaultInterval = time.Minute

// Finalizer is the automatic-mode entry point the sweep drives for each
// expired auction.
type Finalizer interface {
	FinalizeAuto(auctionID string) (finalize.FinalizationResult, error)
}

// SweepResult summarizes one sweep over the expired-but-open auctions.
type SweepResult struct {
	Processed int
	Failed    int
}

// Scheduler periodically finalizes auctions whose end time has passed. The
// query is level-triggered: every tick re-selects all currently eligible
// auctions, so a skipped or failed tick is caught by the next one.
type Scheduler struct {
	store     repository.AuctionStore
	finalizer Finalizer
	interval  time.Duration
	now       func() time.Time
}

// NewScheduler creates a new auto-close scheduler
func NewScheduler(store repository.AuctionStore, finalizer Finalizer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:     store,
		finalizer: finalizer,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	utils.Info("auto-close scheduler started", map[string]any{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			utils.Info("auto-close scheduler stopped", nil)
			return
		case <-ticker.C:
			s.RunSweep(s.now())
		}
	}
}

// RunSweep finalizes every auction eligible at the given instant. Failures
// are isolated per auction: one broken auction does not abort the rest of
// the batch. A failed store query skips the tick entirely; the next tick's
// re-query self-heals.
func (s *Scheduler) RunSweep(now time.Time) SweepResult {
	expired, err := s.store.ListExpiredOpen(now)
	if err != nil {
		utils.Error("auto-close sweep: failed to list expired auctions", map[string]any{
			"error": err.Error(),
		})
		return SweepResult{}
	}

	var result SweepResult
	for _, auction := range expired {
		if _, err := s.finalizer.FinalizeAuto(auction.AuctionID); err != nil {
			result.Failed++
			utils.Error("auto-close sweep: finalize failed", map[string]any{
				"auction_id": auction.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		result.Processed++
		utils.Info("auto-close sweep: auction finalized", map[string]any{
			"auction_id": auction.AuctionID,
		})
	}

	return result
}
