package scheduler

import (
	"time"

	"github.com/gozba-na-klik/checkout-gateway/internal/app/repository"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CartJanitor removes cart lines that have not been touched for the retention
// period. Abandoned carts otherwise accumulate forever.
type CartJanitor struct {
	cron     *cron.Cron
	cartRepo repository.CartRepository
	ttl      time.Duration
}

func NewCartJanitor(cartRepo repository.CartRepository, ttl time.Duration) *CartJanitor {
	return &CartJanitor{
		cron:     cron.New(),
		cartRepo: cartRepo,
		ttl:      ttl,
	}
}

// Start schedules the nightly sweep at 4:00 AM.
func (j *CartJanitor) Start() error {
	_, err := j.cron.AddFunc("0 4 * * *", func() {
		j.Sweep()
	})
	if err != nil {
		logger.Error("Failed to add cron job for cart cleanup", err)
		return err
	}

	j.cron.Start()
	logger.Info("Cart janitor started (daily at 4:00 AM)", map[string]interface{}{
		"ttl_hours": j.ttl.Hours(),
	})
	return nil
}

// Sweep deletes stale cart lines once. Exposed for the scheduler callback and
// for manual runs.
func (j *CartJanitor) Sweep() {
	cutoff := time.Now().Add(-j.ttl)

	deleted, err := j.cartRepo.DeleteStale(cutoff)
	if err != nil {
		logger.Error("Cart cleanup sweep failed", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return
	}

	if deleted > 0 {
		logger.Info("Cart cleanup sweep finished", map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff,
		})
	}
}

// Stop halts the scheduler.
func (j *CartJanitor) Stop() {
	j.cron.Stop()
	logger.Info("Cart janitor stopped", nil)
}
