package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/inventory"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// ReaperConfig holds configuration for the stale order reaper
type ReaperConfig struct {
	// MaxAge is how long a manual order may stay unpaid before it is
	// cancelled and its stock released
	MaxAge time.Duration
	// CheckInterval is how often the reaper scans for stale orders
	CheckInterval time.Duration
	// BatchSize caps how many orders one sweep processes
	BatchSize int
}

// DefaultReaperConfig returns default reaper configuration
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		MaxAge:        72 * time.Hour,
		CheckInterval: time.Hour,
		BatchSize:     200,
	}
}

// StaleOrderReaper cancels manual orders whose payment was never
// confirmed, returning their reserved stock to the ledger.
type StaleOrderReaper struct {
	config ReaperConfig
	orders order.Repository
	stock  inventory.Repository
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewStaleOrderReaper creates a new reaper
func NewStaleOrderReaper(config ReaperConfig, orders order.Repository, stock inventory.Repository, logger *zap.Logger) *StaleOrderReaper {
	return &StaleOrderReaper{
		config: config,
		orders: orders,
		stock:  stock,
		logger: logger,
	}
}

// Start begins the background sweep loop
func (r *StaleOrderReaper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("stale order reaper started",
		zap.Duration("max_age", r.config.MaxAge),
		zap.Duration("check_interval", r.config.CheckInterval))
	return nil
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish
func (r *StaleOrderReaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("stale order reaper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *StaleOrderReaper) runLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("stale order sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep cancels one batch of stale unpaid orders. Exported so a sweep can
// also be run on demand.
func (r *StaleOrderReaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.config.MaxAge)

	pending, err := r.orders.FindAll(ctx, shared.Filter{
		Page:     1,
		PageSize: r.config.BatchSize,
		OrderBy:  "created_at",
		OrderDir: "asc",
		Filters:  map[string]interface{}{"status": string(order.StatusPending)},
	})
	if err != nil {
		return err
	}

	reaped := 0
	for i := range pending {
		o := &pending[i]
		if o.CreatedAt.After(cutoff) {
			// Orders come back oldest first, so the rest are fresher.
			break
		}
		if err := r.reap(ctx, o); err != nil {
			r.logger.Warn("failed to reap stale order",
				zap.String("order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.logger.Info("stale orders cancelled", zap.Int("count", reaped))
	}
	return nil
}

func (r *StaleOrderReaper) reap(ctx context.Context, o *order.Order) error {
	if err := o.Cancel("payment not received"); err != nil {
		return err
	}
	if err := r.orders.SaveWithLock(ctx, o); err != nil {
		return err
	}
	o.ClearDomainEvents()

	releases := make([]inventory.Reservation, 0, len(o.Items))
	for _, item := range o.Items {
		releases = append(releases, inventory.Reservation{
			ProductID:   item.ProductID,
			VariantCode: item.VariantCode,
			Quantity:    item.Quantity,
		})
	}
	if err := r.stock.ReleaseAll(ctx, releases); err != nil {
		// The order is already cancelled; stock release failure needs
		// operator attention but must not resurrect the order.
		r.logger.Error("failed to release stock for reaped order",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
	return nil
}
