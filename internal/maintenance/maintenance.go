// Package maintenance runs periodic background tasks as Go tickers.
// Replaces the platform cron that drove the portal — all scheduled work is
// driven from Go since the API is already a persistent, long-running
// service. The HTTP cron endpoints remain for external triggers; these
// loops cover deployments without one.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resetbiology/reminders/internal/cronhealth"
	"github.com/resetbiology/reminders/internal/notify"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	ReplenishInterval time.Duration // Queue top-up sweep
	DispatchInterval  time.Duration // Due-reminder delivery
	CleanupInterval   time.Duration // Purge old sent rows and audit records
	SweepWorkers      int
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ReplenishInterval: 24 * time.Hour,
		DispatchInterval:  time.Minute,
		CleanupInterval:   30 * time.Minute,
		SweepWorkers:      4,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(
	ctx context.Context,
	pool *pgxpool.Pool,
	store *notify.Store,
	scheduler *notify.Scheduler,
	dispatcher *notify.Dispatcher,
	cfg Config,
	logger *slog.Logger,
) {
	logger.Info("Maintenance tickers started",
		"replenish", cfg.ReplenishInterval,
		"dispatch", cfg.DispatchInterval,
		"cleanup", cfg.CleanupInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Replenish: keep every active protocol's reminder horizon topped up
	if cfg.ReplenishInterval > 0 {
		t := time.NewTicker(cfg.ReplenishInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { replenish(ctx, pool, scheduler, cfg.SweepWorkers, logger) })
	}

	// Dispatch: deliver due reminders
	if cfg.DispatchInterval > 0 {
		t := time.NewTicker(cfg.DispatchInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { dispatch(ctx, dispatcher, logger) })
	}

	// Cleanup: purge delivered reminders and old audit rows
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, store, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func replenish(ctx context.Context, pool *pgxpool.Pool, scheduler *notify.Scheduler, workers int, logger *slog.Logger) {
	monitor := cronhealth.NewMonitor(pool, logger)
	monitor.Start(ctx, cronhealth.TypeReplenish)

	result, err := scheduler.Replenish(ctx, workers)
	if err != nil {
		logger.Error("Replenish ticker: sweep failed", "error", err)
		monitor.Fail(ctx, err)
		return
	}
	monitor.Complete(ctx, cronhealth.Counts{
		Found:  result.Processed,
		Sent:   result.Replenished,
		Failed: result.ErrorCount,
	})
}

func dispatch(ctx context.Context, dispatcher *notify.Dispatcher, logger *slog.Logger) {
	if _, err := dispatcher.DispatchDue(ctx); err != nil {
		logger.Error("Dispatch ticker: delivery failed", "error", err)
	}
}

// cleanup removes reminders delivered more than 30 days ago and audit
// rows older than 90 days.
func cleanup(ctx context.Context, pool *pgxpool.Pool, store *notify.Store, logger *slog.Logger) {
	purged, err := store.PurgeSentBefore(ctx, time.Now().AddDate(0, 0, -30))
	if err != nil {
		logger.Warn("Cleanup: failed to purge sent reminders", "error", err)
	} else if purged > 0 {
		logger.Info("Cleanup: purged sent reminders", "count", purged)
	}

	purged, err = cronhealth.PurgeBefore(ctx, pool, time.Now().AddDate(0, 0, -90))
	if err != nil {
		logger.Warn("Cleanup: failed to purge audit rows", "error", err)
	} else if purged > 0 {
		logger.Info("Cleanup: purged audit rows", "count", purged)
	}
}
