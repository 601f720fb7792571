// Package worker runs periodic maintenance next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// CartPruner deletes guest carts untouched since before a cutoff.
type CartPruner interface {
	PruneGuestCarts(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// Interval is how often abandoned guest carts are swept
	Interval time.Duration

	// GuestCartTTL is how long a guest cart survives without writes.
	// It should match the guest session cookie lifetime.
	GuestCartTTL time.Duration

	// Timeout bounds a single sweep
	Timeout time.Duration
}

// Worker sweeps abandoned guest carts on a fixed interval.
type Worker struct {
	config Config
	carts  CartPruner
	now    func() time.Time
	logger *slog.Logger
}

// NewWorker creates a new background worker
func NewWorker(carts CartPruner, config Config, logger *slog.Logger) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.GuestCartTTL == 0 {
		config.GuestCartTTL = 30 * 24 * time.Hour
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}

	return &Worker{
		config: config,
		carts:  carts,
		now:    time.Now,
		logger: logger.With("worker_id", config.WorkerID),
	}
}

// Start sweeps once, then on every tick until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"interval", w.config.Interval,
		"guest_cart_ttl", w.config.GuestCartTTL,
	)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one prune. Failures are logged and retried on the next tick.
func (w *Worker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	cutoff := w.now().Add(-w.config.GuestCartTTL)
	deleted, err := w.carts.PruneGuestCarts(sweepCtx, cutoff)
	if err != nil {
		w.logger.Error("guest cart sweep failed", "cutoff", cutoff, "error", err)
		return
	}
	if deleted > 0 {
		w.logger.Info("guest carts pruned", "count", deleted, "cutoff", cutoff)
	}
}
