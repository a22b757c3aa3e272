package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/store"
)

// Runner is the background settlement loop. Every poll interval it settles
// completed markets whose outcome is on record and refunds cancelled or
// postponed markets, so wagers resolve even when no operator drives the
// HTTP endpoints. Both operations are idempotent, which makes overlapping
// runs and restarts harmless.
type Runner struct {
	engine   *Engine
	store    store.Store
	interval time.Duration
}

// NewRunner creates a settlement runner.
func NewRunner(engine *Engine, st store.Store, interval time.Duration) *Runner {
	return &Runner{engine: engine, store: st, interval: interval}
}

// Start begins the polling loop and blocks until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start.
	r.tick(ctx)

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	r.settleCompleted(ctx)
	r.refundDead(ctx, model.MarketCancelled)
	r.refundDead(ctx, model.MarketPostponed)
}

func (r *Runner) settleCompleted(ctx context.Context) {
	markets, err := r.store.ListMarketsByStatus(ctx, model.MarketCompleted)
	if err != nil {
		slog.Error("settlement runner: list completed markets", "err", err)
		return
	}

	for _, m := range markets {
		if m.Outcome == "" {
			// Outcome determination is the feed's job; wait for it.
			continue
		}
		if !r.hasPending(ctx, m.ID) {
			continue
		}
		summary, err := r.engine.SettleMarket(ctx, m.ID, m.Outcome)
		if err != nil {
			slog.Error("settlement runner: settle market", "market", m.ID, "err", err)
			continue
		}
		if len(summary.Failures) > 0 {
			// Left pending; the next tick retries just those wagers.
			slog.Warn("settlement runner: partial batch",
				"market", m.ID, "failures", len(summary.Failures))
		}
	}
}

func (r *Runner) refundDead(ctx context.Context, status model.MarketStatus) {
	markets, err := r.store.ListMarketsByStatus(ctx, status)
	if err != nil {
		slog.Error("settlement runner: list markets", "status", status, "err", err)
		return
	}

	for _, m := range markets {
		if !r.hasPending(ctx, m.ID) {
			continue
		}
		if _, err := r.engine.RefundMarket(ctx, m.ID, "market "+string(status)); err != nil {
			slog.Error("settlement runner: refund market", "market", m.ID, "err", err)
		}
	}
}

func (r *Runner) hasPending(ctx context.Context, marketID string) bool {
	pending, err := r.store.ListPendingWagersByMarket(ctx, marketID)
	if err != nil {
		slog.Error("settlement runner: list pending wagers", "market", marketID, "err", err)
		return false
	}
	return len(pending) > 0
}
