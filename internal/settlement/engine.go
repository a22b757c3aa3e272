// Package settlement resolves every outstanding wager on a concluded market:
// crediting winners at their locked odds, recording losses, and refunding
// everyone on a tie or cancellation. Each wager settles as its own atomic
// unit so one bad record never blocks the rest of the batch.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/metrics"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/store"
)

// accountRetries bounds re-reads of an account whose version moved under a
// settlement write (e.g. the same account settling on two markets at once).
const accountRetries = 3

// Broadcaster pushes settlement results to connected clients. Satisfied by
// the ledger's WebSocket hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastSettlement(marketID, outcome string, settled int)
}

// Engine performs market settlement and refunds.
type Engine struct {
	store store.Store
	hub   Broadcaster
}

// NewEngine creates a settlement engine. Pass nil for hub if broadcasting is
// not needed.
func NewEngine(st store.Store, hub Broadcaster) *Engine {
	return &Engine{store: st, hub: hub}
}

// SettleMarket resolves all pending wagers on a completed market against the
// given outcome. The outcome is recorded on the market exactly once; a
// different outcome on a later call is rejected. Per-wager failures are
// collected in the summary and do not stop the batch; only failing to read
// the market or its pending wagers is fatal.
func (e *Engine) SettleMarket(ctx context.Context, marketID string, outcome model.Outcome) (*model.Summary, error) {
	if !outcome.Valid() {
		return nil, model.ErrInvalidOutcome
	}

	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.Status != model.MarketCompleted {
		return nil, fmt.Errorf("%w: settlement requires completed status, market is %s",
			model.ErrInvalidTransition, market.Status)
	}

	switch market.Outcome {
	case "":
		if err := e.store.SetMarketOutcome(ctx, marketID, outcome, market.Version); err != nil {
			return nil, err
		}
	case outcome:
		// Retried batch; outcome already on record.
	default:
		return nil, fmt.Errorf("%w: recorded %s, got %s",
			model.ErrOutcomeAlreadySet, market.Outcome, outcome)
	}

	pending, err := e.store.ListPendingWagersByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("list pending wagers: %w", err)
	}

	summary := &model.Summary{MarketID: marketID}
	for _, w := range pending {
		status, payout := resolve(&w, outcome)
		err := e.applyOne(ctx, w, func(a *model.Account, cw *model.Wager) {
			cw.Status = status
			cw.ActualPayout = payout

			a.Balance += payout
			a.Counts.Pending--
			switch status {
			case model.WagerWon:
				a.Counts.Won++
				a.TotalWon += payout
			case model.WagerLost:
				a.Counts.Lost++
				a.TotalLost += cw.Stake
			case model.WagerRefunded:
				// Tie: stake returned, not un-wagered. Won/lost counters and
				// totalWagered stay put.
			}
		})
		e.record(summary, w.ID, status, payout, err)
	}

	e.finish(summary, string(outcome), "market settled")
	return summary, nil
}

// RefundMarket returns every pending stake on a cancelled or postponed
// market. Unlike a tie, this path treats the wager as if it never happened:
// the account's total wager count and totalWagered are rolled back too.
func (e *Engine) RefundMarket(ctx context.Context, marketID, reason string) (*model.Summary, error) {
	market, err := e.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.Status != model.MarketCancelled && market.Status != model.MarketPostponed {
		return nil, fmt.Errorf("%w: refund requires cancelled or postponed status, market is %s",
			model.ErrInvalidTransition, market.Status)
	}

	pending, err := e.store.ListPendingWagersByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("list pending wagers: %w", err)
	}

	summary := &model.Summary{MarketID: marketID}
	for _, w := range pending {
		err := e.applyOne(ctx, w, func(a *model.Account, cw *model.Wager) {
			cw.Status = model.WagerRefunded
			cw.ActualPayout = cw.Stake

			a.Balance += cw.Stake
			a.Counts.Pending--
			a.Counts.Total--
			a.TotalWagered -= cw.Stake
		})
		e.record(summary, w.ID, model.WagerRefunded, w.Stake, err)
	}

	slog.Info("market refunded", "market", marketID, "reason", reason,
		"refunded", summary.Refunded, "failures", len(summary.Failures))
	e.finish(summary, "", "")
	return summary, nil
}

// resolve maps one pending wager to its final status and payout.
func resolve(w *model.Wager, outcome model.Outcome) (model.WagerStatus, int64) {
	if outcome == model.OutcomeTie {
		return model.WagerRefunded, w.Stake
	}
	if string(w.Side) == string(outcome) {
		// Paid at the odds locked at placement, never recomputed.
		return model.WagerWon, w.PotentialPayout
	}
	return model.WagerLost, 0
}

// applyOne commits a single wager's settlement as its own atomic unit,
// re-reading the account on a version conflict a bounded number of times.
func (e *Engine) applyOne(ctx context.Context, w model.Wager, mutate func(*model.Account, *model.Wager)) error {
	for attempt := 0; ; attempt++ {
		account, err := e.store.GetAccount(ctx, w.AccountID)
		if err != nil {
			return err
		}

		cw := w
		mutate(account, &cw)
		now := time.Now().UTC()
		cw.SettledAt = &now

		err = e.store.ApplySettlement(ctx, account, &cw)
		if errors.Is(err, model.ErrVersionConflict) && attempt < accountRetries {
			continue
		}
		return err
	}
}

// record tallies one wager's result into the batch summary.
func (e *Engine) record(summary *model.Summary, wagerID string, status model.WagerStatus, payout int64, err error) {
	switch {
	case err == nil:
		summary.Settled++
		summary.TotalPaidOut += payout
		switch status {
		case model.WagerWon:
			summary.Won++
		case model.WagerLost:
			summary.Lost++
		case model.WagerRefunded:
			summary.Refunded++
		}
		metrics.WagersSettled.WithLabelValues(string(status)).Inc()
		if payout > 0 {
			metrics.UnitsPaidOut.Add(float64(payout))
		}

	case errors.Is(err, model.ErrWagerSettled):
		// Retried batch hit an already-settled wager; skip, never re-settle.
		summary.Skipped++

	default:
		// Not user-visible: recorded for the operator's retry, logged, and
		// the batch continues.
		summary.Failures = append(summary.Failures, model.SettlementFailure{
			WagerID: wagerID,
			Reason:  err.Error(),
		})
		metrics.SettlementFailures.Inc()
		slog.Error("wager settlement failed", "wager", wagerID, "err", err)
	}
}

func (e *Engine) finish(summary *model.Summary, outcome, logMsg string) {
	if logMsg != "" {
		slog.Info(logMsg,
			"market", summary.MarketID,
			"outcome", outcome,
			"settled", summary.Settled,
			"won", summary.Won,
			"lost", summary.Lost,
			"refunded", summary.Refunded,
			"skipped", summary.Skipped,
			"paid_out", summary.TotalPaidOut,
			"failures", len(summary.Failures),
		)
	}
	if e.hub != nil && summary.Settled > 0 {
		e.hub.BroadcastSettlement(summary.MarketID, outcome, summary.Settled)
	}
}
