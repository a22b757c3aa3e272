// Package ledger orchestrates wager placement: validation, odds locking, and
// the atomic account/market/wager write. It also exposes the HTTP surface
// for accounts, markets, and wagers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/config"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/event"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/metrics"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/odds"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/risk"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/store"
)

// Service handles account, market, and wager operations. Concurrent
// placements are serialized through the store's versioned writes, not
// in-memory locks, so independent instances stay correct.
type Service struct {
	store   store.Store
	limiter *risk.ExposureLimiter
	cfg     config.Betting
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new ledger service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, limiter *risk.ExposureLimiter, cfg config.Betting, hub *WSHub) *Service {
	return &Service{
		store:   st,
		limiter: limiter,
		cfg:     cfg,
		wsHub:   hub,
	}
}

// PlacementResult is returned from a successful placement: the new wager,
// the account's resulting balance, and the market's resulting odds (the
// price the next placement will see, not the one locked here).
type PlacementResult struct {
	Wager   *model.Wager    `json:"wager"`
	Balance int64           `json:"account_balance"`
	OddsA   decimal.Decimal `json:"odds_a"`
	OddsB   decimal.Decimal `json:"odds_b"`
}

// PlaceWager validates and commits one placement. Either the account debit,
// the market pool/odds update, and the new pending wager all happen, or none
// do. A concurrent write conflict is retried a bounded number of times;
// every other failure is reported as-is with no side effect.
func (s *Service) PlaceWager(ctx context.Context, accountID, marketID string, stake int64, side model.Side) (*PlacementResult, error) {
	start := time.Now()
	defer func() {
		metrics.PlacementLatency.Observe(time.Since(start).Seconds())
	}()

	var res *PlacementResult
	var err error
	for attempt := 0; ; attempt++ {
		res, err = s.placeOnce(ctx, accountID, marketID, stake, side)
		if !errors.Is(err, model.ErrVersionConflict) {
			break
		}
		metrics.WriteConflicts.Inc()
		if attempt >= s.cfg.PlacementRetries {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	metrics.WagersPlaced.WithLabelValues(string(side)).Inc()

	slog.Info("wager placed",
		"wager_id", res.Wager.ID,
		"account", accountID,
		"market", marketID,
		"side", side,
		"stake", stake,
		"odds_locked", res.Wager.OddsLocked.String(),
		"potential_payout", res.Wager.PotentialPayout,
		"new_odds_a", res.OddsA.String(),
		"new_odds_b", res.OddsB.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:     "odds_update",
			MarketID: marketID,
			Side:     string(side),
			Stake:    stake,
			OddsA:    res.OddsA.String(),
			OddsB:    res.OddsB.String(),
		})
	}

	return res, nil
}

// placeOnce performs one placement attempt against a consistent snapshot of
// the account and market. Validation order is fixed; the first violation
// aborts before any write.
func (s *Service) placeOnce(ctx context.Context, accountID, marketID string, stake int64, side model.Side) (*PlacementResult, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, model.ErrAccountInactive
	}

	market, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	if !side.Valid() {
		return nil, model.ErrInvalidSide
	}
	if stake <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", model.ErrInvalidStake)
	}
	if stake < s.cfg.MinStake || stake > s.cfg.MaxStake {
		return nil, fmt.Errorf("%w: stake %d not in [%d, %d]",
			model.ErrInvalidStake, stake, s.cfg.MinStake, s.cfg.MaxStake)
	}
	if stake > account.Balance {
		return nil, model.ErrInsufficientBalance
	}
	if market.Status != model.MarketScheduled || !market.BettingOpen {
		return nil, model.ErrMarketNotOpen
	}
	if !time.Now().UTC().Before(market.StartTime.Add(s.cfg.GraceWindow())) {
		return nil, model.ErrMarketStarted
	}

	if s.limiter != nil {
		pending, err := s.store.PendingStakeByMarket(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load pending exposure: %w", err)
		}
		if err := s.limiter.CheckLimit(marketID, stake, pending); err != nil {
			return nil, fmt.Errorf("%w: %s", model.ErrExposureLimit, err)
		}
	}

	// Lock the multiplier from the pools as they stand before this wager.
	oddsA, oddsB := odds.Compute(
		market.SideA.Count, market.SideA.Staked,
		market.SideB.Count, market.SideB.Staked,
	)
	locked := oddsA
	if side == model.SideB {
		locked = oddsB
	}

	wager := &model.Wager{
		ID:              uuid.New().String(),
		AccountID:       account.ID,
		MarketID:        market.ID,
		Side:            side,
		Stake:           stake,
		OddsLocked:      locked,
		PotentialPayout: odds.Payout(stake, locked),
		Status:          model.WagerPending,
		PlacedAt:        time.Now().UTC(),
	}

	account.Balance -= stake
	account.TotalWagered += stake
	account.Counts.Total++
	account.Counts.Pending++

	switch side {
	case model.SideA:
		market.SideA.Count++
		market.SideA.Staked += stake
	case model.SideB:
		market.SideB.Count++
		market.SideB.Staked += stake
	}

	// The published odds are recomputed from the pools after this stake has
	// been applied: the price seen by the next placement, not this one.
	market.OddsA, market.OddsB = odds.Compute(
		market.SideA.Count, market.SideA.Staked,
		market.SideB.Count, market.SideB.Staked,
	)

	if err := s.store.ApplyPlacement(ctx, account, market, wager); err != nil {
		return nil, err
	}

	return &PlacementResult{
		Wager:   wager,
		Balance: account.Balance,
		OddsA:   market.OddsA,
		OddsB:   market.OddsB,
	}, nil
}

// RegisterAccount creates an account for an identity handle with the
// configured starting grant.
func (s *Service) RegisterAccount(ctx context.Context, handle string) (*model.Account, error) {
	if handle == "" {
		return nil, errors.New("handle is required")
	}

	account := &model.Account{
		ID:        uuid.New().String(),
		Handle:    handle,
		Balance:   s.cfg.StartingBalance,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	slog.Info("account registered",
		"account", account.ID,
		"handle", handle,
		"starting_balance", account.Balance,
	)
	return account, nil
}

// CreateMarket creates a market from feed event data. The event code carries
// the sport, date, and teams; the market opens at an even 50/50 price.
func (s *Service) CreateMarket(ctx context.Context, code string, startTime time.Time) (*model.Market, error) {
	ev, err := event.ParseCode(code)
	if err != nil {
		return nil, err
	}
	if startTime.IsZero() {
		return nil, errors.New("start_time is required")
	}

	oddsA, oddsB := odds.Compute(0, 0, 0, 0)
	market := &model.Market{
		ID:          uuid.New().String(),
		EventCode:   ev.Code,
		Sport:       ev.Sport,
		SideAName:   ev.HomeTeam,
		SideBName:   ev.AwayTeam,
		StartTime:   startTime.UTC(),
		Status:      model.MarketScheduled,
		BettingOpen: true,
		OddsA:       oddsA,
		OddsB:       oddsB,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateMarket(ctx, market); err != nil {
		return nil, err
	}

	metrics.OpenMarkets.Inc()
	slog.Info("market created",
		"market", market.ID,
		"event_code", ev.Code,
		"sport", ev.Sport,
		"start_time", market.StartTime,
	)
	return market, nil
}

// TransitionMarket moves a market to the next lifecycle status. The betting
// flag is forced false by every transition out of scheduled; a postponed
// market returning to scheduled reopens it.
func (s *Service) TransitionMarket(ctx context.Context, marketID string, next model.MarketStatus) (*model.Market, error) {
	market, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if !market.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, market.Status, next)
	}

	bettingOpen := next == model.MarketScheduled
	if err := s.store.UpdateMarketStatus(ctx, marketID, next, bettingOpen, market.Version); err != nil {
		return nil, err
	}
	if market.Status == model.MarketScheduled && next != model.MarketScheduled {
		metrics.OpenMarkets.Dec()
	}

	slog.Info("market status changed",
		"market", marketID,
		"from", market.Status,
		"to", next,
	)
	return s.store.GetMarket(ctx, marketID)
}

// SetOutcome records a completed market's result exactly once.
func (s *Service) SetOutcome(ctx context.Context, marketID string, outcome model.Outcome) (*model.Market, error) {
	if !outcome.Valid() {
		return nil, model.ErrInvalidOutcome
	}

	market, err := s.store.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if market.Status != model.MarketCompleted {
		return nil, fmt.Errorf("%w: outcome requires completed status, market is %s",
			model.ErrInvalidTransition, market.Status)
	}
	if market.Outcome != "" {
		return nil, model.ErrOutcomeAlreadySet
	}

	if err := s.store.SetMarketOutcome(ctx, marketID, outcome, market.Version); err != nil {
		return nil, err
	}

	slog.Info("market outcome set", "market", marketID, "outcome", outcome)
	return s.store.GetMarket(ctx, marketID)
}
