// Package model defines the core domain types shared across the wagering
// engine. All payout multipliers use shopspring/decimal, never float64 for
// money. Stake units themselves are whole integers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies one of the two sides of a market.
type Side string

const (
	SideA Side = "sideA"
	SideB Side = "sideB"
)

// Valid reports whether s is one of the two bettable sides.
func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// MarketStatus is the lifecycle state of a market. The state machine only
// moves forward; Market.CanTransitionTo encodes the allowed edges.
type MarketStatus string

const (
	MarketScheduled MarketStatus = "scheduled"
	MarketLive      MarketStatus = "live"
	MarketCompleted MarketStatus = "completed"
	MarketCancelled MarketStatus = "cancelled"
	MarketPostponed MarketStatus = "postponed"
)

// marketTransitions is the forward-only edge set of the market state machine.
// A postponed market may return to scheduled when the contest is rescheduled.
var marketTransitions = map[MarketStatus][]MarketStatus{
	MarketScheduled: {MarketLive, MarketCancelled, MarketPostponed},
	MarketLive:      {MarketCompleted, MarketCancelled, MarketPostponed},
	MarketPostponed: {MarketScheduled, MarketCancelled},
	MarketCompleted: {},
	MarketCancelled: {},
}

// Outcome is a completed market's result.
type Outcome string

const (
	OutcomeSideA Outcome = "sideA"
	OutcomeSideB Outcome = "sideB"
	OutcomeTie   Outcome = "tie"
)

// Valid reports whether o is a settleable outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeSideA || o == OutcomeSideB || o == OutcomeTie
}

// WagerStatus is the settlement state of a wager. A wager makes exactly one
// forward transition out of pending, performed once by settlement.
type WagerStatus string

const (
	WagerPending  WagerStatus = "pending"
	WagerWon      WagerStatus = "won"
	WagerLost     WagerStatus = "lost"
	WagerRefunded WagerStatus = "refunded"
)

// WagerCounts are an account's lifetime wager counters.
// Invariant: Total >= Won + Lost.
type WagerCounts struct {
	Total   int64 `json:"total"`
	Won     int64 `json:"won"`
	Lost    int64 `json:"lost"`
	Pending int64 `json:"pending"`
}

// Account holds one registered identity's balance and lifetime statistics.
// Accounts are created with a fixed starting grant, mutated only by the
// ledger and the settlement engine, and deactivated rather than deleted.
type Account struct {
	ID           string      `json:"id"`
	Handle       string      `json:"handle"` // opaque identity-provider handle
	Balance      int64       `json:"balance"`
	TotalWagered int64       `json:"total_wagered"`
	TotalWon     int64       `json:"total_won"`
	TotalLost    int64       `json:"total_lost"`
	Counts       WagerCounts `json:"wager_counts"`
	Active       bool        `json:"active"`
	Version      int64       `json:"version"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Pool is one side's accumulated stake statistics on a market.
type Pool struct {
	Count  int64 `json:"count"`
	Staked int64 `json:"staked"`
}

// Market represents one two-sided bettable contest.
type Market struct {
	ID          string          `json:"id"`
	EventCode   string          `json:"event_code"` // HB-{SPORT}-{YYYYMMDD}-{HOME}-{AWAY}
	Sport       string          `json:"sport"`
	SideAName   string          `json:"side_a_name"`
	SideBName   string          `json:"side_b_name"`
	StartTime   time.Time       `json:"start_time"`
	Status      MarketStatus    `json:"status"`
	BettingOpen bool            `json:"betting_open"`
	SideA       Pool            `json:"side_a"`
	SideB       Pool            `json:"side_b"`
	OddsA       decimal.Decimal `json:"odds_a"`
	OddsB       decimal.Decimal `json:"odds_b"`
	Outcome     Outcome         `json:"outcome,omitempty"` // empty until completed
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CanTransitionTo reports whether the market status machine allows moving
// from the current status to next.
func (m *Market) CanTransitionTo(next MarketStatus) bool {
	for _, allowed := range marketTransitions[m.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Pool returns the stake pool for the given side.
func (m *Market) Pool(side Side) Pool {
	if side == SideA {
		return m.SideA
	}
	return m.SideB
}

// Wager is a single stake placed by one account on one side of one market.
// Immutable after creation except for the single settlement transition.
type Wager struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	MarketID        string          `json:"market_id"`
	Side            Side            `json:"side"`
	Stake           int64           `json:"stake"`
	OddsLocked      decimal.Decimal `json:"odds_locked"` // multiplier at placement, frozen
	PotentialPayout int64           `json:"potential_payout"`
	Status          WagerStatus     `json:"status"`
	ActualPayout    int64           `json:"actual_payout"`
	PlacedAt        time.Time       `json:"placed_at"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
}

// SettlementFailure records one wager that could not be settled in a batch.
type SettlementFailure struct {
	WagerID string `json:"wager_id"`
	Reason  string `json:"reason"`
}

// Summary is the result of settling or refunding one market's batch of
// pending wagers. Failures carry enough detail for a retry of just those
// records; everything else in the batch has already committed.
type Summary struct {
	MarketID     string              `json:"market_id"`
	Settled      int                 `json:"settled"`
	Won          int                 `json:"won"`
	Lost         int                 `json:"lost"`
	Refunded     int                 `json:"refunded"`
	Skipped      int                 `json:"skipped"` // already settled on a retried batch
	TotalPaidOut int64               `json:"total_paid_out"`
	Failures     []SettlementFailure `json:"failures,omitempty"`
}
