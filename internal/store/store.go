// Package store defines the persistence interface for the wagering engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// Versioned writes: every mutation of an Account or Market carries the
// version the caller read. The store commits only if the stored version
// still matches, incrementing it on success, and returns
// model.ErrVersionConflict otherwise. Two concurrent placements against the
// same market can therefore never both apply against the same "before" pool
// state.
type Store interface {
	// --- Accounts ---

	// CreateAccount persists a new account. Fails with
	// model.ErrDuplicateHandle if the identity handle is already registered.
	CreateAccount(ctx context.Context, a *model.Account) error

	// GetAccount retrieves an account by ID.
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// GetAccountByHandle retrieves an account by its identity handle.
	GetAccountByHandle(ctx context.Context, handle string) (*model.Account, error)

	// DeactivateAccount marks an account inactive. Accounts are never deleted.
	DeactivateAccount(ctx context.Context, id string) error

	// --- Markets ---

	// CreateMarket persists a new market. Fails with
	// model.ErrDuplicateEventCode if the event code already exists.
	CreateMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by ID.
	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// GetMarketByEventCode retrieves a market by its feed event code.
	GetMarketByEventCode(ctx context.Context, code string) (*model.Market, error)

	// ListMarkets returns all markets, newest first.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// ListMarketsByStatus returns all markets in the given lifecycle state.
	ListMarketsByStatus(ctx context.Context, status model.MarketStatus) ([]model.Market, error)

	// UpdateMarketStatus transitions a market's status and betting flag,
	// guarded by the version the caller read.
	UpdateMarketStatus(ctx context.Context, id string, status model.MarketStatus, bettingOpen bool, version int64) error

	// SetMarketOutcome records a completed market's outcome exactly once,
	// guarded by the version the caller read.
	SetMarketOutcome(ctx context.Context, id string, outcome model.Outcome, version int64) error

	// --- Wagers ---

	// GetWager retrieves a wager by ID.
	GetWager(ctx context.Context, id string) (*model.Wager, error)

	// ListWagersByMarket returns all wagers on a market, oldest first.
	ListWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error)

	// ListWagersByAccount returns all wagers placed by an account.
	ListWagersByAccount(ctx context.Context, accountID string) ([]model.Wager, error)

	// ListPendingWagersByMarket returns the wagers on a market still awaiting
	// settlement.
	ListPendingWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error)

	// PendingStakeByMarket returns an account's pending stake totals keyed by
	// market ID. Used by the exposure limiter.
	PendingStakeByMarket(ctx context.Context, accountID string) (map[string]int64, error)

	// --- Atomic composites ---

	// ApplyPlacement commits one placement as a single atomic unit: the
	// debited account, the market with updated pools/odds, and the new
	// pending wager. Account and market carry the versions the caller read;
	// a stale version on either aborts the whole write with
	// model.ErrVersionConflict and no partial state.
	ApplyPlacement(ctx context.Context, account *model.Account, market *model.Market, wager *model.Wager) error

	// ApplySettlement commits one wager's settlement as a single atomic
	// unit: the credited account and the wager's one status transition. The
	// wager row is updated only while still pending; a wager already settled
	// aborts with model.ErrWagerSettled, a stale account version with
	// model.ErrVersionConflict. Either way no partial state persists.
	ApplySettlement(ctx context.Context, account *model.Account, wager *model.Wager) error
}
