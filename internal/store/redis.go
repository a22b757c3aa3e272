package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for accounts and markets. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Wager queries pass through uncached; settlement must always see
// the primary's view of pending rows.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Accounts ---

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) error {
	if err := s.primary.CreateAccount(ctx, a); err != nil {
		return err
	}
	s.cacheAccount(ctx, a)
	return nil
}

func (s *CachedStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	data, err := s.rdb.Get(ctx, accountKey(id)).Bytes()
	if err == nil {
		var a model.Account
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, a)
	return a, nil
}

func (s *CachedStore) GetAccountByHandle(ctx context.Context, handle string) (*model.Account, error) {
	// Cached via a handle-to-ID mapping.
	id, err := s.rdb.Get(ctx, handleKey(handle)).Result()
	if err == nil {
		return s.GetAccount(ctx, id)
	}

	a, err := s.primary.GetAccountByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, a)
	s.rdb.Set(ctx, handleKey(handle), a.ID, s.ttl)
	return a, nil
}

func (s *CachedStore) DeactivateAccount(ctx context.Context, id string) error {
	if err := s.primary.DeactivateAccount(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, accountKey(id))
	return nil
}

// --- Markets ---

func (s *CachedStore) CreateMarket(ctx context.Context, m *model.Market) error {
	if err := s.primary.CreateMarket(ctx, m); err != nil {
		return err
	}
	s.cacheMarket(ctx, m)
	return nil
}

func (s *CachedStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	m, err := s.primary.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheMarket(ctx, m)
	return m, nil
}

func (s *CachedStore) GetMarketByEventCode(ctx context.Context, code string) (*model.Market, error) {
	marketID, err := s.rdb.Get(ctx, eventCodeKey(code)).Result()
	if err == nil {
		return s.GetMarket(ctx, marketID)
	}

	m, err := s.primary.GetMarketByEventCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cacheMarket(ctx, m)
	s.rdb.Set(ctx, eventCodeKey(code), m.ID, s.ttl)
	return m, nil
}

func (s *CachedStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	return s.primary.ListMarkets(ctx)
}

func (s *CachedStore) ListMarketsByStatus(ctx context.Context, status model.MarketStatus) ([]model.Market, error) {
	return s.primary.ListMarketsByStatus(ctx, status)
}

func (s *CachedStore) UpdateMarketStatus(ctx context.Context, id string, status model.MarketStatus, bettingOpen bool, version int64) error {
	if err := s.primary.UpdateMarketStatus(ctx, id, status, bettingOpen, version); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

func (s *CachedStore) SetMarketOutcome(ctx context.Context, id string, outcome model.Outcome, version int64) error {
	if err := s.primary.SetMarketOutcome(ctx, id, outcome, version); err != nil {
		return err
	}
	s.rdb.Del(ctx, marketKey(id))
	return nil
}

// --- Wagers (passthrough) ---

func (s *CachedStore) GetWager(ctx context.Context, id string) (*model.Wager, error) {
	return s.primary.GetWager(ctx, id)
}

func (s *CachedStore) ListWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error) {
	return s.primary.ListWagersByMarket(ctx, marketID)
}

func (s *CachedStore) ListWagersByAccount(ctx context.Context, accountID string) ([]model.Wager, error) {
	return s.primary.ListWagersByAccount(ctx, accountID)
}

func (s *CachedStore) ListPendingWagersByMarket(ctx context.Context, marketID string) ([]model.Wager, error) {
	return s.primary.ListPendingWagersByMarket(ctx, marketID)
}

func (s *CachedStore) PendingStakeByMarket(ctx context.Context, accountID string) (map[string]int64, error) {
	return s.primary.PendingStakeByMarket(ctx, accountID)
}

// --- Atomic composites (write to primary, invalidate both entities) ---

func (s *CachedStore) ApplyPlacement(ctx context.Context, account *model.Account, market *model.Market, wager *model.Wager) error {
	if err := s.primary.ApplyPlacement(ctx, account, market, wager); err != nil {
		return err
	}
	s.rdb.Del(ctx, accountKey(account.ID), marketKey(market.ID))
	return nil
}

func (s *CachedStore) ApplySettlement(ctx context.Context, account *model.Account, wager *model.Wager) error {
	if err := s.primary.ApplySettlement(ctx, account, wager); err != nil {
		return err
	}
	s.rdb.Del(ctx, accountKey(account.ID))
	return nil
}

// --- Cache helpers ---

func (s *CachedStore) cacheAccount(ctx context.Context, a *model.Account) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, accountKey(a.ID), data, s.ttl)
	}
}

func (s *CachedStore) cacheMarket(ctx context.Context, m *model.Market) {
	if data, err := json.Marshal(m); err == nil {
		s.rdb.Set(ctx, marketKey(m.ID), data, s.ttl)
	}
}

func accountKey(id string) string    { return fmt.Sprintf("account:%s", id) }
func handleKey(handle string) string { return fmt.Sprintf("handle:%s", handle) }
func marketKey(id string) string     { return fmt.Sprintf("market:%s", id) }
func eventCodeKey(code string) string { return fmt.Sprintf("event:%s", code) }
