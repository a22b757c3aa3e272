package store

import (
	"context"
	"sync"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence). Version checks
// are honored exactly as in the PostgreSQL implementation so concurrency
// semantics can be tested without a database.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[string]*model.Account
	markets    map[string]*model.Market
	wagers     map[string]*model.Wager
	wagerOrder []string
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		markets:  make(map[string]*model.Market),
		wagers:   make(map[string]*model.Wager),
	}
}

// --- Accounts ---

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Handle == a.Handle {
			return model.ErrDuplicateHandle
		}
	}

	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) GetAccountByHandle(_ context.Context, handle string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Handle == handle {
			cp := *a
			return &cp, nil
		}
	}
	return nil, model.ErrAccountNotFound
}

func (s *MemoryStore) DeactivateAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	a.Active = false
	a.Version++
	return nil
}

// --- Markets ---

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.markets {
		if existing.EventCode == m.EventCode {
			return model.ErrDuplicateEventCode
		}
	}

	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, model.ErrMarketNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetMarketByEventCode(_ context.Context, code string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.markets {
		if m.EventCode == code {
			cp := *m
			return &cp, nil
		}
	}
	return nil, model.ErrMarketNotFound
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	return markets, nil
}

func (s *MemoryStore) ListMarketsByStatus(_ context.Context, status model.MarketStatus) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var markets []model.Market
	for _, m := range s.markets {
		if m.Status == status {
			markets = append(markets, *m)
		}
	}
	return markets, nil
}

func (s *MemoryStore) UpdateMarketStatus(_ context.Context, id string, status model.MarketStatus, bettingOpen bool, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return model.ErrMarketNotFound
	}
	if m.Version != version {
		return model.ErrVersionConflict
	}
	m.Status = status
	m.BettingOpen = bettingOpen
	m.Version++
	return nil
}

func (s *MemoryStore) SetMarketOutcome(_ context.Context, id string, outcome model.Outcome, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return model.ErrMarketNotFound
	}
	if m.Outcome != "" {
		return model.ErrOutcomeAlreadySet
	}
	if m.Version != version {
		return model.ErrVersionConflict
	}
	m.Outcome = outcome
	m.Version++
	return nil
}

// --- Wagers ---

func (s *MemoryStore) GetWager(_ context.Context, id string) (*model.Wager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wagers[id]
	if !ok {
		return nil, model.ErrWagerNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) ListWagersByMarket(_ context.Context, marketID string) ([]model.Wager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Wager
	for _, id := range s.wagerOrder {
		if w := s.wagers[id]; w.MarketID == marketID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListWagersByAccount(_ context.Context, accountID string) ([]model.Wager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Wager
	for _, id := range s.wagerOrder {
		if w := s.wagers[id]; w.AccountID == accountID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListPendingWagersByMarket(_ context.Context, marketID string) ([]model.Wager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Wager
	for _, id := range s.wagerOrder {
		if w := s.wagers[id]; w.MarketID == marketID && w.Status == model.WagerPending {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (s *MemoryStore) PendingStakeByMarket(_ context.Context, accountID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make(map[string]int64)
	for _, w := range s.wagers {
		if w.AccountID == accountID && w.Status == model.WagerPending {
			pending[w.MarketID] += w.Stake
		}
	}
	return pending, nil
}

// --- Atomic composites ---

func (s *MemoryStore) ApplyPlacement(_ context.Context, account *model.Account, market *model.Market, wager *model.Wager) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedA, ok := s.accounts[account.ID]
	if !ok {
		return model.ErrAccountNotFound
	}
	storedM, ok := s.markets[market.ID]
	if !ok {
		return model.ErrMarketNotFound
	}
	if storedA.Version != account.Version || storedM.Version != market.Version {
		return model.ErrVersionConflict
	}

	// Commit all three under the single lock.
	account.Version++
	market.Version++
	cpA := *account
	cpM := *market
	cpW := *wager
	s.accounts[account.ID] = &cpA
	s.markets[market.ID] = &cpM
	s.wagers[wager.ID] = &cpW
	s.wagerOrder = append(s.wagerOrder, wager.ID)
	return nil
}

func (s *MemoryStore) ApplySettlement(_ context.Context, account *model.Account, wager *model.Wager) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	storedA, ok := s.accounts[account.ID]
	if !ok {
		return model.ErrAccountNotFound
	}
	storedW, ok := s.wagers[wager.ID]
	if !ok {
		return model.ErrWagerNotFound
	}
	if storedW.Status != model.WagerPending {
		return model.ErrWagerSettled
	}
	if storedA.Version != account.Version {
		return model.ErrVersionConflict
	}

	account.Version++
	cpA := *account
	cpW := *wager
	s.accounts[account.ID] = &cpA
	s.wagers[wager.ID] = &cpW
	return nil
}
