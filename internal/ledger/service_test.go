package ledger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/config"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/ledger"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/risk"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func testBetting() config.Betting {
	return config.Betting{
		MinStake:         10,
		MaxStake:         10000,
		StartingBalance:  1000,
		GraceWindowSecs:  5,
		PlacementRetries: 3,
	}
}

// newTestEnv creates a test Service with in-memory store and chi router.
func newTestEnv(t *testing.T, limiter *risk.ExposureLimiter) (*ledger.Service, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := ledger.NewService(ms, limiter, testBetting(), nil)

	r := chi.NewRouter()
	r.Post("/api/v1/accounts", svc.HandleRegisterAccount)
	r.Get("/api/v1/accounts", svc.HandleLookupAccount)
	r.Get("/api/v1/accounts/{accountID}", svc.HandleGetAccount)
	r.Post("/api/v1/accounts/{accountID}/deactivate", svc.HandleDeactivateAccount)
	r.Post("/api/v1/markets", svc.HandleCreateMarket)
	r.Get("/api/v1/markets/{marketID}", svc.HandleGetMarket)
	r.Post("/api/v1/markets/{marketID}/status", svc.HandleTransitionMarket)
	r.Post("/api/v1/markets/{marketID}/outcome", svc.HandleSetOutcome)
	r.Post("/api/v1/wagers", svc.HandlePlaceWager)
	r.Get("/api/v1/wagers/{wagerID}", svc.HandleGetWager)

	return svc, ms, r
}

// seedAccount creates a test account directly in the store.
func seedAccount(t *testing.T, ms *store.MemoryStore, id string, balance int64) *model.Account {
	t.Helper()
	account := &model.Account{
		ID:        id,
		Handle:    "handle-" + id,
		Balance:   balance,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

// seedMarket creates a scheduled, open test market directly in the store.
func seedMarket(t *testing.T, ms *store.MemoryStore, id string, start time.Time) *model.Market {
	t.Helper()
	market := &model.Market{
		ID:          id,
		EventCode:   "HB-FOOTBALL-20250906-UW-" + id,
		Sport:       "FOOTBALL",
		SideAName:   "UW",
		SideBName:   "OSU",
		StartTime:   start,
		Status:      model.MarketScheduled,
		BettingOpen: true,
		OddsA:       d(1.9),
		OddsB:       d(1.9),
		CreatedAt:   time.Now().UTC(),
	}
	if err := ms.CreateMarket(context.Background(), market); err != nil {
		t.Fatalf("failed to seed market: %v", err)
	}
	return market
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doPlace(t *testing.T, router chi.Router, req ledger.PlaceWagerRequest) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, "POST", "/api/v1/wagers", req)
}

func futureStart() time.Time {
	return time.Now().UTC().Add(1 * time.Hour)
}

// --- Placement ---

func TestPlaceWager_EvenMarket(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp ledger.PlacementResult
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Balance != 900 {
		t.Errorf("expected balance 900, got %d", resp.Balance)
	}
	if !resp.Wager.OddsLocked.Equal(d(1.9)) {
		t.Errorf("expected locked odds 1.9 on fresh market, got %s", resp.Wager.OddsLocked)
	}
	if resp.Wager.PotentialPayout != 190 {
		t.Errorf("expected potential payout 190, got %d", resp.Wager.PotentialPayout)
	}
	if resp.Wager.Status != model.WagerPending {
		t.Errorf("expected pending wager, got %s", resp.Wager.Status)
	}

	account, _ := ms.GetAccount(context.Background(), "acct1")
	if account.Balance != 900 || account.TotalWagered != 100 {
		t.Errorf("account not debited: balance=%d wagered=%d", account.Balance, account.TotalWagered)
	}
	if account.Counts.Total != 1 || account.Counts.Pending != 1 {
		t.Errorf("counts not updated: %+v", account.Counts)
	}

	market, _ := ms.GetMarket(context.Background(), "mkt1")
	if market.SideA.Count != 1 || market.SideA.Staked != 100 {
		t.Errorf("side A pool not updated: %+v", market.SideA)
	}
	if market.OddsA.Equal(d(1.9)) {
		t.Error("market odds should move after a placement")
	}
}

func TestPlaceWager_OddsLockedNotRecomputed(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedAccount(t, ms, "acct2", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	w1 := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	var first ledger.PlacementResult
	json.Unmarshal(w1.Body.Bytes(), &first)

	// Second placement moves the market's published odds.
	doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct2", MarketID: "mkt1", Stake: 500, Side: model.SideB,
	})

	stored, err := ms.GetWager(context.Background(), first.Wager.ID)
	if err != nil {
		t.Fatalf("get wager: %v", err)
	}
	if !stored.OddsLocked.Equal(d(1.9)) {
		t.Errorf("locked odds must stay frozen at 1.9, got %s", stored.OddsLocked)
	}
	if stored.PotentialPayout != 190 {
		t.Errorf("potential payout must stay 190, got %d", stored.PotentialPayout)
	}
}

func TestPlaceWager_SecondPlacementSeesMovedPrice(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 5000)
	seedMarket(t, ms, "mkt1", futureStart())

	doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 1000, Side: model.SideA,
	})

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	var resp ledger.PlacementResult
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Wager.OddsLocked.Equal(d(1.9)) {
		t.Error("second placement should lock the moved price, not the opening one")
	}
}

func TestPlaceWager_InsufficientBalance(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 2000, Side: model.SideA,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// No partial effect observable.
	account, _ := ms.GetAccount(context.Background(), "acct1")
	if account.Balance != 1000 || account.Counts.Total != 0 {
		t.Errorf("account mutated on rejected placement: %+v", account)
	}
	market, _ := ms.GetMarket(context.Background(), "mkt1")
	if market.SideA.Staked != 0 || market.SideA.Count != 0 {
		t.Errorf("market mutated on rejected placement: %+v", market.SideA)
	}
	wagers, _ := ms.ListWagersByMarket(context.Background(), "mkt1")
	if len(wagers) != 0 {
		t.Errorf("wager created on rejected placement: %d", len(wagers))
	}
}

func TestPlaceWager_ValidationErrors(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	cases := []struct {
		name string
		req  ledger.PlaceWagerRequest
		code int
	}{
		{"unknown account", ledger.PlaceWagerRequest{AccountID: "nope", MarketID: "mkt1", Stake: 100, Side: model.SideA}, http.StatusNotFound},
		{"unknown market", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "nope", Stake: 100, Side: model.SideA}, http.StatusNotFound},
		{"bad side", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: "draw"}, http.StatusBadRequest},
		{"zero stake", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "mkt1", Stake: 0, Side: model.SideA}, http.StatusBadRequest},
		{"negative stake", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "mkt1", Stake: -50, Side: model.SideA}, http.StatusBadRequest},
		{"below minimum", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "mkt1", Stake: 5, Side: model.SideA}, http.StatusBadRequest},
		{"above maximum", ledger.PlaceWagerRequest{AccountID: "acct1", MarketID: "mkt1", Stake: 999999, Side: model.SideA}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doPlace(t, router, tc.req)
			if w.Code != tc.code {
				t.Errorf("expected %d, got %d: %s", tc.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestPlaceWager_MarketAlreadyStarted(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", time.Now().UTC().Add(-time.Minute))

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for started market, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceWager_WithinGraceWindow(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	// Start time just passed, still inside the 5s grace window.
	seedMarket(t, ms, "mkt1", time.Now().UTC().Add(-1*time.Second))

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected grace window to admit placement, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceWager_MarketNotOpen(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	market := seedMarket(t, ms, "mkt1", futureStart())

	if err := ms.UpdateMarketStatus(context.Background(), market.ID, model.MarketLive, false, market.Version); err != nil {
		t.Fatalf("transition market: %v", err)
	}

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for live market, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceWager_DeactivatedAccount(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	if err := ms.DeactivateAccount(context.Background(), "acct1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for deactivated account, got %d", w.Code)
	}
}

func TestPlaceWager_ExposureLimit(t *testing.T) {
	limiter := risk.NewExposureLimiter(150, 0)
	_, ms, router := newTestEnv(t, limiter)
	seedAccount(t, ms, "acct1", 1000)
	seedMarket(t, ms, "mkt1", futureStart())

	w := doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideA,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("first placement should pass: %d", w.Code)
	}

	w = doPlace(t, router, ledger.PlaceWagerRequest{
		AccountID: "acct1", MarketID: "mkt1", Stake: 100, Side: model.SideB,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for exposure limit, got %d: %s", w.Code, w.Body.String())
	}
}

// --- Accounts ---

func TestRegisterAccount(t *testing.T) {
	_, _, router := newTestEnv(t, nil)

	w := doJSON(t, router, "POST", "/api/v1/accounts", ledger.RegisterAccountRequest{Handle: "netid:dawg1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var account model.Account
	json.Unmarshal(w.Body.Bytes(), &account)
	if account.Balance != 1000 {
		t.Errorf("expected starting balance 1000, got %d", account.Balance)
	}
	if !account.Active {
		t.Error("new account should be active")
	}

	// Same handle again conflicts.
	w = doJSON(t, router, "POST", "/api/v1/accounts", ledger.RegisterAccountRequest{Handle: "netid:dawg1"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate handle, got %d", w.Code)
	}
}

func TestLookupAccountByHandle(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedAccount(t, ms, "acct1", 1000)

	req := httptest.NewRequest("GET", "/api/v1/accounts?handle=handle-acct1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var account model.Account
	json.Unmarshal(w.Body.Bytes(), &account)
	if account.ID != "acct1" {
		t.Errorf("resolved wrong account: %s", account.ID)
	}

	req = httptest.NewRequest("GET", "/api/v1/accounts?handle=unknown", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown handle, got %d", w.Code)
	}
}

// --- Markets ---

func TestCreateMarket(t *testing.T) {
	_, _, router := newTestEnv(t, nil)

	w := doJSON(t, router, "POST", "/api/v1/markets", ledger.CreateMarketRequest{
		EventCode: "HB-BASKETBALL-20251101-UW-GONZ",
		StartTime: futureStart(),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var market model.Market
	json.Unmarshal(w.Body.Bytes(), &market)
	if market.Status != model.MarketScheduled || !market.BettingOpen {
		t.Errorf("new market should be scheduled and open: %+v", market)
	}
	if !market.OddsA.Equal(d(1.9)) || !market.OddsB.Equal(d(1.9)) {
		t.Errorf("fresh market should open at 1.9/1.9, got %s/%s", market.OddsA, market.OddsB)
	}
}

func TestCreateMarket_BadEventCode(t *testing.T) {
	_, _, router := newTestEnv(t, nil)

	w := doJSON(t, router, "POST", "/api/v1/markets", ledger.CreateMarketRequest{
		EventCode: "not-a-code",
		StartTime: futureStart(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed event code, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetMarketByEventCode(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedMarket(t, ms, "mkt1", futureStart())

	req := httptest.NewRequest("GET", "/api/v1/markets/HB-FOOTBALL-20250906-UW-mkt1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var market model.Market
	json.Unmarshal(w.Body.Bytes(), &market)
	if market.ID != "mkt1" {
		t.Errorf("resolved wrong market: %s", market.ID)
	}
}

func TestTransitionMarket(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedMarket(t, ms, "mkt1", futureStart())

	w := doJSON(t, router, "POST", "/api/v1/markets/mkt1/status", ledger.TransitionRequest{Status: model.MarketLive})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var market model.Market
	json.Unmarshal(w.Body.Bytes(), &market)
	if market.Status != model.MarketLive {
		t.Errorf("expected live, got %s", market.Status)
	}
	if market.BettingOpen {
		t.Error("betting must close when status leaves scheduled")
	}
}

func TestTransitionMarket_IllegalEdge(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	seedMarket(t, ms, "mkt1", futureStart())

	// scheduled -> completed skips live.
	w := doJSON(t, router, "POST", "/api/v1/markets/mkt1/status", ledger.TransitionRequest{Status: model.MarketCompleted})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for illegal transition, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSetOutcome(t *testing.T) {
	_, ms, router := newTestEnv(t, nil)
	market := seedMarket(t, ms, "mkt1", futureStart())

	// Outcome before completion is rejected.
	w := doJSON(t, router, "POST", "/api/v1/markets/mkt1/outcome", ledger.OutcomeRequest{Outcome: model.OutcomeSideA})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 before completion, got %d", w.Code)
	}

	ms.UpdateMarketStatus(context.Background(), market.ID, model.MarketLive, false, market.Version)
	m, _ := ms.GetMarket(context.Background(), market.ID)
	ms.UpdateMarketStatus(context.Background(), market.ID, model.MarketCompleted, false, m.Version)

	w = doJSON(t, router, "POST", "/api/v1/markets/mkt1/outcome", ledger.OutcomeRequest{Outcome: model.OutcomeSideA})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Set exactly once.
	w = doJSON(t, router, "POST", "/api/v1/markets/mkt1/outcome", ledger.OutcomeRequest{Outcome: model.OutcomeSideB})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second outcome, got %d", w.Code)
	}
}
