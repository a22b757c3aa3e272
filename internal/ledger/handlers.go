package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/event"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/metrics"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// --- Request types ---

// RegisterAccountRequest is the JSON body for POST /api/v1/accounts.
type RegisterAccountRequest struct {
	Handle string `json:"handle"`
}

// CreateMarketRequest is the JSON body for POST /api/v1/markets.
type CreateMarketRequest struct {
	EventCode string    `json:"event_code"` // HB-{SPORT}-{YYYYMMDD}-{HOME}-{AWAY}
	StartTime time.Time `json:"start_time"`
}

// TransitionRequest is the JSON body for POST /api/v1/markets/{id}/status.
type TransitionRequest struct {
	Status model.MarketStatus `json:"status"`
}

// OutcomeRequest is the JSON body for POST /api/v1/markets/{id}/outcome.
type OutcomeRequest struct {
	Outcome model.Outcome `json:"outcome"`
}

// PlaceWagerRequest is the JSON body for POST /api/v1/wagers.
type PlaceWagerRequest struct {
	AccountID string     `json:"account_id"`
	MarketID  string     `json:"market_id"`
	Stake     int64      `json:"stake"`
	Side      model.Side `json:"side"`
}

// --- HTTP handlers ---

// HandleRegisterAccount handles POST /api/v1/accounts.
func (s *Service) HandleRegisterAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := s.RegisterAccount(r.Context(), req.Handle)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// HandleGetAccount handles GET /api/v1/accounts/{accountID}.
func (s *Service) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.store.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleLookupAccount handles GET /api/v1/accounts?handle=<handle>, letting
// the identity provider resolve its handle to our account ID.
func (s *Service) HandleLookupAccount(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		writeError(w, "handle query parameter is required", http.StatusBadRequest)
		return
	}
	account, err := s.store.GetAccountByHandle(r.Context(), handle)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleDeactivateAccount handles POST /api/v1/accounts/{accountID}/deactivate.
// Accounts are never deleted, only deactivated.
func (s *Service) HandleDeactivateAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if err := s.store.DeactivateAccount(r.Context(), accountID); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account_id": accountID, "status": "deactivated"})
}

// HandleAccountWagers handles GET /api/v1/accounts/{accountID}/wagers.
func (s *Service) HandleAccountWagers(w http.ResponseWriter, r *http.Request) {
	wagers, err := s.store.ListWagersByAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, "failed to list wagers", http.StatusInternalServerError)
		return
	}
	if wagers == nil {
		wagers = []model.Wager{}
	}
	writeJSON(w, http.StatusOK, wagers)
}

// HandleCreateMarket handles POST /api/v1/markets.
func (s *Service) HandleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	market, err := s.CreateMarket(r.Context(), req.EventCode, req.StartTime)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

// HandleListMarkets handles GET /api/v1/markets, optionally filtered by
// ?status=<status>.
func (s *Service) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	var markets []model.Market
	var err error

	if status := r.URL.Query().Get("status"); status != "" {
		markets, err = s.store.ListMarketsByStatus(r.Context(), model.MarketStatus(status))
	} else {
		markets, err = s.store.ListMarkets(r.Context())
	}
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// HandleGetMarket handles GET /api/v1/markets/{marketID}. The path segment
// may also be a feed event code (HB-...), so the feed can address markets
// without knowing our IDs.
func (s *Service) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "marketID")

	var market *model.Market
	var err error
	if strings.HasPrefix(key, "HB-") {
		market, err = s.store.GetMarketByEventCode(r.Context(), key)
	} else {
		market, err = s.store.GetMarket(r.Context(), key)
	}
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// HandleMarketWagers handles GET /api/v1/markets/{marketID}/wagers.
func (s *Service) HandleMarketWagers(w http.ResponseWriter, r *http.Request) {
	wagers, err := s.store.ListWagersByMarket(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, "failed to list wagers", http.StatusInternalServerError)
		return
	}
	if wagers == nil {
		wagers = []model.Wager{}
	}
	writeJSON(w, http.StatusOK, wagers)
}

// HandleTransitionMarket handles POST /api/v1/markets/{marketID}/status.
func (s *Service) HandleTransitionMarket(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	market, err := s.TransitionMarket(r.Context(), chi.URLParam(r, "marketID"), req.Status)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// HandleSetOutcome handles POST /api/v1/markets/{marketID}/outcome.
func (s *Service) HandleSetOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	market, err := s.SetOutcome(r.Context(), chi.URLParam(r, "marketID"), req.Outcome)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// HandlePlaceWager handles POST /api/v1/wagers.
func (s *Service) HandlePlaceWager(w http.ResponseWriter, r *http.Request) {
	var req PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.MarketID == "" {
		writeError(w, "account_id and market_id are required", http.StatusBadRequest)
		return
	}

	result, err := s.PlaceWager(r.Context(), req.AccountID, req.MarketID, req.Stake, req.Side)
	if err != nil {
		metrics.WagersRejected.WithLabelValues(rejectionReason(err)).Inc()
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleGetWager handles GET /api/v1/wagers/{wagerID}.
func (s *Service) HandleGetWager(w http.ResponseWriter, r *http.Request) {
	wager, err := s.store.GetWager(r.Context(), chi.URLParam(r, "wagerID"))
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, wager)
}

// --- Response helpers ---

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrMarketNotFound),
		errors.Is(err, model.ErrWagerNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrVersionConflict),
		errors.Is(err, model.ErrMarketNotOpen),
		errors.Is(err, model.ErrMarketStarted),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrOutcomeAlreadySet),
		errors.Is(err, model.ErrWagerSettled),
		errors.Is(err, model.ErrDuplicateEventCode),
		errors.Is(err, model.ErrDuplicateHandle):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidSide),
		errors.Is(err, model.ErrInvalidStake),
		errors.Is(err, model.ErrInvalidOutcome),
		errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrExposureLimit),
		errors.Is(err, model.ErrAccountInactive),
		errors.Is(err, event.ErrInvalidCode),
		errors.Is(err, event.ErrInvalidSport),
		errors.Is(err, event.ErrSameTeam):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// rejectionReason labels a placement failure for metrics without the
// unbounded cardinality of raw error strings.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, model.ErrMarketNotFound):
		return "market_not_found"
	case errors.Is(err, model.ErrInvalidSide):
		return "invalid_side"
	case errors.Is(err, model.ErrInvalidStake):
		return "invalid_stake"
	case errors.Is(err, model.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, model.ErrMarketNotOpen):
		return "market_not_open"
	case errors.Is(err, model.ErrMarketStarted):
		return "market_started"
	case errors.Is(err, model.ErrExposureLimit):
		return "exposure_limit"
	case errors.Is(err, model.ErrVersionConflict):
		return "write_conflict"
	case errors.Is(err, model.ErrAccountInactive):
		return "account_inactive"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
