package settlement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/model"
)

// SettleRequest is the JSON body for POST /api/v1/markets/{id}/settle.
type SettleRequest struct {
	Outcome model.Outcome `json:"outcome"`
}

// RefundRequest is the JSON body for POST /api/v1/markets/{id}/refund.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// HandleSettleMarket handles POST /api/v1/markets/{marketID}/settle.
// Idempotent: a retried call skips already-settled wagers.
func (e *Engine) HandleSettleMarket(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	summary, err := e.SettleMarket(r.Context(), chi.URLParam(r, "marketID"), req.Outcome)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandleRefundMarket handles POST /api/v1/markets/{marketID}/refund.
func (e *Engine) HandleRefundMarket(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	summary, err := e.RefundMarket(r.Context(), chi.URLParam(r, "marketID"), req.Reason)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrOutcomeAlreadySet),
		errors.Is(err, model.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidOutcome):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
