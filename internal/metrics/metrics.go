// Package metrics provides Prometheus instrumentation for the wagering engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WagersPlaced counts accepted placements, partitioned by side.
	WagersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huskybids_wagers_placed_total",
		Help: "Total number of wagers placed",
	}, []string{"side"})

	// WagersRejected counts placements refused at validation, by reason.
	WagersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huskybids_wagers_rejected_total",
		Help: "Placements rejected at validation",
	}, []string{"reason"})

	// PlacementLatency tracks placement execution latency.
	PlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "huskybids_placement_latency_seconds",
		Help:    "Wager placement latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// WriteConflicts counts optimistic-concurrency conflicts seen by the
	// ledger, including those resolved by a retry.
	WriteConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huskybids_write_conflicts_total",
		Help: "Concurrent write conflicts during placement",
	})

	// WagersSettled counts settled wagers by final status.
	WagersSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huskybids_wagers_settled_total",
		Help: "Total wagers settled, by resulting status",
	}, []string{"status"})

	// SettlementFailures counts per-record failures recorded in batch summaries.
	SettlementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huskybids_settlement_failures_total",
		Help: "Per-wager settlement failures left for retry",
	})

	// UnitsPaidOut accumulates stake units credited to winners and refunds.
	UnitsPaidOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huskybids_units_paid_out_total",
		Help: "Cumulative stake units paid out by settlement",
	})

	// OpenMarkets tracks the number of markets currently accepting wagers.
	OpenMarkets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huskybids_open_markets",
		Help: "Number of markets currently open for wagers",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huskybids_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huskybids_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "huskybids_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
