package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/config"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/ledger"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/metrics"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/risk"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/settlement"
	"github.com/Isaiahriveraa/HuskyBids-sub000/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.Redis.URL != "" {
			opt, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				slog.Error("invalid redis url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.Redis.CacheTTL())
			slog.Info("Redis cache enabled", "ttl", cfg.Redis.CacheTTL())
		}
	} else {
		slog.Warn("database url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Exposure limits ---
	limiter := risk.NewExposureLimiter(cfg.Betting.MaxPendingPerMarket, cfg.Betting.MaxPendingTotal)

	// --- WebSocket hub ---
	wsHub := ledger.NewWSHub()
	go wsHub.Run()

	// --- Services ---
	ledgerSvc := ledger.NewService(st, limiter, cfg.Betting, wsHub)
	engine := settlement.NewEngine(st, wsHub)

	runnerCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	if cfg.Settlement.Enabled {
		runner := settlement.NewRunner(engine, st, cfg.Settlement.PollInterval())
		go runner.Start(runnerCtx)
		slog.Info("settlement runner started", "interval", cfg.Settlement.PollInterval())
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS for the frontend.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"huskybids"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time odds updates.
		r.Get("/ws", wsHub.HandleWS)

		// Accounts.
		r.Post("/accounts", ledgerSvc.HandleRegisterAccount)
		r.Get("/accounts", ledgerSvc.HandleLookupAccount)
		r.Get("/accounts/{accountID}", ledgerSvc.HandleGetAccount)
		r.Get("/accounts/{accountID}/wagers", ledgerSvc.HandleAccountWagers)
		r.Post("/accounts/{accountID}/deactivate", ledgerSvc.HandleDeactivateAccount)

		// Markets.
		r.Get("/markets", ledgerSvc.HandleListMarkets)
		r.Post("/markets", ledgerSvc.HandleCreateMarket)
		r.Get("/markets/{marketID}", ledgerSvc.HandleGetMarket)
		r.Get("/markets/{marketID}/wagers", ledgerSvc.HandleMarketWagers)
		r.Post("/markets/{marketID}/status", ledgerSvc.HandleTransitionMarket)
		r.Post("/markets/{marketID}/outcome", ledgerSvc.HandleSetOutcome)

		// Settlement.
		r.Post("/markets/{marketID}/settle", engine.HandleSettleMarket)
		r.Post("/markets/{marketID}/refund", engine.HandleRefundMarket)

		// Wagers.
		r.Post("/wagers", ledgerSvc.HandlePlaceWager)
		r.Get("/wagers/{wagerID}", ledgerSvc.HandleGetWager)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("huskybids listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down huskybids...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("huskybids stopped")
}
