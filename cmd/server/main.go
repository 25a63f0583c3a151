package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hetsaraiya/Nifty-Analysis/internal/api"
	"github.com/hetsaraiya/Nifty-Analysis/internal/config"
	"github.com/hetsaraiya/Nifty-Analysis/internal/marketdata"
	"github.com/hetsaraiya/Nifty-Analysis/internal/metrics"
	"github.com/hetsaraiya/Nifty-Analysis/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	var cleanup []func()
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Snapshot store ---
	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory snapshot store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Market data source ---
	var src marketdata.Source
	switch cfg.MarketSource {
	case "yahoo":
		src = marketdata.NewYahooSource(cfg.SourceTimeout)
		slog.Info("using Yahoo Finance market data source")
	default:
		src = &marketdata.StaticSource{}
		slog.Warn("no market data source configured, running THEORETICAL only")
	}

	// Wrap the source with a Redis read-through cache if configured.
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		src = marketdata.NewCachedSource(src, rdb)
		slog.Info("Redis market data cache enabled")
	}

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- Analytics service ---
	svc := api.NewService(src, st, wsHub)

	// --- Background refresher ---
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	if cfg.RefreshInterval > 0 {
		go svc.RunRefresher(refreshCtx, cfg.RefreshInterval)
	}

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for dashboard cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", svc.Health)

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for chain refresh notifications.
		r.Get("/ws", wsHub.HandleWS)

		r.Get("/spot", svc.GetSpot)
		r.Get("/options-chain", svc.GetOptionsChain)
		r.Get("/analytics", svc.GetAnalytics)
		r.Post("/implied-volatility", svc.SolveIV)
		r.Post("/portfolio-greeks", svc.AggregatePortfolio)

		r.Get("/snapshots", svc.ListSnapshots)
		r.Get("/snapshots/latest", svc.GetLatestSnapshot)
		r.Get("/snapshots/{id}", svc.GetSnapshot)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("nifty-analysis listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopRefresh()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down nifty-analysis...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("nifty-analysis stopped")
}
