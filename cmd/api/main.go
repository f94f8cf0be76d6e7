// Package main is the entry point for the Notekeeper API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/notekeeper/backend/internal/auth"
	"github.com/pkordes/notekeeper/backend/internal/config"
	"github.com/pkordes/notekeeper/backend/internal/handler"
	"github.com/pkordes/notekeeper/backend/internal/middleware"
	"github.com/pkordes/notekeeper/backend/internal/ratelimit"
	"github.com/pkordes/notekeeper/backend/internal/repo"
	"github.com/pkordes/notekeeper/backend/internal/service"
	"github.com/pkordes/notekeeper/backend/internal/summary"
	"github.com/pkordes/notekeeper/backend/migrations"
	"github.com/pkordes/notekeeper/backend/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Cancelled on SIGINT/SIGTERM; background workers stop with it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if err := migrate(ctx, pool); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// --- Rate limiting ----------------------------------------------------
	store, closeStore, err := newBucketStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up rate limit store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	limiter := ratelimit.New(store,
		ratelimit.WithLimit(cfg.RateLimit),
		ratelimit.WithWindow(cfg.RateLimitWindow),
		ratelimit.WithRecorder(ratelimit.NewPromRecorder(prometheus.DefaultRegisterer)),
		ratelimit.WithLogger(logger),
	)
	limiter.StartJanitor(ctx, cfg.RateLimitCleanupInterval)

	// --- Services ---------------------------------------------------------
	verifier, err := auth.NewVerifier(cfg.SessionKey, cfg.SessionTTL)
	if err != nil {
		slog.Error("invalid session key", "error", err)
		os.Exit(1)
	}

	tagRepo := repo.NewTagRepo(pool)
	userRepo := repo.NewUserRepo(pool)
	noteRepo := repo.NewNoteRepo(pool)

	summaries := summary.New(cfg.SummaryURL, logger)
	if !summaries.Enabled() {
		slog.Info("SUMMARY_URL not set; POST /summaries will return 503")
	}

	api := handler.NewServer(handler.Deps{
		Tags:      service.NewTagService(tagRepo, noteRepo),
		Sharing:   service.NewSharingService(tagRepo, userRepo, logger),
		Export:    service.NewExportService(tagRepo),
		Summaries: summaries,
		Auth:      verifier.Require,
		RateLimit: middleware.NewRateLimitHandler(limiter, logger),
		Metrics:   promhttp.Handler(),
		OpenAPI:   spec.OpenAPI,
		Logger:    logger,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body cap. RealIP only rewrites RemoteAddr for the request log;
	// the rate limiter keys on the forwarding headers themselves.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", api.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout leaves room for the summary upstream's 30s budget.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending goose migrations through a database/sql handle
// that borrows connections from pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}

// newBucketStore returns the Redis-backed store when REDIS_URL is set and the
// in-process store otherwise. The returned func releases the store.
func newBucketStore(ctx context.Context, cfg config.Config) (ratelimit.Store, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("rate limit buckets kept in memory")
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("rate limit buckets kept in redis", "addr", opts.Addr)

	store := ratelimit.NewRedisStore(rdb, ratelimit.WithTTL(cfg.RateLimitWindow))
	return store, func() { rdb.Close() }, nil
}
