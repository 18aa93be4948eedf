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
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/TaskBazaar/internal/adapter/arbiterhttp"
	tbhttp "github.com/Strob0t/TaskBazaar/internal/adapter/http"
	"github.com/Strob0t/TaskBazaar/internal/adapter/identityhttp"
	"github.com/Strob0t/TaskBazaar/internal/adapter/ledgerhttp"
	tbnats "github.com/Strob0t/TaskBazaar/internal/adapter/nats"
	"github.com/Strob0t/TaskBazaar/internal/adapter/otel"
	"github.com/Strob0t/TaskBazaar/internal/adapter/postgres"
	"github.com/Strob0t/TaskBazaar/internal/adapter/ristretto"
	"github.com/Strob0t/TaskBazaar/internal/adapter/ws"
	"github.com/Strob0t/TaskBazaar/internal/config"
	"github.com/Strob0t/TaskBazaar/internal/logger"
	"github.com/Strob0t/TaskBazaar/internal/middleware"
	"github.com/Strob0t/TaskBazaar/internal/resilience"
	"github.com/Strob0t/TaskBazaar/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	shutdownOTel, err := otel.Init(ctx, cfg.OTel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := tbnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()
	slog.Info("nats connected")

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// --- Collaborator clients ---
	identityClient := identityhttp.NewClient(cfg.Identity.URL, cfg.Identity.Timeout)
	identityClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	ledgerClient := ledgerhttp.NewClient(cfg.Ledger.URL, cfg.Ledger.Timeout)
	ledgerClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	arbiterClient := arbiterhttp.NewClient(cfg.Arbiter.URL, cfg.Arbiter.Timeout)

	// --- Engine ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	auth := service.NewAuthenticator(identityClient)
	escrowCoord := service.NewEscrowCoordinator(ledgerClient, store, metrics)

	engine := service.NewEngine(store, escrowCoord, auth, cfg.Limits, cfg.Platform.SignerID)
	engine.SetQueue(queue)
	engine.SetBroadcaster(hub)
	engine.SetArbiter(arbiterClient)
	engine.SetMetrics(metrics)
	engine.SetCache(cache, cfg.Cache.TTL)

	// --- HTTP ---
	handlers := &tbhttp.Handlers{
		Engine: engine,
		Hub:    hub,
		DB:     pool,
		Queue:  queue,
	}

	r := chi.NewRouter()
	r.Use(tbhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(tbhttp.Logger)
	r.Use(tbhttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	limiter := middleware.NewRateLimiter(50, 100)
	stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
	defer stopCleanup()
	r.Use(limiter.Handler)

	tbhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := queue.Drain(); err != nil {
			slog.Error("nats drain", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
