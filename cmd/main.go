package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/http/api"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/http/swagger"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/adapters/repository"
	app "github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/app"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/config"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/internal/durability"
	"github.com/SemperAdmin/Fitness-Report-Evaluator-sub001/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection; the engine registers its own
	// families on a dedicated registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since the logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to flush logs: " + err.Error() + "\n")
		}
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "store close failed", logger.Error(err))
		}
	}()

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(log.Named("app")),
		app.WithStore(store),
		app.WithDedupeTTL(cfg.Dedupe.TTL),
		app.WithDedupeMaxEntries(cfg.Dedupe.MaxEntries),
		app.WithSaverOptions(
			durability.WithDebounce(cfg.Durability.Debounce),
			durability.WithActivityWindow(cfg.Durability.ActivityWindow),
			durability.WithIntervalBounds(cfg.Durability.IntervalFloor, cfg.Durability.IntervalCeiling),
			durability.WithRetry(cfg.Durability.RetryAttempts, cfg.Durability.RetryBaseDelay),
			durability.WithHistoryCapacity(cfg.Durability.HistoryCapacity),
		),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API documentation under /docs.
	swagger.Register(ctx, mux)

	// Business API routes with the service dependency.
	api.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openStore builds the configured store backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		log.Info(ctx, "using in-memory store")
		return repository.NewMemStore(
			repository.WithMaxBytes(cfg.Storage.MaxBytes),
			repository.WithLogger(log.Named("store")),
		), nil
	}
	log.Info(ctx, "opening badger store", logger.String("path", cfg.Storage.Path))
	return repository.NewBadgerStore(ctx, cfg.Storage.Path,
		repository.WithMaxBytes(cfg.Storage.MaxBytes),
		repository.WithSyncWrites(cfg.Storage.SyncWrites),
		repository.WithGCInterval(cfg.Storage.GCInterval),
		repository.WithLogger(log.Named("store")),
	)
}
