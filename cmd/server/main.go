package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/weddingplanner/internal/config"
	"github.com/JonMunkholm/weddingplanner/internal/core"
	"github.com/JonMunkholm/weddingplanner/internal/logging"
	"github.com/JonMunkholm/weddingplanner/internal/metrics"
	"github.com/JonMunkholm/weddingplanner/internal/store"
	"github.com/JonMunkholm/weddingplanner/internal/store/memory"
	"github.com/JonMunkholm/weddingplanner/internal/store/postgres"
	"github.com/JonMunkholm/weddingplanner/internal/web"
	"github.com/JonMunkholm/weddingplanner/internal/weddingapi"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.Kind,
		"import_max_concurrent_submits", cfg.Import.MaxConcurrentSubmits,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("configuration", "config", cfg.String())

	ctx := context.Background()
	directory, guests, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		slog.Error("failed to open guest backend", "backend", cfg.Backend.Kind, "error", err)
		os.Exit(1)
	}
	defer closeBackend()

	collectors := metrics.New()
	service := core.NewService(directory, core.ServiceOptions{
		MaxFileSize:          cfg.Import.MaxFileSize,
		SessionTTL:           cfg.Import.SessionTTL,
		MaxConcurrentSubmits: cfg.Import.MaxConcurrentSubmits,
		MaxWaitTime:          cfg.Import.MaxWaitTime,
		SubmitTimeout:        cfg.Import.SubmitTimeout,
		Recorder:             collectors,
		Logger:               slog.Default(),
	})
	collectors.TrackGauge("active_sessions", "Open import sessions.", func() float64 {
		return float64(service.ActiveSessions())
	})
	collectors.TrackGauge("active_submits", "Bulk submits in flight.", func() float64 {
		return float64(service.LimiterStatus().Active)
	})

	server := web.NewServer(service, cfg, web.Options{Metrics: collectors, Guests: guests})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartJanitor(jobCtx, cfg.Import.SweepInterval)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight submits to complete (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for submits to complete", "active", status.Active)
			if err := service.WaitForSubmits(shutdownCtx); err != nil {
				slog.Warn("submits did not complete in time", "error", err)
			} else {
				slog.Info("all submits completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	<-stopped
	slog.Info("server stopped")
}

// openBackend builds the guest directory chosen by GUEST_BACKEND. The
// lister is nil for the wedding API, which keeps guests itself.
func openBackend(ctx context.Context, cfg *config.Config) (core.GuestDirectory, store.Lister, func(), error) {
	noop := func() {}

	switch cfg.Backend.Kind {
	case config.BackendAPI:
		client, err := weddingapi.New(cfg.API.BaseURL, cfg.API.Token, cfg.API.Timeout)
		if err != nil {
			return nil, nil, noop, err
		}
		slog.Info("using wedding api backend", "base_url", cfg.API.BaseURL)
		return client, nil, noop, nil

	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, noop, err
		}
		st := postgres.New(pool, slog.Default())
		return st, st, pool.Close, nil

	case config.BackendDemo:
		slog.Warn("using in-memory demo backend; guests are lost on restart")
		st := memory.New()
		return st, st, noop, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown guest backend %q", cfg.Backend.Kind)
	}
}

func openPool(ctx context.Context, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(db.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
