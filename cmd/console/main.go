// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command console is the entry point for the User Center console server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the storage backend (memory, Redis, or PostgreSQL with migrations).
//  4. Load the route table.
//  5. Wire the authentication client, or the in-process mock in dev mode.
//  6. Start the tab sweeper and HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/ucenter/internal/api"
	"github.com/taibuivan/ucenter/internal/authclient"
	"github.com/taibuivan/ucenter/internal/devauth"
	"github.com/taibuivan/ucenter/internal/gate"
	"github.com/taibuivan/ucenter/internal/platform/config"
	"github.com/taibuivan/ucenter/internal/platform/constants"
	"github.com/taibuivan/ucenter/internal/platform/migration"
	pgstore "github.com/taibuivan/ucenter/internal/platform/postgres"
	redisstore "github.com/taibuivan/ucenter/internal/platform/redis"
	"github.com/taibuivan/ucenter/internal/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(log)

	log.Info("console_initializing", slog.String(constants.FieldVersion, constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String(constants.FieldApp, constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage", cfg.StorageBackend),
		slog.Bool("dev_auth", cfg.DevAuth),
	)

	// Root context for background workers, cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Storage Backend ────────────────────────────────────────────────
	var (
		storage session.Storage
		checks  []api.HealthCheck
	)

	switch cfg.StorageBackend {
	case config.StorageRedis:
		rdb, err := redisstore.NewClient(startupCtx, redisstore.Options{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize}, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()

		storage = session.NewRedisStorage(rdb, cfg.SessionTTL)
		checks = append(checks, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}})

	case config.StoragePostgres:
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, pgstore.Options{DSN: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns}, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		postgresStorage := session.NewPostgresStorage(pool, cfg.SessionTTL)
		storage = postgresStorage
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		}})

		go purgeExpired(rootCtx, postgresStorage, log)

	default:
		storage = session.NewMemoryStorage()
		log.Warn("memory_storage_in_use", slog.String("hint", "sessions are lost on restart"))
	}

	// ── 4. Route Table ────────────────────────────────────────────────────
	var table *gate.Table
	if cfg.RoutesFile != "" {
		table, err = gate.LoadRoutesFile(cfg.RoutesFile)
	} else {
		table, err = gate.DefaultRoutes()
	}
	must(log, err, "load route table")

	// ── 5. Authentication ─────────────────────────────────────────────────
	var devAuthHandler *devauth.Handler
	if cfg.DevAuth {
		mock, err := devauth.New(devauth.Config{
			Secret:   cfg.SessionSecret,
			Fixtures: devauth.DefaultFixtures(),
			Logger:   log.With(slog.String("component", "devauth")),
		})
		must(log, err, "initialize mock authentication")

		go mock.Run(rootCtx, constants.SessionSweepInterval)
		devAuthHandler = devauth.NewHandler(mock)
	}

	authClient := authclient.New(authclient.Config{
		BaseURL: cfg.AuthAPIURL,
		Timeout: cfg.AuthAPITimeout,
		Retries: 2,
		Logger:  log.With(slog.String("component", "authclient")),
	})

	// ── 6. Sessions & Navigation ──────────────────────────────────────────
	manager := session.NewManager(authClient, session.ManagerConfig{
		Storage:    storage,
		SystemCode: cfg.DefaultSystemCode,
		Logger:     log,
	})
	go manager.Run(rootCtx, constants.SessionSweepInterval)

	registry := gate.NewRegistry(manager, table, log)

	// ── 7. Health handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(checks, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Sessions:   manager,
		Routers:    registry,
		Session:    session.NewHandler(),
		Navigation: gate.NewHandler(registry),
		DevAuth:    devAuthHandler,
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		rootCancel()
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// purgeExpired deletes expired storage rows on every sweep interval.
func purgeExpired(ctx context.Context, storage *session.PostgresStorage, log *slog.Logger) {
	ticker := time.NewTicker(constants.SessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := storage.PurgeExpired(ctx)
			if err != nil {
				log.Warn("storage_purge_failed", slog.Any("error", err))
				continue
			}
			if purged > 0 {
				log.Info("storage_purged", slog.Int64("rows", purged))
			}
		case <-ctx.Done():
			return
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors must be returned
// and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
