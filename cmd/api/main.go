// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the collection HTTP API server.
//
// # Startup Sequence
//
//  1. Load configuration (.env first, then the process environment).
//  2. Initialize structured logger and crash reporting.
//  3. Open the account and todo stores (memory, or PostgreSQL with migrations).
//  4. Connect to Redis for the security event stream (optional).
//  5. Build the token service, password hasher, and admission limiter.
//  6. Start background compaction and seed the bootstrap account.
//  7. Start HTTP server with graceful shutdown.
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

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mycollection/internal/api"
	"github.com/taibuivan/mycollection/internal/platform/audit"
	"github.com/taibuivan/mycollection/internal/platform/config"
	"github.com/taibuivan/mycollection/internal/platform/constants"
	"github.com/taibuivan/mycollection/internal/platform/middleware"
	"github.com/taibuivan/mycollection/internal/platform/migration"
	"github.com/taibuivan/mycollection/internal/platform/observability"
	pgstore "github.com/taibuivan/mycollection/internal/platform/postgres"
	"github.com/taibuivan/mycollection/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/mycollection/internal/platform/redis"
	"github.com/taibuivan/mycollection/internal/platform/sec"
	"github.com/taibuivan/mycollection/internal/todo"
	"github.com/taibuivan/mycollection/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	must(log, config.LoadDotEnv(), "load .env")

	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store", cfg.StoreDriver),
	)

	// ── 3. Crash Reporting ────────────────────────────────────────────────
	sentryEnabled, err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, constants.AppVersion)
	must(log, err, "initialize sentry")
	if sentryEnabled {
		defer observability.FlushSentry()
		log.Info("crash_reporting_enabled")
	}

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	var healthDeps api.HealthDependencies

	// ── 4. Stores ─────────────────────────────────────────────────────────
	var (
		userRepository auth.UserRepository = auth.NewMemoryUserRepository()
		todoRepository todo.Repository     = todo.NewMemoryRepository()
	)

	if cfg.StoreDriver == config.StorePostgres {
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing postgres pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		userRepository = auth.NewPostgresUserRepository(pool)
		todoRepository = todo.NewPostgresRepository(pool)
		healthDeps.CheckDatabase = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
	}

	// ── 5. Security Events ────────────────────────────────────────────────
	sinks := []audit.Sink{audit.NewLogSink(log)}

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer closeRedis(log, rdb)

		sinks = append(sinks, audit.NewRedisStreamSink(rdb, cfg.AuditStream, log))
		healthDeps.CheckCache = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
	}

	securityEvents := audit.Multi(sinks...)

	// ── 6. Security Primitives ────────────────────────────────────────────
	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Issuer:         constants.AuthIssuer,
		AccessTTL:      cfg.AccessTokenTTL,
		RefreshTTL:     cfg.RefreshTokenTTL,
		Secret:         cfg.JWTSecret,
		PrivateKeyPath: cfg.JWTPrivKeyPath,
		PublicKeyPath:  cfg.JWTPubKeyPath,
	}, sec.NewRevocationSet())
	must(log, err, "initialize token service")

	hasher := sec.NewHasher(cfg.PasswordMinLength, cfg.BcryptCost)
	limiter := ratelimit.New()
	admission := middleware.Admission{Limiter: limiter, Window: cfg.RateLimitWindow(), Audit: securityEvents}

	// ── 7. Background Workers ─────────────────────────────────────────────
	// Cancelled on shutdown so the tickers stop before the stores close.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	guard := middleware.NewFloodGuard(constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst)
	go guard.Run(workerCtx)
	go auth.NewJanitor(tokens, limiter, cfg.SweepInterval, log).Run(workerCtx)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	authService := auth.NewService(userRepository, hasher, tokens, auth.Options{
		Lockout: auth.LockoutPolicy{
			Threshold: cfg.LockoutThreshold,
			Duration:  cfg.LockoutDuration,
		},
		BootstrapUsername: cfg.BootstrapUsername,
		Audit:             securityEvents,
	})

	seeded, err := authService.SeedBootstrap(startupCtx, cfg.BootstrapUsername, cfg.BootstrapPassword)
	must(log, err, "seed bootstrap account")
	if seeded {
		log.Info("bootstrap_account_created", slog.String("username", cfg.BootstrapUsername))
	}

	authHandler := auth.NewHandler(authService, admission, auth.Limits{
		Register: cfg.RateLimitRegister,
		Login:    cfg.RateLimitLogin,
		Refresh:  cfg.RateLimitRefresh,
		Read:     cfg.RateLimitRead,
		Write:    cfg.RateLimitWrite,
	})

	todoHandler := todo.NewHandler(todo.NewService(todoRepository, log), admission, todo.Limits{
		Read:  cfg.RateLimitRead,
		Write: cfg.RateLimitWrite,
	})

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(healthDeps, log)

	server := api.NewServer(cfg, log, guard, authService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Todo:      todoHandler,
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
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
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	stopWorkers()

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		return
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

func closeRedis(log *slog.Logger, client *redis.Client) {
	log.Info("closing redis client")
	if err := client.Close(); err != nil {
		log.Error("redis_close_error", slog.Any("error", err))
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly (never panic).
func must(log *slog.Logger, err error, step string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("step", step),
			slog.Any("error", err),
		)
		observability.FlushSentry()
		os.Exit(1)
	}
}
