// Package main is the entry point for the back office API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/internal/domain/auth"
	"backoffice/internal/infrastructure/cache"
	v1 "backoffice/internal/infrastructure/http/v1"
	"backoffice/internal/infrastructure/http/v1/handlers"
	"backoffice/internal/infrastructure/jobs"
	"backoffice/internal/infrastructure/metrics"
	"backoffice/internal/infrastructure/storage/postgres"
	"backoffice/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.ConfigFromEnv(cfg.LogLevel, cfg.AppEnv))
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting backoffice server", "env", cfg.AppEnv)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnIdleTime = cfg.DBMaxIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.StatementTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	// --- Queue ---
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	queue := asynq.NewClient(redisOpt)
	defer queue.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	backends, err := app.PostgresBackends(txm, jobs.NewNotifier(queue, inspector))
	if err != nil {
		log.Fatalw("failed to build backends", "error", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(nil)
		backends.Observer = m
	}

	probes := []handlers.Probe{
		handlers.ProbeFunc{ProbeName: "database", Fn: pool.Ping},
	}

	// --- Authorization cache ---
	if cfg.AuthzCacheTTL > 0 {
		rdb, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
		backends.Directory = cache.NewDirectory(backends.Directory, rdb, cfg.AuthzCacheTTL)
		probes = append(probes, cache.NewProbe(rdb))
	}

	services := app.New(backends, app.Options{
		ReminderInterval: cfg.ReminderInterval,
		ReminderLimit:    cfg.ReminderLimit,
	})

	jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtCfg.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtCfg)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Services:           services,
		Logger:             log,
		JWTValidator:       jwtService,
		Metrics:            m,
		Probes:             probes,
		Production:         cfg.IsProduction(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
