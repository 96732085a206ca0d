package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/camhien7804/Nha-Khoa-OU/internal/api"
	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/catalog"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	"github.com/camhien7804/Nha-Khoa-OU/internal/db"
	"github.com/camhien7804/Nha-Khoa-OU/internal/dentist"
	"github.com/camhien7804/Nha-Khoa-OU/internal/invoice"
	"github.com/camhien7804/Nha-Khoa-OU/internal/logging"
	"github.com/camhien7804/Nha-Khoa-OU/internal/observability/metrics"
	"github.com/camhien7804/Nha-Khoa-OU/internal/payment"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env).With().Str("service", "api-server").Logger()
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	taskQueue := redisclient.NewRedisTaskQueue(rdb, "")
	svc := appointment.NewService(appointment.Deps{
		Repo:                       appointment.NewPgRepository(pgPool),
		Catalog:                    catalog.NewPgRepository(pgPool),
		Dentists:                   dentist.NewPgRepository(pgPool),
		Locker:                     redisclient.NewRedisDentistLocker(rdb, cfg.LockTTL),
		Queue:                      taskQueue,
		Metrics:                    bookingMetrics,
		Logger:                     logger,
		StrictDentistConflictCheck: cfg.StrictDentistConflictCheck,
	})

	gateway := payment.NewClient(cfg.Wallet, logger)
	reconciler := payment.NewReconciler(appointment.NewPgRepository(pgPool), bookingMetrics, logger)
	renderer := invoice.NewRenderer(cfg.Invoice)

	handler := api.NewRouter(api.RouterConfig{
		Service:    svc,
		Gateway:    gateway,
		Reconciler: reconciler,
		Invoices:   renderer,
		PgPool:     pgPool,
		Redis:      rdb,
		Queue:      taskQueue,
		Registry:   registry,
		Logger:     logger,
		JWTSecret:  cfg.JWTSecret,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
	}

	logger.Info().Msg("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}
}
