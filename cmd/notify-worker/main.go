package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camhien7804/Nha-Khoa-OU/internal/appointment"
	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	"github.com/camhien7804/Nha-Khoa-OU/internal/db"
	"github.com/camhien7804/Nha-Khoa-OU/internal/invoice"
	"github.com/camhien7804/Nha-Khoa-OU/internal/logging"
	"github.com/camhien7804/Nha-Khoa-OU/internal/notify"
	redisclient "github.com/camhien7804/Nha-Khoa-OU/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env).With().Str("service", "notify-worker").Logger()
	logger.Info().Str("env", cfg.Env).Msg("notify-worker starting up")

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

	dispatcher := notify.NewDispatcher(
		redisclient.NewRedisTaskQueue(rdb, ""),
		appointment.NewPgRepository(pgPool),
		invoice.NewRenderer(cfg.Invoice),
		notify.NewMailer(cfg.Mail, logger),
		nil,
		logger,
		cfg.Worker,
		cfg.Invoice.ClinicName,
	)

	if err := dispatcher.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("dispatcher stopped")
	}

	logger.Info().Msg("notify-worker shut down")
}
