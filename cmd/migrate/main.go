package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/camhien7804/Nha-Khoa-OU/internal/config"
	"github.com/camhien7804/Nha-Khoa-OU/internal/logging"
	"github.com/camhien7804/Nha-Khoa-OU/migrations"
)

func main() {
	var down bool
	flag.BoolVar(&down, "down", false, "roll back all migrations instead of applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env).With().Str("service", "migrate").Logger()

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Fatal().Err(err).Msg("load embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("init migrator")
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info().Msg("schema already up to date")
		return
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	version, dirty, _ := m.Version()
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}
