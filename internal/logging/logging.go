package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the root logger. JSON to stdout in prod, console writer in dev.
func New(level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
	if env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(lvl).With().Timestamp().Logger()
	}

	return logger
}
