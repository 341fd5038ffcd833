package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/qbench-io/shftk/pkg/log"
)

// NewLogger builds the toolkit logger from the configured level and format.
// Unknown levels fall back to info, unknown formats to console.
func NewLogger(level, format string) log.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch format {
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger = logger.Level(lvl).With().Timestamp().Logger()
	return log.NewZerologAdapter(logger)
}
