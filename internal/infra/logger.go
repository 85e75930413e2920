package infra

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. Development gets a human console
// writer at debug level; everything else emits JSON at info.
func NewLogger(appEnv string) zerolog.Logger {
	var logger zerolog.Logger
	if appEnv == "development" {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(out).Level(zerolog.DebugLevel)
	} else {
		logger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	}
	return logger.With().
		Timestamp().
		Str("service", "mediagen-api").
		Logger()
}

// Logger aliases zerolog.Logger so packages outside infra can accept a logger
// without importing the third-party module directly.
type Logger = zerolog.Logger
