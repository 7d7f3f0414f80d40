// Package logging configures the zerolog loggers shared by encounter
// processes.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Settings selects the log level and output format.
type Settings struct {
	Level  string `env:"STRYDER_ENCOUNTER_LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"STRYDER_LOG_PRETTY" envDefault:"false"`
}

// New returns a logger writing to w and tagged with the service name.
// Unknown levels fall back to info.
func New(w io.Writer, service string, settings Settings) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if settings.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(settings.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if service = strings.TrimSpace(service); service != "" {
		logger = logger.With().Str("service", service).Logger()
	}
	return logger
}

// Nop returns a disabled logger for tests and optional collaborators.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
