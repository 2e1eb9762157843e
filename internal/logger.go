package internal

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger: JSON in prod, human-readable console
// output otherwise. Every entry carries the service name.
func NewLogger(w io.Writer, env string, level string, service string) zerolog.Logger {
	l := zerolog.InfoLevel
	switch level {
	case "debug":
		l = zerolog.DebugLevel
	case "info":
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	default:
		log.Warn().Str("value", level).Msg("Invalid log level. Using default level: info")
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if env != "prod" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).
		Level(l).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
