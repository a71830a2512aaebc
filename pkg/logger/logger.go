package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/andresuchdata/replenish/internal/config"
)

// Log is the process logger. It mirrors zerolog's global log.Logger, which
// is what most packages write through.
var Log zerolog.Logger

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	install(newWriter("console", os.Stdout), zerolog.InfoLevel)
}

// Setup applies LOG_LEVEL and LOG_FORMAT. An empty level follows the
// server mode, so "debug" mode logs at debug and "release" at info.
func Setup(cfg config.ServerConfig) {
	level := parseLevel(cfg.LogLevel, cfg.Mode)
	zerolog.SetGlobalLevel(level)
	install(newWriter(cfg.LogFormat, os.Stdout), level)
}

// Component returns a child logger tagged with the emitting subsystem.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func install(w io.Writer, level zerolog.Level) {
	Log = zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
	log.Logger = Log
}

func newWriter(format string, out io.Writer) io.Writer {
	if strings.EqualFold(format, "json") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
}

func parseLevel(level, mode string) zerolog.Level {
	if level == "" {
		level = mode
	}
	switch strings.ToLower(level) {
	case "", "release":
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
