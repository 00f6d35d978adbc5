// Package logging wraps zerolog the same way cuemby-warren's pkg/log does:
// a package-level Logger, an Init that picks console vs JSON output, and
// With* helpers that key a child logger by a domain identifier.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-wide logger instance, configured by Init.
var Logger zerolog.Logger

// Level mirrors the subset of zerolog levels the engine cares about.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

func init() {
	Init(Config{Level: InfoLevel})
}

// Init (re)configures the package logger. Safe to call more than once; the
// engine has no config-file loader (out of scope), so callers construct a
// Config directly.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// WithComponent scopes a logger to one engine component (store, pipeline, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithMemoryID scopes a logger to one memory id, for per-record tracing.
func WithMemoryID(component string, id string) zerolog.Logger {
	return Logger.With().Str("component", component).Str("memory_id", id).Logger()
}

// WithView scopes a logger to one of the thirteen views, for index errors.
func WithView(component string, view string) zerolog.Logger {
	return Logger.With().Str("component", component).Str("view", view).Logger()
}
