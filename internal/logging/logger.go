// Package logging builds the structured loggers used by the motion tools.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Level aliases for slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config contains logger configuration options.
type Config struct {
	Level   slog.Level
	Output  io.Writer
	Enabled bool
	// Component, when set, is attached to every record as component=<name>.
	Component string
}

// DefaultConfig returns the configuration used by the command line tools.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Output:  os.Stderr,
		Enabled: true,
	}
}

// New creates a logger. A disabled configuration yields a logger that
// discards everything.
func New(cfg Config) *slog.Logger {
	if !cfg.Enabled {
		return Discard()
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	l := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: cfg.Level}))
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return l
}

var discard = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))

// Discard returns a shared logger that drops all records.
func Discard() *slog.Logger { return discard }

// OrDiscard returns l, or the discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discard
	}
	return l
}

var (
	globalMu     sync.RWMutex
	globalLogger *slog.Logger
)

// Global returns the process-wide logger, creating it from DefaultConfig on
// first use.
func Global() *slog.Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(DefaultConfig())
	}
	return globalLogger
}

// SetGlobal replaces the process-wide logger.
func SetGlobal(l *slog.Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Init sets the process-wide logger, and the slog default, from a verbosity
// choice: quiet disables logging, verbose enables debug records.
func Init(w io.Writer, verbose, quiet bool) *slog.Logger {
	cfg := DefaultConfig()
	cfg.Output = w
	cfg.Enabled = !quiet
	if verbose {
		cfg.Level = LevelDebug
	}
	l := New(cfg)
	SetGlobal(l)
	slog.SetDefault(l)
	return l
}
