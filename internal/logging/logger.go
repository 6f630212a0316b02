// Package logging builds the process-wide slog loggers. main
// constructs one root logger from config and hands each subsystem a
// component-tagged child via WithComponent, so every log line carries
// the subsystem it came from.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a slog.Logger that also owns the log file, when output
// goes to one. Children created by WithComponent share the parent's
// handler and file; only the root logger should be Closed.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New returns a text logger at info level on stdout. Tests and early
// startup (before config is loaded) use it.
func New() *Logger {
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{Logger: slog.New(h)}
}

// NewWithConfig builds the root logger from the logging config
// section. An unwritable file path falls back to stdout; logging
// setup never fails startup.
func NewWithConfig(level, format, filePath string) *Logger {
	out, file := openOutput(filePath)
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler), file: file}
}

// WithComponent returns a child logger tagged with a subsystem name
// ("server", "agent", "scheduler", ...). The child does not own the
// log file; Close on a child is a no-op.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// Close releases the log file when one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutput resolves the log destination. An empty path means
// stdout; the *os.File is non-nil only when a file was opened.
func openOutput(path string) (io.Writer, *os.File) {
	if path == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return os.Stdout, nil
	}
	return f, f
}
