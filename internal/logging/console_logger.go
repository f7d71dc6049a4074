package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// ConsoleLogger writes leveled log lines to stderr through a tint slog handler.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	verbose bool
	slog    *slog.Logger
}

// NewConsoleLogger creates a new ConsoleLogger.
// If verbose is false, Verbose() calls are no-ops.
// Colors are used only when stderr is a terminal.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	noColor := !term.IsTerminal(int(os.Stderr.Fd()))
	return newConsoleLogger(os.Stderr, verbose, noColor, true)
}

func newConsoleLogger(w io.Writer, verbose, noColor, withTime bool) *ConsoleLogger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				if !withTime {
					return slog.Attr{}
				}
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	})
	return &ConsoleLogger{verbose: verbose, slog: slog.New(handler)}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.log(slog.LevelDebug, format, args...)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

func (l *ConsoleLogger) log(level slog.Level, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.slog.Log(context.Background(), level, msg)
}
