// Package log wraps log/slog with component-tagged loggers shared by the
// server, worker and maintenance binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger carries a slog.Logger bound to a component name.
type Logger struct {
	*slog.Logger
	component string
}

// New creates a root logger writing text to stdout at the given level.
func New(level slog.Level, component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With(FieldComponent, component),
		component: component,
	}
}

// ParseLevel maps a LOG_LEVEL string onto a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a child logger re-tagged for another component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(FieldComponent, component),
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs l as the process-wide slog default so package-level
// slog calls share the same handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
