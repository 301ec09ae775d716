// Package log provides the structured logging interface used across scitree.
//
// The interface is slog-compatible so that callers can plug in any backend; the
// default backend is zerolog (see NewZerologLogger). Models obtain a component
// logger through GetLoggerWithName and attach ML-specific attributes from
// attributes.go:
//
//	logger := log.GetLoggerWithName("ensemble.forest").With(
//	    log.ModelNameKey, "RandomForestClassifier",
//	)
//	logger.Info("Training completed",
//	    log.OperationKey, log.OperationFit,
//	    log.TreesKey, 100,
//	    log.DurationMsKey, 42,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. Error treats a leading
// error value specially: it is recorded under "error" together with its stack
// trace when one is available.
type Logger interface {
	// Debug logs detailed diagnostic information, e.g. per-tree progress.
	Debug(msg string, fields ...any)

	// Info logs general operational information, e.g. fit completion.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the operation, e.g. OOB warnings.
	Warn(msg string, fields ...any)

	// Error logs error conditions. If the first field is an error it is
	// handled specially.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
// The package-level functions delegate to the provider installed with
// SetProvider, which lets tests swap in a TestLoggerProvider.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
