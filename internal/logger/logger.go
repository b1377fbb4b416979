// Package logger is the minimal logging surface the client emits
// diagnostics through. The core has exactly a handful of log points (for
// example the warning when the server refuses to resume a session), so
// the interface is small and a nil-safe no-op implementation is provided
// for callers who want silence.
package logger

import (
	"io"
	"log/slog"
)

// Logger is the diagnostic sink the client writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger wraps slog.Logger to implement the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a SlogLogger writing text records at or above
// minLevel to writer.
func NewSlogLogger(minLevel slog.Level, writer io.Writer) *SlogLogger {
	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: minLevel})
	return &SlogLogger{logger: slog.New(handler)}
}

// Wrap adapts an existing slog.Logger.
func Wrap(l *slog.Logger) *SlogLogger { return &SlogLogger{logger: l} }

// Debug logs a debug message.
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs an informational message.
func (l *SlogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs a warning message.
func (l *SlogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs an error message.
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}

// OrNop returns l if non-nil, a Nop otherwise.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}
