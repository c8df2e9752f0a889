// Package logger provides structured logging utilities for the application.
// It wraps log/slog with JSON formatting and supports context-based logging
// with request IDs and module names.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// contextKey is the type for context keys consumed by WithContext.
type contextKey string

// Context keys recognized by WithContext.
const (
	RequestIDKey contextKey = "request_id"
	ModuleKey    contextKey = "module"
)

// Level is a log level rendered lowercase ("warning", not "WARN").
type Level slog.Level

func (l Level) String() string {
	switch slog.Level(l) {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warning"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// swapWriter lets SetOutput redirect an already-created logger
// (and everything derived from it).
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// Logger is the application logger
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	out   *swapWriter
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	lv := new(slog.LevelVar)
	if parsed, err := parseLevel(level); err == nil {
		lv.Set(parsed)
	} else {
		lv.Set(slog.LevelInfo)
	}

	out := &swapWriter{w: w}
	opts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.LevelKey:
				a.Key = "level"
				name := a.Value.String()
				if name == "WARN" {
					name = "warning"
				} else {
					name = strings.ToLower(name)
				}
				a.Value = slog.StringValue(name)
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	}

	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(out, opts)),
		level:  lv,
		out:    out,
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", level)
	}
}

// GetLevel returns the current minimum level.
func (l *Logger) GetLevel() Level {
	return Level(l.level.Level())
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(parsed)
	return nil
}

// SetOutput redirects log output. Derived loggers are affected too.
func (l *Logger) SetOutput(w io.Writer) {
	l.out.set(w)
}

func (l *Logger) derive(s *slog.Logger) *Logger {
	return &Logger{Logger: s, level: l.level, out: l.out}
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive(l.With("module", module))
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive(l.With("request_id", requestID))
}

// WithContext creates a new entry carrying the request ID and module
// stored in the context, when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	out := l
	if v, ok := ctx.Value(RequestIDKey).(string); ok && v != "" {
		out = out.WithRequestID(v)
	}
	if v, ok := ctx.Value(ModuleKey).(string); ok && v != "" {
		out = out.WithModule(v)
	}
	return out
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.derive(l.With("error", err.Error()))
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(l.With(key, value))
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(l.With(args...))
}

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}
