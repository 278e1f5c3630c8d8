package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Output formats accepted in Config.Format
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config mirrors the LOG_* settings
type Config struct {
	// Level is debug, info, warn or error. Anything else logs at info.
	Level string
	// Format is FormatJSON or FormatText. Empty means JSON.
	Format string
	// Output defaults to os.Stderr
	Output    io.Writer
	AddSource bool
}

// DefaultConfig is used before configuration has been loaded
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatJSON, Output: os.Stderr}
}

// Logger wraps slog with the attribute helpers the chat server logs with
type Logger struct {
	*slog.Logger
}

var fallback atomic.Pointer[Logger]

// New builds a logger from config. The first logger built also becomes the
// default until SetDefault replaces it.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(config.Level), AddSource: config.AddSource}

	var handler slog.Handler
	if strings.EqualFold(config.Format, FormatText) {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	l := &Logger{Logger: slog.New(handler)}
	fallback.CompareAndSwap(nil, l)
	return l
}

// ParseLevel maps a LOG_LEVEL value to a slog level
func ParseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return parsed
}

// SetDefault makes l the logger used outside a request, for this package and
// for log/slog
func SetDefault(l *Logger) {
	fallback.Store(l)
	slog.SetDefault(l.Logger)
}

// Default returns the logger set by SetDefault, building one from
// DefaultConfig if none exists yet
func Default() *Logger {
	if l := fallback.Load(); l != nil {
		return l
	}
	return New(DefaultConfig())
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.With(args...)}
}

// ForComponent tags every entry with the background component writing it
func (l *Logger) ForComponent(name string) *Logger {
	return l.with("component", name)
}

// WithRequestID tags every entry with the request correlation id
func (l *Logger) WithRequestID(requestID string) *Logger {
	if requestID == "" {
		return l
	}
	return l.with("request_id", requestID)
}

// WithParticipant tags every entry with the participant acting in the request
func (l *Logger) WithParticipant(name string) *Logger {
	if name == "" {
		return l
	}
	return l.with("participant", name)
}

// LogError logs err under msg at error level
func (l *Logger) LogError(err error, msg string, args ...any) {
	if err != nil {
		args = append([]any{"error", err.Error()}, args...)
	}
	l.Error(msg, args...)
}

// LogRequest logs a finished request. Server errors log at error level and
// rejected requests at warn.
func (l *Logger) LogRequest(method, path string, status int, latency time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.Log(context.Background(), level, "request completed",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	)
}
