package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name. Unknown names fall back
// to info and report an error.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger defines the minimal logging interface.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// RelayLogger wraps slog.Logger adding scoped attributes (component,
// conversation, agent) and domain helpers for tools, models and routing.
// With* methods return modified copies.
type RelayLogger struct {
	logger         *slog.Logger
	level          LogLevel
	attrs          map[string]any
	component      string
	conversationID string
	agent          string
}

// LoggerConfig configures construction of a RelayLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration
// writing to stderr, keeping stdout free for the chat transcript.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// NewLogger builds a RelayLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *RelayLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	return &RelayLogger{logger: slog.New(handler), level: cfg.Level, attrs: map[string]any{}, component: cfg.Component}
}

// NewSlogLogger creates a new RelayLogger with the specified level and format.
func NewSlogLogger(level LogLevel, format string, addSource bool) *RelayLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level

	if format != "" {
		cfg.Format = format
	}

	cfg.AddSource = addSource

	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *RelayLogger) clone() *RelayLogger {
	nl := *l
	nl.attrs = make(map[string]any, len(l.attrs))

	for k, v := range l.attrs {
		nl.attrs[k] = v
	}

	return &nl
}

// With adds a key/value attribute attached to every log entry.
func (l *RelayLogger) With(key string, value any) *RelayLogger {
	nl := l.clone()
	nl.attrs[key] = value

	return nl
}

// WithComponent sets the logical component (handler, agent, tool, ...).
func (l *RelayLogger) WithComponent(c string) *RelayLogger {
	nl := l.clone()
	nl.component = c

	return nl
}

// WithConversation attaches conversation and agent identifiers.
func (l *RelayLogger) WithConversation(conversationID, agent string) *RelayLogger {
	nl := l.clone()
	nl.conversationID = conversationID
	nl.agent = agent

	return nl
}

func (l *RelayLogger) buildAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2+3)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}

	if l.conversationID != "" {
		attrs = append(attrs, slog.String("conversation_id", l.conversationID))
	}

	if l.agent != "" {
		attrs = append(attrs, slog.String("agent", l.agent))
	}

	for k, v := range l.attrs {
		attrs = append(attrs, slog.Any(k, v))
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}

		if i+1 >= len(args) {
			attrs = append(attrs, slog.Any("!BADKEY", key))
			break
		}

		attrs = append(attrs, slog.Any(key, args[i+1]))
	}

	return attrs
}

func (l *RelayLogger) log(level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}

	l.logger.LogAttrs(context.Background(), level, msg, l.buildAttrs(args)...)
}

// Debug logs at debug level.
func (l *RelayLogger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *RelayLogger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *RelayLogger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *RelayLogger) Error(msg string, args ...any) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogToolCall records execution details for a tool invocation.
func (l *RelayLogger) LogToolCall(tool string, dur time.Duration, attempts int, err error) {
	args := []any{"tool", tool, "duration", dur, "attempts", attempts, "success", err == nil}
	if err != nil {
		l.Error("tool.call.failed", append(args, "error", err.Error())...)
		return
	}

	l.Info("tool.call.completed", args...)
}

// LogLLMCall records model call latency, token usage and success.
func (l *RelayLogger) LogLLMCall(model string, tokens int, dur time.Duration, err error) {
	args := []any{"model", model, "token_count", tokens, "duration", dur, "success", err == nil}
	if err != nil {
		l.Error("llm.call.failed", append(args, "error", err.Error())...)
		return
	}

	l.Info("llm.call.completed", args...)
}

// LogRoute records one routing hop of the conversation handler.
func (l *RelayLogger) LogRoute(from, to string, turn int, final bool) {
	l.Info("handler.route", "from", from, "to", to, "turn", turn, "final", final)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// toolCallLogger is implemented by loggers offering LogToolCall.
type toolCallLogger interface {
	LogToolCall(tool string, dur time.Duration, attempts int, err error)
}

// llmCallLogger is implemented by loggers offering LogLLMCall.
type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, err error)
}

// ToolCall logs a tool invocation using the richest method the logger offers.
func ToolCall(l Logger, tool string, dur time.Duration, attempts int, err error) {
	if tl, ok := l.(toolCallLogger); ok {
		tl.LogToolCall(tool, dur, attempts, err)
		return
	}

	if err != nil {
		l.Error("tool.call.failed", "tool", tool, "duration_ms", dur.Milliseconds(), "attempts", attempts, "error", err.Error())
		return
	}

	l.Info("tool.call.completed", "tool", tool, "duration_ms", dur.Milliseconds(), "attempts", attempts)
}

// LLMCall logs a model invocation using the richest method the logger offers.
func LLMCall(l Logger, model string, tokens int, dur time.Duration, err error) {
	if ll, ok := l.(llmCallLogger); ok {
		ll.LogLLMCall(model, tokens, dur, err)
		return
	}

	if err != nil {
		l.Error("llm.call.failed", "model", model, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}

	l.Info("llm.call.completed", "model", model, "token_count", tokens, "duration_ms", dur.Milliseconds())
}

// routeLogger is implemented by loggers offering LogRoute.
type routeLogger interface {
	LogRoute(from, to string, turn int, final bool)
}

// Route logs a routing hop using the richest method the logger offers.
func Route(l Logger, from, to string, turn int, final bool) {
	if rl, ok := l.(routeLogger); ok {
		rl.LogRoute(from, to, turn, final)
		return
	}

	l.Info("handler.route", "from", from, "to", to, "turn", turn, "final", final)
}

// Scoped attaches conversation and agent identifiers when the logger
// supports scoping, and returns l unchanged otherwise.
func Scoped(l Logger, conversationID, agent string) Logger {
	if rl, ok := l.(*RelayLogger); ok {
		return rl.WithConversation(conversationID, agent)
	}

	return l
}
