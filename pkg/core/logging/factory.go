// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating component loggers
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

var (
	// Process-wide defaults applied by New
	defaultsMu sync.RWMutex
	defaults   = DefaultLoggerConfig("")
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Component name shown as the log prefix
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "text" (default), "json" or "logfmt"
	Format string

	// Output writer (default: stderr)
	Output io.Writer

	// Additional outputs besides Output
	AdditionalOutputs []io.Writer

	// ReportCaller adds file:line to each entry
	ReportCaller bool
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "text",
	}
}

// Configure sets the process-wide defaults used by New.
// Call it once from main before components create their loggers.
func Configure(cfg LoggerConfig) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults = cfg
}

// NewLogger creates a backend logger from a configuration
func NewLogger(cfg LoggerConfig) *charmlog.Logger {
	var output io.Writer = os.Stderr
	if cfg.Output != nil {
		output = cfg.Output
	}
	if len(cfg.AdditionalOutputs) > 0 {
		writers := append([]io.Writer{output}, cfg.AdditionalOutputs...)
		output = io.MultiWriter(writers...)
	}

	logger := charmlog.NewWithOptions(output, charmlog.Options{
		Prefix:          cfg.ServiceName,
		Level:           ParseLevel(cfg.Level).charm(),
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		ReportCaller:    cfg.ReportCaller,
		Formatter:       parseFormat(cfg.Format),
	})

	return logger
}

func parseFormat(format string) charmlog.Formatter {
	switch format {
	case "json":
		return charmlog.JSONFormatter
	case "logfmt":
		return charmlog.LogfmtFormatter
	default:
		return charmlog.TextFormatter
	}
}

// Logger is the key/value logger handed to every component
type Logger struct {
	*charmlog.Logger
	name string
}

// New creates a component logger using the process-wide defaults
func New(name string) *Logger {
	defaultsMu.RLock()
	cfg := defaults
	defaultsMu.RUnlock()

	cfg.ServiceName = name
	return &Logger{
		Logger: NewLogger(cfg),
		name:   name,
	}
}

// NewWithConfig creates a component logger from an explicit configuration
func NewWithConfig(cfg LoggerConfig) *Logger {
	return &Logger{
		Logger: NewLogger(cfg),
		name:   cfg.ServiceName,
	}
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a new logger with the specified level
func (l *Logger) WithLevel(level Level) *Logger {
	child := l.Logger.With()
	child.SetLevel(level.charm())
	return &Logger{
		Logger: child,
		name:   l.name,
	}
}

// With returns a logger that adds the given key/value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		Logger: l.Logger.With(keysAndValues...),
		name:   l.name,
	}
}

// Named returns a sub-logger with a dotted prefix, e.g. "pipeline.stt"
func (l *Logger) Named(sub string) *Logger {
	name := sub
	if l.name != "" {
		name = l.name + "." + sub
	}
	child := l.Logger.WithPrefix(name)
	return &Logger{
		Logger: child,
		name:   name,
	}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug(msg, sanitize(keysAndValues)...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Info(msg, sanitize(keysAndValues)...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.Logger.Warn(msg, sanitize(keysAndValues)...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.Logger.Error(msg, sanitize(keysAndValues)...)
}

// sanitize drops a trailing key without value and pairs with non-string keys
func sanitize(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return nil
	}

	out := make([]interface{}, 0, len(keysAndValues))
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, keysAndValues[i+1])
	}
	return out
}
