// Package observability provides structured logging for the pipeline.
//
// Internal errors are logged here with full detail; callers of the public
// API only ever see the generic messages produced at the HTTP boundary.
package observability

import (
	"context"
	"time"
)

// LogEntry is a structured log entry handed to error notifiers.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// ErrorNotifier forwards error-level entries to an external alerting channel.
type ErrorNotifier interface {
	Notify(ctx context.Context, entry LogEntry) error
}

// StructuredLogger is the logging surface used throughout the pipeline
// (message + map fields).
type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithFields(fields map[string]any) StructuredLogger
	WithRequestID(requestID string) StructuredLogger

	Flush(ctx context.Context) error
}

type noopLogger struct{}

// NewNoOpLogger returns a logger that discards everything.
func NewNoOpLogger() StructuredLogger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...map[string]any) {}
func (noopLogger) Info(string, ...map[string]any)  {}
func (noopLogger) Warn(string, ...map[string]any)  {}
func (noopLogger) Error(string, ...map[string]any) {}

func (n noopLogger) WithFields(map[string]any) StructuredLogger { return n }
func (n noopLogger) WithRequestID(string) StructuredLogger      { return n }
func (noopLogger) Flush(context.Context) error                  { return nil }
