package observability

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"
)

// LoggerConfig configures the zap-backed logger.
type LoggerConfig struct {
	// Format is "json" or "console". Empty selects json under Lambda and
	// console otherwise.
	Format string
	Level  string
}

type zapLogger struct {
	log      *ubzap.Logger
	notifier ErrorNotifier

	fields    map[string]any
	requestID string
}

var _ StructuredLogger = (*zapLogger)(nil)

// ZapOption customizes NewZapLogger.
type ZapOption func(*zapLogger)

// WithErrorNotifier forwards error-level entries to the given notifier.
func WithErrorNotifier(notifier ErrorNotifier) ZapOption {
	return func(l *zapLogger) {
		l.notifier = notifier
	}
}

// NewZapLogger builds a StructuredLogger on top of zap.
func NewZapLogger(config LoggerConfig, options ...ZapOption) (StructuredLogger, error) {
	cfg := normalizeLoggerConfig(config)

	level, err := parseZapLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, errors.New("observability: unsupported log format")
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)

	logger := &zapLogger{
		log:    ubzap.New(core),
		fields: map[string]any{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(logger)
	}
	return logger, nil
}

func normalizeLoggerConfig(config LoggerConfig) LoggerConfig {
	cfg := config
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		if IsLambda() {
			cfg.Format = "json"
		} else {
			cfg.Format = "console"
		}
	}
	if strings.TrimSpace(cfg.Level) == "" {
		cfg.Level = levelInfo
	}
	return cfg
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo, "":
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, errors.New("observability: unsupported log level")
	}
}

// IsLambda reports whether the process runs inside an AWS Lambda sandbox.
func IsLambda() bool {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return true
	}
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		return true
	}
	if os.Getenv("AWS_EXECUTION_ENV") != "" {
		return true
	}
	return false
}

func (l *zapLogger) Debug(message string, fields ...map[string]any) {
	l.logEntry(levelDebug, message, fields...)
}

func (l *zapLogger) Info(message string, fields ...map[string]any) {
	l.logEntry(levelInfo, message, fields...)
}

func (l *zapLogger) Warn(message string, fields ...map[string]any) {
	l.logEntry(levelWarn, message, fields...)
}

func (l *zapLogger) Error(message string, fields ...map[string]any) {
	l.logEntry(levelError, message, fields...)
}

func (l *zapLogger) WithFields(fields map[string]any) StructuredLogger {
	next := l.clone()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.log = next.log.With(anyFields(fields)...)
	return next
}

func (l *zapLogger) WithRequestID(requestID string) StructuredLogger {
	next := l.clone()
	next.requestID = requestID
	next.log = next.log.With(ubzap.String("request_id", SanitizeLogString(requestID)))
	return next
}

func (l *zapLogger) Flush(_ context.Context) error {
	if l == nil || l.log == nil {
		return nil
	}
	return l.log.Sync()
}

func (l *zapLogger) clone() *zapLogger {
	nextFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		nextFields[k] = v
	}
	return &zapLogger{
		log:       l.log,
		notifier:  l.notifier,
		fields:    nextFields,
		requestID: l.requestID,
	}
}

func (l *zapLogger) logEntry(level string, message string, fields ...map[string]any) {
	if l == nil || l.log == nil {
		return
	}

	message = SanitizeLogString(message)
	callFields := mergeFieldSets(fields...)
	l.write(level, message, anyFields(callFields))

	if level == levelError && l.notifier != nil {
		entry := LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
			Fields:    mergeFields(l.fields, callFields),
			RequestID: l.requestID,
		}
		// Alerting is best-effort; a broken notifier must not fail the
		// pipeline on top of the error being reported.
		_ = l.notifier.Notify(context.Background(), entry)
	}
}

func (l *zapLogger) write(level string, message string, fields []ubzap.Field) {
	switch level {
	case levelDebug:
		l.log.Debug(message, fields...)
	case levelWarn:
		l.log.Warn(message, fields...)
	case levelError:
		l.log.Error(message, fields...)
	default:
		l.log.Info(message, fields...)
	}
}

func anyFields(fields map[string]any) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]ubzap.Field, 0, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = SanitizeLogString(s)
		}
		out = append(out, ubzap.Any(k, v))
	}
	return out
}

func mergeFieldSets(fieldSets ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, set := range fieldSets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

func mergeFields(base map[string]any, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// SanitizeLogString removes control characters that could enable log forging.
func SanitizeLogString(value string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, value)
}
