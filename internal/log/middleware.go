package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	return FromContextOr(ctx, &Logger{Logger: slog.Default(), component: "unknown"})
}

// StructuredLogger writes the recurring log events of the service.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a finished request at a level derived from its status.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithClientIP(clientIP)

	FromContextOr(ctx, sl.logger).Log(ctxOrBackground(ctx), level, "HTTP request completed", fields.ToSlice()...)
}

// LogDatasetLoaded records a dataset swap.
func (sl *StructuredLogger) LogDatasetLoaded(ctx context.Context, op, version, source string, rawRows, records, skipped int) {
	fields := NewFields().
		WithDataset(version, source, rawRows, records, skipped).
		WithOperation(op)
	FromContextOr(ctx, sl.logger).InfoContext(ctxOrBackground(ctx), "Dataset loaded", fields.ToSlice()...)
}

// LogError logs err with its operation and any extra fields.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)
	FromContextOr(ctx, sl.logger).ErrorContext(ctxOrBackground(ctx), msg, fields.ToSlice()...)
}

// FromContextOr returns the request logger when ctx has one, else fallback.
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
			return logger
		}
	}
	return fallback
}
