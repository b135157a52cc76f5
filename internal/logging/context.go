package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxRequestIDLen bounds client-supplied X-Request-ID values.
const maxRequestIDLen = 128

type requestCtxKey struct{}
type clientIPCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}
	if ip := ClientIPFromContext(ctx); ip != "" {
		fields = append(fields, zap.String("client.ip", ip))
	}
	return fields
}

// WithRequestID adds a request ID to context. Empty IDs are ignored and
// oversized ones are truncated.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	if len(requestID) > maxRequestIDLen {
		requestID = requestID[:maxRequestIDLen]
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithClientIP adds the caller's address to context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPCtxKey{}, ip)
}

// ClientIPFromContext extracts the caller's address from context.
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPCtxKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if none is stored.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
