package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID      contextKey = "trace_id"
	keyRequestID    contextKey = "request_id"
	keyGenerationID contextKey = "generation_id"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithRequestID adds the inbound request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the inbound request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithGenerationID adds the generation ID to context.
func WithGenerationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyGenerationID, id)
}

// GenerationID extracts the generation ID from context.
func GenerationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyGenerationID).(string)
	return v, ok && v != ""
}
