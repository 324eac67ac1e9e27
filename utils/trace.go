package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tanisharajgor/Mongo-Exploratory/logging"
)

// ContextKey type for trace context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "traceId"

	// TraceIDHeader carries the trace ID on HTTP requests and bus messages
	TraceIDHeader = "X-Trace-Id"
)

// GenerateTraceID creates a new random trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("trace-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// ExtractTraceID returns the trace ID from headers, creating one if missing
func ExtractTraceID(headers map[string]string) string {
	if traceID, ok := headers[TraceIDHeader]; ok && traceID != "" {
		return traceID
	}
	return GenerateTraceID()
}

// WithTraceID adds trace ID to context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	return traceID, ok
}

// WithTraceLogger returns a logger carrying the context's trace ID, if any
func WithTraceLogger(logger logging.Logger, ctx context.Context) logging.Logger {
	if traceID, ok := GetTraceID(ctx); ok {
		return logger.WithField("traceId", traceID)
	}
	return logger
}
