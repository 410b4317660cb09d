package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyIngestionID contextKey = "ingestion_id"
	ContextKeyDocumentID  contextKey = "document_id"
	ContextKeyRequestID   contextKey = "request_id"
)

// WithIngestionID adds an ingestion ID to the context
func WithIngestionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyIngestionID, id)
}

// IngestionIDFromContext extracts the ingestion ID from context
func IngestionIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyIngestionID).(string); ok {
		return id
	}
	return ""
}

// WithDocumentID adds a document ID to the context
func WithDocumentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyDocumentID, id)
}

// DocumentIDFromContext extracts the document ID from context
func DocumentIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyDocumentID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// LoggerFrom decorates logger with whichever correlation IDs ctx carries.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := IngestionIDFromContext(ctx); id != "" {
		logger = logger.With("ingestion_id", id)
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		logger = logger.With("document_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}
