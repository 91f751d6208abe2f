package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering and alerting.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRequestID correlates every log line of one accepted request.
	FieldRequestID = "request_id"
	// FieldSource names the producer that emitted a request.
	FieldSource = "source"
	// FieldSystem is the target system/core of a request.
	FieldSystem = "system"
	// FieldIDType is the identifier kind of a request.
	FieldIDType = "id_type"
	// FieldIdentifier is the raw identifier of a request.
	FieldIdentifier = "identifier"
	// FieldDecisionResult is the arbitration outcome.
	FieldDecisionResult = "decision_result"
	// FieldDecisionReason explains the arbitration outcome.
	FieldDecisionReason = "decision_reason"
)

type requestIDKey struct{}

// WithRequestID stores a request correlation ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation ID, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		return logger.With(slog.String(FieldRequestID, id))
	}
	return logger
}
