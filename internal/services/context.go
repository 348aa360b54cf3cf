package services

import "context"

type contextKey string

const (
	manifestIDKey contextKey = "manifest_id"
	stateKey      contextKey = "state"
	requestIDKey  contextKey = "request_id"
)

// WithManifestID annotates context with the manifest identifier.
func WithManifestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, manifestIDKey, id)
}

// ManifestIDFromContext extracts the manifest identifier if present.
func ManifestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(manifestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithState annotates context with the workflow state name.
func WithState(ctx context.Context, state string) context.Context {
	if state == "" {
		return ctx
	}
	return context.WithValue(ctx, stateKey, state)
}

// StateFromContext returns the workflow state name if present.
func StateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
