package ctxutil

import (
	"context"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	eventIDKey   ctxKey = "event_id"
	adminKey     ctxKey = "admin"
)

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEventID stores the id of the event being processed in the context.
func WithEventID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromCtx extracts the event ID from the context.
// Returns 0 and false if the value is missing, zero, or wrong type.
func EventIDFromCtx(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(eventIDKey).(int)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithAdmin marks the context as carrying an authenticated operator.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdminCtx reports whether the context carries an authenticated operator.
func IsAdminCtx(ctx context.Context) bool {
	ok, _ := ctx.Value(adminKey).(bool)
	return ok
}
