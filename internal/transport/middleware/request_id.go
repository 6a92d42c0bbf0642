package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wwfxuk/shotgunEvents/pkg/ctxutil"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-Id"
	// DeliveryIDHeader is set by ShotGrid on every webhook delivery.
	DeliveryIDHeader = "X-SG-Delivery-Id"
)

// RequestID stores a request id in the context and echoes it back. An
// incoming X-Request-Id wins, then the webhook delivery id; otherwise a new
// UUID is generated.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = r.Header.Get(DeliveryIDHeader)
			}
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctxutil.WithRequestID(r.Context(), id)))
		})
	}
}
