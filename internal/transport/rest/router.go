package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/transport/middleware"
)

// RouterDeps are the handlers and settings the router mounts.
type RouterDeps struct {
	Webhook *WebhookHandler
	Admin   *AdminHandler
	Health  *HealthHandler

	AdminToken string
	// AdminRateLimit caps admin requests per client per minute.
	AdminRateLimit int
	Limiter        *middleware.RateLimiter
	Logger         *slog.Logger
}

// NewRouter builds the HTTP handler tree.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", deps.Health.Live)
	mux.HandleFunc("GET /ready", deps.Health.Ready)
	mux.HandleFunc("GET /health", deps.Health.Health)

	mux.HandleFunc("POST /webhooks/shotgrid", deps.Webhook.ShotGrid)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /admin/identities", deps.Admin.ListIdentities)
	admin.HandleFunc("POST /admin/identities", deps.Admin.AddIdentity)
	admin.HandleFunc("POST /admin/identities/refresh", deps.Admin.RefreshIdentities)
	admin.HandleFunc("DELETE /admin/identities/users/{user_id}", deps.Admin.DiscardUser)
	admin.HandleFunc("DELETE /admin/identities/chat/{chat_id}", deps.Admin.DiscardChat)
	admin.HandleFunc("GET /admin/runs", deps.Admin.RecentRuns)
	admin.HandleFunc("GET /admin/runs/{event_id}", deps.Admin.RunsByEvent)

	adminMW := []middleware.Middleware{middleware.AdminToken(deps.AdminToken)}
	if deps.Limiter != nil {
		limit := deps.AdminRateLimit
		if limit <= 0 {
			limit = 60
		}
		adminMW = append([]middleware.Middleware{deps.Limiter.Limit(limit)}, adminMW...)
	}
	mux.Handle("/admin/", middleware.Chain(adminMW...)(admin))

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(deps.Logger),
		middleware.Recovery(deps.Logger),
	)(mux)
}

// NewServer wraps a handler in an http.Server with the given timeouts.
func NewServer(addr string, handler http.Handler, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}
