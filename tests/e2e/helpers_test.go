//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/wwfxuk/shotgunEvents/internal/adapter/postgres/journal"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/postgres/testhelper"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/shotgrid"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/slack"
	"github.com/wwfxuk/shotgunEvents/internal/service/audience"
	"github.com/wwfxuk/shotgunEvents/internal/service/dispatch"
	"github.com/wwfxuk/shotgunEvents/internal/service/identity"
	"github.com/wwfxuk/shotgunEvents/internal/service/relay"
	"github.com/wwfxuk/shotgunEvents/internal/transport/middleware"
	"github.com/wwfxuk/shotgunEvents/internal/transport/rest"
)

const (
	webhookSecret = "e2e-webhook-secret"
	adminToken    = "e2e-admin-token"
)

// testServer wraps the full relay stack for E2E tests.
type testServer struct {
	URL      string
	Client   *http.Client
	Pool     *pgxpool.Pool
	ShotGrid *fakeShotGrid
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// fakeShotGrid serves the token endpoint and records entity updates.
type fakeShotGrid struct {
	mu      sync.Mutex
	updates map[string]map[string]any
}

func (f *fakeShotGrid) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/access_token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token_type": "Bearer", "access_token": "e2e-token", "expires_in": 600}`)
	})
	mux.HandleFunc("PUT /api/v1/entity/{collection}/{id}", func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.updates[r.PathValue("collection")+"/"+r.PathValue("id")] = fields
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data": {}}`)
	})
	return mux
}

func (f *fakeShotGrid) update(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[key]
}

// setupTestServer bootstraps the relay backed by a real PostgreSQL journal
// (shared via testhelper) and a fake ShotGrid site. Slack points at a
// server that rejects every call; the scenarios below never reach it.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))

	sgFake := &fakeShotGrid{updates: make(map[string]map[string]any)}
	sgSrv := httptest.NewServer(sgFake.handler())
	t.Cleanup(sgSrv.Close)
	slackSrv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(slackSrv.Close)

	sg := shotgrid.New(logger, shotgrid.Options{
		ServerURL:  sgSrv.URL,
		ScriptName: "e2e",
		ScriptKey:  "key",
		Timeout:    5 * time.Second,
	})
	chat := slack.New(logger, slack.Options{BotToken: "xoxb-e2e", APIURL: slackSrv.URL + "/", Timeout: 5 * time.Second})

	reconciler := identity.NewReconciler(logger, identity.NewCache(), sg, chat)
	resolver := identity.NewResolver(logger, reconciler, sg, chat, "sg_slack_id")
	r := relay.New(logger, sg, chat, resolver, audience.NewGroups(logger, sg), dispatch.New(logger, resolver, 4), relay.Settings{
		SiteURL:           sgSrv.URL,
		ShotStatusField:   "sg_status_list",
		ShotStatuses:      []string{"cmpt"},
		TicketStatusField: "sg_status_list",
		TicketStatuses:    []string{"cmpt", "ip"},
		ChannelPrefix:     "proj-",
		LastLoginField:    "sg_last_login",
		PublishStepField:  "task.Task.step.Step.code",
	})
	runs := journal.New(pool)
	engine := relay.NewEngine(logger, runs, r.Handlers()...)

	limiter := middleware.NewRateLimiter(time.Minute)
	t.Cleanup(limiter.Stop)

	router := rest.NewRouter(rest.RouterDeps{
		Webhook:    rest.NewWebhookHandler(engine, webhookSecret, logger),
		Admin:      rest.NewAdminHandler(reconciler, runs, logger),
		Health:     rest.NewHealthHandler(pool, reconciler.Cache(), "e2e"),
		AdminToken: adminToken,
		Limiter:    limiter,
		Logger:     logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{URL: srv.URL, Client: srv.Client(), Pool: pool, ShotGrid: sgFake}
}

// deliver posts a signed webhook body.
func (ts *testServer) deliver(t *testing.T, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/webhooks/shotgrid", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(rest.SignatureHeader, "sha1="+hex.EncodeToString(rest.Sign([]byte(webhookSecret), []byte(body))))

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// admin performs an authenticated admin request.
func (ts *testServer) admin(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
