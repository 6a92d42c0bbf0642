package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wwfxuk/shotgunEvents/internal/config"
	"github.com/wwfxuk/shotgunEvents/internal/transport/middleware"
	"github.com/wwfxuk/shotgunEvents/internal/transport/rest"
)

// Run is the relay server entry point. It loads configuration, wires the
// services, warms the identity cache and serves webhooks until ctx is
// cancelled, then shuts the HTTP server down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	build := CurrentBuild()

	logger.Info("starting relay",
		slog.Any("build", build),
		slog.String("shotgrid", cfg.ShotGrid.ServerURL),
		slog.Bool("journal", cfg.Database.Enabled()),
		slog.String("log_level", cfg.Log.Level),
	)

	svc, err := Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("relay ready",
		slog.Any("handlers", svc.Engine.Handlers()),
		slog.Int("publish_rules", len(svc.Rules)),
	)

	// A failed warm-up is not fatal: the first lookup refreshes again.
	if err := svc.Reconciler.Refresh(ctx); err != nil {
		logger.Warn("initial identity refresh failed", slog.String("error", err.Error()))
	}

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	handler := newRouter(cfg, svc, limiter, build, logger)
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := rest.NewServer(addr, handler, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if interval := cfg.Identity.RefreshInterval; interval > 0 {
		g.Go(func() error {
			refreshLoop(gctx, logger, svc.Reconciler, interval)
			return nil
		})
	}

	return g.Wait()
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// refreshLoop refreshes the identity cache every interval until ctx ends.
// Failures keep the previous cache.
func refreshLoop(ctx context.Context, logger *slog.Logger, r refresher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("periodic identity refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

func newRouter(cfg *config.Config, svc *Services, limiter *middleware.RateLimiter, build BuildInfo, logger *slog.Logger) http.Handler {
	// The admin handler and health probe take interfaces; a nil *Repo or
	// *Pool must not become a non-nil interface.
	admin := rest.NewAdminHandler(svc.Reconciler, nil, logger)
	health := rest.NewHealthHandler(nil, svc.Reconciler.Cache(), build.String())
	if svc.Journal != nil {
		admin = rest.NewAdminHandler(svc.Reconciler, svc.Journal, logger)
		health = rest.NewHealthHandler(svc.Pool, svc.Reconciler.Cache(), build.String())
	}

	return rest.NewRouter(rest.RouterDeps{
		Webhook:    rest.NewWebhookHandler(svc.Engine, cfg.Server.WebhookSecret, logger),
		Admin:      admin,
		Health:     health,
		AdminToken: cfg.Server.AdminToken,
		Limiter:    limiter,
		Logger:     logger,
	})
}
