package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wwfxuk/shotgunEvents/internal/app"
	"github.com/wwfxuk/shotgunEvents/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relayctl",
		Short:         "Operate the ShotGrid to Slack relay",
		Version:       app.CurrentBuild().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRefreshUsersCmd(),
		newReplayCmd(),
		newRulesCmd(),
		newMigrateCmd(),
	)
	return root
}

// environment loads configuration and a logger. Commands that talk to
// ShotGrid or Slack call it lazily so that offline commands work without
// credentials.
func environment() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, app.NewLogger(cfg.Log), nil
}

func services(ctx context.Context) (*app.Services, error) {
	cfg, logger, err := environment()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, logger)
}
