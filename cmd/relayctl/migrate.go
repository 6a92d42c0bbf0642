package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/wwfxuk/shotgunEvents/internal/adapter/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply delivery journal migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := environment()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return errors.New("no database configured (DATABASE_DSN)")
			}
			return postgres.Migrate(cmd.Context(), logger, cfg.Database.DSN)
		},
	}
}
