package config

import (
	"fmt"
	"net/url"
	"slices"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := validateURL(c.ShotGrid.ServerURL); err != nil {
		return fmt.Errorf("shotgrid.server_url: %w", err)
	}
	if c.Relay.SiteURL != "" {
		if err := validateURL(c.Relay.SiteURL); err != nil {
			return fmt.Errorf("relay.site_url: %w", err)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	if c.Dispatch.Concurrency <= 0 {
		return fmt.Errorf("dispatch.concurrency must be > 0 (got %d)", c.Dispatch.Concurrency)
	}

	if c.Identity.RefreshInterval < 0 {
		return fmt.Errorf("identity.refresh_interval must be >= 0 (got %s)", c.Identity.RefreshInterval)
	}

	if err := c.Relay.validate(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	if c.Database.Enabled() && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", validLogLevels, c.Log.Level)
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", validLogFormats, c.Log.Format)
	}

	return nil
}

func (r *RelayConfig) validate() error {
	if r.ShotStatusField == "" {
		return fmt.Errorf("shot_status_field is required")
	}
	if len(r.ShotStatuses) == 0 {
		return fmt.Errorf("shot_statuses must not be empty")
	}
	if r.TicketStatusField == "" {
		return fmt.Errorf("ticket_status_field is required")
	}
	if len(r.TicketStatuses) == 0 {
		return fmt.Errorf("ticket_statuses must not be empty")
	}
	if r.ChannelPrefix == "" {
		return fmt.Errorf("channel_prefix is required")
	}
	if r.ProjectSettleDelay < 0 {
		return fmt.Errorf("project_settle_delay must be >= 0 (got %s)", r.ProjectSettleDelay)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
