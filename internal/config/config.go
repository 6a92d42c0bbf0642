package config

import (
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	ShotGrid ShotGridConfig `yaml:"shotgrid"`
	Slack    SlackConfig    `yaml:"slack"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Identity IdentityConfig `yaml:"identity"`
	Relay    RelayConfig    `yaml:"relay"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// WebhookSecret is the ShotGrid webhook signing secret. Empty disables
	// signature checks.
	WebhookSecret string `yaml:"webhook_secret" env:"SG_WEBHOOK_SECRET"`
	// AdminToken guards the /admin endpoints. Empty disables them.
	AdminToken string `yaml:"admin_token" env:"RELAY_ADMIN_TOKEN"`
}

// DatabaseConfig holds PostgreSQL connection settings for the delivery
// journal. An empty DSN runs the relay without a journal.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// Enabled reports whether a journal database is configured.
func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

// ShotGridConfig holds the record-store API credentials.
type ShotGridConfig struct {
	ServerURL  string        `yaml:"server_url"  env:"SG_SERVER"      env-required:"true"`
	ScriptName string        `yaml:"script_name" env:"SG_SCRIPT_NAME" env-required:"true"`
	ScriptKey  string        `yaml:"script_key"  env:"SG_SCRIPT_KEY"  env-required:"true"`
	Timeout    time.Duration `yaml:"timeout"     env:"SG_TIMEOUT"     env-default:"30s"`
	// ExcludeLogins are service accounts never matched to chat members.
	ExcludeLogins []string `yaml:"exclude_logins" env:"SG_EXCLUDE_LOGINS" env-separator:"," env-default:"template_user,support"`
}

// SlackConfig holds chat platform credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token" env:"SLACK_BOT_TOKEN" env-required:"true"`
	// UserToken administers channels; empty falls back to BotToken.
	UserToken string `yaml:"user_token" env:"SLACK_USER_TOKEN"`
	// BotUserID is invited into every project channel the relay creates.
	BotUserID string        `yaml:"bot_user_id" env:"SLACK_BOT_APP_ID"`
	APIURL    string        `yaml:"api_url"     env:"SLACK_API_URL"`
	Timeout   time.Duration `yaml:"timeout"     env:"SLACK_TIMEOUT" env-default:"15s"`
}

// DispatchConfig tunes message delivery.
type DispatchConfig struct {
	// Concurrency caps the sends in flight for one event.
	Concurrency int `yaml:"concurrency" env:"DISPATCH_CONCURRENCY" env-default:"8"`
}

// IdentityConfig tunes the user/member reconciliation.
type IdentityConfig struct {
	ChatIDField string `yaml:"chat_id_field" env:"IDENTITY_CHAT_ID_FIELD" env-default:"sg_slack_id"`
	// RefreshInterval re-reads both directories periodically. Zero refreshes
	// only on startup and on demand.
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"IDENTITY_REFRESH_INTERVAL" env-default:"0s"`
}

// RelayConfig tunes the notification handlers.
type RelayConfig struct {
	// SiteURL is used in links; empty means the ShotGrid server URL.
	SiteURL string `yaml:"site_url" env:"RELAY_SITE_URL"`

	ShotStatusField   string   `yaml:"shot_status_field"   env:"RELAY_SHOT_STATUS_FIELD"   env-default:"sg_status_list"`
	ShotStatuses      []string `yaml:"shot_statuses"       env:"RELAY_SHOT_STATUSES"       env-separator:"," env-default:"cmpt"`
	TicketStatusField string   `yaml:"ticket_status_field" env:"RELAY_TICKET_STATUS_FIELD" env-default:"sg_status_list"`
	TicketStatuses    []string `yaml:"ticket_statuses"     env:"RELAY_TICKET_STATUSES"     env-separator:"," env-default:"cmpt,ip"`

	CoordinatorsGroup string   `yaml:"coordinators_group" env:"RELAY_COORDINATORS_GROUP" env-default:"Coordinators"`
	ManagerRoles      []string `yaml:"manager_roles"      env:"RELAY_MANAGER_ROLES"      env-separator:"," env-default:"sg_vfx_supervisor,sg_cg_supervisor,sg_producer"`
	MemberFields      []string `yaml:"member_fields"      env:"RELAY_MEMBER_FIELDS"      env-separator:"," env-default:"users,sg_vfx_supervisor,sg_cg_supervisor,sg_producer"`

	ChannelPrefix      string        `yaml:"channel_prefix"       env:"RELAY_CHANNEL_PREFIX"       env-default:"proj-"`
	ProjectSettleDelay time.Duration `yaml:"project_settle_delay" env:"RELAY_PROJECT_SETTLE_DELAY" env-default:"2s"`
	ChannelIDField     string        `yaml:"channel_id_field"     env:"RELAY_CHANNEL_ID_FIELD"     env-default:"sg_slack_channel_id"`
	LastLoginField     string        `yaml:"last_login_field"     env:"RELAY_LAST_LOGIN_FIELD"     env-default:"sg_last_login"`

	PublishRulesPath string `yaml:"publish_rules_path" env:"RELAY_PUBLISH_RULES_PATH"`
	PublishStepField string `yaml:"publish_step_field" env:"RELAY_PUBLISH_STEP_FIELD" env-default:"task.Task.step.Step.code"`
}

// Site returns the URL used for links in messages.
func (c *Config) Site() string {
	site := c.Relay.SiteURL
	if site == "" {
		site = c.ShotGrid.ServerURL
	}
	return strings.TrimRight(site, "/")
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
