package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wwfxuk/shotgunEvents/internal/adapter/postgres"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/postgres/journal"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/shotgrid"
	"github.com/wwfxuk/shotgunEvents/internal/adapter/slack"
	"github.com/wwfxuk/shotgunEvents/internal/config"
	"github.com/wwfxuk/shotgunEvents/internal/service/audience"
	"github.com/wwfxuk/shotgunEvents/internal/service/dispatch"
	"github.com/wwfxuk/shotgunEvents/internal/service/identity"
	"github.com/wwfxuk/shotgunEvents/internal/service/relay"
	"github.com/wwfxuk/shotgunEvents/internal/service/routing"
)

// Services is the wired relay, shared by the server and the operator CLI.
type Services struct {
	ShotGrid   *shotgrid.Client
	Slack      *slack.Client
	Reconciler *identity.Reconciler
	Engine     *relay.Engine
	Rules      []routing.Rule

	// Pool and Journal are nil when no database is configured.
	Pool    *pgxpool.Pool
	Journal *journal.Repo
}

// Close releases the database pool, if any.
func (s *Services) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// Build connects the adapters and services described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	rules, err := loadRules(cfg.Relay.PublishRulesPath)
	if err != nil {
		return nil, err
	}

	sg := shotgrid.New(logger, shotgrid.Options{
		ServerURL:     cfg.ShotGrid.ServerURL,
		ScriptName:    cfg.ShotGrid.ScriptName,
		ScriptKey:     cfg.ShotGrid.ScriptKey,
		Timeout:       cfg.ShotGrid.Timeout,
		ExcludeLogins: cfg.ShotGrid.ExcludeLogins,
	})
	chat := slack.New(logger, slack.Options{
		BotToken:  cfg.Slack.BotToken,
		UserToken: cfg.Slack.UserToken,
		APIURL:    cfg.Slack.APIURL,
		Timeout:   cfg.Slack.Timeout,
	})

	reconciler := identity.NewReconciler(logger, identity.NewCache(), sg, chat)
	resolver := identity.NewResolver(logger, reconciler, sg, chat, cfg.Identity.ChatIDField)
	groups := audience.NewGroups(logger, sg)
	dispatcher := dispatch.New(logger, resolver, cfg.Dispatch.Concurrency)

	r := relay.New(logger, sg, chat, resolver, groups, dispatcher, relaySettings(cfg, rules))

	svc := &Services{
		ShotGrid:   sg,
		Slack:      chat,
		Reconciler: reconciler,
		Rules:      rules,
	}

	if !cfg.Database.Enabled() {
		logger.Warn("no database configured, delivery journal disabled")
		svc.Engine = relay.NewEngine(logger, nil, r.Handlers()...)
		return svc, nil
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, logger, cfg.Database.DSN); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	svc.Pool = pool
	svc.Journal = journal.New(pool)
	svc.Engine = relay.NewEngine(logger, svc.Journal, r.Handlers()...)
	return svc, nil
}

func loadRules(path string) ([]routing.Rule, error) {
	if path == "" {
		return nil, nil
	}
	rules, err := routing.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("publish rules: %w", err)
	}
	return rules, nil
}

func relaySettings(cfg *config.Config, rules []routing.Rule) relay.Settings {
	rc := cfg.Relay
	return relay.Settings{
		SiteURL:            cfg.Site(),
		ShotStatusField:    rc.ShotStatusField,
		ShotStatuses:       rc.ShotStatuses,
		TicketStatusField:  rc.TicketStatusField,
		TicketStatuses:     rc.TicketStatuses,
		CoordinatorsGroup:  rc.CoordinatorsGroup,
		ManagerRoles:       rc.ManagerRoles,
		MemberFields:       rc.MemberFields,
		ChannelPrefix:      rc.ChannelPrefix,
		ProjectSettleDelay: rc.ProjectSettleDelay,
		ChannelIDField:     rc.ChannelIDField,
		BotUserID:          cfg.Slack.BotUserID,
		LastLoginField:     rc.LastLoginField,
		PublishStepField:   rc.PublishStepField,
		PublishRules:       rules,
	}
}
