package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// ChannelName derives the chat channel name of a project code. Chat
// platforms only accept lowercase names without spaces.
func ChannelName(prefix, code string) string {
	name := strings.ToLower(prefix + code)
	return strings.Join(strings.Fields(name), "-")
}

// projectChannelCreate creates a private channel for a new project, invites
// the bot and stores the channel id on the project.
func (r *Relay) projectChannelCreate(ctx context.Context, event domain.Event) (domain.Report, error) {
	id := entityID(event)
	if id == 0 {
		return dropped(reasonMissingEntity), nil
	}

	// Freshly created projects are populated asynchronously.
	if err := r.sleep(ctx, r.settings.ProjectSettleDelay); err != nil {
		return domain.Report{}, fmt.Errorf("project channel: %w", err)
	}

	project, err := r.store.FindOne(ctx, domain.EntityProject, byID(id), []string{"code", r.settings.ChannelIDField})
	if err != nil {
		return domain.Report{}, fmt.Errorf("project channel: fetch project: %w", domain.AsDirectory(err))
	}
	if project == nil {
		return dropped(reasonProjectGone), nil
	}
	if existing := project.String(r.settings.ChannelIDField); existing != "" {
		return dropped("project already has a chat channel"), nil
	}

	name := ChannelName(r.settings.ChannelPrefix, project.String("code"))
	created := r.chat.CreateChannel(ctx, name, true)
	if !created.OK {
		r.log.WarnContext(ctx, "create channel failed",
			slog.String("channel", name),
			slog.String("error", created.Error),
		)
		return delivered([]domain.Outcome{{Target: name, Status: domain.OutcomeFailed, Error: created.Error}}), nil
	}

	outcomes := []domain.Outcome{{Target: created.ChannelID, Status: domain.OutcomeSucceeded}}
	r.log.InfoContext(ctx, "project channel created",
		slog.Int("project_id", id),
		slog.String("channel", name),
		slog.String("channel_id", created.ChannelID),
	)

	if bot := r.settings.BotUserID; bot != "" {
		outcomes = append(outcomes, r.membershipOutcome(ctx, r.chat.InviteUser(ctx, created.ChannelID, bot), created.ChannelID, nil))
	}

	if err := r.store.Update(ctx, domain.EntityProject, id, map[string]any{r.settings.ChannelIDField: created.ChannelID}); err != nil {
		return delivered(outcomes), fmt.Errorf("project channel: store channel id: %w", err)
	}
	return delivered(outcomes), nil
}

// projectChannelSync mirrors project membership changes into the project
// channel.
func (r *Relay) projectChannelSync(ctx context.Context, event domain.Event) (domain.Report, error) {
	id := entityID(event)
	if id == 0 {
		return dropped(reasonMissingEntity), nil
	}

	channel, report, err := r.projectChannel(ctx, id)
	if err != nil {
		return domain.Report{}, fmt.Errorf("project channel sync: %w", err)
	}
	if channel == "" {
		return report, nil
	}

	added := humanUsers(event.Meta.Added)
	removed := humanUsers(event.Meta.Removed)
	if len(added) == 0 && len(removed) == 0 {
		return dropped(reasonNoRecipients), nil
	}

	outcomes := make([]domain.Outcome, 0, len(added)+len(removed))
	for _, u := range added {
		o, err := r.changeMembership(ctx, channel, u, r.chat.InviteUser)
		if err != nil {
			return delivered(outcomes), fmt.Errorf("project channel sync: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	for _, u := range removed {
		o, err := r.changeMembership(ctx, channel, u, r.chat.RemoveUser)
		if err != nil {
			return delivered(outcomes), fmt.Errorf("project channel sync: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return delivered(outcomes), nil
}

func (r *Relay) changeMembership(
	ctx context.Context,
	channel string,
	user domain.EntityRef,
	op func(ctx context.Context, channelID, userID string) domain.ChatResult,
) (domain.Outcome, error) {
	chatID, err := r.identities.Resolve(ctx, user)
	if errors.Is(err, domain.ErrUnresolved) {
		return domain.Outcome{Target: channel, Recipient: &user, Status: domain.OutcomeUnresolved, Error: err.Error()}, nil
	}
	if err != nil {
		return domain.Outcome{}, err
	}
	return r.membershipOutcome(ctx, op(ctx, channel, chatID), channel, &user), nil
}

func (r *Relay) membershipOutcome(ctx context.Context, res domain.ChatResult, channel string, user *domain.EntityRef) domain.Outcome {
	o := domain.Outcome{Target: channel, Recipient: user, Status: domain.OutcomeSucceeded}
	if !res.OK {
		o.Status = domain.OutcomeFailed
		o.Error = res.Error
		r.log.WarnContext(ctx, "channel membership change failed",
			slog.String("channel", channel),
			slog.String("error", res.Error),
		)
	}
	return o
}

// userLogin records the login time on the user.
func (r *Relay) userLogin(ctx context.Context, event domain.Event) (domain.Report, error) {
	if event.Entity.Type != domain.EntityHumanUser {
		return dropped(reasonNotHumanUser), nil
	}
	at := event.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	fields := map[string]any{r.settings.LastLoginField: at.UTC().Format(time.RFC3339)}
	if err := r.store.Update(ctx, domain.EntityHumanUser, event.Entity.ID, fields); err != nil {
		return domain.Report{}, fmt.Errorf("user login: %w", err)
	}
	r.log.DebugContext(ctx, "recorded user login", slog.Int("user_id", event.Entity.ID))
	return domain.Report{Admitted: true}, nil
}
