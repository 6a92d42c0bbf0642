package relay

import (
	"context"
	"fmt"
	"slices"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/service/audience"
	"github.com/wwfxuk/shotgunEvents/internal/service/dispatch"
	"github.com/wwfxuk/shotgunEvents/internal/service/guard"
	"github.com/wwfxuk/shotgunEvents/internal/service/routing"
)

// Drop reasons shared by several handlers.
const (
	reasonNoProject      = "event has no project"
	reasonNoRecipients   = "no recipients"
	reasonCoordinator    = "actor is a coordinator"
	reasonProjectGone    = "project not found"
	reasonNoChannel      = "project has no chat channel"
	reasonNoRuleMatched  = "no routing rule matched"
	reasonNotHumanUser   = "entity is not a human user"
	reasonMissingEntity  = guard.ReasonMissingEntityID
	reasonEntityNotFound = guard.ReasonEntityGone
)

var publishFields = []string{
	"created_by",
	"description",
	"entity",
	"image",
	"name",
	"path",
	"published_file_type",
	"version_number",
}

// taskAssignment tells users added to a task's assignees about it.
func (r *Relay) taskAssignment(ctx context.Context, event domain.Event) (domain.Report, error) {
	if event.Project == nil {
		return dropped(reasonNoProject), nil
	}
	if len(event.Meta.Added) == 0 {
		return dropped(reasonNoRecipients), nil
	}
	if coord, err := r.coordinatorActed(ctx, event); err != nil {
		return domain.Report{}, fmt.Errorf("task assignment: %w", err)
	} else if coord {
		return dropped(reasonCoordinator), nil
	}

	project, err := r.store.FindOne(ctx, domain.EntityProject, byID(event.Project.ID), []string{"code"})
	if err != nil {
		return domain.Report{}, fmt.Errorf("task assignment: fetch project: %w", domain.AsDirectory(err))
	}
	if project == nil {
		return dropped(reasonProjectGone), nil
	}
	task, err := r.store.FindOne(ctx, domain.EntityTask, byID(entityID(event)), []string{"content", "entity"})
	if err != nil {
		return domain.Report{}, fmt.Errorf("task assignment: fetch task: %w", domain.AsDirectory(err))
	}
	if task == nil {
		return dropped(reasonEntityNotFound), nil
	}

	recipients, err := audience.Resolve(ctx, event.Meta.Added, r.groups, event.Actor)
	if err != nil {
		return domain.Report{}, fmt.Errorf("task assignment: %w", err)
	}
	return r.notifyUsers(ctx, recipients, AssignmentMessage(r.links, project, task))
}

// shotFinal posts to the project channel when a shot reaches a final status.
func (r *Relay) shotFinal(ctx context.Context, event domain.Event) (domain.Report, error) {
	if v := r.shotGuard.Precheck(event); !v.Admitted {
		return dropped(v.Reason), nil
	}
	if event.Project == nil {
		return dropped(reasonNoProject), nil
	}

	channel, report, err := r.projectChannel(ctx, event.Project.ID)
	if err != nil || channel == "" {
		return report, err
	}

	shot, v, err := r.shotGuard.Evaluate(ctx, r.store, event, "code")
	if err != nil {
		return domain.Report{}, fmt.Errorf("shot final: %w", err)
	}
	if !v.Admitted {
		return dropped(v.Reason), nil
	}

	emoji := FinalEmoji[r.pick(len(FinalEmoji))]
	return r.notifyChannels(ctx, []string{channel}, ShotFinalMessage(r.links, shot, emoji))
}

// publishRouting posts a new published file to every channel its rules
// select.
func (r *Relay) publishRouting(ctx context.Context, event domain.Event) (domain.Report, error) {
	id := entityID(event)
	if id == 0 {
		return dropped(reasonMissingEntity), nil
	}

	rules := r.settings.PublishRules
	fields := append(slices.Clone(publishFields), r.settings.PublishStepField)
	for _, f := range routing.FieldNames(rules) {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}

	pub, err := r.store.FindOne(ctx, domain.EntityPublishedFile, byID(id), fields)
	if err != nil {
		return domain.Report{}, fmt.Errorf("publish routing: fetch published file: %w", domain.AsDirectory(err))
	}
	if pub == nil {
		return dropped(reasonEntityNotFound), nil
	}

	channels := routing.Route(pub, rules)
	if len(channels) == 0 {
		return dropped(reasonNoRuleMatched), nil
	}
	return r.notifyChannels(ctx, channels, PublishMessage(r.links, pub, r.settings.PublishStepField))
}

// versionManagers tells the project's managers about a new version.
func (r *Relay) versionManagers(ctx context.Context, event domain.Event) (domain.Report, error) {
	if coord, err := r.coordinatorActed(ctx, event); err != nil {
		return domain.Report{}, fmt.Errorf("version managers: %w", err)
	} else if coord {
		return dropped(reasonCoordinator), nil
	}
	if event.Project == nil {
		r.log.WarnContext(ctx, "version created without project", "version", event.Entity.String())
		return dropped(reasonNoProject), nil
	}
	if event.Entity.IsZero() {
		return dropped(reasonMissingEntity), nil
	}

	fields := append([]string{"code"}, r.settings.ManagerRoles...)
	project, err := r.store.FindOne(ctx, domain.EntityProject, byID(event.Project.ID), fields)
	if err != nil {
		return domain.Report{}, fmt.Errorf("version managers: fetch project: %w", domain.AsDirectory(err))
	}
	if project == nil {
		return dropped(reasonProjectGone), nil
	}

	managers := audience.ResolveRoles(project, r.settings.ManagerRoles, event.Actor)
	msg := VersionMessage(r.links, project.String("code"), event.Entity, event.Actor)
	return r.notifyUsers(ctx, managers, msg)
}

// projectChannel returns the chat channel of a project. An empty channel
// comes with the drop report to return.
func (r *Relay) projectChannel(ctx context.Context, projectID int) (string, domain.Report, error) {
	project, err := r.store.FindOne(ctx, domain.EntityProject, byID(projectID), []string{"code", r.settings.ChannelIDField})
	if err != nil {
		return "", domain.Report{}, fmt.Errorf("fetch project %d: %w", projectID, domain.AsDirectory(err))
	}
	if project == nil {
		return "", dropped(reasonProjectGone), nil
	}
	channel := project.String(r.settings.ChannelIDField)
	if channel == "" {
		return "", dropped(reasonNoChannel), nil
	}
	return channel, domain.Report{}, nil
}

func (r *Relay) notifyUsers(ctx context.Context, users []domain.EntityRef, msg domain.Message) (domain.Report, error) {
	if len(users) == 0 {
		return dropped(reasonNoRecipients), nil
	}
	outcomes, err := r.dispatcher.Deliver(ctx, dispatch.ToUsers(users), fixedMessage(msg), r.chat.PostMessage)
	if err != nil {
		return domain.Report{Admitted: true}, err
	}
	return delivered(outcomes), nil
}

func (r *Relay) notifyChannels(ctx context.Context, channels []string, msg domain.Message) (domain.Report, error) {
	targets := make([]dispatch.Target, len(channels))
	for i, ch := range channels {
		targets[i] = dispatch.ToChannel(ch)
	}
	outcomes, err := r.dispatcher.Deliver(ctx, targets, fixedMessage(msg), r.chat.PostMessage)
	if err != nil {
		return domain.Report{Admitted: true}, err
	}
	return delivered(outcomes), nil
}
