// Package relay turns record-store change events into chat notifications.
// Each Handler reacts to one kind of event; the Engine runs every matching
// handler and journals what happened.
package relay

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/service/dispatch"
	"github.com/wwfxuk/shotgunEvents/internal/service/guard"
	"github.com/wwfxuk/shotgunEvents/internal/service/routing"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

// entityStore returns a nil record, not an error, for an absent entity.
type entityStore interface {
	FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)
	Update(ctx context.Context, entityType string, id int, fields map[string]any) error
}

type chatTransport interface {
	PostMessage(ctx context.Context, channel string, msg domain.Message) domain.ChatResult
	CreateChannel(ctx context.Context, name string, private bool) domain.ChatResult
	InviteUser(ctx context.Context, channelID, userID string) domain.ChatResult
	RemoveUser(ctx context.Context, channelID, userID string) domain.ChatResult
}

type identityResolver interface {
	Resolve(ctx context.Context, user domain.EntityRef) (string, error)
}

type groupDirectory interface {
	Members(ctx context.Context, group domain.EntityRef) ([]domain.EntityRef, error)
	IsMember(ctx context.Context, user domain.EntityRef, groupCode string) (bool, error)
}

type deliverer interface {
	Deliver(ctx context.Context, targets []dispatch.Target, build dispatch.MessageBuilder, send dispatch.SendFunc) ([]domain.Outcome, error)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Settings tune the handlers.
type Settings struct {
	// SiteURL is the record-store web address used in links.
	SiteURL string

	ShotStatusField string
	ShotStatuses    []string

	TicketStatusField string
	TicketStatuses    []string

	// CoordinatorsGroup names the group whose members' actions do not
	// notify anyone. Empty disables the suppression.
	CoordinatorsGroup string

	// ManagerRoles are the project fields holding the users told about
	// new versions.
	ManagerRoles []string

	// MemberFields are the project fields whose users belong in the
	// project channel.
	MemberFields []string

	ChannelPrefix      string
	ProjectSettleDelay time.Duration
	ChannelIDField     string
	BotUserID          string
	LastLoginField     string

	PublishStepField string
	PublishRules     []routing.Rule
}

// ---------------------------------------------------------------------------
// Relay
// ---------------------------------------------------------------------------

// Relay holds what every handler shares.
type Relay struct {
	store      entityStore
	chat       chatTransport
	identities identityResolver
	groups     groupDirectory
	dispatcher deliverer
	settings   Settings
	links      Links
	log        *slog.Logger

	shotGuard   *guard.Guard
	ticketGuard *guard.Guard

	// Swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
	pick  func(n int) int
}

// New creates a Relay.
func New(
	log *slog.Logger,
	store entityStore,
	chat chatTransport,
	identities identityResolver,
	groups groupDirectory,
	dispatcher deliverer,
	settings Settings,
) *Relay {
	return &Relay{
		store:      store,
		chat:       chat,
		identities: identities,
		groups:     groups,
		dispatcher: dispatcher,
		settings:   settings,
		links:      Links{Site: settings.SiteURL},
		log:        log.With("service", "relay"),
		sleep:      sleepCtx,
		pick:       rand.IntN,

		shotGuard:   guard.New(log, settings.ShotStatusField, anySlice(settings.ShotStatuses)...),
		ticketGuard: guard.New(log, settings.TicketStatusField, anySlice(settings.TicketStatuses)...),
	}
}

// Handlers returns every handler, in a fixed order.
func (r *Relay) Handlers() []Handler {
	s := r.settings
	return []Handler{
		newHandler("task_assignment", domain.EventType(domain.EntityTask, "Change"), []string{"task_assignees"}, r.taskAssignment),
		newHandler("shot_final", domain.EventType(domain.EntityShot, "Change"), []string{s.ShotStatusField}, r.shotFinal),
		newHandler("publish_routing", domain.EventType(domain.EntityPublishedFile, "New"), nil, r.publishRouting),
		newHandler("ticket_reply", domain.EventType(domain.EntityTicket, "Change"), []string{"replies"}, r.ticketReply),
		newHandler("ticket_status", domain.EventType(domain.EntityTicket, "Change"), []string{s.TicketStatusField}, r.ticketStatus),
		newHandler("ticket_cc", domain.EventType(domain.EntityTicket, "Change"), []string{"addressings_cc"}, r.ticketCC),
		newHandler("version_managers", domain.EventType(domain.EntityVersion, "New"), nil, r.versionManagers),
		newHandler("project_channel_create", domain.EventType(domain.EntityProject, "New"), nil, r.projectChannelCreate),
		newHandler("project_channel_sync", domain.EventType(domain.EntityProject, "Change"), s.MemberFields, r.projectChannelSync),
		newHandler("user_login", "Shotgun_User_Login", nil, r.userLogin),
	}
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

// Handler reacts to one kind of event.
type Handler interface {
	Name() string
	Matches(event domain.Event) bool
	Handle(ctx context.Context, event domain.Event) (domain.Report, error)
}

type handleFunc func(ctx context.Context, event domain.Event) (domain.Report, error)

type handler struct {
	name       string
	eventType  string
	attributes []string
	handle     handleFunc
}

func newHandler(name, eventType string, attributes []string, fn handleFunc) *handler {
	return &handler{name: name, eventType: eventType, attributes: attributes, handle: fn}
}

func (h *handler) Name() string { return h.name }

// Matches filters on event type and, when the handler watches attributes,
// on the changed attribute.
func (h *handler) Matches(event domain.Event) bool {
	if event.EventType != h.eventType {
		return false
	}
	return len(h.attributes) == 0 || slices.Contains(h.attributes, event.Attribute())
}

func (h *handler) Handle(ctx context.Context, event domain.Event) (domain.Report, error) {
	report, err := h.handle(ctx, event)
	report.Handler = h.name
	report.EventID = event.ID
	return report, err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func dropped(reason string) domain.Report {
	return domain.Report{Reason: reason}
}

func delivered(outcomes []domain.Outcome) domain.Report {
	return domain.Report{Admitted: true, Outcomes: outcomes}
}

func byID(id int) []domain.Filter {
	return []domain.Filter{domain.Is("id", id)}
}

// fixedMessage builds the same message for every target.
func fixedMessage(msg domain.Message) dispatch.MessageBuilder {
	return func(dispatch.Target, string) domain.Message { return msg }
}

// coordinatorActed reports whether the actor belongs to the coordinators
// group, whose actions do not notify.
func (r *Relay) coordinatorActed(ctx context.Context, event domain.Event) (bool, error) {
	if r.settings.CoordinatorsGroup == "" || event.Actor.Type != domain.EntityHumanUser {
		return false, nil
	}
	return r.groups.IsMember(ctx, event.Actor, r.settings.CoordinatorsGroup)
}

// statusName returns the display name of a status code, or the code itself.
func (r *Relay) statusName(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", nil
	}
	rec, err := r.store.FindOne(ctx, domain.EntityStatus, []domain.Filter{domain.Is("code", code)}, []string{"name"})
	if err != nil {
		return "", err
	}
	if name := rec.String("name"); name != "" {
		return name, nil
	}
	return code, nil
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// entityID prefers the correlation id carried in the event metadata.
func entityID(event domain.Event) int {
	if event.Meta.EntityID != 0 {
		return event.Meta.EntityID
	}
	return event.Entity.ID
}

func humanUsers(refs []domain.EntityRef) []domain.EntityRef {
	var users []domain.EntityRef
	for _, ref := range refs {
		if ref.Type == domain.EntityHumanUser {
			users = append(users, ref)
		}
	}
	return users
}
