// Package dispatch delivers messages to resolved targets, isolating each
// target's failure from the others.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/pkg/ctxutil"
)

// Target is a delivery destination: a channel, or a record user whose chat
// identity is resolved before sending.
type Target struct {
	Channel   string
	Recipient *domain.EntityRef
}

// ToChannel targets a channel by id or name.
func ToChannel(channel string) Target { return Target{Channel: channel} }

// ToUser targets a record user.
func ToUser(user domain.EntityRef) Target { return Target{Recipient: &user} }

// ToUsers targets every user in order.
func ToUsers(users []domain.EntityRef) []Target {
	targets := make([]Target, len(users))
	for i, u := range users {
		targets[i] = ToUser(u)
	}
	return targets
}

func (t Target) String() string {
	if t.Recipient != nil {
		return t.Recipient.String()
	}
	return t.Channel
}

// MessageBuilder builds the message for one target. chatID is the resolved
// destination.
type MessageBuilder func(target Target, chatID string) domain.Message

// SendFunc posts msg to chatID. Transport errors are reported through the
// result, never as a panic.
type SendFunc func(ctx context.Context, chatID string, msg domain.Message) domain.ChatResult

type identityResolver interface {
	Resolve(ctx context.Context, user domain.EntityRef) (string, error)
}

// Dispatcher fans deliveries out with bounded concurrency.
type Dispatcher struct {
	identities identityResolver
	limit      int
	log        *slog.Logger
}

// New creates a Dispatcher running at most limit sends at once. A limit
// below one sends sequentially.
func New(log *slog.Logger, identities identityResolver, limit int) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	return &Dispatcher{
		identities: identities,
		limit:      limit,
		log:        log.With("service", "dispatch"),
	}
}

// Deliver sends one message per target and returns one outcome per target,
// in target order. Targets without a chat identity are recorded as
// unresolved and never sent. A failed send is recorded and does not affect
// the others. The only error returned is a directory failure while
// resolving identities, in which case nothing is sent.
func (d *Dispatcher) Deliver(ctx context.Context, targets []Target, build MessageBuilder, send SendFunc) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, len(targets))
	chatIDs := make([]string, len(targets))

	for i, t := range targets {
		outcomes[i].Recipient = t.Recipient
		if t.Recipient == nil {
			chatIDs[i] = t.Channel
			continue
		}
		chatID, err := d.identities.Resolve(ctx, *t.Recipient)
		if errors.Is(err, domain.ErrUnresolved) {
			outcomes[i].Target = t.String()
			outcomes[i].Status = domain.OutcomeUnresolved
			outcomes[i].Error = err.Error()
			d.log.InfoContext(ctx, "recipient has no chat identity", slog.String("recipient", t.String()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("dispatch: resolve %s: %w", t, err)
		}
		chatIDs[i] = chatID
	}

	// Goroutines never return an error, so one failure cannot cancel the
	// rest; each writes only its own slot.
	var g errgroup.Group
	g.SetLimit(d.limit)
	for i := range targets {
		if outcomes[i].Status == domain.OutcomeUnresolved {
			continue
		}
		g.Go(func() error {
			outcomes[i] = d.deliverOne(ctx, targets[i], chatIDs[i], build, send)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, t Target, chatID string, build MessageBuilder, send SendFunc) domain.Outcome {
	out := domain.Outcome{Target: chatID, Recipient: t.Recipient}

	if chatID == "" {
		out.Target = t.String()
		out.Status = domain.OutcomeUnresolved
		out.Error = "empty destination"
		return out
	}

	msg := build(t, chatID)
	res := send(ctx, chatID, msg)
	if !res.OK {
		out.Status = domain.OutcomeFailed
		out.Error = res.Error
		if out.Error == "" {
			out.Error = "unknown error"
		}
		eventID, _ := ctxutil.EventIDFromCtx(ctx)
		d.log.WarnContext(ctx, "delivery failed",
			slog.Int("event_id", eventID),
			slog.String("target", chatID),
			slog.String("error", out.Error),
		)
		return out
	}

	out.Status = domain.OutcomeSucceeded
	d.log.InfoContext(ctx, "message delivered", slog.String("target", chatID))
	return out
}
