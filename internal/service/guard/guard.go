// Package guard filters change events that no longer reflect the current
// state of the record store before any side effect happens.
package guard

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// Drop reasons reported in a Verdict.
const (
	ReasonMissingEntityID = "missing entity id"
	ReasonNoChange        = "new value equals old value"
	ReasonEntityGone      = "entity not found"
	ReasonStale           = "current value no longer matches event"
	ReasonNotAllowed      = "value not in allow-list"
)

// entityFetcher returns a nil record, not an error, for an absent entity.
type entityFetcher interface {
	FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)
}

// Verdict is the outcome of a guard check. A dropped event is not an error.
type Verdict struct {
	Admitted bool
	Reason   string
}

func admitted() Verdict             { return Verdict{Admitted: true} }
func dropped(reason string) Verdict { return Verdict{Reason: reason} }

// Guard checks a single watched attribute of an entity.
type Guard struct {
	field   string
	allowed []any
	log     *slog.Logger
}

// New creates a Guard watching field. When allowed is non-empty, only events
// whose current value is one of allowed are admitted.
func New(log *slog.Logger, field string, allowed ...any) *Guard {
	return &Guard{
		field:   field,
		allowed: allowed,
		log:     log.With("service", "guard", "field", field),
	}
}

// Field returns the watched attribute.
func (g *Guard) Field() string { return g.field }

// Precheck runs the checks that need only the event payload.
func (g *Guard) Precheck(event domain.Event) Verdict {
	if event.Meta.EntityID == 0 {
		return dropped(ReasonMissingEntityID)
	}
	if domain.SameValue(event.Meta.NewValue, event.Meta.OldValue) {
		return dropped(ReasonNoChange)
	}
	return admitted()
}

// Check runs every check, in order, against the authoritative snapshot of
// the entity. A nil snapshot means the entity no longer exists.
func (g *Guard) Check(event domain.Event, current domain.Record) Verdict {
	if v := g.Precheck(event); !v.Admitted {
		return v
	}
	if current == nil {
		return dropped(ReasonEntityGone)
	}
	value := current[g.field]
	if !domain.SameValue(value, event.Meta.NewValue) {
		return dropped(ReasonStale)
	}
	if len(g.allowed) > 0 && !slices.ContainsFunc(g.allowed, func(a any) bool { return domain.SameValue(a, value) }) {
		return dropped(ReasonNotAllowed)
	}
	return admitted()
}

// Admit reports whether the event may be acted on.
func (g *Guard) Admit(event domain.Event, current domain.Record) bool {
	return g.Check(event, current).Admitted
}

// Evaluate re-fetches the entity and checks the event against it. The
// returned snapshot includes the watched field and any extra fields, so the
// caller can reuse it. Store failures are returned as errors; drops are not.
func (g *Guard) Evaluate(ctx context.Context, store entityFetcher, event domain.Event, fields ...string) (domain.Record, Verdict, error) {
	if v := g.Precheck(event); !v.Admitted {
		g.logDrop(ctx, event, v)
		return nil, v, nil
	}

	entityType := event.Meta.EntityType
	if entityType == "" {
		entityType = event.Entity.Type
	}

	current, err := store.FindOne(ctx, entityType,
		[]domain.Filter{domain.Is("id", event.Meta.EntityID)},
		append([]string{g.field}, fields...),
	)
	if err != nil {
		return nil, Verdict{}, fmt.Errorf("guard: fetch %s %d: %w", entityType, event.Meta.EntityID, domain.AsDirectory(err))
	}

	v := g.Check(event, current)
	if !v.Admitted {
		g.logDrop(ctx, event, v)
	}
	return current, v, nil
}

func (g *Guard) logDrop(ctx context.Context, event domain.Event, v Verdict) {
	g.log.DebugContext(ctx, "event dropped",
		slog.Int("event_id", event.ID),
		slog.Int("entity_id", event.Meta.EntityID),
		slog.String("reason", v.Reason),
		slog.Any("new_value", event.Meta.NewValue),
	)
}
