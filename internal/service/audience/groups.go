package audience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

type groupStore interface {
	FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)
}

// Groups expands record-store groups through their "users" field.
type Groups struct {
	store groupStore
	log   *slog.Logger
}

// NewGroups creates a store-backed Expander.
func NewGroups(log *slog.Logger, store groupStore) *Groups {
	return &Groups{
		store: store,
		log:   log.With("service", "audience"),
	}
}

// Members returns the users of group. A group that no longer exists has no
// members.
func (g *Groups) Members(ctx context.Context, group domain.EntityRef) ([]domain.EntityRef, error) {
	rec, err := g.store.FindOne(ctx, domain.EntityGroup, []domain.Filter{domain.Is("id", group.ID)}, []string{"users"})
	if err != nil {
		return nil, errors.Join(domain.ErrDirectory, err)
	}
	if rec == nil {
		g.log.DebugContext(ctx, "group not found", slog.Int("group_id", group.ID))
		return nil, nil
	}
	return rec.Refs("users"), nil
}

// IsMember reports whether user belongs to the group with the given code.
// An unknown group has no members.
func (g *Groups) IsMember(ctx context.Context, user domain.EntityRef, groupCode string) (bool, error) {
	if groupCode == "" || user.IsZero() {
		return false, nil
	}
	rec, err := g.store.FindOne(ctx, domain.EntityGroup, []domain.Filter{domain.Is("code", groupCode)}, []string{"users"})
	if err != nil {
		return false, fmt.Errorf("audience: group %q: %w", groupCode, errors.Join(domain.ErrDirectory, err))
	}
	if rec == nil {
		return false, nil
	}
	return slices.ContainsFunc(rec.Refs("users"), user.Same), nil
}
