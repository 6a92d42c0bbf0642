// Package audience turns event recipients into the individual users who
// should be notified.
package audience

import (
	"context"
	"fmt"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// Expander returns the direct members of a group. Members are users; groups
// do not nest.
type Expander interface {
	Members(ctx context.Context, group domain.EntityRef) ([]domain.EntityRef, error)
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(ctx context.Context, group domain.EntityRef) ([]domain.EntityRef, error)

func (f ExpanderFunc) Members(ctx context.Context, group domain.EntityRef) ([]domain.EntityRef, error) {
	return f(ctx, group)
}

// Resolve expands groups one level, keeps the first occurrence of every
// user in encounter order and removes actor. Refs that are neither users nor
// groups are ignored. An empty result means nothing to deliver.
func Resolve(ctx context.Context, recipients []domain.EntityRef, expander Expander, actor domain.EntityRef) ([]domain.EntityRef, error) {
	flat := make([]domain.EntityRef, 0, len(recipients))
	for _, r := range recipients {
		switch r.Type {
		case domain.EntityHumanUser:
			flat = append(flat, r)
		case domain.EntityGroup:
			if expander == nil {
				continue
			}
			members, err := expander.Members(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("audience: expand %s: %w", r, err)
			}
			for _, m := range members {
				if m.Type == domain.EntityHumanUser {
					flat = append(flat, m)
				}
			}
		}
	}
	return Distinct(flat, actor), nil
}

// ResolveRoles unions the users held by every non-empty role field of
// record, in field order, with the same de-duplication and actor exclusion
// as Resolve.
func ResolveRoles(record domain.Record, roleFields []string, actor domain.EntityRef) []domain.EntityRef {
	var flat []domain.EntityRef
	for _, field := range roleFields {
		for _, ref := range record.Refs(field) {
			if ref.Type == domain.EntityHumanUser {
				flat = append(flat, ref)
			}
		}
	}
	return Distinct(flat, actor)
}

// Distinct removes duplicates, keeping first occurrences, and every ref
// pointing at exclude.
func Distinct(refs []domain.EntityRef, exclude domain.EntityRef) []domain.EntityRef {
	seen := make(map[string]struct{}, len(refs))
	out := make([]domain.EntityRef, 0, len(refs))
	for _, r := range refs {
		if !exclude.IsZero() && r.Same(exclude) {
			continue
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
