// Package routing selects destination channels for an entity snapshot from
// declarative attribute-matching rules.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

type specKind int

const (
	kindLiteral specKind = iota + 1
	kindOneOf
	kindNested
	kindPredicate
)

// MatchSpec is a field-level match: a literal, a set of alternatives, a
// nested spec applied to a sub-object, or a predicate over the value.
// The zero MatchSpec matches nothing.
type MatchSpec struct {
	kind   specKind
	value  any
	values []any
	fields map[string]MatchSpec
	pred   func(any) bool
	desc   string
}

// Literal matches values equal to v.
func Literal(v any) MatchSpec {
	return MatchSpec{kind: kindLiteral, value: v}
}

// OneOf matches values equal to any of vs.
func OneOf(vs ...any) MatchSpec {
	return MatchSpec{kind: kindOneOf, values: vs}
}

// Nested matches an object whose named fields all satisfy their specs.
// Extra fields on the object are ignored.
func Nested(fields map[string]MatchSpec) MatchSpec {
	return MatchSpec{kind: kindNested, fields: fields}
}

// Predicate matches values for which fn returns true. desc is shown by
// String.
func Predicate(desc string, fn func(any) bool) MatchSpec {
	return MatchSpec{kind: kindPredicate, pred: fn, desc: desc}
}

// Matches reports whether v satisfies the spec.
func (m MatchSpec) Matches(v any) bool {
	switch m.kind {
	case kindLiteral:
		return domain.SameValue(m.value, v)
	case kindOneOf:
		for _, alt := range m.values {
			if domain.SameValue(alt, v) {
				return true
			}
		}
		return false
	case kindNested:
		obj, ok := asObject(v)
		if !ok {
			return false
		}
		return matchFields(m.fields, obj)
	case kindPredicate:
		return m.pred != nil && m.pred(v)
	}
	return false
}

// matchFields requires every named field to be present and satisfied.
func matchFields(fields map[string]MatchSpec, obj map[string]any) bool {
	for name, spec := range fields {
		v, ok := obj[name]
		if !ok {
			return false
		}
		if !spec.Matches(v) {
			return false
		}
	}
	return true
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case domain.Record:
		return o, true
	}
	return nil, false
}

func (m MatchSpec) String() string {
	switch m.kind {
	case kindLiteral:
		return fmt.Sprintf("%v", m.value)
	case kindOneOf:
		parts := make([]string, len(m.values))
		for i, v := range m.values {
			parts[i] = fmt.Sprintf("%v", v)
		}
		return "one of [" + strings.Join(parts, ", ") + "]"
	case kindNested:
		return "{" + describeFields(m.fields) + "}"
	case kindPredicate:
		return m.desc
	}
	return "<never>"
}

func describeFields(fields map[string]MatchSpec) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + fields[name].String()
	}
	return strings.Join(parts, ", ")
}
