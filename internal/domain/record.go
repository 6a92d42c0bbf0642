package domain

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Record is one entity as returned by the record store: a flat map of field
// name to value. Deep-linked fields keep their dotted names
// (e.g. "task.Task.step.Step.code"). Entity links are map values with
// "type", "id" and "name" keys.
type Record map[string]any

// ID returns the record id, or 0.
func (r Record) ID() int {
	id, _ := AsInt(r["id"])
	return id
}

// Type returns the record entity type, if the store included it.
func (r Record) Type() string {
	return r.String("type")
}

// Has reports whether the field is present and non-nil.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field as a string. Non-string values yield "".
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Int returns the field as an int.
func (r Record) Int(field string) (int, bool) {
	return AsInt(r[field])
}

// Ref returns the field as a single entity link.
func (r Record) Ref(field string) (EntityRef, bool) {
	return AsRef(r[field])
}

// Refs returns the field as a list of entity links. Unparseable items are
// skipped.
func (r Record) Refs(field string) []EntityRef {
	return AsRefs(r[field])
}

// Map returns the field as a nested object.
func (r Record) Map(field string) (map[string]any, bool) {
	switch v := r[field].(type) {
	case map[string]any:
		return v, true
	case Record:
		return v, true
	}
	return nil, false
}

// AsRef converts the record itself into a link.
func (r Record) AsRef(entityType string) EntityRef {
	t := r.Type()
	if t == "" {
		t = entityType
	}
	name := r.String("name")
	if name == "" {
		name = r.String("code")
	}
	return EntityRef{Type: t, ID: r.ID(), Name: name}
}

// AsInt converts JSON-ish numeric values into an int.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// AsRef converts a link value into an EntityRef.
func AsRef(v any) (EntityRef, bool) {
	switch ref := v.(type) {
	case EntityRef:
		return ref, !ref.IsZero()
	case *EntityRef:
		if ref == nil {
			return EntityRef{}, false
		}
		return *ref, !ref.IsZero()
	case map[string]any:
		return refFromMap(ref)
	case Record:
		return refFromMap(ref)
	}
	return EntityRef{}, false
}

func refFromMap(m map[string]any) (EntityRef, bool) {
	t, _ := m["type"].(string)
	id, ok := AsInt(m["id"])
	if t == "" || !ok {
		return EntityRef{}, false
	}
	name, _ := m["name"].(string)
	return EntityRef{Type: t, ID: id, Name: name}, true
}

// AsRefs converts a multi-entity link value into refs.
func AsRefs(v any) []EntityRef {
	switch list := v.(type) {
	case []EntityRef:
		return list
	case []any:
		refs := make([]EntityRef, 0, len(list))
		for _, item := range list {
			if ref, ok := AsRef(item); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	case []map[string]any:
		refs := make([]EntityRef, 0, len(list))
		for _, item := range list {
			if ref, ok := refFromMap(item); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}
	if ref, ok := AsRef(v); ok {
		return []EntityRef{ref}
	}
	return nil
}

// SameValue compares two field values, treating numbers of different Go
// types as equal when they hold the same value. Two links are equal when
// they point at the same entity, whatever form each side takes.
func SameValue(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	ra, aLink := AsRef(a)
	rb, bLink := AsRef(b)
	if aLink && bLink {
		return ra.Same(rb)
	}
	if aLink || bLink {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Filter is a single record-store filter condition, e.g. ["id", "is", 42].
type Filter struct {
	Field    string
	Operator string
	Value    any
}

// Is builds an equality filter.
func Is(field string, value any) Filter {
	return Filter{Field: field, Operator: "is", Value: value}
}
