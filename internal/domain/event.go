package domain

import (
	"strconv"
	"time"
)

// Entity types the relay cares about.
const (
	EntityHumanUser     = "HumanUser"
	EntityGroup         = "Group"
	EntityProject       = "Project"
	EntityTask          = "Task"
	EntityShot          = "Shot"
	EntityTicket        = "Ticket"
	EntityVersion       = "Version"
	EntityPublishedFile = "PublishedFile"
	EntityStatus        = "Status"
	EntityReply         = "Reply"
)

// EventType builds the ShotGrid event log type for an entity and action,
// e.g. EventType("Task", "Change") == "Shotgun_Task_Change".
func EventType(entityType, action string) string {
	return "Shotgun_" + entityType + "_" + action
}

// EntityRef is a link to a record-store entity.
type EntityRef struct {
	Type string `json:"type"`
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// IsZero reports whether the ref is empty.
func (r EntityRef) IsZero() bool { return r.Type == "" && r.ID == 0 }

// Key identifies the referenced entity independently of its display name.
func (r EntityRef) Key() string { return r.Type + "#" + strconv.Itoa(r.ID) }

// Same reports whether both refs point at the same entity.
func (r EntityRef) Same(other EntityRef) bool {
	return r.Type == other.Type && r.ID == other.ID
}

func (r EntityRef) String() string {
	if r.Name != "" {
		return r.Key() + " (" + r.Name + ")"
	}
	return r.Key()
}

// ProjectRef is the owning project of an event.
type ProjectRef struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Meta is the change payload of an event. Fields are populated only as
// relevant to the triggering change type.
type Meta struct {
	EntityID      int         `json:"entity_id,omitempty"`
	EntityType    string      `json:"entity_type,omitempty"`
	AttributeName string      `json:"attribute_name,omitempty"`
	Type          string      `json:"type,omitempty"`
	Added         []EntityRef `json:"added,omitempty"`
	Removed       []EntityRef `json:"removed,omitempty"`
	NewValue      any         `json:"new_value,omitempty"`
	OldValue      any         `json:"old_value,omitempty"`
}

// Event is one change notification from the record store. Once handed to
// the relay it is only ever read.
type Event struct {
	ID            int         `json:"id"`
	EventType     string      `json:"event_type"`
	AttributeName string      `json:"attribute_name,omitempty"`
	Entity        EntityRef   `json:"entity"`
	Project       *ProjectRef `json:"project,omitempty"`
	Actor         EntityRef   `json:"user"`
	Meta          Meta        `json:"meta"`
	SessionUUID   string      `json:"session_uuid,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Attribute returns the changed attribute, preferring the top-level field.
func (e Event) Attribute() string {
	if e.AttributeName != "" {
		return e.AttributeName
	}
	return e.Meta.AttributeName
}

// Validate checks the minimum shape needed to route an event.
func (e Event) Validate() error {
	var errs []FieldError
	if e.EventType == "" {
		errs = append(errs, FieldError{Field: "event_type", Message: "required"})
	}
	if e.Entity.IsZero() && e.Meta.EntityID == 0 {
		errs = append(errs, FieldError{Field: "entity", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
