package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// wireEvent is an event as ShotGrid sends it, either inside a webhook
// delivery or as a raw event log entry.
type wireEvent struct {
	ID              json.RawMessage   `json:"id"`
	EventLogEntryID int               `json:"event_log_entry_id"`
	EventType       string            `json:"event_type"`
	AttributeName   string            `json:"attribute_name"`
	Entity          *domain.EntityRef `json:"entity"`
	Project         *domain.EntityRef `json:"project"`
	User            *domain.EntityRef `json:"user"`
	Meta            domain.Meta       `json:"meta"`
	SessionUUID     string            `json:"session_uuid"`
	CreatedAt       string            `json:"created_at"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type batch struct {
	Deliveries []json.RawMessage `json:"deliveries"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// DecodeEvents parses a webhook delivery, a batched delivery, a raw event
// log entry or a JSON array of entries.
func DecodeEvents(body []byte) ([]domain.Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("decode events: empty body")
	}

	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return decodeAll(items)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	if len(env.Data) == 0 {
		ev, err := decodeEvent(body)
		if err != nil {
			return nil, err
		}
		return []domain.Event{ev}, nil
	}

	var b batch
	if err := json.Unmarshal(env.Data, &b); err == nil && b.Deliveries != nil {
		return decodeAll(b.Deliveries)
	}
	ev, err := decodeEvent(env.Data)
	if err != nil {
		return nil, err
	}
	return []domain.Event{ev}, nil
}

func decodeAll(items []json.RawMessage) ([]domain.Event, error) {
	events := make([]domain.Event, 0, len(items))
	for i, item := range items {
		var env envelope
		if err := json.Unmarshal(item, &env); err == nil && len(env.Data) > 0 {
			item = env.Data
		}
		ev, err := decodeEvent(item)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeEvent(data []byte) (domain.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}

	ev := domain.Event{
		ID:            w.EventLogEntryID,
		EventType:     w.EventType,
		AttributeName: w.AttributeName,
		Meta:          w.Meta,
		SessionUUID:   w.SessionUUID,
		CreatedAt:     parseCreatedAt(w.CreatedAt),
	}
	if ev.ID == 0 && len(w.ID) > 0 {
		// Webhook deliveries carry a string delivery id; event log entries
		// carry the numeric entry id here.
		if id, err := strconv.Atoi(string(w.ID)); err == nil {
			ev.ID = id
		}
	}
	if w.Entity != nil {
		ev.Entity = *w.Entity
	}
	if ev.Entity.IsZero() && w.Meta.EntityID != 0 {
		ev.Entity = domain.EntityRef{Type: w.Meta.EntityType, ID: w.Meta.EntityID}
	}
	if w.Project != nil && w.Project.ID != 0 {
		ev.Project = &domain.ProjectRef{ID: w.Project.ID, Name: w.Project.Name}
	}
	if w.User != nil {
		ev.Actor = *w.User
	}
	return ev, nil
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
