package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus is the result of one delivery attempt.
type OutcomeStatus string

const (
	OutcomeSucceeded  OutcomeStatus = "succeeded"
	OutcomeFailed     OutcomeStatus = "failed"
	OutcomeUnresolved OutcomeStatus = "unresolved"
)

func (s OutcomeStatus) String() string { return string(s) }

func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeSucceeded, OutcomeFailed, OutcomeUnresolved:
		return true
	}
	return false
}

// Outcome records what happened to a single delivery target.
type Outcome struct {
	// Target is the chat id or channel the message went to. For an
	// unresolved recipient it names the record-store user instead.
	Target    string        `json:"target,omitempty"`
	Recipient *EntityRef    `json:"recipient,omitempty"`
	Status    OutcomeStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// Report summarizes one handler's processing of one event.
type Report struct {
	Handler  string    `json:"handler"`
	EventID  int       `json:"event_id"`
	Admitted bool      `json:"admitted"`
	Reason   string    `json:"reason,omitempty"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Dropped builds a report for an event the handler chose not to act on.
func Dropped(handler string, eventID int, reason string) Report {
	return Report{Handler: handler, EventID: eventID, Reason: reason}
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Run is a journaled report.
type Run struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
	Report
}
