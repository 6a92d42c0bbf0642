package guard

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

var statuses = []string{"wtg", "rdy", "ip", "rev", "cmpt", "omt", "hld"}

func genStatus(t *rapid.T, label string) string {
	return rapid.SampledFrom(statuses).Draw(t, label)
}

// Property: an event whose new value equals its old value is never admitted,
// whatever the current state of the entity.
func TestProperty_NoChangeNeverAdmitted(t *testing.T) {
	g := New(newTestLogger(), "sg_status_list")

	rapid.Check(t, func(t *rapid.T) {
		value := genStatus(t, "value")
		current := genStatus(t, "current")
		event := statusEvent(value, value)

		if g.Admit(event, domain.Record{"sg_status_list": current}) {
			t.Fatalf("admitted no-op event %q -> %q (current %q)", value, value, current)
		}
	})
}

// Property: when the authoritative value differs from the event's new value
// the event is dropped as stale, even though new != old.
func TestProperty_StaleNeverAdmitted(t *testing.T) {
	g := New(newTestLogger(), "sg_status_list")

	rapid.Check(t, func(t *rapid.T) {
		oldValue := genStatus(t, "old")
		newValue := genStatus(t, "new")
		current := genStatus(t, "current")
		if newValue == oldValue || current == newValue {
			t.Skip("not a stale event")
		}

		v := g.Check(statusEvent(newValue, oldValue), domain.Record{"sg_status_list": current})
		if v.Admitted || v.Reason != ReasonStale {
			t.Fatalf("verdict = %+v, want stale drop", v)
		}
	})
}

// Property: an admitted event's current value is always in the allow-list.
func TestProperty_AdmittedValuesAreAllowed(t *testing.T) {
	g := New(newTestLogger(), "sg_status_list", "cmpt", "ip")

	rapid.Check(t, func(t *rapid.T) {
		oldValue := genStatus(t, "old")
		newValue := genStatus(t, "new")
		current := genStatus(t, "current")

		if g.Admit(statusEvent(newValue, oldValue), domain.Record{"sg_status_list": current}) {
			if current != "cmpt" && current != "ip" {
				t.Fatalf("admitted disallowed value %q", current)
			}
		}
	})
}
