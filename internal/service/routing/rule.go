package routing

import (
	"sort"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// Rule sends snapshots matching every field spec to Channels. A rule with no
// field specs matches every snapshot.
type Rule struct {
	Name     string
	Fields   map[string]MatchSpec
	Channels []string
}

// Matches reports whether snapshot satisfies the rule. Snapshot fields the
// rule does not name are ignored.
func (r Rule) Matches(snapshot domain.Record) bool {
	return matchFields(r.Fields, snapshot)
}

// Describe renders the rule conditions for display.
func (r Rule) Describe() string {
	if len(r.Fields) == 0 {
		return "*"
	}
	return describeFields(r.Fields)
}

// Route evaluates every rule in order and returns the union of the channels
// of all matching rules, each once, in first-seen order. No match yields an
// empty result.
func Route(snapshot domain.Record, rules []Rule) []string {
	seen := make(map[string]struct{})
	channels := make([]string, 0)
	for _, rule := range rules {
		if !rule.Matches(snapshot) {
			continue
		}
		for _, ch := range rule.Channels {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}
			channels = append(channels, ch)
		}
	}
	return channels
}

// FieldNames returns the sorted top-level fields named by rules, so callers
// can fetch exactly what the rules need.
func FieldNames(rules []Rule) []string {
	set := make(map[string]struct{})
	for _, rule := range rules {
		for name := range rule.Fields {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
