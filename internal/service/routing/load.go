package routing

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSet is the YAML form of a rules file:
//
//	rules:
//	  - name: comp
//	    match:
//	      task.Task.step.Step.code: Lighting         # literal
//	    channels: ["#compositing"]
//	  - match:
//	      task.Task.step.Step.code: [Animation, FX]  # one of
//	      path: {name: {suffix: .abc}}               # nested + operator
//	    channels: ["#lighting"]
//
// A mapping with a single key among suffix, prefix, contains, regex and not
// is an operator; any other mapping is a nested match.
type RuleSet struct {
	Rules []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	Name     string               `yaml:"name"`
	Match    map[string]MatchSpec `yaml:"match"`
	Channels []string             `yaml:"channels"`
}

// LoadRules reads a rules file.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routing: read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes rules from YAML, keeping file order.
func ParseRules(data []byte) ([]Rule, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("routing: parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(set.Rules))
	for i, r := range set.Rules {
		if len(r.Channels) == 0 {
			return nil, fmt.Errorf("routing: rule %d (%s): no channels", i, r.Name)
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		rules = append(rules, Rule{Name: name, Fields: r.Match, Channels: r.Channels})
	}
	return rules, nil
}

// UnmarshalYAML decodes a scalar as a literal, a sequence as alternatives,
// and a mapping as a nested match or a single operator.
func (m *MatchSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return err
		}
		*m = Literal(v)
		return nil

	case yaml.SequenceNode:
		values := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: alternatives must be scalars", item.Line)
			}
			var v any
			if err := item.Decode(&v); err != nil {
				return err
			}
			values = append(values, v)
		}
		*m = OneOf(values...)
		return nil

	case yaml.MappingNode:
		if len(node.Content) == 2 {
			if op, ok := operators[node.Content[0].Value]; ok {
				spec, err := op(node.Content[1])
				if err != nil {
					return fmt.Errorf("line %d: %s: %w", node.Line, node.Content[0].Value, err)
				}
				*m = spec
				return nil
			}
		}
		var fields map[string]MatchSpec
		if err := node.Decode(&fields); err != nil {
			return err
		}
		*m = Nested(fields)
		return nil
	}
	return fmt.Errorf("line %d: unsupported match value", node.Line)
}

var operators = map[string]func(*yaml.Node) (MatchSpec, error){
	"suffix":   stringOp("suffix", strings.HasSuffix),
	"prefix":   stringOp("prefix", strings.HasPrefix),
	"contains": stringOp("contains", strings.Contains),
	"regex": func(node *yaml.Node) (MatchSpec, error) {
		re, err := regexp.Compile(node.Value)
		if err != nil {
			return MatchSpec{}, err
		}
		return Predicate("regex "+re.String(), func(v any) bool {
			s, ok := v.(string)
			return ok && re.MatchString(s)
		}), nil
	},
	"not": func(node *yaml.Node) (MatchSpec, error) {
		var inner MatchSpec
		if err := node.Decode(&inner); err != nil {
			return MatchSpec{}, err
		}
		return Predicate("not "+inner.String(), func(v any) bool {
			return !inner.Matches(v)
		}), nil
	},
}

func stringOp(name string, fn func(s, arg string) bool) func(*yaml.Node) (MatchSpec, error) {
	return func(node *yaml.Node) (MatchSpec, error) {
		if node.Kind != yaml.ScalarNode {
			return MatchSpec{}, errors.New("expects a string")
		}
		arg := node.Value
		return Predicate(name+" "+arg, func(v any) bool {
			s, ok := v.(string)
			return ok && fn(s, arg)
		}), nil
	}
}
