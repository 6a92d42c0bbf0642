package routing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

const stepField = "task.Task.step.Step.code"

func publish(step, fileType, pathName string) domain.Record {
	return domain.Record{
		"type":                "PublishedFile",
		"id":                  11,
		"name":                "sh010_cam",
		stepField:             step,
		"published_file_type": map[string]any{"type": "PublishedFileType", "id": 3, "name": fileType},
		"path":                map[string]any{"name": pathName, "local_path_linux": "/jobs/" + pathName},
	}
}

func TestMatchSpec(t *testing.T) {
	t.Parallel()

	abc := Predicate("abc", func(v any) bool {
		s, ok := v.(string)
		return ok && strings.HasSuffix(s, ".abc")
	})

	tests := []struct {
		name  string
		spec  MatchSpec
		value any
		want  bool
	}{
		{"literal string", Literal("FX"), "FX", true},
		{"literal mismatch", Literal("FX"), "Lighting", false},
		{"literal number across types", Literal(3), float64(3), true},
		{"one of hit", OneOf("Animation", "FX"), "FX", true},
		{"one of miss", OneOf("Animation", "FX"), "Comp", false},
		{"one of empty", OneOf(), "FX", false},
		{"nested hit", Nested(map[string]MatchSpec{"name": Literal("Camera")}), map[string]any{"name": "Camera", "id": 3}, true},
		{"nested missing field", Nested(map[string]MatchSpec{"name": Literal("Camera")}), map[string]any{"id": 3}, false},
		{"nested on scalar", Nested(map[string]MatchSpec{"name": Literal("Camera")}), "Camera", false},
		{"nested on nil", Nested(map[string]MatchSpec{"name": Literal("Camera")}), nil, false},
		{"predicate hit", abc, "cam.abc", true},
		{"predicate miss", abc, "cam.fbx", false},
		{"zero spec", MatchSpec{}, "anything", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.spec.Matches(tt.value))
		})
	}
}

func TestRoute_UnionDeduplicated(t *testing.T) {
	t.Parallel()

	rules := []Rule{
		{Name: "one", Fields: map[string]MatchSpec{"code": Literal("x")}, Channels: []string{"#a", "#b"}},
		{Name: "two", Fields: map[string]MatchSpec{"code": OneOf("x", "y")}, Channels: []string{"#b", "#c"}},
		{Name: "three", Fields: map[string]MatchSpec{"code": Literal("z")}, Channels: []string{"#d"}},
	}

	got := Route(domain.Record{"code": "x", "extra": 1}, rules)

	assert.Equal(t, []string{"#a", "#b", "#c"}, got)
}

func TestRoute_WildcardRule(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Name: "all", Channels: []string{"#everything"}}}

	for _, snap := range []domain.Record{{}, {"code": "x"}, nil} {
		assert.Equal(t, []string{"#everything"}, Route(snap, rules))
	}
	assert.Equal(t, "*", rules[0].Describe())
}

func TestRoute_NoMatch(t *testing.T) {
	t.Parallel()

	rules := []Rule{{Fields: map[string]MatchSpec{"code": Literal("x")}, Channels: []string{"#a"}}}

	got := Route(domain.Record{"code": "y"}, rules)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadRules_PublishRules(t *testing.T) {
	t.Parallel()

	rules, err := LoadRules("testdata/publish_rules.yaml")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "lighting-to-comp", rules[0].Name)

	tests := []struct {
		name string
		snap domain.Record
		want []string
	}{
		{"lighting", publish("Lighting", "Image", "beauty.exr"), []string{"#compositing"}},
		{"animation", publish("Animation", "Cache", "anim.abc"), []string{"#lighting"}},
		{"sculpt", publish("Shot Sculpt", "Model", "sculpt.obj"), []string{"#lighting"}},
		{"matchmove camera alembic", publish("Matchmove", "Camera", "cam.abc"), []string{"#anim", "#lighting"}},
		{"matchmove camera fbx", publish("Matchmove", "Camera", "cam.fbx"), []string{}},
		{"matchmove geometry", publish("Matchmove", "Geometry", "geo.abc"), []string{}},
		{"comp", publish("Comp", "Image", "comp.exr"), []string{}},
		{"no step", domain.Record{"type": "PublishedFile", "id": 1}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Route(tt.snap, rules))
		})
	}

	assert.Equal(t, []string{"path", "published_file_type", stepField}, FieldNames(rules))
}

func TestParseRules_Operators(t *testing.T) {
	t.Parallel()

	rules, err := ParseRules([]byte(`
rules:
  - name: ops
    match:
      code: {prefix: sh}
      desc: {contains: hero}
      name: {regex: "^v[0-9]+$"}
      status: {not: [omt, hld]}
      version: 3
    channels: ["#ops"]
`))
	require.NoError(t, err)
	require.Len(t, rules, 1)

	hit := domain.Record{"code": "sh010", "desc": "the hero shot", "name": "v012", "status": "ip", "version": float64(3)}
	assert.True(t, rules[0].Matches(hit))

	for field, value := range map[string]any{
		"code":    "as010",
		"desc":    "background",
		"name":    "v01a",
		"status":  "omt",
		"version": float64(4),
	} {
		miss := domain.Record{}
		for k, v := range hit {
			miss[k] = v
		}
		miss[field] = value
		assert.False(t, rules[0].Matches(miss), "field %s", field)
	}
}

func TestParseRules_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"no channels", "rules:\n  - match: {code: x}\n"},
		{"bad regex", "rules:\n  - match: {code: {regex: \"(\"}}\n    channels: [\"#a\"]\n"},
		{"nested alternatives", "rules:\n  - match: {code: [[a]]}\n    channels: [\"#a\"]\n"},
		{"suffix of mapping", "rules:\n  - match: {code: {suffix: {a: b}}}\n    channels: [\"#a\"]\n"},
		{"not yaml", "rules: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseRules_DefaultNames(t *testing.T) {
	t.Parallel()

	rules, err := ParseRules([]byte("rules:\n  - channels: [\"#all\"]\n"))

	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule-1", rules[0].Name)
	assert.True(t, rules[0].Matches(domain.Record{"anything": true}))
}
