package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designops/ralph/internal/gate"
)

func spec(id string, deps ...string) gate.Spec {
	return gate.Spec{ID: id, Subject: id, DependsOn: deps}
}

func TestNewGraph_Validation(t *testing.T) {
	tests := []struct {
		name    string
		specs   []gate.Spec
		wantErr string
	}{
		{name: "empty set", specs: nil, wantErr: "at least one gate"},
		{name: "invalid spec", specs: []gate.Spec{{}}, wantErr: "missing id"},
		{
			name:    "duplicate id",
			specs:   []gate.Spec{spec("a"), spec("a")},
			wantErr: "duplicate gate id",
		},
		{
			name:    "dangling dependency",
			specs:   []gate.Spec{spec("a", "ghost")},
			wantErr: "unknown gate",
		},
		{
			name: "dangling input source",
			specs: []gate.Spec{
				spec("a"),
				{ID: "b", DependsOn: []string{"a"}, InputFrom: "ghost"},
			},
			wantErr: "unknown gate",
		},
		{
			name:    "cycle",
			specs:   []gate.Spec{spec("a", "b"), spec("b", "a")},
			wantErr: "dependency cycle",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGraph(tt.specs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewGraph_WorkdirInputNeedsNoGate(t *testing.T) {
	g, err := NewGraph([]gate.Spec{
		spec("a"),
		{ID: "b", DependsOn: []string{"a"}, InputFrom: gate.InputWorkdir},
	})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestGraph_Plan_Linear(t *testing.T) {
	g, err := NewGraph([]gate.Spec{
		spec("a"),
		spec("b", "a"),
		spec("c", "b"),
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, g.Plan())
}

func TestGraph_Plan_Diamond(t *testing.T) {
	g, err := NewGraph([]gate.Spec{
		spec("root"),
		spec("left", "root"),
		spec("right", "root"),
		spec("join", "left", "right"),
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"root"}, {"left", "right"}, {"join"}}, g.Plan())
}

func TestGraph_Plan_IsACopy(t *testing.T) {
	g, err := NewGraph([]gate.Spec{spec("a"), spec("b", "a")})
	require.NoError(t, err)

	plan := g.Plan()
	plan[0][0] = "mutated"

	assert.Equal(t, [][]string{{"a"}, {"b"}}, g.Plan())
}

func TestGraph_Spec(t *testing.T) {
	g, err := NewGraph([]gate.Spec{spec("a")})
	require.NoError(t, err)

	s, ok := g.Spec("a")
	assert.True(t, ok)
	assert.Equal(t, "a", s.ID)

	_, ok = g.Spec("ghost")
	assert.False(t, ok)
}

func TestGraph_Specs_DeclarationOrder(t *testing.T) {
	g, err := NewGraph([]gate.Spec{spec("z"), spec("a", "z"), spec("m", "z")})
	require.NoError(t, err)

	var ids []string
	for _, s := range g.Specs() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"z", "a", "m"}, ids)
}

func TestGraph_Dependents(t *testing.T) {
	g, err := NewGraph([]gate.Spec{
		spec("root"),
		spec("left", "root"),
		spec("right", "root"),
		spec("join", "left", "right"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"left", "right"}, g.Dependents("root"))
	assert.Equal(t, []string{"join"}, g.Dependents("left"))
	assert.Empty(t, g.Dependents("join"))
}

func TestDefaultSpecs_FormAValidGraph(t *testing.T) {
	g, err := NewGraph(DefaultSpecs())
	require.NoError(t, err)

	plan := g.Plan()
	require.NotEmpty(t, plan)
	assert.Equal(t, []string{"create-spec"}, plan[0])

	total := 0
	for _, batch := range plan {
		total += len(batch)
	}
	assert.Equal(t, len(DefaultSpecs()), total)
}
