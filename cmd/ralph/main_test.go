package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/config"
	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/pipeline"
	"github.com/designops/ralph/internal/remediation"
)

func TestBuildGraph_DefaultsWhenNoGatesConfigured(t *testing.T) {
	cfg := config.Default()

	g, err := buildGraph(&cfg)
	require.NoError(t, err)

	_, ok := g.Spec("create-spec")
	assert.True(t, ok)
}

func TestBuildGraph_ConfiguredGatesReplaceDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Gates = []gate.Spec{{ID: "only-gate"}}

	g, err := buildGraph(&cfg)
	require.NoError(t, err)

	_, ok := g.Spec("only-gate")
	assert.True(t, ok)
	_, ok = g.Spec("create-spec")
	assert.False(t, ok)
}

func TestBuildActor(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		mode string
		want any
	}{
		{mode: config.ModeConsole, want: &remediation.Console{}},
		{mode: config.ModeMarker, want: &remediation.Marker{}},
		{mode: config.ModeNone, want: remediation.Nop{}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := config.Default()
			cfg.Remediation.Mode = tt.mode

			actor, err := buildActor(&cfg, logger)
			require.NoError(t, err)
			assert.IsType(t, tt.want, actor)
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.Remediation.Mode = "telepathy"
		_, err := buildActor(&cfg, logger)
		assert.Error(t, err)
	})
}

func TestLiveRunSnapshot(t *testing.T) {
	g, err := pipeline.NewGraph([]gate.Spec{{ID: "validate"}, {ID: "check", DependsOn: []string{"validate"}}})
	require.NoError(t, err)
	run := pipeline.NewRun(g, "spec.md")
	require.NoError(t, run.MarkPassed("validate", "spec.md"))

	snap := liveRun{run: run, graph: g}.Snapshot()

	assert.Equal(t, run.ID, snap.ID)
	assert.Equal(t, "spec.md", snap.Root)
	require.Len(t, snap.Stages, 2)
	assert.Equal(t, gate.StatusPassed, snap.Stages[0].Status)
	assert.Equal(t, gate.StatusPending, snap.Stages[1].Status)
}

func TestSpecForGate(t *testing.T) {
	cfg := config.Default()

	t.Run("known gate comes from the graph", func(t *testing.T) {
		spec := specForGate(&cfg, "generate")
		assert.Equal(t, []string{"validate"}, spec.DependsOn)
	})

	t.Run("unknown gate gets a bare spec", func(t *testing.T) {
		spec := specForGate(&cfg, "custom-check")
		assert.Equal(t, "custom-check", spec.ID)
		assert.Empty(t, spec.DependsOn)
	})
}
