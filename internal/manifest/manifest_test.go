package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/pipeline"
)

func testGraph(t *testing.T) *pipeline.Graph {
	t.Helper()
	g, err := pipeline.NewGraph([]gate.Spec{
		{ID: "validate", Subject: "Check the spec"},
		{ID: "generate", Subject: "Extract the PRP", DependsOn: []string{"validate"}},
		{ID: "check", DependsOn: []string{"generate"}},
	})
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	tasks := Generate(testGraph(t))
	require.Len(t, tasks, 3)

	assert.Equal(t, Task{
		ID:         "validate",
		Subject:    "Check the spec",
		ActiveForm: "Running gate validate",
		Blocks:     []string{"generate"},
		BlockedBy:  []string{},
	}, tasks[0])

	assert.Equal(t, []string{"validate"}, tasks[1].BlockedBy)
	assert.Equal(t, []string{"check"}, tasks[1].Blocks)

	// A gate without a subject gets a generated one.
	assert.Equal(t, "Gate check", tasks[2].Subject)
	assert.Equal(t, []string{}, tasks[2].Blocks)
}

func TestWriteAndLoad(t *testing.T) {
	tasks := Generate(testGraph(t))
	path := filepath.Join(t.TempDir(), ".ralph", "tasks.json")

	require.NoError(t, Write(path, tasks))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tasks, loaded)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	out := Summary(Generate(testGraph(t)))

	assert.Contains(t, out, "[ready  ] validate: Check the spec")
	assert.Contains(t, out, "[blocked] generate: Extract the PRP")
	assert.Contains(t, out, "blocked by: validate")
}
