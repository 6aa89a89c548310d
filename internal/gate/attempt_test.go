package gate

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner maps check names to canned outcomes and records invocations.
type stubRunner struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	calls    []string
	hints    map[string]string
}

func newStubRunner(outcomes map[string]Outcome) *stubRunner {
	return &stubRunner{outcomes: outcomes, hints: make(map[string]string)}
}

func (s *stubRunner) Run(_ context.Context, gateID, _, outputHint string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, gateID)
	s.hints[gateID] = outputHint
	return s.outcomes[gateID]
}

func (s *stubRunner) calledChecks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.calls...)
	sort.Strings(out)
	return out
}

func TestSpec_Checks(t *testing.T) {
	assert.Equal(t, []string{"validate"}, Spec{ID: "validate"}.Checks())
	assert.Equal(t, []string{"a", "b"}, Spec{ID: "stage", Subtasks: []string{"a", "b"}}.Checks())
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr string
	}{
		{name: "valid", spec: Spec{ID: "validate"}},
		{name: "missing id", spec: Spec{}, wantErr: "missing id"},
		{name: "self dependency", spec: Spec{ID: "x", DependsOn: []string{"x"}}, wantErr: "depends on itself"},
		{name: "negative iterations", spec: Spec{ID: "x", MaxIterations: -1}, wantErr: "max_iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAttemptStage_SingleCheck(t *testing.T) {
	runner := newStubRunner(map[string]Outcome{
		"validate": {Passed: true},
	})

	outcome := AttemptStage(context.Background(), runner, Spec{ID: "validate"}, "spec.md", "")

	assert.True(t, outcome.Passed)
	assert.Equal(t, []string{"validate"}, runner.calledChecks())
}

func TestAttemptStage_AllSubchecksPass(t *testing.T) {
	runner := newStubRunner(map[string]Outcome{
		"validate":      {Passed: true},
		"security-scan": {Passed: true},
	})
	spec := Spec{ID: "validate-stage", Subtasks: []string{"validate", "security-scan"}}

	outcome := AttemptStage(context.Background(), runner, spec, "spec.md", "")

	assert.True(t, outcome.Passed)
	assert.Equal(t, []string{"security-scan", "validate"}, runner.calledChecks())
}

func TestAttemptStage_OneGuidedFailureFailsStage(t *testing.T) {
	runner := newStubRunner(map[string]Outcome{
		"validate":      {Passed: true},
		"security-scan": {GuidancePaths: []string{"spec.md.security-scan-instruction.md"}, Detail: "check security-scan failed"},
	})
	spec := Spec{ID: "validate-stage", Subtasks: []string{"validate", "security-scan"}}

	outcome := AttemptStage(context.Background(), runner, spec, "spec.md", "")

	assert.False(t, outcome.Passed)
	assert.False(t, outcome.Unrecoverable)
	assert.Equal(t, []string{"spec.md.security-scan-instruction.md"}, outcome.GuidancePaths)
	assert.True(t, outcome.Guided())
}

func TestAttemptStage_GuidedFailuresAccumulate(t *testing.T) {
	runner := newStubRunner(map[string]Outcome{
		"ai-review":         {GuidancePaths: []string{"a.md"}, Detail: "check ai-review failed"},
		"performance-audit": {GuidancePaths: []string{"b.md"}, Detail: "check performance-audit failed"},
	})
	spec := Spec{ID: "review", Subtasks: []string{"ai-review", "performance-audit"}}

	outcome := AttemptStage(context.Background(), runner, spec, "spec.md", "")

	assert.False(t, outcome.Passed)
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, outcome.GuidancePaths)
	assert.Contains(t, outcome.Detail, "ai-review")
	assert.Contains(t, outcome.Detail, "performance-audit")
}

func TestAttemptStage_UnrecoverablePoisonsStage(t *testing.T) {
	// A sibling's guidance cannot make the attempt retryable when another
	// sub-check is unrecoverable.
	runner := newStubRunner(map[string]Outcome{
		"build-check": {Unrecoverable: true, Detail: "check build-check timed out"},
		"lint-check":  {GuidancePaths: []string{"lint.md"}, Detail: "check lint-check failed"},
	})
	spec := Spec{ID: "parallel-checks", Subtasks: []string{"build-check", "lint-check"}}

	outcome := AttemptStage(context.Background(), runner, spec, ".", "")

	assert.False(t, outcome.Passed)
	assert.True(t, outcome.Unrecoverable)
	assert.Nil(t, outcome.GuidancePaths)
	assert.False(t, outcome.Guided())
}

func TestAttemptStage_OutputHintOnlyWhenPassOutput(t *testing.T) {
	runner := newStubRunner(map[string]Outcome{"generate": {Passed: true}})

	AttemptStage(context.Background(), runner, Spec{ID: "generate"}, "in.md", "out.md")
	assert.Equal(t, "", runner.hints["generate"])

	AttemptStage(context.Background(), runner, Spec{ID: "generate", PassOutput: true}, "in.md", "out.md")
	assert.Equal(t, "out.md", runner.hints["generate"])
}
