package retry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/remediation"
)

// scriptedRunner returns its outcomes in sequence, repeating the last one.
type scriptedRunner struct {
	mu       sync.Mutex
	outcomes []gate.Outcome
	calls    int
}

func (s *scriptedRunner) Run(_ context.Context, _, _, _ string) gate.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	return s.outcomes[i]
}

// recordingActor counts awaits and optionally fails.
type recordingActor struct {
	mu     sync.Mutex
	awaits []remediation.Guidance
	err    error
}

func (a *recordingActor) Await(_ context.Context, g remediation.Guidance) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.awaits = append(a.awaits, g)
	return a.err
}

func guided(path string) gate.Outcome {
	return gate.Outcome{GuidancePaths: []string{path}, Detail: "check failed"}
}

func TestLoop_PassFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{{Passed: true}}}
	actor := &recordingActor{}
	loop := New(runner, actor, Config{})

	result := loop.Execute(context.Background(), gate.Spec{ID: "validate"}, "spec.md", "")

	assert.Equal(t, StatePassed, result.State)
	assert.True(t, result.Passed())
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, actor.awaits)
}

func TestLoop_PassAfterRemediation(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{
		guided("spec.md.validate-instruction.md"),
		{Passed: true},
	}}
	actor := &recordingActor{}
	loop := New(runner, actor, Config{})

	result := loop.Execute(context.Background(), gate.Spec{ID: "validate"}, "spec.md", "")

	assert.Equal(t, StatePassed, result.State)
	assert.Equal(t, 2, result.Attempts)
	require.Len(t, actor.awaits, 1)
	assert.Equal(t, "validate", actor.awaits[0].Gate)
	assert.Equal(t, 1, actor.awaits[0].Attempt)
	assert.Equal(t, []string{"spec.md.validate-instruction.md"}, actor.awaits[0].Paths)
}

func TestLoop_ExhaustedAtBound(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{guided("g.md")}}
	actor := &recordingActor{}
	loop := New(runner, actor, Config{MaxIterations: 3})

	result := loop.Execute(context.Background(), gate.Spec{ID: "check"}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.False(t, result.Passed())
	assert.Equal(t, 3, result.Attempts)
	// No remediation wait after the final attempt.
	assert.Len(t, actor.awaits, 2)
}

func TestLoop_UnrecoverableNeverRetries(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{
		{Unrecoverable: true, Detail: "check validate failed with no instruction file"},
	}}
	actor := &recordingActor{}
	loop := New(runner, actor, Config{MaxIterations: 5})

	result := loop.Execute(context.Background(), gate.Spec{ID: "validate"}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, actor.awaits)
	assert.True(t, result.Outcome.Unrecoverable)
}

func TestLoop_SpecOverridesIterationBound(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{guided("g.md")}}
	actor := &recordingActor{}
	loop := New(runner, actor, Config{MaxIterations: 5})

	result := loop.Execute(context.Background(), gate.Spec{ID: "check", MaxIterations: 2}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 2, result.Attempts)
}

func TestLoop_ActorErrorExhausts(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{guided("g.md")}}
	actor := &recordingActor{err: errors.New("operator gone")}
	loop := New(runner, actor, Config{MaxIterations: 5})

	result := loop.Execute(context.Background(), gate.Spec{ID: "check"}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 1, result.Attempts)
}

func TestLoop_CancelledBeforeFirstAttempt(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{{Passed: true}}}
	loop := New(runner, nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := loop.Execute(ctx, gate.Spec{ID: "check"}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, 0, runner.calls)
}

func TestLoop_CancelledDuringAwait(t *testing.T) {
	runner := &scriptedRunner{outcomes: []gate.Outcome{guided("g.md")}}
	ctx, cancel := context.WithCancel(context.Background())

	// The nop actor returns ctx.Err once cancelled.
	loop := New(runner, cancellingActor{cancel: cancel}, Config{MaxIterations: 5})

	result := loop.Execute(ctx, gate.Spec{ID: "check"}, "spec.md", "")

	assert.Equal(t, StateExhausted, result.State)
	assert.Equal(t, 1, result.Attempts)
}

// cancellingActor cancels the run instead of remediating.
type cancellingActor struct {
	cancel context.CancelFunc
}

func (a cancellingActor) Await(ctx context.Context, _ remediation.Guidance) error {
	a.cancel()
	return ctx.Err()
}

func TestNew_Defaults(t *testing.T) {
	loop := New(&scriptedRunner{outcomes: []gate.Outcome{{Passed: true}}}, nil, Config{})
	assert.Equal(t, DefaultMaxIterations, loop.maxIterations)
	assert.NotNil(t, loop.actor)
	assert.NotNil(t, loop.logger)
}
