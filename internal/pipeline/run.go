package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/retry"
)

// Run is one execution of the graph against a concrete root input. It owns
// its artifact table and status map for its lifetime. Artifact entries are
// write-once: each stage id writes exactly one key.
type Run struct {
	// ID uniquely identifies the run.
	ID string

	// Root is the path or identifier supplied by the caller.
	Root string

	// StartedAt is when the run was created.
	StartedAt time.Time

	mu        sync.Mutex
	artifacts map[string]string
	status    map[string]gate.Status
	attempts  map[string]int
	failure   *StageFailure
}

// StageFailure describes the stage that halted a run.
type StageFailure struct {
	Gate     string
	State    retry.State
	Attempts int
	Outcome  gate.Outcome
}

// Error renders the failure for reporting: the exact failing stage, its
// failure kind, and the guidance location when one exists.
func (f *StageFailure) Error() string {
	switch {
	case f.Outcome.Unrecoverable:
		return fmt.Sprintf("gate %s failed unrecoverably after %d attempt(s): %s", f.Gate, f.Attempts, f.Outcome.Detail)
	case len(f.Outcome.GuidancePaths) > 0:
		return fmt.Sprintf("gate %s exhausted after %d attempt(s); guidance at %v", f.Gate, f.Attempts, f.Outcome.GuidancePaths)
	default:
		return fmt.Sprintf("gate %s exhausted after %d attempt(s)", f.Gate, f.Attempts)
	}
}

// NewRun creates a pending run for the given graph and root input.
func NewRun(g *Graph, root string) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Root:      root,
		StartedAt: time.Now(),
		artifacts: make(map[string]string),
		status:    make(map[string]gate.Status),
		attempts:  make(map[string]int),
	}
	for _, id := range g.order {
		run.status[id] = gate.StatusPending
	}
	return run
}

// Status returns the stage's current status.
func (r *Run) Status(id string) gate.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[id]
}

// Artifact returns the artifact a stage produced, if it has passed.
func (r *Run) Artifact(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.artifacts[id]
	return path, ok
}

// Attempts returns how many validator invocations a stage consumed.
func (r *Run) Attempts(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[id]
}

// Failure returns the halting cause, if the run halted.
func (r *Run) Failure() *StageFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

func (r *Run) setRunning(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[id] = gate.StatusRunning
}

// recordPass commits a stage's artifact. The table is write-once per key;
// a second write for the same stage is an executor bug.
func (r *Run) recordPass(id, artifactPath string, attempts int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.artifacts[id]; exists {
		return fmt.Errorf("artifact for gate %s written twice", id)
	}
	r.artifacts[id] = artifactPath
	r.status[id] = gate.StatusPassed
	r.attempts[id] = attempts
	return nil
}

// recordFailure marks a stage failed and, if this is the run's first failure,
// records it as the halting cause.
func (r *Run) recordFailure(failure *StageFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[failure.Gate] = gate.StatusFailed
	r.attempts[failure.Gate] = failure.Attempts
	if r.failure == nil {
		r.failure = failure
	}
}

// MarkPassed pre-seeds a stage as passed with an existing artifact, for
// resuming a run from committed state.
func (r *Run) MarkPassed(id, artifactPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.status[id]; !known {
		return fmt.Errorf("unknown gate %s", id)
	}
	if _, exists := r.artifacts[id]; exists {
		return fmt.Errorf("artifact for gate %s written twice", id)
	}
	r.artifacts[id] = artifactPath
	r.status[id] = gate.StatusPassed
	return nil
}

// StageState is one stage's externally visible state.
type StageState struct {
	ID       string      `json:"id"`
	Status   gate.Status `json:"status"`
	Artifact string      `json:"artifact,omitempty"`
	Attempts int         `json:"attempts,omitempty"`
}

// Snapshot is a consistent copy of run state for reporting.
type Snapshot struct {
	ID        string       `json:"id"`
	Root      string       `json:"root"`
	StartedAt time.Time    `json:"started_at"`
	Stages    []StageState `json:"stages"`
	Failure   string       `json:"failure,omitempty"`
}

// Snapshot captures the run's state in the graph's declaration order.
func (r *Run) Snapshot(g *Graph) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		ID:        r.ID,
		Root:      r.Root,
		StartedAt: r.StartedAt,
		Stages:    make([]StageState, 0, len(g.order)),
	}
	for _, id := range g.order {
		snap.Stages = append(snap.Stages, StageState{
			ID:       id,
			Status:   r.status[id],
			Artifact: r.artifacts[id],
			Attempts: r.attempts[id],
		})
	}
	if r.failure != nil {
		snap.Failure = r.failure.Error()
	}
	return snap
}
