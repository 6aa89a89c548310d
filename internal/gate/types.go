// Package gate defines validation stages and runs them against target artifacts.
// A gate wraps one invocation of the external validator and interprets its
// pass/fail contract; stages with sub-checks fan out and join with AND semantics.
package gate

import (
	"fmt"

	"github.com/designops/ralph/internal/artifact"
)

// InputWorkdir is the InputFrom value selecting the pipeline working
// directory instead of a dependency's artifact.
const InputWorkdir = "workdir"

// Status represents the lifecycle state of a stage within a run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// Spec is the static definition of a pipeline stage. Specs are immutable,
// process-wide configuration loaded once at startup.
type Spec struct {
	// ID is the unique stage identifier, stable across runs.
	ID string `koanf:"id" json:"id"`

	// Subject is a human-readable one-line description of the stage.
	Subject string `koanf:"subject" json:"subject"`

	// Subtasks are independent sub-checks run concurrently within this stage.
	// Each entry is a validator gate name. Empty means the stage is a single
	// check invoked under its own ID.
	Subtasks []string `koanf:"subtasks" json:"subtasks,omitempty"`

	// DependsOn lists the stage IDs that must pass before this stage runs.
	// The first entry is the primary dependency whose artifact becomes this
	// stage's input unless InputFrom overrides it.
	DependsOn []string `koanf:"depends_on" json:"depends_on,omitempty"`

	// InputFrom optionally overrides input resolution: a stage ID selects
	// that stage's artifact, the special value "workdir" selects the
	// pipeline working directory.
	InputFrom string `koanf:"input_from" json:"input_from,omitempty"`

	// Output declares how this stage's output path is derived.
	Output artifact.Rule `koanf:"output" json:"output"`

	// PassOutput controls arity: when true the resolved output path is passed
	// to the validator as a second explicit argument.
	PassOutput bool `koanf:"pass_output" json:"pass_output,omitempty"`

	// MaxIterations overrides the pipeline-wide retry bound for this stage.
	// Zero means use the default.
	MaxIterations int `koanf:"max_iterations" json:"max_iterations,omitempty"`
}

// Checks returns the validator gate names this stage runs: its sub-checks,
// or the stage's own ID when it has none.
func (s Spec) Checks() []string {
	if len(s.Subtasks) > 0 {
		return s.Subtasks
	}
	return []string{s.ID}
}

// Validate checks the spec's internal consistency.
func (s Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("gate spec missing id")
	}
	for _, dep := range s.DependsOn {
		if dep == s.ID {
			return fmt.Errorf("gate %s depends on itself", s.ID)
		}
	}
	if err := s.Output.Validate(); err != nil {
		return fmt.Errorf("gate %s: %w", s.ID, err)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("gate %s: max_iterations cannot be negative", s.ID)
	}
	return nil
}

// Outcome is the result of one validation attempt against a stage.
type Outcome struct {
	// Passed reports whether the validator signaled success.
	Passed bool

	// Unrecoverable is true when the failure carries no actionable guidance:
	// a missing instruction file, a timeout, or an invocation error. The
	// retry loop must not loop on it.
	Unrecoverable bool

	// GuidancePaths are the instruction files produced by failed checks,
	// present only for guided failures.
	GuidancePaths []string

	// Detail is a short human-readable description of the failure.
	Detail string
}

// Guided reports whether the outcome is a failure that remediation can fix.
func (o Outcome) Guided() bool {
	return !o.Passed && !o.Unrecoverable && len(o.GuidancePaths) > 0
}
