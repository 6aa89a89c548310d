// Package retry drives a gate through bounded validation attempts with a
// remediation step between failures.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/remediation"
)

// State is the retry loop's position in its per-stage state machine.
type State string

const (
	StatePending             State = "pending"
	StateAttempting          State = "attempting"
	StateAwaitingRemediation State = "awaiting_remediation"
	StatePassed              State = "passed"
	StateExhausted           State = "exhausted"
)

// DefaultMaxIterations bounds attempts per stage unless overridden.
const DefaultMaxIterations = 5

// Config configures a Loop.
type Config struct {
	// MaxIterations is the attempt budget per stage. Zero means
	// DefaultMaxIterations. Individual specs may override it.
	MaxIterations int

	// Guard, when set, checks commit discipline after each remediation.
	Guard *remediation.CommitGuard

	// Logger receives per-attempt progress. Nil disables logging.
	Logger *zap.Logger
}

// Result reports how a stage's retry loop ended.
type Result struct {
	// State is StatePassed or StateExhausted.
	State State

	// Attempts counts validator invocations made for the stage.
	Attempts int

	// Outcome is the final attempt's outcome.
	Outcome gate.Outcome

	// Duration is wall time spent in the loop, remediation included.
	Duration time.Duration
}

// Passed reports whether the stage ultimately passed.
func (r Result) Passed() bool {
	return r.State == StatePassed
}

// Loop wraps gate attempts in a bounded iteration loop with remediation
// between failures.
type Loop struct {
	runner        gate.CheckRunner
	actor         remediation.Actor
	guard         *remediation.CommitGuard
	maxIterations int
	logger        *zap.Logger
}

// New creates a retry loop over the given check runner and remediation actor.
func New(runner gate.CheckRunner, actor remediation.Actor, cfg Config) *Loop {
	if actor == nil {
		actor = remediation.Nop{}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		runner:        runner,
		actor:         actor,
		guard:         cfg.Guard,
		maxIterations: maxIterations,
		logger:        logger.Named("retry"),
	}
}

// Execute drives one stage until it passes, fails unrecoverably, or the
// attempt budget is exhausted.
//
// Guided failures suspend in AwaitingRemediation until the actor signals
// completion; the suspension observes ctx, so cancelling the run moves the
// stage to Exhausted instead of hanging. Unrecoverable failures are never
// retried. The runner is called at most maxIterations times.
func (l *Loop) Execute(ctx context.Context, spec gate.Spec, inputPath, outputHint string) (result Result) {
	maxIterations := l.maxIterations
	if spec.MaxIterations > 0 {
		maxIterations = spec.MaxIterations
	}

	logger := l.logger.With(zap.String("gate", spec.ID), zap.String("target", inputPath))
	result.State = StatePending
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for attempt := 1; attempt <= maxIterations; attempt++ {
		if ctx.Err() != nil {
			result.State = StateExhausted
			return result
		}

		result.State = StateAttempting
		logger.Info("attempting gate", zap.Int("attempt", attempt), zap.Int("max", maxIterations))

		result.Outcome = gate.AttemptStage(ctx, l.runner, spec, inputPath, outputHint)
		result.Attempts = attempt

		if result.Outcome.Passed {
			result.State = StatePassed
			logger.Info("gate passed", zap.Int("attempts", attempt))
			return result
		}

		if result.Outcome.Unrecoverable {
			// No actionable guidance exists; looping cannot help.
			result.State = StateExhausted
			logger.Warn("gate failed unrecoverably", zap.String("detail", result.Outcome.Detail))
			return result
		}

		if attempt == maxIterations {
			break
		}

		result.State = StateAwaitingRemediation
		logger.Info("awaiting remediation",
			zap.Int("attempt", attempt),
			zap.Strings("guidance", result.Outcome.GuidancePaths),
		)

		err := l.actor.Await(ctx, remediation.Guidance{
			Gate:    spec.ID,
			Target:  inputPath,
			Paths:   result.Outcome.GuidancePaths,
			Attempt: attempt,
		})
		if err != nil {
			result.State = StateExhausted
			logger.Warn("remediation aborted", zap.Error(err))
			return result
		}

		if l.guard != nil {
			if err := l.guard.Verify(); err != nil {
				// The next attempt reads committed state only; uncommitted
				// fixes will not be visible to the validator.
				logger.Warn("commit discipline violated", zap.Error(err))
			}
		}
	}

	result.State = StateExhausted
	logger.Warn("gate exhausted", zap.Int("attempts", result.Attempts))
	return result
}
