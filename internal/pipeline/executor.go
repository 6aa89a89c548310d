package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/designops/ralph/internal/artifact"
	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/retry"
	"github.com/designops/ralph/internal/telemetry"
)

// Executor walks a graph's plan and drives each stage through the retry
// loop. Independent stages within a batch run concurrently; a batch barrier
// guarantees every dependency's artifact is visible before dependents start.
type Executor struct {
	graph    *Graph
	loop     *retry.Loop
	workdir  string
	recorder *telemetry.Recorder
	logger   *zap.Logger
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Workdir anchors workdir-relative artifact rules. Empty means the
	// current directory.
	Workdir string

	// Recorder, when set, persists per-gate completion telemetry.
	Recorder *telemetry.Recorder

	// Logger receives stage progress. Nil disables logging.
	Logger *zap.Logger
}

// NewExecutor creates an executor for the given graph and retry loop.
func NewExecutor(graph *Graph, loop *retry.Loop, cfg ExecutorConfig) *Executor {
	workdir := cfg.Workdir
	if workdir == "" {
		workdir = "."
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		graph:    graph,
		loop:     loop,
		workdir:  workdir,
		recorder: cfg.Recorder,
		logger:   logger.Named("pipeline"),
	}
}

// RunAll creates a fresh run for the root input and executes it.
func (e *Executor) RunAll(ctx context.Context, root string) (*Run, error) {
	run := NewRun(e.graph, root)
	return run, e.Execute(ctx, run)
}

// Execute walks the plan batch by batch. Stages already passed in the
// supplied run are not re-attempted, which makes a halted run resumable from
// committed state. On the first exhausted stage the run halts: later batches
// never start and their stages stay pending.
func (e *Executor) Execute(ctx context.Context, run *Run) error {
	e.logger.Info("executing pipeline",
		zap.String("run_id", run.ID),
		zap.String("root", run.Root),
		zap.Int("batches", len(e.graph.layers)),
	)

	for _, batch := range e.graph.layers {
		var pending []string
		for _, id := range batch {
			if run.Status(id) != gate.StatusPassed {
				pending = append(pending, id)
			}
		}
		if len(pending) == 0 {
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run %s cancelled: %w", run.ID, err)
		}

		var wg sync.WaitGroup
		for _, id := range pending {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				e.runStage(ctx, run, id)
			}(id)
		}
		wg.Wait()

		if failure := run.Failure(); failure != nil {
			e.logger.Warn("pipeline halted",
				zap.String("run_id", run.ID),
				zap.String("gate", failure.Gate),
				zap.String("state", string(failure.State)),
			)
			return failure
		}
	}

	e.logger.Info("pipeline complete", zap.String("run_id", run.ID))
	return nil
}

// runStage resolves paths for one stage, drives its retry loop, and records
// the result. Each stage writes exactly one artifact key, so concurrent
// batch members never contend on the same entry.
func (e *Executor) runStage(ctx context.Context, run *Run, id string) {
	spec, _ := e.graph.Spec(id)

	prior, err := e.resolveInput(run, spec)
	if err != nil {
		run.recordFailure(&StageFailure{
			Gate:    id,
			State:   retry.StateExhausted,
			Outcome: gate.Outcome{Unrecoverable: true, Detail: err.Error()},
		})
		return
	}

	inputPath, outputHint, err := artifact.Resolve(spec.Output, e.workdir, run.Root, prior)
	if err != nil {
		run.recordFailure(&StageFailure{
			Gate:    id,
			State:   retry.StateExhausted,
			Outcome: gate.Outcome{Unrecoverable: true, Detail: err.Error()},
		})
		return
	}

	run.setRunning(id)
	result := e.loop.Execute(ctx, spec, inputPath, outputHint)
	e.record(id, result)

	if !result.Passed() {
		run.recordFailure(&StageFailure{
			Gate:     id,
			State:    result.State,
			Attempts: result.Attempts,
			Outcome:  result.Outcome,
		})
		return
	}

	produced := artifact.Produced(spec.Output, inputPath, outputHint)
	if err := run.recordPass(id, produced, result.Attempts); err != nil {
		run.recordFailure(&StageFailure{
			Gate:    id,
			State:   retry.StateExhausted,
			Outcome: gate.Outcome{Unrecoverable: true, Detail: err.Error()},
		})
	}
}

// resolveInput picks the artifact feeding a stage: an explicit InputFrom
// override, the primary dependency's artifact, or nothing for root stages.
func (e *Executor) resolveInput(run *Run, spec gate.Spec) (string, error) {
	if spec.InputFrom == gate.InputWorkdir {
		return e.workdir, nil
	}
	if spec.InputFrom != "" {
		path, ok := run.Artifact(spec.InputFrom)
		if !ok {
			return "", fmt.Errorf("gate %s input source %s has no artifact", spec.ID, spec.InputFrom)
		}
		return path, nil
	}
	if len(spec.DependsOn) > 0 {
		path, ok := run.Artifact(spec.DependsOn[0])
		if !ok {
			return "", fmt.Errorf("gate %s dependency %s has no artifact", spec.ID, spec.DependsOn[0])
		}
		return path, nil
	}
	return "", nil
}

func (e *Executor) record(id string, result retry.Result) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordGate(telemetry.GateRecord{
		Gate:          id,
		Status:        string(result.State),
		Attempts:      result.Attempts,
		DurationMS:    result.Duration.Milliseconds(),
		Unrecoverable: result.Outcome.Unrecoverable,
	}); err != nil {
		e.logger.Warn("failed to record gate telemetry", zap.String("gate", id), zap.Error(err))
	}
}
