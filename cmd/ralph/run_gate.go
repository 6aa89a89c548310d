package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/artifact"
	"github.com/designops/ralph/internal/config"
	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/telemetry"
)

var runGateMaxIterations int

// runGateCmd runs a single gate against a target with the retry loop
var runGateCmd = &cobra.Command{
	Use:   "run-gate <gate> <target>",
	Short: "Run a single gate against a target path",
	Long: `Run one validation gate against a target path. Failed attempts wait for
remediation and retry up to the iteration bound.

Examples:
  # Validate a spec file
  ralph run-gate validate design/spec.md

  # Allow more remediation rounds
  ralph run-gate check design/spec-prp.md --max-iterations 8`,
	Args: cobra.ExactArgs(2),
	RunE: runRunGate,
}

func init() {
	runGateCmd.Flags().IntVar(&runGateMaxIterations, "max-iterations", 0, "override the retry bound for this run")
}

func runRunGate(cmd *cobra.Command, args []string) error {
	gateID, target := args[0], args[1]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	loop, err := buildLoop(cfg, logger)
	if err != nil {
		return err
	}

	spec := specForGate(cfg, gateID)
	if runGateMaxIterations > 0 {
		spec.MaxIterations = runGateMaxIterations
	}

	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("target %s: %w", target, err)
	}

	_, outputHint, err := artifact.Resolve(spec.Output, cfg.Pipeline.Workdir, target, "")
	if err != nil {
		return err
	}

	result := loop.Execute(cmd.Context(), spec, target, outputHint)

	recorder := buildRecorder(cfg, logger)
	if err := recorder.RecordGate(telemetry.GateRecord{
		Gate:          spec.ID,
		Status:        string(result.State),
		Attempts:      result.Attempts,
		DurationMS:    result.Duration.Milliseconds(),
		Unrecoverable: result.Outcome.Unrecoverable,
	}); err != nil {
		logger.Warn("recording gate result", zap.Error(err))
	}

	if !result.Passed() {
		if result.Outcome.Detail != "" {
			return fmt.Errorf("gate %s failed after %d attempt(s): %s", gateID, result.Attempts, result.Outcome.Detail)
		}
		return fmt.Errorf("gate %s failed after %d attempt(s)", gateID, result.Attempts)
	}

	fmt.Printf("gate %s passed after %d attempt(s)\n", gateID, result.Attempts)
	return nil
}

// specForGate resolves a gate ID against the configured graph, falling back
// to a bare single-check spec for ad hoc gates.
func specForGate(cfg *config.Config, gateID string) gate.Spec {
	if graph, err := buildGraph(cfg); err == nil {
		if spec, ok := graph.Spec(gateID); ok {
			return spec
		}
	}
	return gate.Spec{ID: gateID, Subject: gateID}
}
