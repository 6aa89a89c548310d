package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/remediation"
	"github.com/designops/ralph/internal/retry"
)

// validateSpecCmd runs the validate gate once, without remediation
var validateSpecCmd = &cobra.Command{
	Use:   "validate-spec <file>",
	Short: "Run the validate gate once against a spec file",
	Long: `Run a single attempt of the validate gate against a spec file. No
remediation prompt, no retries.

Examples:
  ralph validate-spec design/spec.md`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateSpec,
}

func runValidateSpec(cmd *cobra.Command, args []string) error {
	target := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("spec file %s: %w", target, err)
	}

	runner, err := gate.NewRunner(cfg.Validator.Path, cfg.Pipeline.Timeout.Duration(), logger)
	if err != nil {
		return err
	}

	spec := specForGate(cfg, "validate")
	spec.MaxIterations = 1

	loop := retry.New(runner, remediation.Nop{}, retry.Config{
		MaxIterations: 1,
		Logger:        logger,
	})
	result := loop.Execute(cmd.Context(), spec, target, "")

	if !result.Passed() {
		if result.Outcome.Detail != "" {
			return fmt.Errorf("%s failed validation: %s", target, result.Outcome.Detail)
		}
		return fmt.Errorf("%s failed validation", target)
	}

	fmt.Printf("%s passed validation\n", target)
	return nil
}
