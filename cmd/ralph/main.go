// Package main implements the ralph CLI for running validation gates and
// gate pipelines against design artifacts.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/config"
	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/logging"
	"github.com/designops/ralph/internal/pipeline"
	"github.com/designops/ralph/internal/remediation"
	"github.com/designops/ralph/internal/retry"
	"github.com/designops/ralph/internal/telemetry"
)

var (
	// configPath is the optional YAML config file location
	configPath string
	// logLevel overrides the configured logging level when set
	logLevel string
	// logFormat overrides the configured logging format when set
	logFormat string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "Gate dependency pipeline runner for design artifacts",
	Long: `ralph runs validation gates over design artifacts: each gate invokes a
validator subprocess, failed gates emit instruction files and wait for
remediation, and a dependency graph orders the gates into a pipeline.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")

	rootCmd.AddCommand(runGateCmd)
	rootCmd.AddCommand(runPipelineCmd)
	rootCmd.AddCommand(validateSpecCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

// loadConfig loads config from file and environment, applies CLI overrides,
// and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadConfigNoValidator is for introspection commands (plan, tasks, serve,
// mcp) that never invoke the validator and should work without one installed.
func loadConfigNoValidator() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// buildGraph constructs the pipeline graph from configured gates, falling
// back to the built-in stage set when none are configured.
func buildGraph(cfg *config.Config) (*pipeline.Graph, error) {
	specs := cfg.Gates
	if len(specs) == 0 {
		specs = pipeline.DefaultSpecs()
	}
	return pipeline.NewGraph(specs)
}

// buildActor maps the configured remediation mode to an actor implementation.
func buildActor(cfg *config.Config, logger *zap.Logger) (remediation.Actor, error) {
	switch cfg.Remediation.Mode {
	case config.ModeConsole:
		return remediation.NewConsole(nil, nil), nil
	case config.ModeMarker:
		return remediation.NewMarker(logger), nil
	case config.ModeNone:
		return remediation.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown remediation mode %q", cfg.Remediation.Mode)
	}
}

// buildLoop assembles the retry loop around a subprocess gate runner.
func buildLoop(cfg *config.Config, logger *zap.Logger) (*retry.Loop, error) {
	runner, err := gate.NewRunner(cfg.Validator.Path, cfg.Pipeline.Timeout.Duration(), logger)
	if err != nil {
		return nil, err
	}
	actor, err := buildActor(cfg, logger)
	if err != nil {
		return nil, err
	}
	loopCfg := retry.Config{
		MaxIterations: cfg.Pipeline.MaxIterations,
		Logger:        logger,
	}
	if cfg.Pipeline.RequireCommits {
		loopCfg.Guard = remediation.NewCommitGuard(cfg.Pipeline.Workdir)
	}
	return retry.New(runner, actor, loopCfg), nil
}

// buildRecorder creates the telemetry recorder under the workdir state
// directory.
func buildRecorder(cfg *config.Config, logger *zap.Logger) *telemetry.Recorder {
	stateDir := filepath.Join(cfg.Pipeline.Workdir, ".ralph")
	return telemetry.NewRecorder(stateDir, logger)
}
