package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/designops/ralph/internal/pipeline"
	"github.com/designops/ralph/internal/server"
)

var (
	pipelineOutputDir string
	pipelineServe     bool
)

// runPipelineCmd executes every gate in dependency order
var runPipelineCmd = &cobra.Command{
	Use:   "run-pipeline <root-input>",
	Short: "Run the full gate pipeline against a root input",
	Long: `Run every configured gate in dependency order, starting from the root
input path. Gates with satisfied dependencies run concurrently. The run
halts at the first exhausted gate.

Examples:
  # Run the default pipeline
  ralph run-pipeline design/feature.md

  # Produce artifacts under a separate directory
  ralph run-pipeline design/feature.md --output-dir build/

  # Expose live run status over HTTP while the run executes
  ralph run-pipeline design/feature.md --serve`,
	Args: cobra.ExactArgs(1),
	RunE: runRunPipeline,
}

func init() {
	runPipelineCmd.Flags().StringVar(&pipelineOutputDir, "output-dir", "", "directory for path-addressed artifacts (defaults to the configured workdir)")
	runPipelineCmd.Flags().BoolVar(&pipelineServe, "serve", false, "serve run status over HTTP for the duration of the run")
}

// liveRun adapts an executing run to the status server's RunSource.
type liveRun struct {
	run   *pipeline.Run
	graph *pipeline.Graph
}

func (l liveRun) Snapshot() pipeline.Snapshot {
	return l.run.Snapshot(l.graph)
}

func runRunPipeline(cmd *cobra.Command, args []string) error {
	root := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if pipelineOutputDir != "" {
		cfg.Pipeline.Workdir = pipelineOutputDir
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("root input %s: %w", root, err)
	}

	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}
	loop, err := buildLoop(cfg, logger)
	if err != nil {
		return err
	}
	recorder := buildRecorder(cfg, logger)

	exec := pipeline.NewExecutor(graph, loop, pipeline.ExecutorConfig{
		Workdir:  cfg.Pipeline.Workdir,
		Recorder: recorder,
		Logger:   logger,
	})
	run := pipeline.NewRun(graph, root)

	if pipelineServe {
		srv, err := server.NewServer(graph, recorder, liveRun{run: run, graph: graph}, logger, &server.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				logger.Warn("status server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", zap.Error(err))
			}
		}()
	}

	err = exec.Execute(cmd.Context(), run)
	printRunSummary(run, graph)
	return err
}

func printRunSummary(run *pipeline.Run, graph *pipeline.Graph) {
	fmt.Printf("run %s\n", run.ID)
	for _, spec := range graph.Specs() {
		status := run.Status(spec.ID)
		line := fmt.Sprintf("  %-20s %s", spec.ID, status)
		if path, ok := run.Artifact(spec.ID); ok && path != "" {
			line += "  " + path
		}
		fmt.Println(line)
	}
	if failure := run.Failure(); failure != nil {
		fmt.Printf("halted: %s\n", failure.Error())
	}
}
