package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/designops/ralph/internal/manifest"
)

var tasksManifestPath string

// tasksCmd generates the run manifest from the pipeline graph
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Write the run manifest and print the ready/blocked summary",
	Long: `Generate the task manifest from the pipeline graph, write it to the
state directory, and print which gates are ready to run and which are
blocked.

Examples:
  ralph tasks
  ralph tasks --manifest build/tasks.json`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&tasksManifestPath, "manifest", "", "manifest output path (default <workdir>/.ralph/tasks.json)")
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigNoValidator()
	if err != nil {
		return err
	}
	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}

	tasks := manifest.Generate(graph)

	path := tasksManifestPath
	if path == "" {
		path = filepath.Join(cfg.Pipeline.Workdir, manifest.DefaultPath)
	}
	if err := manifest.Write(path, tasks); err != nil {
		return err
	}

	fmt.Printf("wrote %d tasks to %s\n", len(tasks), path)
	fmt.Print(manifest.Summary(tasks))
	return nil
}
