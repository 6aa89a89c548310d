package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// planCmd prints the topological execution plan
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the pipeline execution plan",
	Long: `Print the gates grouped into batches. Gates in the same batch have no
dependencies on each other and run concurrently.

Examples:
  ralph plan
  ralph plan --config ralph.yaml`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigNoValidator()
	if err != nil {
		return err
	}
	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}

	for i, batch := range graph.Plan() {
		fmt.Printf("%2d. %s\n", i+1, strings.Join(batch, ", "))
	}
	return nil
}
