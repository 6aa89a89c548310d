package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/designops/ralph/internal/mcp"
)

// mcpCmd runs the stdio MCP tool server
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Serve pipeline introspection tools over the Model Context Protocol on
stdin/stdout. Intended to be launched by an MCP client, not interactively.

Tools: list_gates, pipeline_plan, gate_guidance, gate_status.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigNoValidator()
	if err != nil {
		return err
	}
	// Logs go to stderr; stdout carries the protocol.
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	graph, err := buildGraph(cfg)
	if err != nil {
		return err
	}
	recorder := buildRecorder(cfg, logger)

	srv, err := mcp.NewServer(graph, recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
