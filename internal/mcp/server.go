// Package mcp exposes pipeline introspection tools over the Model Context
// Protocol, so agent frontends can inspect gates, plans, and guidance without
// shelling out to the CLI.
package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/designops/ralph/internal/gate"
	"github.com/designops/ralph/internal/pipeline"
	"github.com/designops/ralph/internal/telemetry"
)

// Server serves pipeline tools over stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	graph     *pipeline.Graph
	recorder  *telemetry.Recorder
}

// NewServer creates a stdio MCP server over the given graph. recorder may be
// nil to disable the gate_status tool's record listing.
func NewServer(graph *pipeline.Graph, recorder *telemetry.Recorder) (*Server, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "ralph",
		Version: "1.0.0",
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		graph:     graph,
		recorder:  recorder,
	}
	s.registerTools()
	return s, nil
}

// Run serves the MCP protocol on stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_gates",
		Description: "List the pipeline's gates with their dependencies and sub-checks.",
	}, s.handleListGates)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pipeline_plan",
		Description: "Show the topological execution plan: batches of gates that may run concurrently.",
	}, s.handlePipelinePlan)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gate_guidance",
		Description: "Read the instruction file a failed gate produced for a target, if one exists.",
	}, s.handleGateGuidance)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "gate_status",
		Description: "Show recorded gate completions: status, attempts, and duration per gate.",
	}, s.handleGateStatus)
}

// ListGatesParams defines parameters for list_gates (none needed).
type ListGatesParams struct{}

// PipelinePlanParams defines parameters for pipeline_plan (none needed).
type PipelinePlanParams struct{}

// GateGuidanceParams defines parameters for gate_guidance.
type GateGuidanceParams struct {
	Gate   string `json:"gate" jsonschema:"Gate or sub-check name"`
	Target string `json:"target" jsonschema:"Path the gate validated"`
}

// GateStatusParams defines parameters for gate_status (none needed).
type GateStatusParams struct{}

func (s *Server) handleListGates(ctx context.Context, req *mcpsdk.CallToolRequest, params *ListGatesParams) (*mcpsdk.CallToolResult, any, error) {
	var b strings.Builder
	for _, spec := range s.graph.Specs() {
		fmt.Fprintf(&b, "%s: %s\n", spec.ID, spec.Subject)
		if len(spec.DependsOn) > 0 {
			fmt.Fprintf(&b, "  depends on: %s\n", strings.Join(spec.DependsOn, ", "))
		}
		if len(spec.Subtasks) > 0 {
			fmt.Fprintf(&b, "  sub-checks: %s\n", strings.Join(spec.Subtasks, ", "))
		}
	}
	return textResult(b.String()), nil, nil
}

func (s *Server) handlePipelinePlan(ctx context.Context, req *mcpsdk.CallToolRequest, params *PipelinePlanParams) (*mcpsdk.CallToolResult, any, error) {
	var b strings.Builder
	for i, batch := range s.graph.Plan() {
		fmt.Fprintf(&b, "batch %d: %s\n", i+1, strings.Join(batch, ", "))
	}
	return textResult(b.String()), nil, nil
}

func (s *Server) handleGateGuidance(ctx context.Context, req *mcpsdk.CallToolRequest, params *GateGuidanceParams) (*mcpsdk.CallToolResult, any, error) {
	if params.Gate == "" || params.Target == "" {
		return nil, nil, fmt.Errorf("gate and target are required")
	}

	path := gate.GuidancePath(params.Target, params.Gate)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return textResult(fmt.Sprintf("No guidance at %s", path)), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading guidance: %w", err)
	}
	return textResult(string(content)), nil, nil
}

func (s *Server) handleGateStatus(ctx context.Context, req *mcpsdk.CallToolRequest, params *GateStatusParams) (*mcpsdk.CallToolResult, any, error) {
	if s.recorder == nil {
		return textResult("Telemetry is disabled."), nil, nil
	}
	records, err := s.recorder.Records()
	if err != nil {
		return nil, nil, fmt.Errorf("loading gate records: %w", err)
	}
	if len(records) == 0 {
		return textResult("No gate completions recorded."), nil, nil
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s: %s (%d attempt(s), %dms)\n", rec.Gate, rec.Status, rec.Attempts, rec.DurationMS)
	}
	return textResult(b.String()), nil, nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}
}
