package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

func listTool() mcp.Tool {
	return mcp.NewTool("graphs.list",
		mcp.WithDescription("List the registered workflow graphs"),
	)
}

func describeTool() mcp.Tool {
	return mcp.NewTool("graphs.describe",
		mcp.WithDescription("Describe a graph's steps and edges"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the registered graph")),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("graphs.run",
		mcp.WithDescription("Execute a registered workflow graph"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the registered graph to run")),
		mcp.WithObject("state", mcp.Description("Initial key/value state seeded into the run")),
	)
}

// --- Handlers ---

// handleList returns the registered graphs.
func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalResult(map[string]any{"graphs": s.graphs.List()})
}

// handleDescribe returns the topology of one graph.
func (s *Server) handleDescribe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError("graph is required"), nil
	}

	desc, descErr := s.graphs.Describe(name)
	if descErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("describe failed: %v", descErr)), nil
	}
	return marshalResult(desc)
}

// handleRun executes a graph and returns its result, including the final
// shared state.
func (s *Server) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("graph")
	if err != nil {
		return mcp.NewToolResultError("graph is required"), nil
	}

	initial := mcp.ParseStringMap(req, "state", nil)
	s.logger.Info("running graph", "graph", name, "initial_keys", len(initial))

	result, runErr := s.graphs.Run(ctx, name, initial)
	if runErr != nil {
		if result != nil {
			// The run started and failed; return the partial result so the
			// agent sees the path walked and the error code.
			return marshalResult(map[string]any{
				"run":   result,
				"state": result.State.Values(),
			})
		}
		return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", runErr)), nil
	}

	return marshalResult(map[string]any{
		"run":   result,
		"state": result.State.Values(),
	})
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
