// Package mcp exposes registered graphs as MCP tools over stdio, so agents
// can list, inspect, and run them.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Graphs *GraphSet
	Logger *slog.Logger
}

// Server wraps an MCP server with graph tool handlers.
type Server struct {
	graphs    *GraphSet
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a Server with the three graph tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	graphs := deps.Graphs
	if graphs == nil {
		graphs = NewGraphSet()
	}

	s := &Server{
		graphs: graphs,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"actiongraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Actiongraph runs browser automation workflows built as step graphs. Use graphs.list to see registered graphs, graphs.describe to inspect a graph's steps and edges, and graphs.run to execute one."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or
// stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom
// transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: listTool(), Handler: s.handleList},
		{Tool: describeTool(), Handler: s.handleDescribe},
		{Tool: runTool(), Handler: s.handleRun},
	}
}
