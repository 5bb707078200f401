// Package mcpserver exposes the tool registry as an MCP server over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"opnsense-mcp/internal/domain"
	"opnsense-mcp/internal/tools"
)

// Name identifies the server to MCP clients
const Name = "opnsense-mcp"

// Server wraps an MCP server whose tools dispatch through a Registry
type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	logger   *zap.Logger
}

// New creates a server exposing every tool in registry
func New(registry *tools.Registry, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp:      server.NewMCPServer(Name, version, server.WithToolCapabilities(true)),
		registry: registry,
		logger:   logger.Named("mcp"),
	}
	for _, def := range registry.Definitions() {
		s.mcp.AddTool(def, s.handler(def.Name))
	}
	return s
}

// MCP returns the underlying MCP server
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in and out until ctx is cancelled or in closes
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	s.logger.Info("serving MCP over stdio", zap.Int("tools", len(s.registry.Definitions())))
	return stdio.Listen(ctx, in, out)
}

// handler adapts a registry tool to an MCP tool handler. Tool failures are
// reported as error results rather than protocol errors.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := s.registry.Call(ctx, name, domain.Row(req.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error executing tool: %v", err)), nil
		}
		text, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error encoding result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(text)), nil
	}
}
