// Package mcp exposes the routing, dispatch and approval operations to
// agents over the Model Context Protocol.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Router selects a task for a prompt.
type Router interface {
	Route(ctx context.Context, prompt string, threshold float64) routing.Decision
}

// Dispatcher executes a tool call on behalf of an identity.
type Dispatcher interface {
	Execute(ctx context.Context, identityID string, call toolcall.ToolCall) toolcall.Result
}

// Approvals reads and grants approval requests.
type Approvals interface {
	Approve(ctx context.Context, id, approver string) (approval.Approval, error)
	List(status approval.Status) []approval.Approval
}

// ServerConfig holds MCP server identity and auth settings.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  string
}

// ServerDeps are the services backing the MCP tools. Any of them may be nil;
// the corresponding tools then report an error result.
type ServerDeps struct {
	Router     Router
	Dispatcher Dispatcher
	Approvals  Approvals
	Threshold  float64
}

// Server wraps an mcp-go server with the TaskGate tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates an MCP server and registers its tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if deps.Threshold <= 0 {
		deps.Threshold = routing.DefaultThreshold
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP transport guarded by the API key.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, mcpserver.NewStreamableHTTPServer(s.mcpServer))
}
