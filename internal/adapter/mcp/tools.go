package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.routePromptTool(),
		s.executeToolCallTool(),
		s.approveTool(),
	)
}

func (s *Server) routePromptTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("route_prompt",
		mcplib.WithDescription("Map a natural-language prompt to a task label"),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("The user prompt to route"),
		),
		mcplib.WithNumber("threshold",
			mcplib.Description("Minimum confidence in [0,1]; defaults to the server threshold"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRoutePrompt,
	}
}

func (s *Server) executeToolCallTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("execute_tool_call",
		mcplib.WithDescription("Authorize and execute a tool call for an identity"),
		mcplib.WithString("identity_id",
			mcplib.Required(),
			mcplib.Description("The identity on whose behalf the call runs"),
		),
		mcplib.WithString("tool",
			mcplib.Required(),
			mcplib.Description("Tool name: GitHub, FileSystem, Deployment, DB, Secrets or CRM"),
		),
		mcplib.WithString("action",
			mcplib.Required(),
			mcplib.Description("Tool action, e.g. read, write, deploy"),
		),
		mcplib.WithObject("params",
			mcplib.Description("Tool parameters; include approval_id to retry an approved call"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleExecuteToolCall,
	}
}

func (s *Server) approveTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("approve",
		mcplib.WithDescription("Grant a pending approval request"),
		mcplib.WithString("approval_id",
			mcplib.Required(),
			mcplib.Description("The approval request ID"),
		),
		mcplib.WithString("approver_id",
			mcplib.Required(),
			mcplib.Description("The identity granting the approval"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleApprove,
	}
}

func (s *Server) handleRoutePrompt(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Router == nil {
		return mcplib.NewToolResultError("router not configured"), nil
	}
	args := req.GetArguments()
	prompt, ok := args["prompt"].(string)
	if !ok {
		return mcplib.NewToolResultError("prompt is required"), nil
	}
	threshold := s.deps.Threshold
	if v, ok := args["threshold"].(float64); ok && v >= 0 && v <= 1 {
		threshold = v
	}
	return toolResultJSON(s.deps.Router.Route(ctx, prompt, threshold))
}

func (s *Server) handleExecuteToolCall(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Dispatcher == nil {
		return mcplib.NewToolResultError("dispatcher not configured"), nil
	}
	args := req.GetArguments()
	identity, _ := args["identity_id"].(string)
	tool, _ := args["tool"].(string)
	action, _ := args["action"].(string)
	if identity == "" || tool == "" || action == "" {
		return mcplib.NewToolResultError("identity_id, tool and action are required"), nil
	}
	call := toolcall.ToolCall{Tool: tool, Action: action}
	if params, ok := args["params"].(map[string]any); ok {
		call.Parameters = params
	}
	return toolResultJSON(s.deps.Dispatcher.Execute(ctx, identity, call))
}

func (s *Server) handleApprove(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Approvals == nil {
		return mcplib.NewToolResultError("approval store not configured"), nil
	}
	args := req.GetArguments()
	id, _ := args["approval_id"].(string)
	approver, _ := args["approver_id"].(string)
	if id == "" || approver == "" {
		return mcplib.NewToolResultError("approval_id and approver_id are required"), nil
	}
	a, err := s.deps.Approvals.Approve(ctx, id, approver)
	var perr *approval.PersistenceError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return mcplib.NewToolResultError("unknown approval id"), nil
	case err != nil && !errors.As(err, &perr):
		return mcplib.NewToolResultErrorFromErr("failed to approve", err), nil
	}
	return toolResultJSON(a)
}

func toolResultJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return mcplib.NewToolResultText(string(data)), nil
}
