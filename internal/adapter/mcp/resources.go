package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/taskgate/internal/domain/approval"
)

const (
	uriApprovals        = "taskgate://approvals"
	uriPendingApprovals = "taskgate://approvals/pending"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriApprovals,
			"Approvals",
			mcplib.WithResourceDescription("All approval requests, oldest first"),
			mcplib.WithMIMEType("application/json"),
		),
		s.approvalsResource(""),
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriPendingApprovals,
			"Pending Approvals",
			mcplib.WithResourceDescription("Approval requests waiting for a decision"),
			mcplib.WithMIMEType("application/json"),
		),
		s.approvalsResource(approval.StatusPending),
	)
}

func (s *Server) approvalsResource(status approval.Status) func(context.Context, mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		if s.deps.Approvals == nil {
			return []mcplib.ResourceContents{
				mcplib.TextResourceContents{
					URI:      req.Params.URI,
					MIMEType: "application/json",
					Text:     `{"error":"approval store not configured"}`,
				},
			}, nil
		}
		list := s.deps.Approvals.List(status)
		if list == nil {
			list = []approval.Approval{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
