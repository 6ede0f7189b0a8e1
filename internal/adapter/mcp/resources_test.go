package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/taskgate/internal/domain/approval"
)

type listOnly []approval.Approval

func (l listOnly) Approve(context.Context, string, string) (approval.Approval, error) {
	return approval.Approval{}, nil
}

func (l listOnly) List(status approval.Status) []approval.Approval {
	var out []approval.Approval
	for _, a := range l {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

func TestApprovalsResource(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test", Version: "0.1.0"}, ServerDeps{Approvals: listOnly{
		{ID: "a1", Status: approval.StatusApproved},
		{ID: "a2", Status: approval.StatusPending},
	}})

	tests := []struct {
		uri    string
		status approval.Status
		want   int
	}{
		{uriApprovals, "", 2},
		{uriPendingApprovals, approval.StatusPending, 1},
	}
	for _, tt := range tests {
		req := mcplib.ReadResourceRequest{}
		req.Params.URI = tt.uri
		contents, err := s.approvalsResource(tt.status)(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", tt.uri, err)
		}
		text, ok := contents[0].(mcplib.TextResourceContents)
		if !ok {
			t.Fatalf("%s: expected TextResourceContents", tt.uri)
		}
		var got []approval.Approval
		if err := json.Unmarshal([]byte(text.Text), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("%s: %d approvals, want %d", tt.uri, len(got), tt.want)
		}
	}
}

func TestApprovalsResourceEmptyIsArray(t *testing.T) {
	s := NewServer(ServerConfig{Name: "test", Version: "0.1.0"}, ServerDeps{Approvals: listOnly{}})
	req := mcplib.ReadResourceRequest{}
	req.Params.URI = uriPendingApprovals
	contents, err := s.approvalsResource(approval.StatusPending)(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if text := contents[0].(mcplib.TextResourceContents).Text; text != "[]" {
		t.Errorf("text = %q, want []", text)
	}
}
