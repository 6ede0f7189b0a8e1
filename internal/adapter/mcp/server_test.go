package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	tgmcp "github.com/Strob0t/taskgate/internal/adapter/mcp"
	"github.com/Strob0t/taskgate/internal/domain"
	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// --- Mocks ---

type mockRouter struct {
	threshold float64
}

func (m *mockRouter) Route(_ context.Context, prompt string, threshold float64) routing.Decision {
	m.threshold = threshold
	if prompt == "" {
		return routing.Decision{Error: routing.ErrNoMatch}
	}
	score := 1.0
	return routing.Decision{Task: "Feature Development", Score: &score, Matched: prompt}
}

type mockDispatcher struct {
	identity string
	call     toolcall.ToolCall
}

func (m *mockDispatcher) Execute(_ context.Context, identityID string, call toolcall.ToolCall) toolcall.Result {
	m.identity = identityID
	m.call = call
	return toolcall.Result{Status: toolcall.StatusOK, Data: "done"}
}

type mockApprovals struct {
	items map[string]approval.Approval
	err   error
}

func (m *mockApprovals) Approve(_ context.Context, id, approver string) (approval.Approval, error) {
	a, ok := m.items[id]
	if !ok {
		return approval.Approval{}, fmt.Errorf("approval %s: %w", id, domain.ErrNotFound)
	}
	a.Status = approval.StatusApproved
	a.ApprovedBy = approver
	m.items[id] = a
	return a, m.err
}

func (m *mockApprovals) List(status approval.Status) []approval.Approval {
	var out []approval.Approval
	for _, a := range m.items {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

func callTool(t *testing.T, s *tgmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tools := s.MCPServer().ListTools()
	tool, ok := tools[name]
	if !ok {
		t.Fatalf("%s tool not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

func decodeText(t *testing.T, result *mcplib.CallToolResult, v any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test-server", Version: "0.1.0"}, tgmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
	if s.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestToolRegistration(t *testing.T) {
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	expectedTools := map[string]bool{
		"route_prompt":      false,
		"execute_tool_call": false,
		"approve":           false,
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleRoutePrompt(t *testing.T) {
	router := &mockRouter{}
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{Router: router})

	var d routing.Decision
	decodeText(t, callTool(t, s, "route_prompt", map[string]any{"prompt": "fix bug"}), &d)
	if d.Task != "Feature Development" {
		t.Fatalf("task = %q", d.Task)
	}
	if router.threshold != routing.DefaultThreshold {
		t.Errorf("threshold = %v, want default", router.threshold)
	}

	decodeText(t, callTool(t, s, "route_prompt", map[string]any{"prompt": "fix bug", "threshold": 0.9}), &d)
	if router.threshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", router.threshold)
	}

	if r := callTool(t, s, "route_prompt", nil); !r.IsError {
		t.Error("expected error result for missing prompt")
	}
}

func TestHandleExecuteToolCall(t *testing.T) {
	d := &mockDispatcher{}
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{Dispatcher: d})

	var res toolcall.Result
	decodeText(t, callTool(t, s, "execute_tool_call", map[string]any{
		"identity_id": "eng01",
		"tool":        "GitHub",
		"action":      "write",
		"params":      map[string]any{"repo": "main"},
	}), &res)
	if res.Status != toolcall.StatusOK {
		t.Fatalf("status = %s", res.Status)
	}
	if d.identity != "eng01" || d.call.Tool != "GitHub" || d.call.Action != "write" {
		t.Errorf("dispatched %s %+v", d.identity, d.call)
	}
	if repo, _ := d.call.StringParam("repo"); repo != "main" {
		t.Errorf("repo param = %q", repo)
	}

	if r := callTool(t, s, "execute_tool_call", map[string]any{"tool": "GitHub"}); !r.IsError {
		t.Error("expected error result for missing identity and action")
	}
}

func TestHandleApprove(t *testing.T) {
	store := &mockApprovals{items: map[string]approval.Approval{
		"ap-1": {ID: "ap-1", Status: approval.StatusPending, RequestedBy: "it01"},
	}}
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{Approvals: store})

	var a approval.Approval
	decodeText(t, callTool(t, s, "approve", map[string]any{"approval_id": "ap-1", "approver_id": "mgr01"}), &a)
	if a.Status != approval.StatusApproved || a.ApprovedBy != "mgr01" {
		t.Fatalf("approval = %+v", a)
	}

	if r := callTool(t, s, "approve", map[string]any{"approval_id": "nope", "approver_id": "mgr01"}); !r.IsError {
		t.Error("expected error result for unknown approval")
	}
	if r := callTool(t, s, "approve", map[string]any{"approval_id": "ap-1"}); !r.IsError {
		t.Error("expected error result for missing approver")
	}
}

func TestHandleApprovePersistenceFailureStillApproves(t *testing.T) {
	store := &mockApprovals{
		items: map[string]approval.Approval{"ap-1": {ID: "ap-1", Status: approval.StatusPending}},
		err:   &approval.PersistenceError{ApprovalID: "ap-1", Op: "save", Err: errors.New("disk full")},
	}
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{Approvals: store})

	var a approval.Approval
	decodeText(t, callTool(t, s, "approve", map[string]any{"approval_id": "ap-1", "approver_id": "mgr01"}), &a)
	if !a.IsApproved() {
		t.Fatalf("approval = %+v", a)
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := tgmcp.NewServer(tgmcp.ServerConfig{Name: "test", Version: "0.1.0"}, tgmcp.ServerDeps{})

	for name, args := range map[string]map[string]any{
		"route_prompt":      {"prompt": "x"},
		"execute_tool_call": {"identity_id": "eng01", "tool": "GitHub", "action": "read"},
		"approve":           {"approval_id": "a", "approver_id": "b"},
	} {
		if r := callTool(t, s, name, args); !r.IsError {
			t.Errorf("%s: expected error result when deps are nil", name)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusNoContent},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"bearer", "secret", "Bearer secret", http.StatusNoContent},
		{"plain key", "secret", "secret", http.StatusNoContent},
		{"wrong key", "secret", "Bearer nope", http.StatusForbidden},
		{"key prefix", "secret", "Bearer secre", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tgmcp.AuthMiddleware(tt.key, next).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}
