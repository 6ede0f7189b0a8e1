package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/domain/agent"
	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// ToolExecutor runs a single tool call through policy and approvals.
type ToolExecutor interface {
	Execute(ctx context.Context, identityID string, call toolcall.ToolCall) toolcall.Result
}

// AgentService expands a routed task into tool calls and executes them
// through the dispatcher.
type AgentService struct {
	tools ToolExecutor
}

// NewAgentService creates an AgentService dispatching through tools.
func NewAgentService(tools ToolExecutor) *AgentService {
	return &AgentService{tools: tools}
}

var repoPattern = regexp.MustCompile(`(?i)repo[:=]\s*([\w-]+)`)

// extractEnv picks the deployment environment named in the prompt.
func extractEnv(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "prod"):
		return "production"
	case strings.Contains(p, "staging"):
		return "staging"
	case strings.Contains(p, "demo"), strings.Contains(p, "dev"):
		return "demo"
	default:
		return "staging"
	}
}

// extractRepo picks the repository named in the prompt, "main" by default.
func extractRepo(prompt string) string {
	if strings.Contains(strings.ToLower(prompt), "main branch") {
		return "main"
	}
	if m := repoPattern.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return "main"
}

// ExecuteTask runs task for identityID. Any denied tool call ends the task
// with status denied. A pending approval is not a failure: the task reports
// ok and carries the pending result.
func (s *AgentService) ExecuteTask(ctx context.Context, identityID, prompt, task string) agent.Response {
	ctx, span := otel.StartAgentSpan(ctx, identityID, task)
	defer span.End()

	env := extractEnv(prompt)
	repo := extractRepo(prompt)

	switch task {
	case policy.TaskFeatureDevelopment:
		return s.single(ctx, identityID, agent.MsgFeatureDone, toolcall.ToolCall{
			Tool: string(toolcall.ToolGitHub), Action: "write_code",
			Parameters: map[string]any{"repo": repo, "content": "README content"},
		})

	case policy.TaskProductionSupport, policy.TaskIncidentResolution:
		gh := s.tools.Execute(ctx, identityID, toolcall.ToolCall{
			Tool: string(toolcall.ToolGitHub), Action: "read_repo",
			Parameters: map[string]any{"repo": repo},
		})
		if gh.Status == toolcall.StatusDenied {
			return agent.Response{Status: agent.StatusDenied, Message: gh.Message}
		}
		path := "/Engineering/logs.txt"
		if task == policy.TaskIncidentResolution {
			path = "/IT/logs.txt"
		}
		fs := s.tools.Execute(ctx, identityID, toolcall.ToolCall{
			Tool: string(toolcall.ToolFileSystem), Action: "read_file",
			Parameters: map[string]any{"path": path},
		})
		if fs.Status == toolcall.StatusDenied {
			return agent.Response{Status: agent.StatusDenied, Message: fs.Message}
		}
		return agent.Response{
			Status:  agent.StatusOK,
			Message: agent.TaskExecuted(task),
			Result:  map[string]toolcall.Result{"github": gh, "filesystem": fs},
		}

	case policy.TaskInfrastructureMaintenance:
		return s.single(ctx, identityID, agent.MsgMaintenanceDone, toolcall.ToolCall{
			Tool: string(toolcall.ToolDeployment), Action: "deploy",
			Parameters: map[string]any{"env": env},
		})

	case policy.TaskLeadGeneration:
		return s.single(ctx, identityID, agent.MsgLeadCreated, toolcall.ToolCall{
			Tool: string(toolcall.ToolCRM), Action: "create_lead",
			Parameters: map[string]any{"lead": map[string]any{"source": "genai"}},
		})

	case policy.TaskProposalDevelopment:
		return s.single(ctx, identityID, agent.MsgProposalDone, toolcall.ToolCall{
			Tool: string(toolcall.ToolFileSystem), Action: "read_file",
			Parameters: map[string]any{"path": "/Sales/proposal.docx"},
		})

	default:
		return agent.Response{Status: agent.StatusError, Message: agent.MsgUnknownTask}
	}
}

func (s *AgentService) single(ctx context.Context, identityID, okMsg string, call toolcall.ToolCall) agent.Response {
	res := s.tools.Execute(ctx, identityID, call)
	if res.Status == toolcall.StatusDenied {
		return agent.Response{Status: agent.StatusDenied, Message: res.Message}
	}
	return agent.Response{Status: agent.StatusOK, Message: okMsg, Result: res}
}
