package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/taskgate/internal/config"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

const demoApprover = "mgr01"

type scenario struct {
	user   string
	prompt string
}

var demoScenarios = []scenario{
	{"it01", "Check the deployment logs for the last service incident."},
	{"it01", "Fix the bug in the main function and commit the change."},
	{"it01", "Run maintenance scripts on the server"},
	{"eng01", "Push a new README file to the main branch."},
	{"eng01", "Create a new API endpoint and commit the implementation"},
	{"eng01", "Migrate user data to the new schema"},
	{"sales01", "Prepare a proposal document for customer"},
	{"sales01", "Generate a list of leads for the EMEA region"},
}

// Each of these is expected to be refused at the task level.
var denialScenarios = []scenario{
	{"sales01", "Push a new README file to the main branch."},
	{"se01", "Push a new README file to the main branch."},
	{"it01", "Create a new API endpoint and commit the implementation"},
	{"se01", "Prepare a demo environment for the customer"},
	{"se01", "Check deployment logs for the demo environment"},
	{"sec01", "Retrieve database credentials"},
	{"mgr01", "Approve deployment to production"},
}

type directCall struct {
	label string
	user  string
	call  toolcall.ToolCall
}

var directCalls = []directCall{
	{"sales01 GitHub.write_code", "sales01", toolcall.ToolCall{Tool: string(toolcall.ToolGitHub), Action: "write_code", Parameters: map[string]any{"repo": "main", "content": "x"}}},
	{"eng01 FileSystem.read_file /Sales", "eng01", toolcall.ToolCall{Tool: string(toolcall.ToolFileSystem), Action: "read_file", Parameters: map[string]any{"path": "/Sales/proposal.docx"}}},
	{"it01 traversal attempt", "it01", toolcall.ToolCall{Tool: string(toolcall.ToolFileSystem), Action: "read_file", Parameters: map[string]any{"path": "/Engineering/../IT/secret.txt"}}},
	{"sales01 FileSystem.read_file /Engineering", "sales01", toolcall.ToolCall{Tool: string(toolcall.ToolFileSystem), Action: "read_file", Parameters: map[string]any{"path": "/Engineering/secret.txt"}}},
}

func runDemo(ctx context.Context, cfg *config.Config, out *os.File) error {
	a, err := buildApp(ctx, cfg, &infra{}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	d := &demo{app: a, w: out, color: term.IsTerminal(int(out.Fd())), now: time.Now}
	d.run(ctx)
	return nil
}

// demo narrates each decision as a timestamped audit line.
type demo struct {
	app   *app
	w     io.Writer
	color bool
	now   func() time.Time
}

func (d *demo) audit(format string, args ...any) {
	fmt.Fprintf(d.w, "[%s] %s\n", d.now().UTC().Format(time.RFC3339Nano), fmt.Sprintf(format, args...))
}

func (d *demo) verdict(ok bool) string {
	word := "denied"
	code := "31"
	if ok {
		word, code = "allowed", "32"
	}
	if !d.color {
		return word
	}
	return "\x1b[" + code + "m" + word + "\x1b[0m"
}

func (d *demo) run(ctx context.Context) {
	a := d.app
	threshold := a.cfg.Router.Threshold

	d.audit("Starting demo scenarios")
	for _, sc := range demoScenarios {
		d.audit("Prompt received from %s: %q", sc.user, sc.prompt)
		r := a.router.Route(ctx, sc.prompt, threshold)
		if !r.OK() {
			d.audit("Router could not route prompt: %s", r.Error)
			continue
		}
		d.audit("Routed to task: %s", r.Task)

		v := a.policy.CheckTask(sc.user, r.Task)
		d.audit("PEP1 (task-level) authorization for %s -> %s: %s", sc.user, r.Task, d.verdict(v.Allowed))
		if !v.Allowed {
			d.audit("Denied at PEP1. Skipping agent execution.")
			continue
		}

		resp := a.agent.ExecuteTask(ctx, sc.user, sc.prompt, r.Task)
		if res, ok := resp.Result.(toolcall.Result); ok && res.Status == toolcall.StatusPendingApproval {
			d.audit("Agent returned pending_approval: approval_id=%s", res.ApprovalID)
			d.approveAndRetry(ctx, sc.user, res.ApprovalID)
		}
		d.audit("AgentResponse: status=%s message=%q", resp.Status, resp.Message)
	}

	d.audit("Running explicit denial scenarios (expect PEP1 denials)")
	for _, sc := range denialScenarios {
		d.audit("Prompt received from %s: %q", sc.user, sc.prompt)
		r := a.router.Route(ctx, sc.prompt, threshold)
		if !r.OK() {
			d.audit("Router could not route prompt: %s", r.Error)
			continue
		}
		d.audit("Routed to task: %s", r.Task)
		if v := a.policy.CheckTask(sc.user, r.Task); !v.Allowed {
			d.audit("Correctly denied at PEP1 (%s)", v.Reason)
			continue
		}
		resp := a.agent.ExecuteTask(ctx, sc.user, sc.prompt, r.Task)
		d.audit("AgentResponse (unexpected allowed): status=%s message=%q", resp.Status, resp.Message)
	}

	d.audit("Demonstrating PEP2 denials and edge cases (direct tool calls)")
	for _, dc := range directCalls {
		res := a.dispatch.Execute(ctx, dc.user, dc.call)
		d.audit("%s -> %s %s", dc.label, res.Status, res.Message)
	}

	d.audit("Demonstrating approval flow for deployment")
	deploy := toolcall.ToolCall{Tool: string(toolcall.ToolDeployment), Action: "deploy", Parameters: map[string]any{"env": "staging"}}
	res := a.dispatch.Execute(ctx, "eng01", deploy)
	if res.Status == toolcall.StatusPendingApproval {
		d.audit("Approval requested id=%s for user=eng01 action=%s", res.ApprovalID, deploy.Action)
		res = d.approveAndRetry(ctx, "eng01", res.ApprovalID)
	}
	d.audit("Deployment flow result: %s %v", res.Status, res.Data)
}

// approveAndRetry grants id on behalf of the demo approver and re-executes
// the stored tool call with the approval attached.
func (d *demo) approveAndRetry(ctx context.Context, user, id string) toolcall.Result {
	a := d.app
	stored, ok := a.approvals.Get(id)
	if !ok {
		d.audit("Approval %s not found; skipping auto-approve", id)
		return toolcall.Result{Status: toolcall.StatusError, Message: "unknown approval"}
	}
	if _, err := a.approvals.Approve(ctx, id, demoApprover); err != nil {
		d.audit("Auto-approve of %s failed: %v", id, err)
	}
	d.audit("Auto-approved approval_id=%s by %s", id, demoApprover)

	res := a.dispatch.Execute(ctx, user, stored.ToolCall.WithApproval(id))
	d.audit("Retry result after approval: %s %v", res.Status, res.Data)
	return res
}
