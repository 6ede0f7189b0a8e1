package service

import (
	"fmt"
	"strings"

	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Denial reasons returned in policy verdicts.
const (
	ReasonUnknownIdentity = "unknown identity"
	ReasonUnknownTask     = "unknown task"
	ReasonFolderDenied    = "path outside permitted folders"
	ReasonSecretsDenied   = "no Secrets capability"
)

// PolicyService evaluates task and tool-call authorization against static
// policy tables. It holds no mutable state and is safe for concurrent use.
type PolicyService struct {
	tables *policy.Tables
}

// NewPolicyService creates a PolicyService over tables.
func NewPolicyService(tables *policy.Tables) *PolicyService {
	return &PolicyService{tables: tables}
}

// Tables returns the underlying policy tables.
func (s *PolicyService) Tables() *policy.Tables {
	return s.tables
}

// Identity looks up an identity by ID.
func (s *PolicyService) Identity(id string) (policy.Identity, bool) {
	return s.tables.Identity(id)
}

// CheckTask decides whether identityID may perform task (PEP1). Every tool
// level the task requires must be satisfied by the identity's grant.
func (s *PolicyService) CheckTask(identityID, task string) policy.Verdict {
	ident, ok := s.tables.Identity(identityID)
	if !ok {
		return policy.Deny(ReasonUnknownIdentity)
	}
	t, ok := s.tables.Task(task)
	if !ok {
		return policy.Deny(ReasonUnknownTask)
	}
	for tool, required := range t.RequiredTools {
		if !ident.Level(tool).Satisfies(required) {
			return policy.Deny(fmt.Sprintf("%s requires %s on %s", task, required, tool))
		}
	}
	return policy.Allow()
}

// CheckFilesystemAccess reports whether identityID may touch path. The path
// is split into segments without touching the filesystem; empty and "."
// segments are dropped, any ".." rejects, and the first segment must be a
// folder the identity is listed for.
func (s *PolicyService) CheckFilesystemAccess(identityID, path string) bool {
	if path == "" {
		return false
	}
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return false
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return false
	}
	return s.tables.FolderAllows(parts[0], identityID)
}

// RequiredLevel returns the level an action needs on tool: the explicit
// action table entry when configured, otherwise keyword classification.
func (s *PolicyService) RequiredLevel(tool, action string) policy.Level {
	if l, ok := s.tables.ActionLevel(tool, action); ok {
		return l
	}
	return classifyAction(action)
}

func classifyAction(action string) policy.Level {
	a := strings.ToLower(action)
	switch {
	case containsAny(a, "read", "get", "list", "fetch"):
		return policy.LevelRead
	case containsAny(a, "deploy", "migrate", "rollback"):
		return policy.LevelDeploy
	default:
		// delete/remove/destroy and every other mutation need write.
		return policy.LevelWrite
	}
}

func containsAny(s string, tokens ...string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// CheckTool decides whether identityID may perform call (PEP2). Checks run
// in order and the first failure denies: folder scope, parameter whitelist
// and sensitivity, Secrets capability, then the required level.
func (s *PolicyService) CheckTool(identityID string, call toolcall.ToolCall) policy.Verdict {
	ident, ok := s.tables.Identity(identityID)
	if !ok {
		return policy.Deny(ReasonUnknownIdentity)
	}
	tool := call.Tool

	if tool == string(toolcall.ToolFileSystem) {
		path, isString := call.StringParam("path")
		if !isString || !s.CheckFilesystemAccess(identityID, path) {
			return policy.Deny(ReasonFolderDenied)
		}
	}

	required := s.RequiredLevel(tool, call.Action)
	granted := ident.Level(tool)

	if rules, ok := s.tables.ToolParams[tool]; ok {
		for name := range call.Parameters {
			rule, known := rules[name]
			if !known {
				return policy.Deny(fmt.Sprintf("parameter %q not allowed for %s", name, tool))
			}
			if rule.Sensitive && !granted.CanWrite() {
				return policy.Deny(fmt.Sprintf("parameter %q on %s requires write access", name, tool))
			}
		}
	}

	if tool == string(toolcall.ToolSecrets) {
		switch ident.Level(string(toolcall.ToolSecrets)) {
		case policy.LevelRead, policy.LevelWrite, policy.LevelReadWrite:
		default:
			return policy.Deny(ReasonSecretsDenied)
		}
	}

	if !granted.Satisfies(required) {
		return policy.Deny(fmt.Sprintf("%s.%s requires %s, granted %s", tool, call.Action, required, granted))
	}
	return policy.Allow()
}

// RequiresApproval reports whether call is high-risk and must be approved
// by a human before it runs.
func (s *PolicyService) RequiresApproval(call toolcall.ToolCall) bool {
	return s.tables.IsHighRisk(call.Tool, call.Action)
}
