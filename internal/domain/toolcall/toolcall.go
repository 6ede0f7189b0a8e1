// Package toolcall defines the concrete tool invocations an agent issues and
// the results the dispatcher returns for them.
package toolcall

import "maps"

// Tool names a registered tool back-end.
type Tool string

const (
	ToolGitHub     Tool = "GitHub"
	ToolFileSystem Tool = "FileSystem"
	ToolDeployment Tool = "Deployment"
	ToolDB         Tool = "DB"
	ToolSecrets    Tool = "Secrets"
	ToolCRM        Tool = "CRM"
)

// Tools lists every registered tool in a stable order.
var Tools = []Tool{ToolGitHub, ToolFileSystem, ToolDeployment, ToolDB, ToolSecrets, ToolCRM}

// ParseTool resolves a tool name. Names are case-sensitive.
func ParseTool(name string) (Tool, bool) {
	for _, t := range Tools {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// ParamApprovalID is the parameter that carries an approval reference.
const ParamApprovalID = "approval_id"

// ToolCall is a single (tool, action, parameters) invocation.
type ToolCall struct {
	Tool       string         `json:"tool"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"params,omitempty"`
}

// ApprovalID returns the approval reference carried in the parameters, if any.
func (c ToolCall) ApprovalID() string {
	id, _ := c.Parameters[ParamApprovalID].(string)
	return id
}

// WithApproval returns a copy of c with the approval reference set.
func (c ToolCall) WithApproval(id string) ToolCall {
	out := c.Snapshot()
	if out.Parameters == nil {
		out.Parameters = make(map[string]any, 1)
	}
	out.Parameters[ParamApprovalID] = id
	return out
}

// Snapshot returns a copy of c whose parameter map (and any nested maps or
// slices) is independent of the original.
func (c ToolCall) Snapshot() ToolCall {
	out := ToolCall{Tool: c.Tool, Action: c.Action}
	if c.Parameters != nil {
		out.Parameters = deepCopyMap(c.Parameters)
	}
	return out
}

// StringParam returns the named parameter when it is a string.
func (c ToolCall) StringParam(name string) (string, bool) {
	s, ok := c.Parameters[name].(string)
	return s, ok
}

func deepCopyMap(m map[string]any) map[string]any {
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = deepCopyValue(t[i])
		}
		return s
	default:
		return v
	}
}
