// Package policy defines the static authorization model for TaskGate:
// identities with per-tool permission levels, business tasks with their
// required tool levels, folder scoping, the parameter whitelist and the
// high-risk action rules.
package policy

import "strings"

// Level is a permission level on a tool.
type Level string

const (
	LevelNone      Level = "none"
	LevelRead      Level = "read"
	LevelWrite     Level = "write"
	LevelReadWrite Level = "read_write"
	LevelDeploy    Level = "deploy"
)

// Satisfies reports whether a granted level l meets the required level.
// Unknown required levels are never satisfied.
func (l Level) Satisfies(required Level) bool {
	switch required {
	case LevelRead:
		return l == LevelRead || l == LevelReadWrite || l == LevelWrite
	case LevelWrite:
		return l == LevelWrite || l == LevelReadWrite
	case LevelDeploy:
		return l == LevelDeploy
	default:
		return false
	}
}

// CanWrite reports whether l permits supplying sensitive parameters.
func (l Level) CanWrite() bool {
	return l == LevelWrite || l == LevelReadWrite
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelNone, LevelRead, LevelWrite, LevelReadWrite, LevelDeploy:
		return true
	}
	return false
}

// Identity is a user on whose behalf an agent acts.
type Identity struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Team        string           `json:"team" yaml:"team"`
	Permissions map[string]Level `json:"permissions" yaml:"permissions"`
}

// Level returns the identity's level on tool, LevelNone when absent.
func (i *Identity) Level(tool string) Level {
	if l, ok := i.Permissions[tool]; ok {
		return l
	}
	return LevelNone
}

// Task is a business task and the minimum tool levels it needs.
type Task struct {
	Name          string           `json:"name" yaml:"name"`
	RequiredTools map[string]Level `json:"required_tools" yaml:"required_tools"`
}

// ParamRule describes one whitelisted tool parameter.
type ParamRule struct {
	Sensitive bool `json:"sensitive" yaml:"sensitive"`
}

// HighRiskRule marks actions on Tool whose name contains ActionKeyword,
// case-insensitively, as requiring human approval.
type HighRiskRule struct {
	Tool          string `json:"tool" yaml:"tool"`
	ActionKeyword string `json:"action_keyword" yaml:"action_keyword"`
}

// Matches reports whether the rule covers the given tool and action.
func (r HighRiskRule) Matches(tool, action string) bool {
	return tool == r.Tool && strings.Contains(strings.ToLower(action), strings.ToLower(r.ActionKeyword))
}

// ReferencePrompt is a canonical example prompt for a task.
type ReferencePrompt struct {
	Task string `json:"task" yaml:"task"`
	Text string `json:"text" yaml:"text"`
}

// Verdict is the outcome of a policy check. Reason is set on denial.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a granting verdict.
func Allow() Verdict { return Verdict{Allowed: true} }

// Deny returns a denying verdict with the given reason.
func Deny(reason string) Verdict { return Verdict{Reason: reason} }
