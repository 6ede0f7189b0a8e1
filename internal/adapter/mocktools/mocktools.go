// Package mocktools provides the mock tool back-ends. Every back-end
// re-checks authorization before acting and returns canned results.
package mocktools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/domain/toolcall"
	"github.com/Strob0t/taskgate/internal/port/toolbackend"
	"github.com/Strob0t/taskgate/internal/secrets"
)

// Authorizer is the tool-level policy check the back-ends repeat.
type Authorizer interface {
	CheckTool(identityID string, call toolcall.ToolCall) policy.Verdict
}

// All returns one back-end per tool.
func All(auth Authorizer, vault *secrets.Vault) []toolbackend.Backend {
	return []toolbackend.Backend{
		&GitHub{auth: auth},
		&FileSystem{auth: auth},
		&Deployment{auth: auth},
		&DB{auth: auth},
		&Secrets{auth: auth, vault: vault},
		&CRM{auth: auth},
	}
}

// authorize re-runs the tool-level check for the call the back-end is
// about to perform. denyMsg is returned to the caller on rejection.
func authorize(auth Authorizer, identity policy.Identity, call toolcall.ToolCall, denyMsg string) error {
	if auth == nil {
		return nil
	}
	if v := auth.CheckTool(identity.ID, call); !v.Allowed {
		return &toolbackend.DeniedError{Message: denyMsg}
	}
	return nil
}

func isRead(action string) bool {
	return strings.Contains(strings.ToLower(action), "read")
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// GitHub serves read_repo and write_code.
type GitHub struct{ auth Authorizer }

func (g *GitHub) Tool() toolcall.Tool { return toolcall.ToolGitHub }

func (g *GitHub) Execute(_ context.Context, identity policy.Identity, action string, params map[string]any) (any, error) {
	repo := stringParam(params, "repo", "main")
	if isRead(action) {
		call := toolcall.ToolCall{Tool: string(toolcall.ToolGitHub), Action: "read_repo", Parameters: map[string]any{"repo": repo}}
		if err := authorize(g.auth, identity, call, "Not authorized to read repo"); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Logs from %s... (mock)", repo), nil
	}
	content := stringParam(params, "content", "")
	call := toolcall.ToolCall{Tool: string(toolcall.ToolGitHub), Action: "write_code", Parameters: map[string]any{"repo": repo, "content": content}}
	if err := authorize(g.auth, identity, call, "Not authorized to write code"); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Committed to %s (mock)", repo), nil
}

// FileSystem serves read_file and write_file.
type FileSystem struct{ auth Authorizer }

func (f *FileSystem) Tool() toolcall.Tool { return toolcall.ToolFileSystem }

func (f *FileSystem) Execute(_ context.Context, identity policy.Identity, action string, params map[string]any) (any, error) {
	path := stringParam(params, "path", "/")
	if isRead(action) {
		call := toolcall.ToolCall{Tool: string(toolcall.ToolFileSystem), Action: "read_file", Parameters: map[string]any{"path": path}}
		if err := authorize(f.auth, identity, call, "Not authorized to read file"); err != nil {
			return nil, err
		}
		return fmt.Sprintf("Contents of %s (mock)", path), nil
	}
	content := stringParam(params, "content", "")
	call := toolcall.ToolCall{Tool: string(toolcall.ToolFileSystem), Action: "write_file", Parameters: map[string]any{"path": path, "content": content}}
	if err := authorize(f.auth, identity, call, "Not authorized to write file"); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Wrote to %s (mock)", path), nil
}

// Deployment serves deploy.
type Deployment struct{ auth Authorizer }

func (d *Deployment) Tool() toolcall.Tool { return toolcall.ToolDeployment }

func (d *Deployment) Execute(_ context.Context, identity policy.Identity, _ string, params map[string]any) (any, error) {
	env := stringParam(params, "env", "staging")
	call := toolcall.ToolCall{Tool: string(toolcall.ToolDeployment), Action: "deploy", Parameters: map[string]any{"env": env}}
	if err := authorize(d.auth, identity, call, "Not authorized to deploy"); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Deployed to %s (mock)", env), nil
}

// DB serves migrate.
type DB struct{ auth Authorizer }

func (d *DB) Tool() toolcall.Tool { return toolcall.ToolDB }

func (d *DB) Execute(_ context.Context, identity policy.Identity, _ string, params map[string]any) (any, error) {
	script := stringParam(params, "script", "")
	call := toolcall.ToolCall{Tool: string(toolcall.ToolDB), Action: "migrate", Parameters: map[string]any{"script": script}}
	if err := authorize(d.auth, identity, call, "Not authorized to migrate DB"); err != nil {
		return nil, err
	}
	return "DB migration applied (mock)", nil
}

// Secrets serves read_secret. Values come from the vault and are only
// ever returned redacted.
type Secrets struct {
	auth  Authorizer
	vault *secrets.Vault
}

func (s *Secrets) Tool() toolcall.Tool { return toolcall.ToolSecrets }

func (s *Secrets) Execute(_ context.Context, identity policy.Identity, _ string, params map[string]any) (any, error) {
	name := stringParam(params, "name", "")
	call := toolcall.ToolCall{Tool: string(toolcall.ToolSecrets), Action: "read_secret", Parameters: map[string]any{"name": name}}
	if err := authorize(s.auth, identity, call, "Not authorized to access secrets"); err != nil {
		return nil, err
	}
	if s.vault != nil {
		if v := s.vault.Redacted(name); v != "" {
			return fmt.Sprintf("secret:%s=%s", name, v), nil
		}
	}
	return fmt.Sprintf("secret:%s (mock)", name), nil
}

// CRM serves create_lead.
type CRM struct{ auth Authorizer }

func (c *CRM) Tool() toolcall.Tool { return toolcall.ToolCRM }

func (c *CRM) Execute(_ context.Context, identity policy.Identity, _ string, params map[string]any) (any, error) {
	call := toolcall.ToolCall{Tool: string(toolcall.ToolCRM), Action: "create_lead", Parameters: map[string]any{"lead": params["lead"]}}
	if err := authorize(c.auth, identity, call, "Not authorized to create lead"); err != nil {
		return nil, err
	}
	return "Lead created (mock)", nil
}
