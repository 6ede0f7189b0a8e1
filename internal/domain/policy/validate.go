package policy

import (
	"fmt"

	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Validate checks that the tables are internally consistent: levels are
// known, tools are registered and every reference names a defined task.
func (t *Tables) Validate() error {
	for id, ident := range t.Identities {
		if ident.ID != "" && ident.ID != id {
			return fmt.Errorf("policy: identity %q has mismatched id %q", id, ident.ID)
		}
		for tool, l := range ident.Permissions {
			if err := checkToolLevel(tool, l); err != nil {
				return fmt.Errorf("policy: identity %q: %w", id, err)
			}
		}
	}
	for name, task := range t.Tasks {
		if len(task.RequiredTools) == 0 {
			return fmt.Errorf("policy: task %q requires no tools", name)
		}
		for tool, l := range task.RequiredTools {
			if err := checkToolLevel(tool, l); err != nil {
				return fmt.Errorf("policy: task %q: %w", name, err)
			}
		}
	}
	for folder, ids := range t.Folders {
		for _, id := range ids {
			if _, ok := t.Identities[id]; !ok {
				return fmt.Errorf("policy: folder %q lists unknown identity %q", folder, id)
			}
		}
	}
	for tool := range t.ToolParams {
		if _, ok := toolcall.ParseTool(tool); !ok {
			return fmt.Errorf("policy: tool_params: unknown tool %q", tool)
		}
	}
	for i, r := range t.HighRisk {
		if _, ok := toolcall.ParseTool(r.Tool); !ok {
			return fmt.Errorf("policy: high_risk[%d]: unknown tool %q", i, r.Tool)
		}
		if r.ActionKeyword == "" {
			return fmt.Errorf("policy: high_risk[%d]: action_keyword is required", i)
		}
	}
	for tool, actions := range t.ActionLevels {
		for action, l := range actions {
			if err := checkToolLevel(tool, l); err != nil {
				return fmt.Errorf("policy: action_levels %q: %w", action, err)
			}
		}
	}
	for i, ref := range t.References {
		if ref.Text == "" {
			return fmt.Errorf("policy: references[%d]: text is required", i)
		}
		if _, ok := t.Tasks[ref.Task]; !ok {
			return fmt.Errorf("policy: references[%d]: unknown task %q", i, ref.Task)
		}
	}
	return nil
}

func checkToolLevel(tool string, l Level) error {
	if _, ok := toolcall.ParseTool(tool); !ok {
		return fmt.Errorf("unknown tool %q", tool)
	}
	if !l.Valid() {
		return fmt.Errorf("tool %q: invalid level %q", tool, l)
	}
	return nil
}
