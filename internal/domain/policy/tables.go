package policy

// Tables is the injected static configuration the policy engine and router
// read from. It is treated as immutable once loaded.
//
// ActionLevels optionally pins the required level of specific actions per
// tool; actions not listed fall back to keyword classification.
type Tables struct {
	Identities   map[string]Identity             `json:"identities" yaml:"identities"`
	Tasks        map[string]Task                 `json:"tasks" yaml:"tasks"`
	Folders      map[string][]string             `json:"folders" yaml:"folders"`
	ToolParams   map[string]map[string]ParamRule `json:"tool_params" yaml:"tool_params"`
	HighRisk     []HighRiskRule                  `json:"high_risk" yaml:"high_risk"`
	ActionLevels map[string]map[string]Level     `json:"action_levels,omitempty" yaml:"action_levels,omitempty"`
	References   []ReferencePrompt               `json:"references" yaml:"references"`
}

// Identity looks up an identity by ID.
func (t *Tables) Identity(id string) (Identity, bool) {
	i, ok := t.Identities[id]
	return i, ok
}

// Task looks up a task by name.
func (t *Tables) Task(name string) (Task, bool) {
	task, ok := t.Tasks[name]
	return task, ok
}

// FolderAllows reports whether identityID is listed for folder.
func (t *Tables) FolderAllows(folder, identityID string) bool {
	for _, id := range t.Folders[folder] {
		if id == identityID {
			return true
		}
	}
	return false
}

// ActionLevel returns the explicitly configured level for tool/action.
func (t *Tables) ActionLevel(tool, action string) (Level, bool) {
	l, ok := t.ActionLevels[tool][action]
	return l, ok
}

// IsHighRisk reports whether any high-risk rule covers tool/action.
func (t *Tables) IsHighRisk(tool, action string) bool {
	for _, r := range t.HighRisk {
		if r.Matches(tool, action) {
			return true
		}
	}
	return false
}
