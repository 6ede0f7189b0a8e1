package policy

// Task names defined by the built-in presets.
const (
	TaskFeatureDevelopment        = "Feature_Development"
	TaskProductionSupport         = "Production_Support"
	TaskIncidentResolution        = "Incident_Resolution"
	TaskInfrastructureMaintenance = "Infrastructure_Maintenance"
	TaskLeadGeneration            = "Lead_Generation"
	TaskProposalDevelopment       = "Proposal_Development"
)

// Presets returns the built-in policy tables. Each call returns a fresh copy.
func Presets() *Tables {
	return &Tables{
		Identities: presetIdentities(),
		Tasks:      presetTasks(),
		Folders: map[string][]string{
			"Engineering": {"eng01"},
			"IT":          {"it01"},
			"Sales":       {"sales01"},
		},
		ToolParams: map[string]map[string]ParamRule{
			"GitHub":     {"repo": {}, "content": {Sensitive: true}},
			"FileSystem": {"path": {}, "content": {Sensitive: true}},
			"Secrets":    {"name": {}},
			"CRM":        {"lead": {}},
			"DB":         {"script": {Sensitive: true}, "approval_id": {}},
			"Deployment": {"env": {}, "approval_id": {}},
		},
		HighRisk: []HighRiskRule{
			{Tool: "Deployment", ActionKeyword: "deploy"},
			{Tool: "DB", ActionKeyword: "migrate"},
		},
		References: presetReferences(),
	}
}

func presetIdentities() map[string]Identity {
	ids := []Identity{
		{ID: "eng01", Name: "Alex", Team: "Engineering", Permissions: map[string]Level{
			"GitHub": LevelWrite, "FileSystem": LevelReadWrite, "Deployment": LevelDeploy,
		}},
		{ID: "it01", Name: "Priya", Team: "IT", Permissions: map[string]Level{
			"GitHub": LevelRead, "FileSystem": LevelRead, "Deployment": LevelDeploy,
		}},
		{ID: "sales01", Name: "Marco", Team: "Sales", Permissions: map[string]Level{
			"GitHub": LevelNone, "FileSystem": LevelRead, "CRM": LevelWrite,
		}},
		// Sales engineer: repository read access only.
		{ID: "se01", Name: "Sam", Team: "Sales", Permissions: map[string]Level{
			"GitHub": LevelRead, "CRM": LevelRead,
		}},
		{ID: "sec01", Name: "Dana", Team: "Security", Permissions: map[string]Level{
			"Secrets": LevelRead,
		}},
		{ID: "mgr01", Name: "Morgan", Team: "Management", Permissions: map[string]Level{}},
	}
	out := make(map[string]Identity, len(ids))
	for _, i := range ids {
		out[i.ID] = i
	}
	return out
}

func presetTasks() map[string]Task {
	tasks := []Task{
		{Name: TaskFeatureDevelopment, RequiredTools: map[string]Level{"GitHub": LevelWrite}},
		{Name: TaskProductionSupport, RequiredTools: map[string]Level{"GitHub": LevelRead, "FileSystem": LevelRead}},
		{Name: TaskIncidentResolution, RequiredTools: map[string]Level{"GitHub": LevelRead, "FileSystem": LevelRead}},
		{Name: TaskInfrastructureMaintenance, RequiredTools: map[string]Level{"Deployment": LevelDeploy, "FileSystem": LevelRead}},
		{Name: TaskLeadGeneration, RequiredTools: map[string]Level{"CRM": LevelWrite}},
		{Name: TaskProposalDevelopment, RequiredTools: map[string]Level{"FileSystem": LevelRead}},
	}
	out := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		out[t.Name] = t
	}
	return out
}

// presetReferences is ordered; the router's linear fallback depends on it.
func presetReferences() []ReferencePrompt {
	groups := []struct {
		task  string
		texts []string
	}{
		{TaskFeatureDevelopment, []string{
			"Write new component",
			"Fix bug",
			"Commit change",
			"Push a new README file to the main branch.",
			"Create a new API endpoint and commit the implementation",
		}},
		{TaskProductionSupport, []string{
			"Investigate why the service crashed",
			"Check deployment logs for the last service incident",
			"Investigate incident logs",
			"Restart the failing service and collect logs",
		}},
		{TaskIncidentResolution, []string{
			"Troubleshoot system logs",
			"Investigate incident logs",
		}},
		{TaskInfrastructureMaintenance, []string{
			"Run maintenance scripts on the server",
			"Perform infrastructure upgrade",
			"Apply security patches to servers",
		}},
		{TaskLeadGeneration, []string{
			"Generate a list of leads for the EMEA region",
			"Find potential customers for product X",
		}},
		{TaskProposalDevelopment, []string{
			"Prepare a proposal document for customer",
			"Assemble sales collateral and slides for the RFP",
		}},
	}
	var refs []ReferencePrompt
	for _, g := range groups {
		for _, text := range g.texts {
			refs = append(refs, ReferencePrompt{Task: g.task, Text: text})
		}
	}
	return refs
}
