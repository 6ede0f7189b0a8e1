package policy

import "testing"

func TestLevelSatisfies(t *testing.T) {
	all := []Level{LevelNone, LevelRead, LevelWrite, LevelReadWrite, LevelDeploy, Level("admin"), Level("")}
	allowed := map[Level][]Level{
		LevelRead:   {LevelRead, LevelReadWrite, LevelWrite},
		LevelWrite:  {LevelWrite, LevelReadWrite},
		LevelDeploy: {LevelDeploy},
	}

	for _, required := range all {
		for _, granted := range all {
			want := false
			for _, ok := range allowed[required] {
				if granted == ok {
					want = true
				}
			}
			if got := granted.Satisfies(required); got != want {
				t.Errorf("%q.Satisfies(%q) = %v, want %v", granted, required, got, want)
			}
		}
	}
}

func TestLevelCanWrite(t *testing.T) {
	tests := map[Level]bool{
		LevelNone:      false,
		LevelRead:      false,
		LevelWrite:     true,
		LevelReadWrite: true,
		LevelDeploy:    false,
	}
	for l, want := range tests {
		if got := l.CanWrite(); got != want {
			t.Errorf("%q.CanWrite() = %v, want %v", l, got, want)
		}
	}
}

func TestIdentityLevelDefaultsToNone(t *testing.T) {
	id := Identity{ID: "x", Permissions: map[string]Level{"GitHub": LevelRead}}
	if got := id.Level("GitHub"); got != LevelRead {
		t.Errorf("Level(GitHub) = %q", got)
	}
	if got := id.Level("Secrets"); got != LevelNone {
		t.Errorf("Level(Secrets) = %q, want none", got)
	}
}

func TestHighRiskRuleMatches(t *testing.T) {
	r := HighRiskRule{Tool: "Deployment", ActionKeyword: "deploy"}
	tests := []struct {
		tool, action string
		want         bool
	}{
		{"Deployment", "deploy", true},
		{"Deployment", "deploy_canary", true},
		{"Deployment", "status", false},
		{"DB", "deploy", false},
	}
	for _, tt := range tests {
		if got := r.Matches(tt.tool, tt.action); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.tool, tt.action, got, tt.want)
		}
	}
}

func TestTablesLookups(t *testing.T) {
	tables := Presets()

	if !tables.FolderAllows("Engineering", "eng01") {
		t.Error("eng01 should be allowed in Engineering")
	}
	if tables.FolderAllows("Engineering", "it01") {
		t.Error("it01 should not be allowed in Engineering")
	}
	if tables.FolderAllows("Finance", "eng01") {
		t.Error("unknown folder should allow nobody")
	}
	if !tables.IsHighRisk("DB", "migrate") || !tables.IsHighRisk("Deployment", "deploy") {
		t.Error("deploy and migrate should be high risk")
	}
	if tables.IsHighRisk("GitHub", "write_code") {
		t.Error("write_code should not be high risk")
	}
	if _, ok := tables.ActionLevel("GitHub", "write_code"); ok {
		t.Error("presets define no explicit action levels")
	}
}
