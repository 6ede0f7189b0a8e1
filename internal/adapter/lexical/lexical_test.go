package lexical

import (
	"context"
	"testing"

	"github.com/Strob0t/taskgate/internal/domain/routing"
)

func build(t *testing.T, items ...routing.ReferenceItem) *Matcher {
	t.Helper()
	m := New()
	if err := m.Build(items); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestFindBestMatchLongestWins(t *testing.T) {
	m := build(t,
		routing.ReferenceItem{Task: "A", Text: "logs"},
		routing.ReferenceItem{Task: "B", Text: "Investigate incident logs"},
		routing.ReferenceItem{Task: "C", Text: "incident"},
	)

	got, ok, err := m.FindBestMatch(context.Background(), "please investigate incident logs now")
	if err != nil || !ok {
		t.Fatalf("expected a match, got ok=%v err=%v", ok, err)
	}
	if got != "investigate incident logs" {
		t.Errorf("got %q, want longest pattern", got)
	}
	if task, _ := m.TaskFor(got); task != "B" {
		t.Errorf("TaskFor = %q, want B", task)
	}
}

func TestFindBestMatchSuffixViaFailureLinks(t *testing.T) {
	// "she" is only reachable through the failure link of "ushe".
	m := build(t,
		routing.ReferenceItem{Task: "he", Text: "he"},
		routing.ReferenceItem{Task: "she", Text: "she"},
		routing.ReferenceItem{Task: "his", Text: "his"},
		routing.ReferenceItem{Task: "hers", Text: "hers"},
	)

	got, ok, _ := m.FindBestMatch(context.Background(), "ushers")
	if !ok || got != "hers" {
		t.Errorf("got %q ok=%v, want hers", got, ok)
	}
	got, ok, _ = m.FindBestMatch(context.Background(), "ushe")
	if !ok || got != "she" {
		t.Errorf("got %q ok=%v, want she", got, ok)
	}
}

func TestFindBestMatchTieKeepsFirstEmitted(t *testing.T) {
	m := build(t,
		routing.ReferenceItem{Task: "A", Text: "abc"},
		routing.ReferenceItem{Task: "B", Text: "xyz"},
	)
	got, _, _ := m.FindBestMatch(context.Background(), "xyz abc")
	if got != "xyz" {
		t.Errorf("got %q, want first emitted xyz", got)
	}
}

func TestDuplicatePatternFirstTaskWins(t *testing.T) {
	m := build(t,
		routing.ReferenceItem{Task: "Production_Support", Text: "Investigate incident logs"},
		routing.ReferenceItem{Task: "Incident_Resolution", Text: "investigate incident logs  "},
	)
	if task, _ := m.TaskFor("investigate incident logs"); task != "Production_Support" {
		t.Errorf("TaskFor = %q, want first occurrence", task)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestCaseInsensitiveAndUnicode(t *testing.T) {
	m := build(t, routing.ReferenceItem{Task: "T", Text: "Überprüfe Logs"})
	got, ok, _ := m.FindBestMatch(context.Background(), "bitte ÜBERPRÜFE LOGS")
	if !ok || got != "überprüfe logs" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestNoMatch(t *testing.T) {
	ctx := context.Background()

	empty := New()
	if empty.Available() {
		t.Error("empty matcher should not be available")
	}
	if _, ok, _ := empty.FindBestMatch(ctx, "anything"); ok {
		t.Error("empty matcher should not match")
	}

	m := build(t,
		routing.ReferenceItem{Task: "A", Text: "deploy"},
		routing.ReferenceItem{Task: "B", Text: "   "},
	)
	if m.Len() != 1 {
		t.Errorf("blank patterns should be skipped, Len = %d", m.Len())
	}
	if _, ok, _ := m.FindBestMatch(ctx, ""); ok {
		t.Error("empty query should not match")
	}
	if _, ok, _ := m.FindBestMatch(ctx, "nothing relevant"); ok {
		t.Error("unrelated query should not match")
	}
}

func TestRebuildReplacesCorpus(t *testing.T) {
	m := build(t, routing.ReferenceItem{Task: "A", Text: "alpha"})
	if err := m.Build([]routing.ReferenceItem{{Task: "B", Text: "beta"}}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.FindBestMatch(context.Background(), "alpha"); ok {
		t.Error("old pattern should be gone after rebuild")
	}
	if _, ok := m.TaskFor("alpha"); ok {
		t.Error("old task mapping should be gone after rebuild")
	}
}
