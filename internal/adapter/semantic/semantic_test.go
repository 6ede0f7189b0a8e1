package semantic

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Strob0t/taskgate/internal/domain/routing"
)

var corpus = []routing.ReferenceItem{
	{Task: "Feature_Development", Text: "Write new component"},
	{Task: "Production_Support", Text: "Investigate incident logs"},
	{Task: "Incident_Resolution", Text: "Investigate incident logs"},
	{Task: "Lead_Generation", Text: "Find potential customers for product X"},
}

type failingEmbedder struct{ name string }

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}
func (f failingEmbedder) Dimensions() int { return DefaultDimensions }
func (f failingEmbedder) Name() string    { return f.name }

type shortEmbedder struct{}

func (shortEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
func (shortEmbedder) Dimensions() int                                   { return 2 }
func (shortEmbedder) Name() string                                      { return "pseudo/blake2b" }

func TestPseudoEmbed(t *testing.T) {
	a := PseudoEmbed("deploy to production", 64)
	b := PseudoEmbed("deploy to production", 64)
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("pseudo embedding is not deterministic")
		}
	}
	if n := math.Sqrt(dot(a, a)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
	var mean float64
	for _, v := range PseudoEmbed("x", 200) {
		mean += float64(v)
	}
	if math.Abs(mean) > 1e-4 {
		t.Errorf("vector not mean-centered, sum = %v", mean)
	}
	if PseudoEmbed("x", 0) != nil {
		t.Error("zero dimension should return nil")
	}
}

func writeTestAsset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference_embeddings.json")
	a, err := WriteAsset(context.Background(), path, corpus, Pseudo{Dim: 128})
	if err != nil {
		t.Fatalf("WriteAsset: %v", err)
	}
	if len(a.Items) != 3 {
		t.Fatalf("expected duplicate text collapsed to 3 items, got %d", len(a.Items))
	}
	return path
}

func TestFindBestMatchExactReference(t *testing.T) {
	m := New(writeTestAsset(t), nil)
	if err := m.Build(corpus); err != nil {
		t.Fatal(err)
	}
	if !m.Available() {
		t.Fatal("expected matcher to be available")
	}

	got, ok, err := m.FindBestMatch(context.Background(), "Write New Component")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got != "write new component" {
		t.Errorf("got %q", got)
	}
	if task, _ := m.TaskFor(got); task != "Feature_Development" {
		t.Errorf("TaskFor = %q", task)
	}
	if task, _ := m.TaskFor("investigate incident logs"); task != "Production_Support" {
		t.Errorf("duplicate text should keep first task, got %q", task)
	}
}

func TestFindBestMatchEmbedderFallback(t *testing.T) {
	path := writeTestAsset(t)
	for name, e := range map[string]interface {
		Embed(context.Context, string) ([]float32, error)
		Dimensions() int
		Name() string
	}{
		"error":              failingEmbedder{name: "pseudo/blake2b"},
		"dimension mismatch": shortEmbedder{},
		"other model":        failingEmbedder{name: "ollama/other"},
	} {
		t.Run(name, func(t *testing.T) {
			m := New(path, e)
			_ = m.Build(corpus)
			got, ok, err := m.FindBestMatch(context.Background(), "investigate incident logs")
			if err != nil || !ok || got != "investigate incident logs" {
				t.Errorf("got %q ok=%v err=%v", got, ok, err)
			}
		})
	}
}

func TestMissingAssetIsUnavailable(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err := m.Build(corpus); err != nil {
		t.Fatalf("missing asset must not fail Build: %v", err)
	}
	if m.Available() {
		t.Error("expected unavailable")
	}
	if _, ok, err := m.FindBestMatch(context.Background(), "write new component"); ok || err != nil {
		t.Errorf("expected silent no-match, ok=%v err=%v", ok, err)
	}
	if task, ok := m.TaskFor("write new component"); !ok || task != "Feature_Development" {
		t.Errorf("TaskFor should still work, got %q %v", task, ok)
	}
}

func TestMalformedAssetIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"dimension":3,"items":[{"task":"A","text":"a","vector":[1,2]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadAsset(path); err == nil {
		t.Error("expected dimension error")
	}
	m := New(path, nil)
	_ = m.Build(corpus)
	if m.Available() {
		t.Error("malformed asset should leave matcher unavailable")
	}
}
