// Package semantic implements an embedding-based matcher that returns the
// reference text nearest to the prompt by cosine similarity.
package semantic

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/embedding"
	"github.com/Strob0t/taskgate/internal/port/matcher"
)

// Matcher matches prompts against a precomputed embeddings asset. When the
// asset is missing or malformed it only answers TaskFor and is unavailable.
type Matcher struct {
	assetPath string
	embedder  embedding.Embedder // optional; pseudo embeddings otherwise

	mu    sync.RWMutex
	asset *Asset
	tasks map[string]string
}

var _ matcher.Matcher = (*Matcher)(nil)

// New creates a matcher reading its asset from assetPath. embedder may be nil.
func New(assetPath string, embedder embedding.Embedder) *Matcher {
	return &Matcher{assetPath: assetPath, embedder: embedder, tasks: map[string]string{}}
}

// Build loads the asset and indexes items for TaskFor. An unreadable asset
// is not an error; the matcher just reports Available() == false.
func (m *Matcher) Build(items []routing.ReferenceItem) error {
	tasks := make(map[string]string, len(items))
	for _, it := range items {
		text := matcher.Normalize(it.Text)
		if text == "" {
			continue
		}
		if _, seen := tasks[text]; !seen {
			tasks[text] = it.Task
		}
	}

	asset, err := ReadAsset(m.assetPath)
	if err != nil {
		slog.Debug("semantic matcher: asset unavailable", "path", m.assetPath, "error", err)
		asset = nil
	} else {
		for _, it := range asset.Items {
			if _, seen := tasks[it.Text]; !seen {
				tasks[it.Text] = it.Task
			}
		}
	}

	m.mu.Lock()
	m.asset = asset
	m.tasks = tasks
	m.mu.Unlock()
	return nil
}

// FindBestMatch embeds the lower-cased text and returns the reference text
// with the highest similarity. Embedder failures fall back to pseudo
// embeddings; the method itself never fails.
func (m *Matcher) FindBestMatch(ctx context.Context, text string) (string, bool, error) {
	m.mu.RLock()
	asset := m.asset
	m.mu.RUnlock()

	text = strings.ToLower(text)
	if asset == nil || text == "" {
		return "", false, nil
	}

	query := m.embed(ctx, text, asset)

	best := -1
	bestScore := 0.0
	for i := range asset.Items {
		s := dot(query, asset.Items[i].Vector)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return "", false, nil
	}
	return asset.Items[best].Text, true, nil
}

// embed uses the configured model only when the asset was built with it;
// vectors from different models are not comparable.
func (m *Matcher) embed(ctx context.Context, text string, asset *Asset) []float32 {
	dim := asset.Dimension
	if m.embedder != nil && m.embedder.Name() == asset.Model {
		vec, err := m.embedder.Embed(ctx, text)
		switch {
		case err != nil:
			slog.Debug("semantic matcher: embedder failed, using pseudo embedding", "model", m.embedder.Name(), "error", err)
		case len(vec) != dim:
			slog.Warn("semantic matcher: dimension mismatch, using pseudo embedding", "model", m.embedder.Name(), "got", len(vec), "want", dim)
		default:
			return normalize(vec)
		}
	}
	return PseudoEmbed(text, dim)
}

// TaskFor returns the task for a normalized reference text.
func (m *Matcher) TaskFor(text string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[text]
	return task, ok
}

// Available reports whether an asset is loaded.
func (m *Matcher) Available() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.asset != nil
}
