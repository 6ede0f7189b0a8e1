package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Strob0t/taskgate/internal/adapter/filestore"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/embedding"
	"github.com/Strob0t/taskgate/internal/port/matcher"
)

// Asset is the on-disk form of the reference embeddings.
type Asset struct {
	Model     string       `json:"model"`
	Dimension int          `json:"dimension"`
	CreatedAt time.Time    `json:"created_at"`
	Items     []AssetEntry `json:"items"`
}

// AssetEntry is one embedded reference text. Vector is unit-normalized.
type AssetEntry struct {
	Task   string    `json:"task"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// ReadAsset loads and checks an asset file.
func ReadAsset(path string) (*Asset, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: configured asset path
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	var a Asset
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse asset %s: %w", path, err)
	}
	if a.Dimension <= 0 {
		return nil, fmt.Errorf("asset %s: invalid dimension %d", path, a.Dimension)
	}
	if len(a.Items) == 0 {
		return nil, errors.New("asset " + path + ": no items")
	}
	for i, it := range a.Items {
		if len(it.Vector) != a.Dimension {
			return nil, fmt.Errorf("asset %s: item %d has %d dimensions, want %d", path, i, len(it.Vector), a.Dimension)
		}
		a.Items[i].Text = matcher.Normalize(it.Text)
		a.Items[i].Vector = normalize(it.Vector)
	}
	return &a, nil
}

// WriteAsset embeds every distinct reference text with e and writes the
// asset atomically to path.
func WriteAsset(ctx context.Context, path string, items []routing.ReferenceItem, e embedding.Embedder) (*Asset, error) {
	a := &Asset{
		Model:     e.Name(),
		Dimension: e.Dimensions(),
		CreatedAt: time.Now().UTC(),
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		text := matcher.Normalize(it.Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true

		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", text, err)
		}
		if len(vec) != a.Dimension {
			return nil, fmt.Errorf("embed %q: got %d dimensions, want %d", text, len(vec), a.Dimension)
		}
		a.Items = append(a.Items, AssetEntry{Task: it.Task, Text: text, Vector: normalize(vec)})
	}

	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal asset: %w", err)
	}
	if err := filestore.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write asset %s: %w", path, err)
	}
	return a, nil
}
