// Package embedding defines the port for text embedding models.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no embedding model is reachable.
var ErrUnavailable = errors.New("embedding: model unavailable")

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	// Embed returns the embedding of text. Vectors need not be normalized.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length produced by Embed.
	Dimensions() int

	// Name identifies the model, e.g. "ollama/all-minilm".
	Name() string
}
