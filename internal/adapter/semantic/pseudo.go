package semantic

import (
	"context"
	"math"

	"golang.org/x/crypto/blake2b"
)

// DefaultDimensions is the vector size used when no model is configured.
const DefaultDimensions = 384

// PseudoEmbed derives a deterministic unit vector of length dim from text.
// The BLAKE2b-512 digest is tiled to dim bytes, mean-centered and
// normalized. It carries no semantics; it keeps the pipeline working
// offline and in tests.
func PseudoEmbed(text string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	sum := blake2b.Sum512([]byte(text))

	vec := make([]float64, dim)
	var mean float64
	for i := range vec {
		vec[i] = float64(sum[i%len(sum)])
		mean += vec[i]
	}
	mean /= float64(dim)

	var norm float64
	for i := range vec {
		vec[i] -= mean
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	for i, v := range vec {
		if norm > 0 {
			out[i] = float32(v / norm)
		}
	}
	return out
}

// Pseudo is an Embedder backed by PseudoEmbed.
type Pseudo struct {
	Dim int
}

// Embed returns PseudoEmbed(text, p.Dim).
func (p Pseudo) Embed(_ context.Context, text string) ([]float32, error) {
	return PseudoEmbed(text, p.Dimensions()), nil
}

// Dimensions returns the configured size, DefaultDimensions when unset.
func (p Pseudo) Dimensions() int {
	if p.Dim <= 0 {
		return DefaultDimensions
	}
	return p.Dim
}

// Name identifies the pseudo model.
func (Pseudo) Name() string { return "pseudo/blake2b" }

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
