// Package matcher defines the port for prompt-to-reference matching.
package matcher

import (
	"context"
	"strings"

	"github.com/Strob0t/taskgate/internal/domain/routing"
)

// Matcher finds the reference text that best matches a prompt.
type Matcher interface {
	// Build replaces the matcher's corpus.
	Build(items []routing.ReferenceItem) error

	// FindBestMatch returns the best matching normalized reference text.
	// ok is false when nothing matched.
	FindBestMatch(ctx context.Context, text string) (match string, ok bool, err error)

	// TaskFor maps a normalized reference text back to its task.
	TaskFor(text string) (string, bool)

	// Available reports whether FindBestMatch can produce matches.
	Available() bool
}

// Normalize lower-cases and trims a reference text the way every matcher
// keys its patterns.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
