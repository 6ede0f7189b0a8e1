// Package trainingdata defines the ports for the routing corpus and the
// curated prompt datasets derived from routing outcomes.
package trainingdata

import (
	"context"

	"github.com/Strob0t/taskgate/internal/domain/routing"
)

// CorpusLoader returns the ordered routing corpus.
type CorpusLoader interface {
	LoadCorpus(ctx context.Context) ([]routing.ReferenceItem, error)
}

// Recorder stores routing outcomes for later curation.
type Recorder interface {
	Record(ctx context.Context, outcome routing.Outcome) error
}

// LabelStore manages the curated (prompt, task) label set.
type LabelStore interface {
	// Labels returns the labeled prompts in file order.
	Labels(ctx context.Context) ([]routing.ReferenceItem, error)

	// AddLabel appends a label unless an identical one exists. It reports
	// whether the label was added.
	AddLabel(ctx context.Context, item routing.ReferenceItem) (bool, error)

	// Verified returns the prompts recorded as successfully routed.
	Verified(ctx context.Context) ([]routing.Outcome, error)
}
