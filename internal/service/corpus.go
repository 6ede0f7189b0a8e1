package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/taskgate/internal/domain/policy"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/trainingdata"
)

// Corpus assembles the routing corpus: curated labels first so they take
// precedence in the linear fallback, then the canonical reference prompts.
type Corpus struct {
	labels trainingdata.LabelStore
	tables *policy.Tables
}

var _ trainingdata.CorpusLoader = (*Corpus)(nil)

// NewCorpus creates a Corpus. labels may be nil.
func NewCorpus(labels trainingdata.LabelStore, tables *policy.Tables) *Corpus {
	return &Corpus{labels: labels, tables: tables}
}

// LoadCorpus returns the ordered corpus. Unreadable labels are skipped
// with a warning; the canonical references are always present.
func (c *Corpus) LoadCorpus(ctx context.Context) ([]routing.ReferenceItem, error) {
	var items []routing.ReferenceItem
	if c.labels != nil {
		labeled, err := c.labels.Labels(ctx)
		if err != nil {
			slog.Warn("prompt labels unreadable, using canonical references only", "error", err)
		} else {
			items = append(items, labeled...)
		}
	}
	if c.tables != nil {
		for _, ref := range c.tables.References {
			items = append(items, routing.ReferenceItem{Task: ref.Task, Text: ref.Text})
		}
	}
	return items, nil
}
