package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Strob0t/taskgate/internal/adapter/semantic"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/embedding"
	"github.com/Strob0t/taskgate/internal/port/trainingdata"
)

// DatasetService curates the routing corpus from recorded outcomes.
type DatasetService struct {
	store  trainingdata.LabelStore
	corpus trainingdata.CorpusLoader
}

// NewDatasetService creates a DatasetService.
func NewDatasetService(store trainingdata.LabelStore, corpus trainingdata.CorpusLoader) *DatasetService {
	return &DatasetService{store: store, corpus: corpus}
}

// PromoteReport summarizes one promotion run.
type PromoteReport struct {
	Candidates []routing.ReferenceItem // verified rows with both prompt and task
	Added      int
	Skipped    int // already labeled
}

// Promote copies verified prompts into the labeled corpus, skipping exact
// (prompt, task) duplicates. With dryRun nothing is written and every
// candidate is reported.
func (s *DatasetService) Promote(ctx context.Context, dryRun bool) (PromoteReport, error) {
	verified, err := s.store.Verified(ctx)
	if err != nil {
		return PromoteReport{}, fmt.Errorf("read verified prompts: %w", err)
	}

	var rep PromoteReport
	for _, o := range verified {
		item := routing.ReferenceItem{Task: strings.TrimSpace(o.Task), Text: strings.TrimSpace(o.Prompt)}
		if item.Text == "" || item.Task == "" {
			continue
		}
		rep.Candidates = append(rep.Candidates, item)
	}
	if dryRun {
		return rep, nil
	}

	for _, item := range rep.Candidates {
		added, err := s.store.AddLabel(ctx, item)
		if err != nil {
			return rep, fmt.Errorf("promote %q: %w", item.Text, err)
		}
		if added {
			rep.Added++
		} else {
			rep.Skipped++
		}
	}
	slog.Info("verified prompts promoted", "added", rep.Added, "skipped", rep.Skipped)
	return rep, nil
}

// BuildAsset embeds the current corpus into the semantic matcher asset at
// path and returns the number of references written.
func (s *DatasetService) BuildAsset(ctx context.Context, path string, e embedding.Embedder) (int, error) {
	items, err := s.corpus.LoadCorpus(ctx)
	if err != nil {
		return 0, fmt.Errorf("load corpus: %w", err)
	}
	asset, err := semantic.WriteAsset(ctx, path, items, e)
	if err != nil {
		return 0, err
	}
	slog.Info("embeddings asset written", "path", path, "references", len(asset.Items), "model", asset.Model)
	return len(asset.Items), nil
}
