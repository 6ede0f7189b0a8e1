package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Strob0t/taskgate/internal/config"
	"github.com/Strob0t/taskgate/internal/service"
)

// runPromote copies verified prompts into the labeled corpus.
func runPromote(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "list candidates without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, &infra{}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := service.NewDatasetService(a.dataset, a.corpus).Promote(ctx, *dryRun)
	if err != nil {
		return err
	}
	if *dryRun {
		for _, c := range rep.Candidates {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", c.Task, c.Text)
		}
		fmt.Fprintf(os.Stdout, "%d candidates (dry run)\n", len(rep.Candidates))
		return nil
	}
	fmt.Fprintf(os.Stdout, "promoted %d, skipped %d already labeled\n", rep.Added, rep.Skipped)
	return nil
}

// runEmbed builds the semantic matcher asset from the current corpus.
func runEmbed(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	out := fs.String("out", cfg.DataPath(cfg.Data.EmbeddingsFN), "asset output path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, &infra{}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := service.NewDatasetService(a.dataset, a.corpus).BuildAsset(ctx, *out, a.embedder)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %d reference embeddings to %s using %s\n", n, *out, a.embedder.Name())
	return nil
}
