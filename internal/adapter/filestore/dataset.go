package filestore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/trainingdata"
)

var (
	labelsHeader   = []string{"prompt", "task"}
	verifiedHeader = []string{"prompt", "task", "source", "ts"}
)

// Dataset stores the curated prompt CSV files:
//
//	labels    prompt,task            (header)  curated routing corpus
//	verified  prompt,task,source,ts  (header)  successfully routed prompts
//	failures  prompt,source,ts       (no header) prompts that did not route
//
// Verified and failure rows are deduplicated by prompt; labels by the
// exact (prompt, task) pair.
type Dataset struct {
	mu       sync.Mutex
	labels   string
	verified string
	failures string
}

var (
	_ trainingdata.Recorder   = (*Dataset)(nil)
	_ trainingdata.LabelStore = (*Dataset)(nil)
)

// NewDataset creates a dataset over the three CSV paths.
func NewDataset(labels, verified, failures string) *Dataset {
	return &Dataset{labels: labels, verified: verified, failures: failures}
}

// Labels returns the labeled prompts in file order. Rows with an empty
// prompt or task are skipped; a missing file yields no labels.
func (d *Dataset) Labels(_ context.Context) ([]routing.ReferenceItem, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := readDictCSV(d.labels)
	if err != nil {
		return nil, err
	}
	var out []routing.ReferenceItem
	for _, r := range rows {
		if r["prompt"] == "" || r["task"] == "" {
			continue
		}
		out = append(out, routing.ReferenceItem{Task: r["task"], Text: r["prompt"]})
	}
	return out, nil
}

// AddLabel appends item unless the identical (prompt, task) row exists.
func (d *Dataset) AddLabel(_ context.Context, item routing.ReferenceItem) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := readDictCSV(d.labels)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r["prompt"] == item.Text && r["task"] == item.Task {
			return false, nil
		}
	}
	if err := appendCSV(d.labels, labelsHeader, []string{item.Text, item.Task}); err != nil {
		return false, err
	}
	return true, nil
}

// Verified returns the successfully routed prompts in file order.
func (d *Dataset) Verified(_ context.Context) ([]routing.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := readDictCSV(d.verified)
	if err != nil {
		return nil, err
	}
	out := make([]routing.Outcome, 0, len(rows))
	for _, r := range rows {
		if r["prompt"] == "" {
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, r["ts"])
		out = append(out, routing.Outcome{
			Prompt:  r["prompt"],
			Task:    r["task"],
			Success: true,
			Source:  r["source"],
			TS:      ts,
		})
	}
	return out, nil
}

// Record appends an outcome to the verified or failure file unless the
// prompt is already present there.
func (d *Dataset) Record(_ context.Context, o routing.Outcome) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := o.TS.UTC().Format(time.RFC3339Nano)
	if !o.Success {
		rows, err := readCSV(d.failures)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if len(r) > 0 && r[0] == o.Prompt {
				return nil
			}
		}
		return appendCSV(d.failures, nil, []string{o.Prompt, o.Source, ts})
	}

	rows, err := readDictCSV(d.verified)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r["prompt"] == o.Prompt {
			return nil
		}
	}
	return appendCSV(d.verified, verifiedHeader, []string{o.Prompt, o.Task, o.Source, ts})
}

// readCSV returns all records of path; a missing file yields nil.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: configured dataset path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, rec)
	}
}

// readDictCSV maps each data row to its header columns.
func readDictCSV(path string) ([]map[string]string, error) {
	recs, err := readCSV(path)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	header := recs[0]
	out := make([]map[string]string, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// appendCSV appends rec to path, writing header first when the file is new.
func appendCSV(path string, header, rec []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	_, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: configured dataset path
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if isNew && header != nil {
		_ = w.Write(header)
	}
	_ = w.Write(rec)
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
