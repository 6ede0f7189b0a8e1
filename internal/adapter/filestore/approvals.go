package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/port/database"
)

// ApprovalFile persists the full approval set as one JSON object keyed by
// approval ID. Every save rewrites the file atomically.
type ApprovalFile struct {
	path string
}

var _ database.ApprovalPersister = (*ApprovalFile)(nil)

// NewApprovalFile creates a persister for path.
func NewApprovalFile(path string) *ApprovalFile {
	return &ApprovalFile{path: path}
}

// Load reads the snapshot. A missing file yields an empty set.
func (f *ApprovalFile) Load(_ context.Context) (map[string]approval.Approval, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]approval.Approval{}, nil
		}
		return nil, fmt.Errorf("read approvals %s: %w", f.path, err)
	}

	out := map[string]approval.Approval{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse approvals %s: %w", f.path, err)
	}
	for id, a := range out {
		if a.ID == "" {
			a.ID = id
			out[id] = a
		}
	}
	return out, nil
}

// Save rewrites the snapshot. changed is unused; the whole set is written.
func (f *ApprovalFile) Save(_ context.Context, snapshot map[string]approval.Approval, _ approval.Approval) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal approvals: %w", err)
	}
	if err := WriteFileAtomic(f.path, data, 0o600); err != nil {
		return fmt.Errorf("save approvals %s: %w", f.path, err)
	}
	return nil
}
