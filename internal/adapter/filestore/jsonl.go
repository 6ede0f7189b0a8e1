package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Strob0t/taskgate/internal/domain/approval"
	"github.com/Strob0t/taskgate/internal/domain/audit"
	"github.com/Strob0t/taskgate/internal/port/database"
)

// JSONLLog appends one JSON document per line to a file. It serves both as
// the approval lifecycle log and as the dispatch audit log.
type JSONLLog struct {
	mu   sync.Mutex
	path string
}

var (
	_ database.ApprovalEventLog = (*JSONLLog)(nil)
	_ database.ApprovalHistory  = (*JSONLLog)(nil)
	_ database.AuditSink        = (*JSONLLog)(nil)
	_ database.AuditReader      = (*JSONLLog)(nil)
)

// NewJSONLLog creates a log appending to path.
func NewJSONLLog(path string) *JSONLLog {
	return &JSONLLog{path: path}
}

// Append writes an approval lifecycle event.
func (l *JSONLLog) Append(_ context.Context, ev approval.Event) error {
	return l.appendLine(ev)
}

// WriteAudit writes a dispatch audit entry.
func (l *JSONLLog) WriteAudit(_ context.Context, entry audit.Entry) error {
	return l.appendLine(entry)
}

// Events scans the log for the events of one approval, in append order.
func (l *JSONLLog) Events(_ context.Context, approvalID string) ([]approval.Event, error) {
	l.mu.Lock()
	all, err := ReadJSONL[approval.Event](l.path)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []approval.Event
	for _, ev := range all {
		if ev.ApprovalID == approvalID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// AuditByUser scans the log for the latest limit entries of userID,
// newest first.
func (l *JSONLLog) AuditByUser(_ context.Context, userID string, limit int) ([]audit.Entry, error) {
	l.mu.Lock()
	all, err := ReadJSONL[audit.Entry](l.path)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []audit.Entry
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].User == userID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (l *JSONLLog) appendLine(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal log line: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log %s: %w", l.path, err)
	}
	return f.Close()
}

// ReadJSONL decodes every line of path into a T. A missing file yields nil.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path) //nolint:gosec // G304: configured log path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", path, len(out)+1, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return out, nil
}
